package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/precoperto/api/internal/domain"
	platformfs "github.com/precoperto/api/internal/platform/firestore"
	"github.com/precoperto/api/internal/repositories"
)

const orderCollectionPattern = "users/%s/pedidos"

// OrderRepository stores confirmed orders under users/{uid}/pedidos and
// implements the transactional order placement.
type OrderRepository struct {
	provider *platformfs.Provider
}

func (r *OrderRepository) collection(ctx context.Context, uid string) (*firestore.CollectionRef, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, platformfs.WrapError("orders", errors.New("firestore: uid is required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(orderCollectionPattern, uid)), nil
}

func (r *OrderRepository) Get(ctx context.Context, uid, orderID string) (domain.Order, error) {
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return domain.Order{}, err
	}
	snap, err := coll.Doc(orderID).Get(ctx)
	if err != nil {
		return domain.Order{}, platformfs.WrapError("orders.get", err)
	}
	return decodeOrder(snap)
}

func (r *OrderRepository) List(ctx context.Context, uid string, page repositories.ListPage) ([]domain.Order, error) {
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return nil, err
	}

	query := coll.Query.OrderBy("createdAt", firestore.Desc)
	if page.StartAfter != "" {
		anchor, err := coll.Doc(page.StartAfter).Get(ctx)
		if err != nil {
			return nil, platformfs.WrapError("orders.list", err)
		}
		query = query.StartAfter(anchor)
	}
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, platformfs.WrapError("orders.list", err)
		}
		order, err := decodeOrder(snap)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// PlaceOrder writes the order and flips the source cart's orderPlaced flag in
// one transaction. The cart is re-read inside the transaction; a cart already
// fulfilled aborts the write so double submissions cannot produce two orders.
func (r *OrderRepository) PlaceOrder(ctx context.Context, uid string, order domain.Order) (domain.Order, error) {
	if strings.TrimSpace(order.ID) == "" {
		return domain.Order{}, platformfs.WrapError("orders.place", errors.New("firestore: order id is required"))
	}
	if strings.TrimSpace(order.CartID) == "" {
		return domain.Order{}, platformfs.WrapError("orders.place", errors.New("firestore: order cart id is required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	cartRef := client.Collection(fmt.Sprintf(cartCollectionPattern, uid)).Doc(order.CartID)
	orderRef := client.Collection(fmt.Sprintf(orderCollectionPattern, uid)).Doc(order.ID)

	err = platformfs.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		cartSnap, err := tx.Get(cartRef)
		if err != nil {
			return err
		}
		var cart domain.Cart
		if err := cartSnap.DataTo(&cart); err != nil {
			return err
		}
		if cart.OrderPlaced {
			return repositories.ErrCartAlreadyFulfilled
		}
		if err := tx.Create(orderRef, order); err != nil {
			return err
		}
		return tx.Update(cartRef, []firestore.Update{
			{Path: "orderPlaced", Value: true},
		})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrCartAlreadyFulfilled) {
			return domain.Order{}, repositories.ErrCartAlreadyFulfilled
		}
		return domain.Order{}, platformfs.WrapError("orders.place", err)
	}
	return order, nil
}

func decodeOrder(snap *firestore.DocumentSnapshot) (domain.Order, error) {
	var order domain.Order
	if err := snap.DataTo(&order); err != nil {
		return domain.Order{}, platformfs.WrapError("orders.decode", err)
	}
	order.ID = snap.Ref.ID
	return order, nil
}
