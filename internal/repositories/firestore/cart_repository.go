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
)

const cartCollectionPattern = "users/%s/carts"

// CartRepository stores saved baskets under users/{uid}/carts.
type CartRepository struct {
	provider *platformfs.Provider
}

func (r *CartRepository) collection(ctx context.Context, uid string) (*firestore.CollectionRef, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, platformfs.WrapError("carts", errors.New("firestore: uid is required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(cartCollectionPattern, uid)), nil
}

func (r *CartRepository) Create(ctx context.Context, uid string, cart domain.Cart) (domain.Cart, error) {
	if strings.TrimSpace(cart.ID) == "" {
		return domain.Cart{}, platformfs.WrapError("carts.create", errors.New("firestore: cart id is required"))
	}
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}
	if _, err := coll.Doc(cart.ID).Create(ctx, cart); err != nil {
		return domain.Cart{}, platformfs.WrapError("carts.create", err)
	}
	return cart, nil
}

func (r *CartRepository) Get(ctx context.Context, uid, cartID string) (domain.Cart, error) {
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}
	snap, err := coll.Doc(cartID).Get(ctx)
	if err != nil {
		return domain.Cart{}, platformfs.WrapError("carts.get", err)
	}
	return decodeCart(snap)
}

func (r *CartRepository) ListPending(ctx context.Context, uid string) ([]domain.Cart, error) {
	return r.list(ctx, uid, true)
}

func (r *CartRepository) List(ctx context.Context, uid string) ([]domain.Cart, error) {
	return r.list(ctx, uid, false)
}

func (r *CartRepository) list(ctx context.Context, uid string, pendingOnly bool) ([]domain.Cart, error) {
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return nil, err
	}

	query := coll.Query.OrderBy("createdAt", firestore.Desc)
	if pendingOnly {
		query = coll.Query.Where("orderPlaced", "==", false).OrderBy("createdAt", firestore.Desc)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var carts []domain.Cart
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, platformfs.WrapError("carts.list", err)
		}
		cart, err := decodeCart(snap)
		if err != nil {
			return nil, err
		}
		carts = append(carts, cart)
	}
	return carts, nil
}

func (r *CartRepository) Delete(ctx context.Context, uid, cartID string) error {
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(cartID).Delete(ctx, firestore.Exists); err != nil {
		return platformfs.WrapError("carts.delete", err)
	}
	return nil
}

func decodeCart(snap *firestore.DocumentSnapshot) (domain.Cart, error) {
	var cart domain.Cart
	if err := snap.DataTo(&cart); err != nil {
		return domain.Cart{}, platformfs.WrapError("carts.decode", err)
	}
	cart.ID = snap.Ref.ID
	return cart, nil
}
