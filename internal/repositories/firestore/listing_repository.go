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

// ListingRepository stores producer marketplace entries in produtores and
// barter board entries in trocas.
type ListingRepository struct {
	provider *platformfs.Provider
}

func listingCollectionName(kind domain.ListingKind) (string, error) {
	switch kind {
	case domain.ListingKindProducer:
		return "produtores", nil
	case domain.ListingKindBarter:
		return "trocas", nil
	default:
		return "", fmt.Errorf("firestore: unknown listing kind %q", kind)
	}
}

func (r *ListingRepository) collection(ctx context.Context, kind domain.ListingKind) (*firestore.CollectionRef, error) {
	name, err := listingCollectionName(kind)
	if err != nil {
		return nil, platformfs.WrapError("listings", err)
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(name), nil
}

func (r *ListingRepository) Create(ctx context.Context, listing domain.Listing) (domain.Listing, error) {
	if strings.TrimSpace(listing.ID) == "" {
		return domain.Listing{}, platformfs.WrapError("listings.create", errors.New("firestore: listing id is required"))
	}
	coll, err := r.collection(ctx, listing.Kind)
	if err != nil {
		return domain.Listing{}, err
	}
	if _, err := coll.Doc(listing.ID).Create(ctx, listing); err != nil {
		return domain.Listing{}, platformfs.WrapError("listings.create", err)
	}
	return listing, nil
}

func (r *ListingRepository) Get(ctx context.Context, kind domain.ListingKind, listingID string) (domain.Listing, error) {
	coll, err := r.collection(ctx, kind)
	if err != nil {
		return domain.Listing{}, err
	}
	snap, err := coll.Doc(listingID).Get(ctx)
	if err != nil {
		return domain.Listing{}, platformfs.WrapError("listings.get", err)
	}
	return decodeListing(snap, kind)
}

func (r *ListingRepository) List(ctx context.Context, kind domain.ListingKind, page repositories.ListPage) ([]domain.Listing, error) {
	coll, err := r.collection(ctx, kind)
	if err != nil {
		return nil, err
	}

	query := coll.Query.OrderBy("createdAt", firestore.Desc)
	if page.StartAfter != "" {
		anchor, err := coll.Doc(page.StartAfter).Get(ctx)
		if err != nil {
			return nil, platformfs.WrapError("listings.list", err)
		}
		query = query.StartAfter(anchor)
	}
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var listings []domain.Listing
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, platformfs.WrapError("listings.list", err)
		}
		listing, err := decodeListing(snap, kind)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// Delete removes the listing after verifying ownership inside a transaction.
func (r *ListingRepository) Delete(ctx context.Context, kind domain.ListingKind, listingID, ownerUID string) error {
	coll, err := r.collection(ctx, kind)
	if err != nil {
		return err
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	ref := coll.Doc(listingID)

	err = platformfs.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var listing domain.Listing
		if err := snap.DataTo(&listing); err != nil {
			return err
		}
		if listing.OwnerUID != ownerUID {
			return repositories.ErrListingForbidden
		}
		return tx.Delete(ref)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrListingForbidden) {
			return repositories.ErrListingForbidden
		}
		return platformfs.WrapError("listings.delete", err)
	}
	return nil
}

func decodeListing(snap *firestore.DocumentSnapshot, kind domain.ListingKind) (domain.Listing, error) {
	var listing domain.Listing
	if err := snap.DataTo(&listing); err != nil {
		return domain.Listing{}, platformfs.WrapError("listings.decode", err)
	}
	listing.ID = snap.Ref.ID
	listing.Kind = kind
	return listing, nil
}
