package idempotency

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	platformfs "github.com/precoperto/api/internal/platform/firestore"
)

const defaultCollection = "idempotencyKeys"

// FirestoreStore persists idempotency records in a Firestore collection so
// retries land on any replica.
type FirestoreStore struct {
	provider   *platformfs.Provider
	collection string
	clock      func() time.Time
}

// FirestoreStoreOption customises the store.
type FirestoreStoreOption func(*FirestoreStore)

// WithCollection overrides the backing collection name.
func WithCollection(name string) FirestoreStoreOption {
	return func(s *FirestoreStore) {
		if name != "" {
			s.collection = name
		}
	}
}

// NewFirestoreStore constructs a store backed by the shared Firestore provider.
func NewFirestoreStore(provider *platformfs.Provider, opts ...FirestoreStoreOption) (*FirestoreStore, error) {
	if provider == nil {
		return nil, errors.New("idempotency: firestore provider is required")
	}
	store := &FirestoreStore{
		provider:   provider,
		collection: defaultCollection,
		clock:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *FirestoreStore) Reserve(ctx context.Context, key string, fingerprint string, ttl time.Duration) (*Record, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	doc := client.Collection(s.collection).Doc(key)
	now := s.clock()

	var prior *Record
	err = client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap != nil && snap.Exists() {
			var record Record
			if err := snap.DataTo(&record); err != nil {
				return err
			}
			if !record.Expired(now) {
				if record.InFlight {
					return ErrKeyConflict
				}
				prior = &record
				return nil
			}
		}
		return tx.Set(doc, Record{
			Key:         key,
			Fingerprint: fingerprint,
			StoredAt:    now,
			ExpiresAt:   now.Add(ttl),
			InFlight:    true,
		})
	})
	if err != nil {
		if errors.Is(err, ErrKeyConflict) {
			return nil, ErrKeyConflict
		}
		return nil, platformfs.WrapError("idempotency.reserve", err)
	}
	return prior, nil
}

func (s *FirestoreStore) Complete(ctx context.Context, record Record) error {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return err
	}
	record.InFlight = false
	record.StoredAt = s.clock()
	if _, err := client.Collection(s.collection).Doc(record.Key).Set(ctx, record); err != nil {
		return platformfs.WrapError("idempotency.complete", err)
	}
	return nil
}

func (s *FirestoreStore) Release(ctx context.Context, key string) error {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Collection(s.collection).Doc(key).Delete(ctx); err != nil {
		return platformfs.WrapError("idempotency.release", err)
	}
	return nil
}
