package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrKeyConflict indicates the key is reserved by an in-flight request.
var ErrKeyConflict = errors.New("idempotency: key conflict")

// Record is the stored outcome of a completed request.
type Record struct {
	Key         string    `firestore:"key" json:"key"`
	Method      string    `firestore:"method" json:"method"`
	Path        string    `firestore:"path" json:"path"`
	Status      int       `firestore:"status" json:"status"`
	Header      string    `firestore:"header" json:"header"`
	Body        []byte    `firestore:"body" json:"body"`
	StoredAt    time.Time `firestore:"storedAt" json:"storedAt"`
	ExpiresAt   time.Time `firestore:"expiresAt" json:"expiresAt"`
	InFlight    bool      `firestore:"inFlight" json:"inFlight"`
	Fingerprint string    `firestore:"fingerprint" json:"fingerprint"`
}

// Expired reports whether the record fell out of its retention window.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Store persists idempotency records across replicas.
type Store interface {
	// Reserve claims the key for the current request. It returns the prior
	// record when a completed response exists, ErrKeyConflict when another
	// request holds the reservation, and (nil, nil) when the claim succeeded.
	Reserve(ctx context.Context, key string, fingerprint string, ttl time.Duration) (*Record, error)

	// Complete stores the final response under the reserved key.
	Complete(ctx context.Context, record Record) error

	// Release drops an in-flight reservation after a failure so the client
	// can retry with the same key.
	Release(ctx context.Context, key string) error
}
