package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps idempotency records in process memory. It is suitable for
// single-replica deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	clock   func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, fingerprint string, ttl time.Duration) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if existing, ok := s.records[key]; ok && !existing.Expired(now) {
		if existing.InFlight {
			return nil, ErrKeyConflict
		}
		record := existing
		return &record, nil
	}

	s.records[key] = Record{
		Key:         key,
		Fingerprint: fingerprint,
		StoredAt:    now,
		ExpiresAt:   now.Add(ttl),
		InFlight:    true,
	}
	return nil, nil
}

func (s *MemoryStore) Complete(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	record.InFlight = false
	record.StoredAt = now
	if record.ExpiresAt.IsZero() {
		if existing, ok := s.records[record.Key]; ok {
			record.ExpiresAt = existing.ExpiresAt
		}
	}
	s.records[record.Key] = record
	s.sweepLocked(now)
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && existing.InFlight {
		delete(s.records, key)
	}
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for key, record := range s.records {
		if record.Expired(now) {
			delete(s.records, key)
		}
	}
}
