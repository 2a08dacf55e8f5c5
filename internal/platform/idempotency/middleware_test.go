package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestMiddleware(t *testing.T) (*Middleware, *atomic.Int64, http.Handler) {
	t.Helper()

	var calls atomic.Int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderId":"ord_123"}`))
	})

	m := NewMiddleware(NewMemoryStore(), WithTTL(time.Minute))
	return m, &calls, m.Handler(next)
}

func TestMiddleware_PassThroughWithoutKey(t *testing.T) {
	_, calls, handler := newTestMiddleware(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("handler calls = %d, want 2", got)
	}
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	_, calls, handler := newTestMiddleware(t)

	first := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"cartId":"c1"}`))
	first.Header.Set(DefaultHeader, "key-1")
	firstRec := httptest.NewRecorder()
	handler.ServeHTTP(firstRec, first)

	second := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"cartId":"c1"}`))
	second.Header.Set(DefaultHeader, "key-1")
	secondRec := httptest.NewRecorder()
	handler.ServeHTTP(secondRec, second)

	if got := calls.Load(); got != 1 {
		t.Fatalf("handler calls = %d, want 1", got)
	}
	if secondRec.Code != http.StatusCreated {
		t.Fatalf("replayed status = %d, want %d", secondRec.Code, http.StatusCreated)
	}
	if secondRec.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if secondRec.Body.String() != firstRec.Body.String() {
		t.Fatalf("replayed body = %q, want %q", secondRec.Body.String(), firstRec.Body.String())
	}
}

func TestMiddleware_RejectsDifferentPayloadForSameKey(t *testing.T) {
	_, _, handler := newTestMiddleware(t)

	first := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"cartId":"c1"}`))
	first.Header.Set(DefaultHeader, "key-2")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"cartId":"other"}`))
	second.Header.Set(DefaultHeader, "key-2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestMiddleware_IgnoresReadRequests(t *testing.T) {
	_, calls, handler := newTestMiddleware(t)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(DefaultHeader, "key-3")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("handler calls = %d, want 3", got)
	}
}

func TestMemoryStore_ReleaseDropsReservation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	prior, err := store.Reserve(ctx, "k", "fp", time.Minute)
	if err != nil || prior != nil {
		t.Fatalf("first reserve: prior=%v err=%v", prior, err)
	}
	if _, err := store.Reserve(ctx, "k", "fp", time.Minute); err != ErrKeyConflict {
		t.Fatalf("second reserve err = %v, want ErrKeyConflict", err)
	}
	if err := store.Release(ctx, "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if prior, err := store.Reserve(ctx, "k", "fp", time.Minute); err != nil || prior != nil {
		t.Fatalf("reserve after release: prior=%v err=%v", prior, err)
	}
}
