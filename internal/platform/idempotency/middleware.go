package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/platform/requestctx"
)

const (
	// DefaultHeader is the request header carrying the idempotency key.
	DefaultHeader = "Idempotency-Key"

	maxKeyLength  = 128
	maxBodyLength = 1 << 20
)

// Middleware replays stored responses for repeated mutation requests that
// carry the same idempotency key.
type Middleware struct {
	store  Store
	header string
	ttl    time.Duration
}

// MiddlewareOption customises the middleware.
type MiddlewareOption func(*Middleware)

// WithHeader overrides the header name that carries the key.
func WithHeader(name string) MiddlewareOption {
	return func(m *Middleware) {
		if name != "" {
			m.header = name
		}
	}
}

// WithTTL overrides how long completed responses are retained.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(m *Middleware) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// NewMiddleware wires the store behind an HTTP middleware.
func NewMiddleware(store Store, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		store:  store,
		header: DefaultHeader,
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Handler guards mutation requests. Requests without a key pass through.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil || m.store == nil || !isMutation(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		key := strings.TrimSpace(r.Header.Get(m.header))
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxKeyLength {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_idempotency_key", "idempotency key is too long", http.StatusBadRequest))
			return
		}

		fingerprint, restore, err := requestFingerprint(r)
		if err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
			return
		}
		restore()

		prior, err := m.store.Reserve(r.Context(), storageKey(r, key), fingerprint, m.ttl)
		if err == ErrKeyConflict {
			httpx.WriteError(r.Context(), w, httpx.NewError("idempotency_conflict", "a request with this idempotency key is still in progress", http.StatusConflict))
			return
		}
		if err != nil {
			logger := requestctx.Logger(r.Context())
			logger.Warn("idempotency reserve failed, continuing without replay protection")
			next.ServeHTTP(w, r)
			return
		}
		if prior != nil {
			if prior.Fingerprint != fingerprint {
				httpx.WriteError(r.Context(), w, httpx.NewError("idempotency_mismatch", "idempotency key was used with a different request payload", http.StatusUnprocessableEntity))
				return
			}
			replay(w, *prior)
			return
		}

		recorder := &responseCapture{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		record := Record{
			Key:         storageKey(r, key),
			Method:      r.Method,
			Path:        r.URL.Path,
			Status:      recorder.status,
			Header:      recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
			Fingerprint: fingerprint,
			ExpiresAt:   time.Now().UTC().Add(m.ttl),
		}
		if recorder.status >= http.StatusInternalServerError {
			_ = m.store.Release(r.Context(), record.Key)
			return
		}
		if err := m.store.Complete(r.Context(), record); err != nil {
			requestctx.Logger(r.Context()).Warn("idempotency record store failed")
		}
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// storageKey scopes keys per method and path so the same client key cannot
// collide across endpoints.
func storageKey(r *http.Request, key string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + " " + key))
	return hex.EncodeToString(sum[:])
}

func requestFingerprint(r *http.Request) (string, func(), error) {
	if r.Body == nil {
		return "", func() {}, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyLength))
	if err != nil {
		return "", func() {}, err
	}
	restore := func() {
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), restore, nil
}

func replay(w http.ResponseWriter, record Record) {
	contentType := record.Header
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Idempotency-Replayed", "true")
	status := record.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(record.Body) > 0 {
		_, _ = w.Write(record.Body)
	} else {
		_ = json.NewEncoder(w).Encode(struct{}{})
	}
}

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
	wrote  bool
}

func (r *responseCapture) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseCapture) Write(p []byte) (int, error) {
	if !r.wrote {
		r.wrote = true
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
