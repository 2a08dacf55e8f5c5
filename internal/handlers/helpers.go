// Package handlers exposes the HTTP surface. Each handler owns its routes,
// request parsing and error mapping; business rules live in the services.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/precoperto/api/internal/platform/auth"
	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/platform/requestctx"

	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

var errBodyTooLarge = errors.New("handlers: request body too large")

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	// Headers are already written; an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(payload)
}

func readLimitedBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	return body, nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, target any) error {
	body, err := readLimitedBody(w, r)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("handlers: empty request body")
	}
	return json.Unmarshal(body, target)
}

// identityOrError extracts the authenticated identity, writing a 401 when the
// middleware did not run or the token carried no uid.
func identityOrError(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || !identity.Valid() {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("handlers: query parameter %q is required", name)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("handlers: query parameter %q must be a number", name)
	}
	return value, nil
}

func queryIntDefault(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	message := "invalid request"
	if err != nil {
		message = err.Error()
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	requestctx.Logger(r.Context()).Error("request failed", zap.Error(err))
	httpx.WriteError(r.Context(), w, httpx.NewError("internal", "internal server error", http.StatusInternalServerError))
}
