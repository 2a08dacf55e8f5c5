package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/repositories"
	"github.com/precoperto/api/internal/services"
)

// ComparisonsHandler serves the per-cart price comparison sessions.
type ComparisonsHandler struct {
	comparisons services.ComparisonService
}

// NewComparisonsHandler constructs the handler.
func NewComparisonsHandler(comparisons services.ComparisonService) *ComparisonsHandler {
	return &ComparisonsHandler{comparisons: comparisons}
}

// Routes mounts the comparison endpoints.
func (h *ComparisonsHandler) Routes(r chi.Router) {
	r.Post("/{cartID}", h.compare)
	r.Delete("/{cartID}", h.end)
}

type compareRequest struct {
	Markets []services.MarketRef `json:"markets"`
}

func (h *ComparisonsHandler) compare(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var req compareRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	comparison, err := h.comparisons.Compare(r.Context(), identity.UID, chi.URLParam(r, "cartID"), req.Markets)
	if err != nil {
		h.writeCompareError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, comparison)
}

func (h *ComparisonsHandler) end(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	h.comparisons.EndSession(r.Context(), identity.UID, chi.URLParam(r, "cartID"))
	writeJSONResponse(w, http.StatusNoContent, nil)
}

func (h *ComparisonsHandler) writeCompareError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrEmptySelection):
		writeBadRequest(w, r, err)
	case errors.Is(err, services.ErrCartNotPending):
		httpx.WriteError(r.Context(), w, httpx.NewError("cart_fulfilled", "cart already has an order", http.StatusConflict))
	case repositories.IsNotFound(err):
		httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "cart not found", http.StatusNotFound))
	default:
		writeInternalError(w, r, err)
	}
}
