package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/repositories"
	"github.com/precoperto/api/internal/services"
)

// CartsHandler serves the saved basket CRUD for the authenticated user.
type CartsHandler struct {
	carts services.CartService
}

// NewCartsHandler constructs the handler.
func NewCartsHandler(carts services.CartService) *CartsHandler {
	return &CartsHandler{carts: carts}
}

// Routes mounts the cart endpoints.
func (h *CartsHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{cartID}", h.get)
	r.Delete("/{cartID}", h.remove)
}

type createCartRequest struct {
	Items        []domain.CartItem `json:"items"`
	MarketName   string            `json:"marketName"`
	MarketStreet string            `json:"marketStreet"`
	MarketState  string            `json:"marketState"`
	Country      string            `json:"country"`
}

func (h *CartsHandler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var req createCartRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	cart, err := h.carts.Create(r.Context(), identity.UID, services.NewCartInput{
		Items:        req.Items,
		MarketName:   req.MarketName,
		MarketStreet: req.MarketStreet,
		MarketState:  req.MarketState,
		Country:      req.Country,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, cart)
}

func (h *CartsHandler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var (
		carts []domain.Cart
		err   error
	)
	if r.URL.Query().Get("status") == string(domain.CartStatusPending) {
		carts, err = h.carts.ListPending(r.Context(), identity.UID)
	} else {
		carts, err = h.carts.List(r.Context(), identity.UID)
	}
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	if carts == nil {
		carts = []domain.Cart{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": carts})
}

func (h *CartsHandler) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.Get(r.Context(), identity.UID, chi.URLParam(r, "cartID"))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cart)
}

func (h *CartsHandler) remove(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	if err := h.carts.Delete(r.Context(), identity.UID, chi.URLParam(r, "cartID")); err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusNoContent, nil)
}

func (h *CartsHandler) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errorsIsAny(err, services.ErrCartEmpty, services.ErrCartItemInvalid):
		writeBadRequest(w, r, err)
	case repositories.IsNotFound(err):
		httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "cart not found", http.StatusNotFound))
	default:
		writeInternalError(w, r, err)
	}
}
