package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/platform/pagination"
	"github.com/precoperto/api/internal/repositories"
	"github.com/precoperto/api/internal/services"
)

// ListingsHandler serves one community board, either the producer marketplace
// or the barter board. The same handler is mounted twice with different kinds.
type ListingsHandler struct {
	listings services.ListingService
	kind     domain.ListingKind
}

// NewListingsHandler constructs the handler for one listing kind.
func NewListingsHandler(listings services.ListingService, kind domain.ListingKind) *ListingsHandler {
	return &ListingsHandler{listings: listings, kind: kind}
}

// Routes mounts the listing endpoints. Reads are public; writes require auth.
func (h *ListingsHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{listingID}", h.get)
	r.Delete("/{listingID}", h.remove)
}

type createListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Wanted      string  `json:"wanted"`
	Contact     string  `json:"contact"`
	City        string  `json:"city"`
}

func (h *ListingsHandler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var req createListingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	listing, err := h.listings.Create(r.Context(), identity.UID, services.NewListingInput{
		Kind:        h.kind,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Wanted:      req.Wanted,
		Contact:     req.Contact,
		City:        req.City,
	})
	if err != nil {
		h.writeListingError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, listing)
}

func (h *ListingsHandler) list(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.FromRequest(r)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	page := repositories.ListPage{Limit: params.PageSize}
	if params.PageToken != "" {
		cursor, err := pagination.DecodeCursor(params.PageToken, string(h.kind))
		if err != nil {
			writeBadRequest(w, r, err)
			return
		}
		page.StartAfter = cursor.LastID
	}

	listings, err := h.listings.List(r.Context(), h.kind, page)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	result := pagination.Page[domain.Listing]{Items: listings}
	if result.Items == nil {
		result.Items = []domain.Listing{}
	}
	if len(listings) == page.Limit {
		last := listings[len(listings)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			Resource: string(h.kind),
			LastID:   last.ID,
			LastTime: last.CreatedAt,
		})
		if err == nil {
			result.NextPageToken = token
		}
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (h *ListingsHandler) get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.Get(r.Context(), h.kind, chi.URLParam(r, "listingID"))
	if err != nil {
		h.writeListingError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, listing)
}

func (h *ListingsHandler) remove(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	if err := h.listings.Delete(r.Context(), identity.UID, h.kind, chi.URLParam(r, "listingID")); err != nil {
		h.writeListingError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusNoContent, nil)
}

func (h *ListingsHandler) writeListingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errorsIsAny(err, services.ErrListingTitleEmpty, services.ErrListingContactEmpty,
		services.ErrListingPriceInvalid, services.ErrListingWantedEmpty):
		writeBadRequest(w, r, err)
	case errors.Is(err, repositories.ErrListingForbidden):
		httpx.WriteError(r.Context(), w, httpx.NewError("forbidden", "listing belongs to another user", http.StatusForbidden))
	case repositories.IsNotFound(err):
		httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "listing not found", http.StatusNotFound))
	default:
		writeInternalError(w, r, err)
	}
}
