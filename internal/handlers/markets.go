package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/services"
)

const defaultSearchRadiusMeters = 3000

// MarketsHandler serves nearby market and fuel station discovery.
type MarketsHandler struct {
	discovery services.DiscoveryService
}

// NewMarketsHandler constructs the handler.
func NewMarketsHandler(discovery services.DiscoveryService) *MarketsHandler {
	return &MarketsHandler{discovery: discovery}
}

// Routes mounts the discovery endpoints.
func (h *MarketsHandler) Routes(r chi.Router) {
	r.Get("/", h.search)
}

type searchResponse struct {
	Results []domain.POI `json:"results"`
	Radius  int          `json:"radiusMeters"`
	Kind    string       `json:"kind"`
}

func (h *MarketsHandler) search(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	radius := queryIntDefault(r, "radius", defaultSearchRadiusMeters)

	kind := domain.POIKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = domain.POIKindMarket
	}
	if !kind.Valid() {
		writeBadRequest(w, r, errors.New("kind must be market or fuel"))
		return
	}

	pois, err := h.discovery.SearchNearby(r.Context(), lat, lon, radius, kind)
	if err != nil {
		h.writeSearchError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, searchResponse{Results: pois, Radius: radius, Kind: string(kind)})
}

func (h *MarketsHandler) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoResults):
		// An empty area is an informational empty state for the client.
		writeJSONResponse(w, http.StatusOK, searchResponse{Results: []domain.POI{}})
	case r.Context().Err() != nil:
		httpx.WriteError(r.Context(), w, httpx.NewError("cancelled", "request cancelled", 499))
	default:
		httpx.WriteError(r.Context(), w, httpx.NewError("search_unavailable", "point of interest search is temporarily unavailable", http.StatusBadGateway))
	}
}
