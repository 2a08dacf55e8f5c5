package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/repositories"
	"github.com/precoperto/api/internal/services"
)

// MarkersHandler serves one marker collection, either favorites or visited
// places. The same handler is mounted twice with different kinds.
type MarkersHandler struct {
	markers services.MarkerService
	kind    repositories.MarkerKind
}

// NewMarkersHandler constructs the handler for one marker kind.
func NewMarkersHandler(markers services.MarkerService, kind repositories.MarkerKind) *MarkersHandler {
	return &MarkersHandler{markers: markers, kind: kind}
}

// Routes mounts the marker endpoints.
func (h *MarkersHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/", h.mark)
	r.Delete("/*", h.unmark)
}

func (h *MarkersHandler) mark(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var marker domain.PlaceMarker
	if err := decodeJSONBody(w, r, &marker); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	if err := h.markers.Mark(r.Context(), identity.UID, h.kind, marker); err != nil {
		if errors.Is(err, services.ErrMarkerInvalid) {
			writeBadRequest(w, r, err)
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusNoContent, nil)
}

func (h *MarkersHandler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	markers, err := h.markers.List(r.Context(), identity.UID, h.kind)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if markers == nil {
		markers = []domain.PlaceMarker{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": markers})
}

func (h *MarkersHandler) unmark(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	// POI ids contain a slash ("node/123"), so the id is the wildcard tail.
	poiID := chi.URLParam(r, "*")
	if poiID == "" {
		writeBadRequest(w, r, errors.New("handlers: a poi id is required"))
		return
	}

	if err := h.markers.Unmark(r.Context(), identity.UID, h.kind, poiID); err != nil {
		if repositories.IsNotFound(err) {
			httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "marker not found", http.StatusNotFound))
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusNoContent, nil)
}
