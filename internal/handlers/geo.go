package handlers

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/precoperto/api/internal/geo"
	"github.com/precoperto/api/internal/geodata"
	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/services"
)

// GeoHandler serves reverse geocoding, postal lookup, routing and coarse IP
// geolocation.
type GeoHandler struct {
	geoService services.GeoService
}

// NewGeoHandler constructs the handler.
func NewGeoHandler(geoService services.GeoService) *GeoHandler {
	return &GeoHandler{geoService: geoService}
}

// Routes mounts the geo endpoints.
func (h *GeoHandler) Routes(r chi.Router) {
	r.Get("/reverse", h.reverse)
	r.Get("/postal/{code}", h.postal)
	r.Get("/route", h.route)
	r.Get("/locate", h.locate)
}

func (h *GeoHandler) reverse(w http.ResponseWriter, r *http.Request) {
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

	address, err := h.geoService.ReverseGeocode(r.Context(), lat, lon)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, address)
}

func (h *GeoHandler) postal(w http.ResponseWriter, r *http.Request) {
	address, err := h.geoService.LookupPostalCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		switch {
		case errors.Is(err, geodata.ErrInvalidPostalCode):
			writeBadRequest(w, r, errors.New("postal code must have 8 digits"))
		case errors.Is(err, geodata.ErrPostalCodeNotFound):
			httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "postal code not found", http.StatusNotFound))
		default:
			httpx.WriteError(r.Context(), w, httpx.NewError("postal_unavailable", "postal lookup is temporarily unavailable", http.StatusBadGateway))
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, address)
}

func (h *GeoHandler) route(w http.ResponseWriter, r *http.Request) {
	fromLat, err := queryFloat(r, "fromLat")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	fromLon, err := queryFloat(r, "fromLon")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	toLat, err := queryFloat(r, "toLat")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	toLon, err := queryFloat(r, "toLon")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	route, err := h.geoService.Route(r.Context(),
		geo.Point{Lat: fromLat, Lon: fromLon},
		geo.Point{Lat: toLat, Lon: toLon})
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, route)
}

func (h *GeoHandler) locate(w http.ResponseWriter, r *http.Request) {
	point, err := h.geoService.LocateByIP(r.Context(), clientIP(r))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("location_unavailable", "could not derive a location from the request", http.StatusNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, point)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
