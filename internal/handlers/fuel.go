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

var errStationIDRequired = errors.New("handlers: query parameter \"stationId\" is required")

// FuelPricesHandler serves community fuel price reads and submissions.
type FuelPricesHandler struct {
	fuelPrices services.FuelPriceService
}

// NewFuelPricesHandler constructs the handler.
func NewFuelPricesHandler(fuelPrices services.FuelPriceService) *FuelPricesHandler {
	return &FuelPricesHandler{fuelPrices: fuelPrices}
}

// Routes mounts the fuel price endpoints. Station ids contain a slash
// ("node/123"), so they ride in a query parameter rather than the path.
func (h *FuelPricesHandler) Routes(r chi.Router) {
	r.Get("/", h.forStation)
	r.Post("/", h.submit)
}

func (h *FuelPricesHandler) forStation(w http.ResponseWriter, r *http.Request) {
	stationID := r.URL.Query().Get("stationId")
	if stationID == "" {
		writeBadRequest(w, r, errStationIDRequired)
		return
	}

	levels, err := h.fuelPrices.ForStation(r.Context(), stationID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if levels == nil {
		levels = map[domain.FuelType]domain.FuelLevel{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"stationId": stationID, "levels": levels})
}

type submitFuelPriceRequest struct {
	StationID string          `json:"stationId"`
	FuelType  domain.FuelType `json:"fuelType"`
	Price     float64         `json:"price"`
}

func (h *FuelPricesHandler) submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var req submitFuelPriceRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	level, err := h.fuelPrices.Submit(r.Context(), identity.UID, req.StationID, req.FuelType, req.Price)
	if err != nil {
		switch {
		case errorsIsAny(err, services.ErrFuelStationRequired, services.ErrFuelTypeInvalid, services.ErrFuelPriceInvalid):
			writeBadRequest(w, r, err)
		case repositories.IsNotFound(err):
			httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "station not found", http.StatusNotFound))
		default:
			writeInternalError(w, r, err)
		}
		return
	}
	writeJSONResponse(w, http.StatusCreated, level)
}
