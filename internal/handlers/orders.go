package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/payments"
	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/platform/pagination"
	"github.com/precoperto/api/internal/repositories"
	"github.com/precoperto/api/internal/services"
)

const orderCursorResource = "orders"

// OrdersHandler serves checkout confirmation and order history.
type OrdersHandler struct {
	orders services.OrderService
}

// NewOrdersHandler constructs the handler.
func NewOrdersHandler(orders services.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// Routes mounts the order endpoints.
func (h *OrdersHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.confirm)
	r.Get("/{orderID}", h.get)
}

type confirmOrderRequest struct {
	CartID          string              `json:"cartId"`
	MarketID        string              `json:"marketId"`
	MarketName      string              `json:"marketName"`
	Pickup          bool                `json:"pickup"`
	DeliveryAddress string              `json:"deliveryAddress"`
	StoreAddress    string              `json:"storeAddress"`
	Payment         payments.Instrument `json:"payment"`
}

func (h *OrdersHandler) confirm(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var req confirmOrderRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	order, err := h.orders.Confirm(r.Context(), identity.UID, services.ConfirmOrderInput{
		CartID:          req.CartID,
		MarketID:        req.MarketID,
		MarketName:      req.MarketName,
		Pickup:          req.Pickup,
		DeliveryAddress: req.DeliveryAddress,
		StoreAddress:    req.StoreAddress,
		Instrument:      req.Payment,
	})
	if err != nil {
		h.writeConfirmError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, order)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	params, err := pagination.FromRequest(r)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	page := repositories.ListPage{Limit: params.PageSize}
	if params.PageToken != "" {
		cursor, err := pagination.DecodeCursor(params.PageToken, orderCursorResource)
		if err != nil {
			writeBadRequest(w, r, err)
			return
		}
		page.StartAfter = cursor.LastID
	}

	orders, err := h.orders.List(r.Context(), identity.UID, page)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	result := pagination.Page[domain.Order]{Items: orders}
	if result.Items == nil {
		result.Items = []domain.Order{}
	}
	// A full page may have more behind it; a short page is the last one.
	if len(orders) == page.Limit {
		last := orders[len(orders)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			Resource: orderCursorResource,
			LastID:   last.ID,
			LastTime: last.CreatedAt,
		})
		if err == nil {
			result.NextPageToken = token
		}
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), identity.UID, chi.URLParam(r, "orderID"))
	if err != nil {
		if repositories.IsNotFound(err) {
			httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, order)
}

func (h *OrdersHandler) writeConfirmError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errorsIsAny(err, services.ErrMarketRequired, services.ErrDeliveryAddrMissing,
		payments.ErrUnknownMethod, payments.ErrCardHolderEmpty, payments.ErrInvalidPAN,
		payments.ErrInvalidExpiry, payments.ErrInvalidCVV,
		payments.ErrPixTypeEmpty, payments.ErrPixKeyEmpty):
		writeBadRequest(w, r, err)
	case errors.Is(err, services.ErrCartFulfilled):
		httpx.WriteError(r.Context(), w, httpx.NewError("cart_fulfilled", "cart already has an order", http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotSaved):
		// The cart stays pending so the client can retry the confirmation.
		httpx.WriteError(r.Context(), w, httpx.NewError("order_not_saved", "order could not be saved, please retry", http.StatusBadGateway))
	case errors.Is(err, payments.ErrCaptureCancelled):
		httpx.WriteError(r.Context(), w, httpx.NewError("cancelled", "request cancelled", 499))
	case repositories.IsNotFound(err):
		httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "cart not found", http.StatusNotFound))
	default:
		writeInternalError(w, r, err)
	}
}
