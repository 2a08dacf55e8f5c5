package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/platform/httpx"
	"github.com/precoperto/api/internal/repositories"
	"github.com/precoperto/api/internal/services"
)

// CouponsHandler serves the user's discount codes.
type CouponsHandler struct {
	coupons services.CouponService
}

// NewCouponsHandler constructs the handler.
func NewCouponsHandler(coupons services.CouponService) *CouponsHandler {
	return &CouponsHandler{coupons: coupons}
}

// Routes mounts the coupon endpoints.
func (h *CouponsHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/redeem", h.redeem)
	r.Get("/{couponID}", h.get)
	r.Delete("/{couponID}", h.remove)
}

type createCouponRequest struct {
	Code      string            `json:"code"`
	Type      domain.CouponType `json:"type"`
	Value     float64           `json:"value"`
	MaxUses   int               `json:"maxUses"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

func (h *CouponsHandler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var req createCouponRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	coupon, err := h.coupons.Create(r.Context(), identity.UID, services.NewCouponInput{
		Code:      req.Code,
		Type:      req.Type,
		Value:     req.Value,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, coupon)
}

func (h *CouponsHandler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	coupons, err := h.coupons.List(r.Context(), identity.UID)
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	if coupons == nil {
		coupons = []services.CouponView{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": coupons})
}

func (h *CouponsHandler) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	coupon, err := h.coupons.Get(r.Context(), identity.UID, chi.URLParam(r, "couponID"))
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, coupon)
}

type redeemCouponRequest struct {
	Code string `json:"code"`
}

func (h *CouponsHandler) redeem(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var req redeemCouponRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	coupon, err := h.coupons.Redeem(r.Context(), identity.UID, req.Code)
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, coupon)
}

func (h *CouponsHandler) remove(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	if err := h.coupons.Delete(r.Context(), identity.UID, chi.URLParam(r, "couponID")); err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusNoContent, nil)
}

func (h *CouponsHandler) writeCouponError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errorsIsAny(err, services.ErrCouponCodeEmpty, services.ErrCouponTypeInvalid,
		services.ErrCouponValueInvalid, services.ErrCouponUsesInvalid):
		writeBadRequest(w, r, err)
	case errorsIsAny(err, repositories.ErrCouponExhausted):
		httpx.WriteError(r.Context(), w, httpx.NewError("coupon_exhausted", "coupon has no uses left", http.StatusConflict))
	case errorsIsAny(err, repositories.ErrCouponExpired):
		httpx.WriteError(r.Context(), w, httpx.NewError("coupon_expired", "coupon is expired", http.StatusConflict))
	case repositories.IsNotFound(err):
		httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "coupon not found", http.StatusNotFound))
	default:
		writeInternalError(w, r, err)
	}
}
