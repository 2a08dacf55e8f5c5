package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/repositories"
)

// Coupon validation failures.
var (
	ErrCouponCodeEmpty    = errors.New("services: coupon code is required")
	ErrCouponTypeInvalid  = errors.New("services: coupon type must be percent or fixed")
	ErrCouponValueInvalid = errors.New("services: coupon value must be positive")
	ErrCouponUsesInvalid  = errors.New("services: coupon max uses must be positive")
)

// CouponView is a coupon with its status computed at read time.
type CouponView struct {
	domain.Coupon
	Status domain.CouponStatus `json:"status"`
}

// NewCouponInput is the payload for creating a coupon.
type NewCouponInput struct {
	Code      string
	Type      domain.CouponType
	Value     float64
	MaxUses   int
	ExpiresAt time.Time
}

// CouponService manages user-scoped discount codes.
type CouponService interface {
	Create(ctx context.Context, uid string, input NewCouponInput) (CouponView, error)
	Get(ctx context.Context, uid, couponID string) (CouponView, error)
	List(ctx context.Context, uid string) ([]CouponView, error)
	Redeem(ctx context.Context, uid, code string) (CouponView, error)
	Delete(ctx context.Context, uid, couponID string) error
}

// CouponServiceDeps lists the collaborators required by the service.
type CouponServiceDeps struct {
	Coupons repositories.CouponRepository
	Clock   func() time.Time
}

type couponService struct {
	coupons repositories.CouponRepository
	clock   func() time.Time
}

// NewCouponService validates deps and applies defaults.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("services: coupon repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &couponService{coupons: deps.Coupons, clock: clock}, nil
}

func (s *couponService) view(coupon domain.Coupon) CouponView {
	return CouponView{Coupon: coupon, Status: coupon.Status(s.clock())}
}

func (s *couponService) Create(ctx context.Context, uid string, input NewCouponInput) (CouponView, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return CouponView{}, ErrCouponCodeEmpty
	}
	if input.Type != domain.CouponTypePercent && input.Type != domain.CouponTypeFixed {
		return CouponView{}, ErrCouponTypeInvalid
	}
	if input.Value <= 0 || (input.Type == domain.CouponTypePercent && input.Value > 100) {
		return CouponView{}, ErrCouponValueInvalid
	}
	if input.MaxUses <= 0 {
		return CouponView{}, ErrCouponUsesInvalid
	}

	coupon := domain.Coupon{
		ID:        newID("cpn"),
		Code:      code,
		Type:      input.Type,
		Value:     input.Value,
		MaxUses:   input.MaxUses,
		ExpiresAt: input.ExpiresAt.UTC(),
		CreatedAt: s.clock(),
	}
	created, err := s.coupons.Create(ctx, uid, coupon)
	if err != nil {
		return CouponView{}, err
	}
	return s.view(created), nil
}

func (s *couponService) Get(ctx context.Context, uid, couponID string) (CouponView, error) {
	coupon, err := s.coupons.Get(ctx, uid, couponID)
	if err != nil {
		return CouponView{}, err
	}
	return s.view(coupon), nil
}

func (s *couponService) List(ctx context.Context, uid string) ([]CouponView, error) {
	coupons, err := s.coupons.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	views := make([]CouponView, 0, len(coupons))
	for _, coupon := range coupons {
		views = append(views, s.view(coupon))
	}
	return views, nil
}

func (s *couponService) Redeem(ctx context.Context, uid, code string) (CouponView, error) {
	coupon, err := s.coupons.GetByCode(ctx, uid, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return CouponView{}, err
	}
	redeemed, err := s.coupons.Redeem(ctx, uid, coupon.ID, s.clock())
	if err != nil {
		return CouponView{}, err
	}
	return s.view(redeemed), nil
}

func (s *couponService) Delete(ctx context.Context, uid, couponID string) error {
	return s.coupons.Delete(ctx, uid, couponID)
}
