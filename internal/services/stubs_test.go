package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/repositories"
)

type stubRepositoryError struct {
	msg      string
	notFound bool
}

func (e *stubRepositoryError) Error() string       { return e.msg }
func (e *stubRepositoryError) IsNotFound() bool    { return e.notFound }
func (e *stubRepositoryError) IsConflict() bool    { return false }
func (e *stubRepositoryError) IsUnavailable() bool { return false }

func notFound(msg string) error {
	return &stubRepositoryError{msg: msg, notFound: true}
}

type stubCartRepo struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
}

func newStubCartRepo(carts ...domain.Cart) *stubCartRepo {
	repo := &stubCartRepo{carts: make(map[string]domain.Cart)}
	for _, cart := range carts {
		repo.carts[cart.ID] = cart
	}
	return repo
}

func (r *stubCartRepo) Create(_ context.Context, _ string, cart domain.Cart) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.ID] = cart
	return cart, nil
}

func (r *stubCartRepo) Get(_ context.Context, _ string, cartID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[cartID]
	if !ok {
		return domain.Cart{}, notFound("cart not found")
	}
	return cart, nil
}

func (r *stubCartRepo) ListPending(_ context.Context, _ string) ([]domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []domain.Cart
	for _, cart := range r.carts {
		if !cart.OrderPlaced {
			pending = append(pending, cart)
		}
	}
	return pending, nil
}

func (r *stubCartRepo) List(_ context.Context, _ string) ([]domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	carts := make([]domain.Cart, 0, len(r.carts))
	for _, cart := range r.carts {
		carts = append(carts, cart)
	}
	return carts, nil
}

func (r *stubCartRepo) Delete(_ context.Context, _ string, cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[cartID]; !ok {
		return notFound("cart not found")
	}
	delete(r.carts, cartID)
	return nil
}

type stubOrderStore struct {
	mu       sync.Mutex
	carts    *stubCartRepo
	orders   map[string]domain.Order
	placeErr error
}

func newStubOrderStore(carts *stubCartRepo) *stubOrderStore {
	return &stubOrderStore{carts: carts, orders: make(map[string]domain.Order)}
}

func (s *stubOrderStore) Get(_ context.Context, _ string, orderID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, notFound("order not found")
	}
	return order, nil
}

func (s *stubOrderStore) List(_ context.Context, _ string, _ repositories.ListPage) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

func (s *stubOrderStore) PlaceOrder(_ context.Context, _ string, order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placeErr != nil {
		return domain.Order{}, s.placeErr
	}

	s.carts.mu.Lock()
	defer s.carts.mu.Unlock()
	cart, ok := s.carts.carts[order.CartID]
	if !ok {
		return domain.Order{}, notFound("cart not found")
	}
	if cart.OrderPlaced {
		return domain.Order{}, repositories.ErrCartAlreadyFulfilled
	}
	cart.OrderPlaced = true
	s.carts.carts[order.CartID] = cart
	s.orders[order.ID] = order
	return order, nil
}

type stubCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]domain.Coupon
}

func newStubCouponRepo(coupons ...domain.Coupon) *stubCouponRepo {
	repo := &stubCouponRepo{coupons: make(map[string]domain.Coupon)}
	for _, coupon := range coupons {
		repo.coupons[coupon.ID] = coupon
	}
	return repo
}

func (r *stubCouponRepo) Create(_ context.Context, _ string, coupon domain.Coupon) (domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coupons[coupon.ID] = coupon
	return coupon, nil
}

func (r *stubCouponRepo) Get(_ context.Context, _ string, couponID string) (domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupon, ok := r.coupons[couponID]
	if !ok {
		return domain.Coupon{}, notFound("coupon not found")
	}
	return coupon, nil
}

func (r *stubCouponRepo) GetByCode(_ context.Context, _ string, code string) (domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, coupon := range r.coupons {
		if coupon.Code == code {
			return coupon, nil
		}
	}
	return domain.Coupon{}, notFound("coupon code not found")
}

func (r *stubCouponRepo) List(_ context.Context, _ string) ([]domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupons := make([]domain.Coupon, 0, len(r.coupons))
	for _, coupon := range r.coupons {
		coupons = append(coupons, coupon)
	}
	return coupons, nil
}

func (r *stubCouponRepo) Redeem(_ context.Context, _ string, couponID string, now time.Time) (domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupon, ok := r.coupons[couponID]
	if !ok {
		return domain.Coupon{}, notFound("coupon not found")
	}
	switch coupon.Status(now) {
	case domain.CouponStatusExhausted:
		return domain.Coupon{}, repositories.ErrCouponExhausted
	case domain.CouponStatusExpired:
		return domain.Coupon{}, repositories.ErrCouponExpired
	}
	coupon.UsedCount++
	r.coupons[couponID] = coupon
	return coupon, nil
}

func (r *stubCouponRepo) Delete(_ context.Context, _ string, couponID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.coupons, couponID)
	return nil
}

// stubSearcher serves canned results per radius, recording every query.
type stubSearcher struct {
	mu      sync.Mutex
	results map[int][]domain.POI
	queried []int
	err     error
}

func (s *stubSearcher) SearchNearby(_ context.Context, _, _ float64, radiusMeters int, _ domain.POIKind) ([]domain.POI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queried = append(s.queried, radiusMeters)
	if s.err != nil {
		return nil, s.err
	}
	return s.results[radiusMeters], nil
}

type stubFuelPriceRepo struct {
	mu     sync.Mutex
	levels map[string]map[domain.FuelType]domain.FuelLevel
}

func newStubFuelPriceRepo() *stubFuelPriceRepo {
	return &stubFuelPriceRepo{levels: make(map[string]map[domain.FuelType]domain.FuelLevel)}
}

func (r *stubFuelPriceRepo) Submit(_ context.Context, stationID string, fuel domain.FuelType, level domain.FuelLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.levels[stationID] == nil {
		r.levels[stationID] = make(map[domain.FuelType]domain.FuelLevel)
	}
	r.levels[stationID][fuel] = level
	return nil
}

func (r *stubFuelPriceRepo) ForStation(_ context.Context, stationID string) (map[domain.FuelType]domain.FuelLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[stationID], nil
}

func (r *stubFuelPriceRepo) ForStations(_ context.Context, stationIDs []string) (map[string]map[domain.FuelType]domain.FuelLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[string]map[domain.FuelType]domain.FuelLevel)
	for _, id := range stationIDs {
		if levels, ok := r.levels[id]; ok {
			result[id] = levels
		}
	}
	return result, nil
}

func testPOI(osmID int64, name string, distance float64) domain.POI {
	return domain.POI{
		ID:             fmt.Sprintf("node/%d", osmID),
		OSMType:        "node",
		OSMID:          osmID,
		Kind:           domain.POIKindMarket,
		Name:           name,
		DistanceMeters: distance,
	}
}
