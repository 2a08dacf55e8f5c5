package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/payments"
	"github.com/precoperto/api/internal/repositories"
)

// Order confirmation failures.
var (
	ErrMarketRequired      = errors.New("services: a market must be chosen")
	ErrDeliveryAddrMissing = errors.New("services: delivery address is required when not picking up")
	ErrCartFulfilled       = errors.New("services: cart already has an order")
	ErrOrderNotSaved       = errors.New("services: could not save order")
)

// ConfirmOrderInput is the checkout payload.
type ConfirmOrderInput struct {
	CartID          string
	MarketID        string
	MarketName      string
	Pickup          bool
	DeliveryAddress string
	StoreAddress    string
	Instrument      payments.Instrument
}

// OrderService confirms orders and reads order history.
type OrderService interface {
	// Confirm validates the checkout, captures the payment and writes the
	// order, flipping the source cart to fulfilled. Confirmation is
	// at-most-once per cart: a cart that already has an order refuses.
	Confirm(ctx context.Context, uid string, input ConfirmOrderInput) (domain.Order, error)
	Get(ctx context.Context, uid, orderID string) (domain.Order, error)
	List(ctx context.Context, uid string, page repositories.ListPage) ([]domain.Order, error)
}

// OrderServiceDeps lists the collaborators required by the service.
type OrderServiceDeps struct {
	Carts    repositories.CartRepository
	Orders   repositories.OrderRepository
	Placer   repositories.OrderPlacer
	Payments payments.Provider
	// Pricing resolves the per-item price for the chosen market from the
	// live comparison session. Optional: without a session the declared
	// cart prices are charged.
	Pricing ComparisonService
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	carts    repositories.CartRepository
	orders   repositories.OrderRepository
	placer   repositories.OrderPlacer
	payments payments.Provider
	pricing  ComparisonService
	clock    func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderService validates deps and applies defaults.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Carts == nil {
		return nil, errors.New("services: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("services: order repository is required")
	}
	if deps.Placer == nil {
		return nil, errors.New("services: order placer is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("services: payment provider is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{
		carts:    deps.Carts,
		orders:   deps.Orders,
		placer:   deps.Placer,
		payments: deps.Payments,
		pricing:  deps.Pricing,
		clock:    clock,
		logger:   logger,
	}, nil
}

func (s *orderService) Confirm(ctx context.Context, uid string, input ConfirmOrderInput) (domain.Order, error) {
	if strings.TrimSpace(input.MarketID) == "" {
		return domain.Order{}, ErrMarketRequired
	}
	if !input.Pickup && strings.TrimSpace(input.DeliveryAddress) == "" {
		return domain.Order{}, ErrDeliveryAddrMissing
	}
	if err := payments.Validate(input.Instrument); err != nil {
		return domain.Order{}, err
	}

	cart, err := s.carts.Get(ctx, uid, input.CartID)
	if err != nil {
		return domain.Order{}, err
	}
	if cart.OrderPlaced {
		return domain.Order{}, ErrCartFulfilled
	}

	items, total := s.priceItems(ctx, uid, cart, input.MarketID)

	sanitized, err := s.payments.Capture(ctx, input.Instrument, total)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:              newID("ord"),
		MarketID:        input.MarketID,
		MarketName:      strings.TrimSpace(input.MarketName),
		Total:           total,
		CartID:          cart.ID,
		Pickup:          input.Pickup,
		DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
		StoreAddress:    strings.TrimSpace(input.StoreAddress),
		Items:           items,
		Payment:         sanitized,
		CreatedAt:       s.clock(),
	}

	placed, err := s.placer.PlaceOrder(ctx, uid, order)
	if err != nil {
		if errors.Is(err, repositories.ErrCartAlreadyFulfilled) {
			return domain.Order{}, ErrCartFulfilled
		}
		// Persistence failed: the cart stays pending so the user can
		// retry. The generic error hides storage details.
		s.logger(ctx, "order write failed", map[string]any{"cartId": cart.ID, "error": err.Error()})
		return domain.Order{}, ErrOrderNotSaved
	}

	if s.pricing != nil {
		s.pricing.EndSession(ctx, uid, cart.ID)
	}
	return placed, nil
}

// priceItems charges the comparison-session price for the chosen market when
// one exists, falling back to the declared cart price per item.
func (s *orderService) priceItems(ctx context.Context, uid string, cart domain.Cart, marketID string) ([]domain.OrderItem, float64) {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	var total float64
	for _, item := range cart.Items {
		price := item.Price
		if s.pricing != nil {
			if sessionPrice, err := s.pricing.PriceFor(ctx, uid, cart.ID, item.Name, marketID); err == nil {
				price = sessionPrice
			}
		}
		items = append(items, domain.OrderItem{Name: item.Name, Price: price, Qty: item.Qty})
		total += price * float64(item.Qty)
	}
	return items, math.Round(total*100) / 100
}

func (s *orderService) Get(ctx context.Context, uid, orderID string) (domain.Order, error) {
	return s.orders.Get(ctx, uid, orderID)
}

func (s *orderService) List(ctx context.Context, uid string, page repositories.ListPage) ([]domain.Order, error) {
	return s.orders.List(ctx, uid, page)
}
