package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/repositories"
)

// Cart validation failures.
var (
	ErrCartEmpty       = errors.New("services: cart needs at least one item")
	ErrCartItemInvalid = errors.New("services: cart item needs a name, a positive price and a positive quantity")
)

// NewCartInput is the payload for saving a basket.
type NewCartInput struct {
	Items        []domain.CartItem
	MarketName   string
	MarketStreet string
	MarketState  string
	Country      string
}

// CartService manages saved baskets.
type CartService interface {
	Create(ctx context.Context, uid string, input NewCartInput) (domain.Cart, error)
	Get(ctx context.Context, uid, cartID string) (domain.Cart, error)
	// ListPending returns carts an order can still be confirmed from.
	ListPending(ctx context.Context, uid string) ([]domain.Cart, error)
	List(ctx context.Context, uid string) ([]domain.Cart, error)
	Delete(ctx context.Context, uid, cartID string) error
}

// CartServiceDeps lists the collaborators required by the service.
type CartServiceDeps struct {
	Carts repositories.CartRepository
	Clock func() time.Time
}

type cartService struct {
	carts repositories.CartRepository
	clock func() time.Time
}

// NewCartService validates deps and applies defaults.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("services: cart repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &cartService{carts: deps.Carts, clock: clock}, nil
}

func (s *cartService) Create(ctx context.Context, uid string, input NewCartInput) (domain.Cart, error) {
	if len(input.Items) == 0 {
		return domain.Cart{}, ErrCartEmpty
	}
	items := make([]domain.CartItem, 0, len(input.Items))
	for _, item := range input.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" || item.Price <= 0 || item.Qty <= 0 {
			return domain.Cart{}, ErrCartItemInvalid
		}
		items = append(items, domain.CartItem{Name: name, Price: item.Price, Qty: item.Qty})
	}

	cart := domain.Cart{
		ID:           newID("crt"),
		Items:        items,
		MarketName:   strings.TrimSpace(input.MarketName),
		MarketStreet: strings.TrimSpace(input.MarketStreet),
		MarketState:  strings.TrimSpace(input.MarketState),
		Country:      strings.TrimSpace(input.Country),
		CreatedAt:    s.clock(),
	}
	return s.carts.Create(ctx, uid, cart)
}

func (s *cartService) Get(ctx context.Context, uid, cartID string) (domain.Cart, error) {
	return s.carts.Get(ctx, uid, cartID)
}

func (s *cartService) ListPending(ctx context.Context, uid string) ([]domain.Cart, error) {
	return s.carts.ListPending(ctx, uid)
}

func (s *cartService) List(ctx context.Context, uid string) ([]domain.Cart, error) {
	return s.carts.List(ctx, uid)
}

func (s *cartService) Delete(ctx context.Context, uid, cartID string) error {
	return s.carts.Delete(ctx, uid, cartID)
}
