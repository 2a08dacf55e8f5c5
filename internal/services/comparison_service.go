package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/repositories"
)

// Comparison failures surfaced to the handler layer.
var (
	ErrCartNotPending  = errors.New("services: cart already fulfilled")
	ErrEmptySelection  = errors.New("services: at least one market must be selected")
	ErrSessionNotFound = errors.New("services: comparison session not found")
)

const jitterSpread = 0.10

// MarketRef identifies a selected market with the metadata the comparison
// needs: a stable id, a display name and the distance from the search origin.
type MarketRef struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	DistanceMeters float64 `json:"distanceMeters"`
	Street         string  `json:"street,omitempty"`
}

// MarketTotal is one column of the comparison result.
type MarketTotal struct {
	Market MarketRef `json:"market"`
	Total  float64   `json:"total"`
}

// Comparison is the full result for a cart against the selected market set.
type Comparison struct {
	CartID string `json:"cartId"`
	// Matrix maps item name to market id to the generated price.
	Matrix        map[string]map[string]float64 `json:"matrix"`
	Totals        []MarketTotal                 `json:"totals"`
	Cheapest      *MarketTotal                  `json:"cheapest,omitempty"`
	MostExpensive *MarketTotal                  `json:"mostExpensive,omitempty"`
	Nearest       *MarketTotal                  `json:"nearest,omitempty"`
	Savings       float64                       `json:"savings"`
}

// ComparisonService maintains per-cart comparison sessions and their price
// matrices.
type ComparisonService interface {
	// Compare sets the selected market set for the cart and returns the
	// derived totals. Newly selected markets get a freshly generated price
	// column; markets still selected keep their existing prices; markets
	// removed from the selection have their columns purged.
	Compare(ctx context.Context, uid, cartID string, selection []MarketRef) (Comparison, error)
	// PriceFor returns the generated price for one item at one market in
	// the current session, used when building an order from a comparison.
	PriceFor(ctx context.Context, uid, cartID, itemName, marketID string) (float64, error)
	// EndSession discards the session and its matrix.
	EndSession(ctx context.Context, uid, cartID string)
}

// ComparisonServiceDeps lists the collaborators required by the service.
type ComparisonServiceDeps struct {
	Carts      repositories.CartRepository
	SessionTTL time.Duration
	Clock      func() time.Time
	// Rand returns a uniform sample in [0, 1). Defaults to math/rand.
	Rand func() float64
}

type comparisonSession struct {
	cart domain.Cart
	// matrix is item name -> market id -> price. Entries are inserted when
	// a market first enters the selection and never regenerated after.
	matrix    map[string]map[string]float64
	selection []MarketRef
	expiresAt time.Time
}

type comparisonService struct {
	carts      repositories.CartRepository
	sessionTTL time.Duration
	clock      func() time.Time
	random     func() float64

	mu       sync.Mutex
	sessions map[string]*comparisonSession
}

// NewComparisonService validates deps and applies defaults.
func NewComparisonService(deps ComparisonServiceDeps) (ComparisonService, error) {
	if deps.Carts == nil {
		return nil, errors.New("services: cart repository is required")
	}
	sessionTTL := deps.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	random := deps.Rand
	if random == nil {
		source := rand.New(rand.NewSource(time.Now().UnixNano()))
		var mu sync.Mutex
		random = func() float64 {
			mu.Lock()
			defer mu.Unlock()
			return source.Float64()
		}
	}
	return &comparisonService{
		carts:      deps.Carts,
		sessionTTL: sessionTTL,
		clock:      clock,
		random:     random,
		sessions:   make(map[string]*comparisonSession),
	}, nil
}

func sessionKey(uid, cartID string) string {
	return uid + "/" + cartID
}

func (s *comparisonService) Compare(ctx context.Context, uid, cartID string, selection []MarketRef) (Comparison, error) {
	if len(selection) == 0 {
		return Comparison{}, ErrEmptySelection
	}

	now := s.clock()
	session, err := s.session(ctx, uid, cartID, now)
	if err != nil {
		return Comparison{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	selected := make(map[string]struct{}, len(selection))
	for _, market := range selection {
		selected[market.ID] = struct{}{}
	}

	// Purge columns of markets that left the selection so a re-selection
	// generates fresh prices.
	for _, item := range session.cart.Items {
		row := session.matrix[item.Name]
		for marketID := range row {
			if _, still := selected[marketID]; !still {
				delete(row, marketID)
			}
		}
	}

	for _, item := range session.cart.Items {
		row := session.matrix[item.Name]
		if row == nil {
			row = make(map[string]float64, len(selection))
			session.matrix[item.Name] = row
		}
		for _, market := range selection {
			if _, exists := row[market.ID]; exists {
				continue
			}
			row[market.ID] = jitterPrice(item.Price, s.random)
		}
	}

	session.selection = append([]MarketRef(nil), selection...)
	session.expiresAt = now.Add(s.sessionTTL)

	return buildComparison(cartID, session), nil
}

func (s *comparisonService) PriceFor(_ context.Context, uid, cartID, itemName, marketID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionKey(uid, cartID)]
	if !ok || s.clock().After(session.expiresAt) {
		return 0, ErrSessionNotFound
	}
	price, ok := session.matrix[itemName][marketID]
	if !ok {
		return 0, fmt.Errorf("services: no price for %q at market %q", itemName, marketID)
	}
	return price, nil
}

func (s *comparisonService) EndSession(_ context.Context, uid, cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(uid, cartID))
}

// session returns the live session for the cart, loading the cart and
// creating the session on first use or after expiry.
func (s *comparisonService) session(ctx context.Context, uid, cartID string, now time.Time) (*comparisonSession, error) {
	s.mu.Lock()
	existing, ok := s.sessions[sessionKey(uid, cartID)]
	if ok && now.Before(existing.expiresAt) {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	cart, err := s.carts.Get(ctx, uid, cartID)
	if err != nil {
		return nil, err
	}
	if cart.OrderPlaced {
		return nil, ErrCartNotPending
	}

	session := &comparisonSession{
		cart:      cart,
		matrix:    make(map[string]map[string]float64, len(cart.Items)),
		expiresAt: now.Add(s.sessionTTL),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have created the session meanwhile; keep the
	// first one so its matrix stays stable.
	if current, ok := s.sessions[sessionKey(uid, cartID)]; ok && now.Before(current.expiresAt) {
		return current, nil
	}
	s.sessions[sessionKey(uid, cartID)] = session
	s.sweepLocked(now)
	return session, nil
}

func (s *comparisonService) sweepLocked(now time.Time) {
	for key, session := range s.sessions {
		if now.After(session.expiresAt) {
			delete(s.sessions, key)
		}
	}
}

// jitterPrice perturbs the declared price by a uniform factor in [-10%, +10%]
// and rounds to two decimals.
func jitterPrice(declared float64, random func() float64) float64 {
	factor := 1 + (random()*2-1)*jitterSpread
	return math.Round(declared*factor*100) / 100
}

// buildComparison derives totals and the cheapest, most expensive and nearest
// markets. Ties keep the first market in selection order.
func buildComparison(cartID string, session *comparisonSession) Comparison {
	comparison := Comparison{
		CartID: cartID,
		Matrix: cloneMatrix(session.matrix),
		Totals: make([]MarketTotal, 0, len(session.selection)),
	}

	for _, market := range session.selection {
		var total float64
		for _, item := range session.cart.Items {
			// A missing entry contributes nothing to the total.
			if price, ok := session.matrix[item.Name][market.ID]; ok {
				total += price * float64(item.Qty)
			}
		}
		comparison.Totals = append(comparison.Totals, MarketTotal{
			Market: market,
			Total:  math.Round(total*100) / 100,
		})
	}

	for i := range comparison.Totals {
		entry := &comparison.Totals[i]
		if comparison.Cheapest == nil || entry.Total < comparison.Cheapest.Total {
			comparison.Cheapest = entry
		}
		if comparison.MostExpensive == nil || entry.Total > comparison.MostExpensive.Total {
			comparison.MostExpensive = entry
		}
		if comparison.Nearest == nil || entry.Market.DistanceMeters < comparison.Nearest.Market.DistanceMeters {
			comparison.Nearest = entry
		}
	}
	if comparison.Cheapest != nil && comparison.MostExpensive != nil {
		savings := comparison.MostExpensive.Total - comparison.Cheapest.Total
		comparison.Savings = math.Round(savings*100) / 100
	}
	return comparison
}

func cloneMatrix(matrix map[string]map[string]float64) map[string]map[string]float64 {
	clone := make(map[string]map[string]float64, len(matrix))
	for item, row := range matrix {
		rowClone := make(map[string]float64, len(row))
		for market, price := range row {
			rowClone[market] = price
		}
		clone[item] = rowClone
	}
	return clone
}
