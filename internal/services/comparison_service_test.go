package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/precoperto/api/internal/domain"
)

func testCart(id string) domain.Cart {
	return domain.Cart{
		ID: id,
		Items: []domain.CartItem{
			{Name: "Rice", Price: 10, Qty: 2},
			{Name: "Beans", Price: 8, Qty: 1},
		},
		MarketName: "Mercado Origem",
		CreatedAt:  time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newComparison(t *testing.T, carts *stubCartRepo, random func() float64) ComparisonService {
	t.Helper()
	service, err := NewComparisonService(ComparisonServiceDeps{
		Carts:      carts,
		SessionTTL: time.Hour,
		Rand:       random,
	})
	if err != nil {
		t.Fatalf("NewComparisonService: %v", err)
	}
	return service
}

func TestCompare_TotalsWithinJitterBounds(t *testing.T) {
	carts := newStubCartRepo(testCart("crt_1"))
	service := newComparison(t, carts, nil)

	selection := []MarketRef{
		{ID: "m1", Name: "Mercado Um", DistanceMeters: 500},
		{ID: "m2", Name: "Mercado Dois", DistanceMeters: 1200},
	}
	comparison, err := service.Compare(context.Background(), "u1", "crt_1", selection)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	// Declared total is 10*2 + 8*1 = 28; jitter keeps each price within 10%.
	lower := 10*0.9*2 + 8*0.9
	upper := 10*1.1*2 + 8*1.1
	for _, total := range comparison.Totals {
		if total.Total < lower-0.01 || total.Total > upper+0.01 {
			t.Fatalf("total %v outside [%v, %v]", total.Total, lower, upper)
		}
	}

	for item, row := range comparison.Matrix {
		declared := 10.0
		if item == "Beans" {
			declared = 8.0
		}
		for market, price := range row {
			if price < declared*0.9-0.01 || price > declared*1.1+0.01 {
				t.Fatalf("price %v for %s at %s outside 10%% of %v", price, item, market, declared)
			}
		}
	}
}

func TestCompare_MatrixStableWhileMarketStaysSelected(t *testing.T) {
	carts := newStubCartRepo(testCart("crt_1"))
	service := newComparison(t, carts, nil)

	selection := []MarketRef{{ID: "m1", Name: "Mercado Um"}, {ID: "m2", Name: "Mercado Dois"}}
	first, err := service.Compare(context.Background(), "u1", "crt_1", selection)
	if err != nil {
		t.Fatalf("first Compare: %v", err)
	}
	second, err := service.Compare(context.Background(), "u1", "crt_1", selection)
	if err != nil {
		t.Fatalf("second Compare: %v", err)
	}

	for item, row := range first.Matrix {
		for market, price := range row {
			if second.Matrix[item][market] != price {
				t.Fatalf("price for %s at %s changed: %v -> %v", item, market, price, second.Matrix[item][market])
			}
		}
	}
}

func TestCompare_NewMarketGetsColumnExistingKeepTheirs(t *testing.T) {
	carts := newStubCartRepo(testCart("crt_1"))
	service := newComparison(t, carts, nil)

	ctx := context.Background()
	first, err := service.Compare(ctx, "u1", "crt_1", []MarketRef{{ID: "m1", Name: "Um"}})
	if err != nil {
		t.Fatalf("first Compare: %v", err)
	}
	second, err := service.Compare(ctx, "u1", "crt_1", []MarketRef{{ID: "m1", Name: "Um"}, {ID: "m2", Name: "Dois"}})
	if err != nil {
		t.Fatalf("second Compare: %v", err)
	}

	for item := range first.Matrix {
		if second.Matrix[item]["m1"] != first.Matrix[item]["m1"] {
			t.Fatalf("existing column regenerated for %s", item)
		}
		if _, ok := second.Matrix[item]["m2"]; !ok {
			t.Fatalf("new market column missing for %s", item)
		}
	}
}

func TestCompare_DeselectedMarketColumnPurged(t *testing.T) {
	carts := newStubCartRepo(testCart("crt_1"))

	// Distinguishable jitter per generation: the queue makes regenerated
	// prices differ from the originals.
	queue := []float64{0.0, 0.0, 0.0, 0.0, 1.0, 1.0, 1.0, 1.0}
	idx := 0
	random := func() float64 {
		v := queue[idx%len(queue)]
		idx++
		return v
	}
	service := newComparison(t, carts, random)

	ctx := context.Background()
	both := []MarketRef{{ID: "m1", Name: "Um"}, {ID: "m2", Name: "Dois"}}
	first, err := service.Compare(ctx, "u1", "crt_1", both)
	if err != nil {
		t.Fatalf("first Compare: %v", err)
	}
	if _, err := service.Compare(ctx, "u1", "crt_1", []MarketRef{{ID: "m1", Name: "Um"}}); err != nil {
		t.Fatalf("deselect Compare: %v", err)
	}
	third, err := service.Compare(ctx, "u1", "crt_1", both)
	if err != nil {
		t.Fatalf("re-select Compare: %v", err)
	}

	changed := false
	for item := range third.Matrix {
		if third.Matrix[item]["m2"] != first.Matrix[item]["m2"] {
			changed = true
		}
		if third.Matrix[item]["m1"] != first.Matrix[item]["m1"] {
			t.Fatalf("still-selected column changed for %s", item)
		}
	}
	if !changed {
		t.Fatalf("re-selected market kept purged prices")
	}
}

func TestBuildComparison_CheapestMostExpensiveSavings(t *testing.T) {
	session := &comparisonSession{
		cart: domain.Cart{Items: []domain.CartItem{{Name: "Item", Price: 50, Qty: 1}}},
		matrix: map[string]map[string]float64{
			"Item": {"A": 50, "B": 42, "C": 60},
		},
		selection: []MarketRef{
			{ID: "A", Name: "Mercado A", DistanceMeters: 900},
			{ID: "B", Name: "Mercado B", DistanceMeters: 2500},
			{ID: "C", Name: "Mercado C", DistanceMeters: 400},
		},
	}

	comparison := buildComparison("crt_1", session)

	if comparison.Cheapest == nil || comparison.Cheapest.Market.ID != "B" {
		t.Fatalf("cheapest = %+v, want B", comparison.Cheapest)
	}
	if comparison.MostExpensive == nil || comparison.MostExpensive.Market.ID != "C" {
		t.Fatalf("mostExpensive = %+v, want C", comparison.MostExpensive)
	}
	if comparison.Savings != 18 {
		t.Fatalf("savings = %v, want 18", comparison.Savings)
	}
	if comparison.Nearest == nil || comparison.Nearest.Market.ID != "C" {
		t.Fatalf("nearest = %+v, want C", comparison.Nearest)
	}
}

func TestBuildComparison_TieKeepsFirstInSelectionOrder(t *testing.T) {
	session := &comparisonSession{
		cart: domain.Cart{Items: []domain.CartItem{{Name: "Item", Price: 50, Qty: 1}}},
		matrix: map[string]map[string]float64{
			"Item": {"A": 50, "B": 50},
		},
		selection: []MarketRef{
			{ID: "A", Name: "Mercado A", DistanceMeters: 100},
			{ID: "B", Name: "Mercado B", DistanceMeters: 100},
		},
	}

	comparison := buildComparison("crt_1", session)
	if comparison.Cheapest.Market.ID != "A" || comparison.MostExpensive.Market.ID != "A" {
		t.Fatalf("tie-break should keep the first market: cheapest=%s mostExpensive=%s",
			comparison.Cheapest.Market.ID, comparison.MostExpensive.Market.ID)
	}
	if comparison.Savings != 0 {
		t.Fatalf("savings = %v, want 0", comparison.Savings)
	}
}

func TestCompare_RejectsFulfilledCartAndEmptySelection(t *testing.T) {
	fulfilled := testCart("crt_done")
	fulfilled.OrderPlaced = true
	carts := newStubCartRepo(fulfilled)
	service := newComparison(t, carts, nil)

	ctx := context.Background()
	if _, err := service.Compare(ctx, "u1", "crt_done", []MarketRef{{ID: "m1"}}); !errors.Is(err, ErrCartNotPending) {
		t.Fatalf("err = %v, want ErrCartNotPending", err)
	}
	if _, err := service.Compare(ctx, "u1", "crt_done", nil); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("err = %v, want ErrEmptySelection", err)
	}
}

func TestPriceFor_AfterEndSession(t *testing.T) {
	carts := newStubCartRepo(testCart("crt_1"))
	service := newComparison(t, carts, nil)

	ctx := context.Background()
	if _, err := service.Compare(ctx, "u1", "crt_1", []MarketRef{{ID: "m1", Name: "Um"}}); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if _, err := service.PriceFor(ctx, "u1", "crt_1", "Rice", "m1"); err != nil {
		t.Fatalf("PriceFor: %v", err)
	}

	service.EndSession(ctx, "u1", "crt_1")
	if _, err := service.PriceFor(ctx, "u1", "crt_1", "Rice", "m1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}
