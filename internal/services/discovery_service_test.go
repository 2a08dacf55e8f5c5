package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/precoperto/api/internal/domain"
)

func newDiscovery(t *testing.T, searcher *stubSearcher, fuel *stubFuelPriceRepo) DiscoveryService {
	t.Helper()
	var deps DiscoveryServiceDeps
	deps.Searcher = searcher
	if fuel != nil {
		deps.FuelPrices = fuel
	}
	service, err := NewDiscoveryService(deps)
	if err != nil {
		t.Fatalf("NewDiscoveryService: %v", err)
	}
	return service
}

func TestSearchNearby_EscalatesRadiusUntilResults(t *testing.T) {
	searcher := &stubSearcher{results: map[int][]domain.POI{
		7000: {testPOI(1, "Mercado A", 4200)},
	}}
	service := newDiscovery(t, searcher, nil)

	pois, err := service.SearchNearby(context.Background(), -23.55, -46.63, 3000, domain.POIKindMarket)
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(pois) != 1 || pois[0].Name != "Mercado A" {
		t.Fatalf("pois = %+v", pois)
	}
	want := []int{3000, 5000, 7000}
	if len(searcher.queried) != len(want) {
		t.Fatalf("queried radii = %v, want %v", searcher.queried, want)
	}
	for i, radius := range want {
		if searcher.queried[i] != radius {
			t.Fatalf("queried radii = %v, want %v", searcher.queried, want)
		}
	}
}

func TestSearchNearby_StopsAtFirstNonEmptyTier(t *testing.T) {
	searcher := &stubSearcher{results: map[int][]domain.POI{
		5000: {testPOI(1, "Mercado A", 900)},
		7000: {testPOI(2, "Mercado B", 6000)},
	}}
	service := newDiscovery(t, searcher, nil)

	if _, err := service.SearchNearby(context.Background(), -23.55, -46.63, 3000, domain.POIKindMarket); err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(searcher.queried) != 2 {
		t.Fatalf("queried radii = %v, want first two tiers only", searcher.queried)
	}
}

func TestSearchNearby_RadiusTiersAreCapped(t *testing.T) {
	searcher := &stubSearcher{results: map[int][]domain.POI{}}
	service := newDiscovery(t, searcher, nil)

	_, err := service.SearchNearby(context.Background(), -23.55, -46.63, 7000, domain.POIKindMarket)
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
	want := []int{7000, 8000, 10000}
	if len(searcher.queried) != len(want) {
		t.Fatalf("queried radii = %v, want %v", searcher.queried, want)
	}
	for i, radius := range want {
		if searcher.queried[i] != radius {
			t.Fatalf("queried radii = %v, want %v", searcher.queried, want)
		}
	}
}

func TestSearchNearby_NeverQueriesBeyondThirdTier(t *testing.T) {
	searcher := &stubSearcher{results: map[int][]domain.POI{}}
	service := newDiscovery(t, searcher, nil)

	if _, err := service.SearchNearby(context.Background(), -23.55, -46.63, 3000, domain.POIKindMarket); !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
	if len(searcher.queried) > 3 {
		t.Fatalf("queried %d tiers, want at most 3: %v", len(searcher.queried), searcher.queried)
	}
}

func TestSearchNearby_SortsByDistanceAndDedupes(t *testing.T) {
	searcher := &stubSearcher{results: map[int][]domain.POI{
		3000: {
			testPOI(3, "Mais Longe", 2500),
			testPOI(1, "Mais Perto", 300),
			testPOI(3, "Duplicado", 2500),
			testPOI(2, "No Meio", 1200),
		},
	}}
	service := newDiscovery(t, searcher, nil)

	pois, err := service.SearchNearby(context.Background(), -23.55, -46.63, 3000, domain.POIKindMarket)
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(pois) != 3 {
		t.Fatalf("len(pois) = %d, want 3 after dedup", len(pois))
	}
	for i := 1; i < len(pois); i++ {
		if pois[i].DistanceMeters < pois[i-1].DistanceMeters {
			t.Fatalf("pois not sorted by distance: %+v", pois)
		}
	}
	if pois[0].Name != "Mais Perto" {
		t.Fatalf("nearest = %q", pois[0].Name)
	}
}

func TestSearchNearby_FuelStationsGetCompletePriceSet(t *testing.T) {
	station := testPOI(10, "Posto Central", 500)
	station.Kind = domain.POIKindFuel
	station.Prices = map[domain.FuelType]float64{domain.FuelGasoline: 5.79}

	fuel := newStubFuelPriceRepo()
	submitted := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)
	_ = fuel.Submit(context.Background(), station.ID, domain.FuelEthanol, domain.FuelLevel{
		Price:     3.85,
		UpdatedAt: submitted,
	})

	searcher := &stubSearcher{results: map[int][]domain.POI{3000: {station}}}
	service := newDiscovery(t, searcher, fuel)

	pois, err := service.SearchNearby(context.Background(), -23.55, -46.63, 3000, domain.POIKindFuel)
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	got := pois[0]

	// Tag-derived price kept, not estimated.
	if got.Prices[domain.FuelGasoline] != 5.79 || got.Estimated[domain.FuelGasoline] {
		t.Fatalf("gasoline = %v estimated=%v", got.Prices[domain.FuelGasoline], got.Estimated[domain.FuelGasoline])
	}
	// Community submission wins for ethanol.
	if got.Prices[domain.FuelEthanol] != 3.85 || got.Estimated[domain.FuelEthanol] {
		t.Fatalf("ethanol = %v estimated=%v", got.Prices[domain.FuelEthanol], got.Estimated[domain.FuelEthanol])
	}
	if got.PricesUpdated == nil || !got.PricesUpdated.Equal(submitted) {
		t.Fatalf("PricesUpdated = %v, want %v", got.PricesUpdated, submitted)
	}
	// Every remaining canonical fuel type is synthesized and flagged.
	for _, ft := range domain.FuelTypes() {
		price, ok := got.Prices[ft]
		if !ok || price <= 0 {
			t.Fatalf("missing price for %s", ft)
		}
		if ft != domain.FuelGasoline && ft != domain.FuelEthanol && !got.Estimated[ft] {
			t.Fatalf("%s should be flagged estimated", ft)
		}
	}
}

func TestSynthesizeFuelPrice_DeterministicAndInsideBracket(t *testing.T) {
	brackets := map[domain.FuelType][2]float64{
		domain.FuelGasoline:   {5.10, 7.10},
		domain.FuelEthanol:    {3.20, 4.80},
		domain.FuelDiesel:     {5.60, 7.40},
		domain.FuelDieselS10:  {5.80, 7.60},
		domain.FuelDieselS500: {5.40, 7.20},
		domain.FuelCNV:        {3.80, 5.20},
	}

	ids := []string{"node/1", "node/2", "way/987654", "node/424242"}
	for _, id := range ids {
		for fuel, bracket := range brackets {
			first := SynthesizeFuelPrice(id, fuel)
			second := SynthesizeFuelPrice(id, fuel)
			if first != second {
				t.Fatalf("synthesis not deterministic for %s/%s: %v vs %v", id, fuel, first, second)
			}
			if first < bracket[0] || first > bracket[1] {
				t.Fatalf("%s/%s = %v outside bracket %v", id, fuel, first, bracket)
			}
		}
	}

	// Different stations should not all share one value.
	if SynthesizeFuelPrice("node/1", domain.FuelGasoline) == SynthesizeFuelPrice("node/2", domain.FuelGasoline) &&
		SynthesizeFuelPrice("node/1", domain.FuelGasoline) == SynthesizeFuelPrice("way/987654", domain.FuelGasoline) {
		t.Fatalf("synthesized prices look constant across stations")
	}
}
