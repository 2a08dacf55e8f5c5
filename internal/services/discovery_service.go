package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/geodata"
	"github.com/precoperto/api/internal/repositories"
)

// ErrNoResults indicates no POI was found at any escalation tier. Callers
// render an empty state, not an error.
var ErrNoResults = errors.New("services: no points of interest found")

// Radius escalation tiers: the initial radius, then +2000m capped at 8km,
// then +4000m capped at 10km.
const (
	radiusTier1Increment = 2000
	radiusTier1Cap       = 8000
	radiusTier2Increment = 4000
	radiusTier2Cap       = 10000
)

// fuelBrackets bound the synthesized price per fuel type.
var fuelBrackets = map[domain.FuelType][2]float64{
	domain.FuelGasoline:   {5.10, 7.10},
	domain.FuelEthanol:    {3.20, 4.80},
	domain.FuelDiesel:     {5.60, 7.40},
	domain.FuelDieselS10:  {5.80, 7.60},
	domain.FuelDieselS500: {5.40, 7.20},
	domain.FuelCNV:        {3.80, 5.20},
}

// DiscoveryService finds nearby markets and fuel stations.
type DiscoveryService interface {
	// SearchNearby returns POIs sorted by distance from the origin,
	// escalating the radius when a tier comes back empty. Fuel stations
	// carry a complete price set: tag-derived, community-submitted and
	// synthesized values merged in that order of authority.
	SearchNearby(ctx context.Context, lat, lon float64, radiusMeters int, kind domain.POIKind) ([]domain.POI, error)
}

// DiscoveryServiceDeps lists the collaborators required by the service.
type DiscoveryServiceDeps struct {
	Searcher   geodata.POISearcher
	FuelPrices repositories.FuelPriceRepository
	Geocoder   geodata.ReverseGeocoder
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type discoveryService struct {
	searcher   geodata.POISearcher
	fuelPrices repositories.FuelPriceRepository
	geocoder   geodata.ReverseGeocoder
	clock      func() time.Time
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewDiscoveryService validates deps and applies defaults.
func NewDiscoveryService(deps DiscoveryServiceDeps) (DiscoveryService, error) {
	if deps.Searcher == nil {
		return nil, errors.New("services: poi searcher is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &discoveryService{
		searcher:   deps.Searcher,
		fuelPrices: deps.FuelPrices,
		geocoder:   deps.Geocoder,
		clock:      clock,
		logger:     logger,
	}, nil
}

func (s *discoveryService) SearchNearby(ctx context.Context, lat, lon float64, radiusMeters int, kind domain.POIKind) ([]domain.POI, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("services: unknown poi kind %q", kind)
	}
	if radiusMeters <= 0 {
		radiusMeters = 3000
	}

	var pois []domain.POI
	var lastErr error
	for _, radius := range escalationRadii(radiusMeters) {
		results, err := s.searcher.SearchNearby(ctx, lat, lon, radius, kind)
		if err != nil {
			lastErr = err
			continue
		}
		if len(results) > 0 {
			pois = results
			break
		}
		s.logger(ctx, "poi search tier empty", map[string]any{"radius": radius})
	}
	if len(pois) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrNoResults
	}

	pois = dedupePOIs(pois)
	sort.SliceStable(pois, func(i, j int) bool {
		return pois[i].DistanceMeters < pois[j].DistanceMeters
	})

	if kind == domain.POIKindFuel {
		s.completeFuelPrices(ctx, pois)
	}
	return pois, nil
}

// escalationRadii returns the tiers to try in order, skipping tiers that do
// not extend the previous one.
func escalationRadii(initial int) []int {
	radii := []int{initial}

	tier1 := initial + radiusTier1Increment
	if tier1 > radiusTier1Cap {
		tier1 = radiusTier1Cap
	}
	if tier1 > radii[len(radii)-1] {
		radii = append(radii, tier1)
	}

	tier2 := initial + radiusTier2Increment
	if tier2 > radiusTier2Cap {
		tier2 = radiusTier2Cap
	}
	if tier2 > radii[len(radii)-1] {
		radii = append(radii, tier2)
	}
	return radii
}

// dedupePOIs drops duplicate (osmType, osmId) pairs, keeping the first seen.
func dedupePOIs(pois []domain.POI) []domain.POI {
	seen := make(map[string]struct{}, len(pois))
	deduped := pois[:0]
	for _, poi := range pois {
		key := fmt.Sprintf("%s/%d", poi.OSMType, poi.OSMID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, poi)
	}
	return deduped
}

// completeFuelPrices merges community submissions over tag-derived prices and
// synthesizes the remaining fuel types. Lookup failures leave the tag prices
// as-is.
func (s *discoveryService) completeFuelPrices(ctx context.Context, pois []domain.POI) {
	var community map[string]map[domain.FuelType]domain.FuelLevel
	if s.fuelPrices != nil {
		ids := make([]string, len(pois))
		for i, poi := range pois {
			ids[i] = poi.ID
		}
		var err error
		community, err = s.fuelPrices.ForStations(ctx, ids)
		if err != nil {
			s.logger(ctx, "community fuel price lookup failed", map[string]any{"error": err.Error()})
			community = nil
		}
	}

	for i := range pois {
		poi := &pois[i]
		if poi.Prices == nil {
			poi.Prices = make(map[domain.FuelType]float64)
		}
		poi.Estimated = make(map[domain.FuelType]bool)

		var newest time.Time
		for fuel, level := range community[poi.ID] {
			// Community submissions carry an update time; prefer them
			// over static tag data.
			poi.Prices[fuel] = level.Price
			if level.UpdatedAt.After(newest) {
				newest = level.UpdatedAt
			}
		}
		if !newest.IsZero() {
			updated := newest
			poi.PricesUpdated = &updated
		}

		for _, fuel := range domain.FuelTypes() {
			if _, ok := poi.Prices[fuel]; ok {
				continue
			}
			poi.Prices[fuel] = SynthesizeFuelPrice(poi.ID, fuel)
			poi.Estimated[fuel] = true
		}
	}
}

// SynthesizeFuelPrice derives a stable pseudo-random price for a station and
// fuel type inside that fuel's realistic bracket. The same inputs always
// produce the same value so repeated renders do not flicker.
func SynthesizeFuelPrice(stationID string, fuel domain.FuelType) float64 {
	bracket, ok := fuelBrackets[fuel]
	if !ok {
		bracket = fuelBrackets[domain.FuelGasoline]
	}

	hash := fnv.New64a()
	_, _ = hash.Write([]byte(stationID))
	_, _ = hash.Write([]byte{0})
	_, _ = hash.Write([]byte(fuel))
	unit := float64(hash.Sum64()%100000) / 100000.0

	price := bracket[0] + unit*(bracket[1]-bracket[0])
	return math.Round(price*100) / 100
}
