package geodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/precoperto/api/internal/domain"
)

const overpassFixture = `{
	"elements": [
		{
			"type": "node",
			"id": 101,
			"lat": -23.551,
			"lon": -46.634,
			"tags": {
				"name": "Mercado Bom Preco",
				"shop": "supermarket",
				"addr:street": "Rua das Flores",
				"addr:city": "Sao Paulo",
				"addr:state": "SP",
				"opening_hours": "Mo-Sa 08:00-22:00"
			}
		},
		{
			"type": "way",
			"id": 202,
			"center": {"lat": -23.553, "lon": -46.637},
			"tags": {"brand": "SuperRede", "shop": "supermarket"}
		}
	]
}`

func newOverpassClient(t *testing.T, urls []string, cache Cache) *OverpassClient {
	t.Helper()
	client, err := NewOverpassClient(OverpassClientDeps{
		MirrorURLs: urls,
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		Cache:      cache,
		CacheTTL:   15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewOverpassClient: %v", err)
	}
	return client
}

func TestSearchNearby_MapsElements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("data") == "" {
			t.Errorf("missing overpass query payload")
		}
		_, _ = w.Write([]byte(overpassFixture))
	}))
	defer server.Close()

	client := newOverpassClient(t, []string{server.URL}, nil)
	pois, err := client.SearchNearby(context.Background(), -23.55, -46.63, 3000, domain.POIKindMarket)
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(pois) != 2 {
		t.Fatalf("len(pois) = %d, want 2", len(pois))
	}

	first := pois[0]
	if first.ID != "node/101" || first.OSMType != "node" || first.OSMID != 101 {
		t.Fatalf("unexpected identity: %+v", first)
	}
	if first.Name != "Mercado Bom Preco" {
		t.Fatalf("Name = %q", first.Name)
	}
	if first.Street != "Rua das Flores" {
		t.Fatalf("Street = %q", first.Street)
	}
	if first.DistanceMeters <= 0 {
		t.Fatalf("DistanceMeters = %f, want > 0", first.DistanceMeters)
	}

	second := pois[1]
	if second.Name != "SuperRede" {
		t.Fatalf("way name fallback = %q, want brand", second.Name)
	}
	if second.Lat != -23.553 {
		t.Fatalf("way center not used: %+v", second)
	}
}

func TestSearchNearby_TriesMirrorsInOrder(t *testing.T) {
	var badCalls atomic.Int64
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badCalls.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(overpassFixture))
	}))
	defer good.Close()

	client := newOverpassClient(t, []string{bad.URL, bad.URL, good.URL}, nil)
	pois, err := client.SearchNearby(context.Background(), -23.55, -46.63, 3000, domain.POIKindMarket)
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(pois) != 2 {
		t.Fatalf("len(pois) = %d, want 2", len(pois))
	}
	if got := badCalls.Load(); got != 2 {
		t.Fatalf("failing mirror calls = %d, want 2", got)
	}
}

func TestSearchNearby_AllMirrorsFailing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newOverpassClient(t, []string{server.URL, server.URL}, nil)
	if _, err := client.SearchNearby(context.Background(), -23.55, -46.63, 3000, domain.POIKindMarket); err == nil {
		t.Fatalf("expected error when every mirror fails")
	}
}

func TestSearchNearby_CachesByQueryString(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(overpassFixture))
	}))
	defer server.Close()

	client := newOverpassClient(t, []string{server.URL}, NewMemoryCache(16))
	ctx := context.Background()

	if _, err := client.SearchNearby(ctx, -23.55, -46.63, 3000, domain.POIKindMarket); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := client.SearchNearby(ctx, -23.55, -46.63, 3000, domain.POIKindMarket); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("upstream calls = %d, want 1", got)
	}

	// A different radius is a different query string, so it misses the cache.
	if _, err := client.SearchNearby(ctx, -23.55, -46.63, 5000, domain.POIKindMarket); err != nil {
		t.Fatalf("third search: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("upstream calls = %d, want 2", got)
	}
}

func TestSearchNearby_ParsesFuelPrices(t *testing.T) {
	fixture := `{
		"elements": [
			{
				"type": "node",
				"id": 999,
				"lat": -23.56,
				"lon": -46.64,
				"tags": {
					"amenity": "fuel",
					"name": "Posto Central",
					"fuel:gasoline:price": "5,89",
					"fuel:etanol:price": "3.99",
					"price:diesel_s10": "6.20"
				}
			}
		]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixture))
	}))
	defer server.Close()

	client := newOverpassClient(t, []string{server.URL}, nil)
	pois, err := client.SearchNearby(context.Background(), -23.55, -46.63, 3000, domain.POIKindFuel)
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(pois) != 1 {
		t.Fatalf("len(pois) = %d, want 1", len(pois))
	}

	prices := pois[0].Prices
	if prices[domain.FuelGasoline] != 5.89 {
		t.Fatalf("gasoline = %v", prices[domain.FuelGasoline])
	}
	if prices[domain.FuelEthanol] != 3.99 {
		t.Fatalf("ethanol = %v", prices[domain.FuelEthanol])
	}
	if prices[domain.FuelDieselS10] != 6.20 {
		t.Fatalf("diesel_s10 = %v", prices[domain.FuelDieselS10])
	}
}
