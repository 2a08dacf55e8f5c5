package geodata

import (
	"testing"

	"github.com/precoperto/api/internal/domain"
)

func TestCanonicalFuelType(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.FuelType
		ok   bool
	}{
		{"fuel:gasoline:price", domain.FuelGasoline, true},
		{"fuel:GASOLINA:price", domain.FuelGasoline, true},
		{"fuel:octane_95:price", domain.FuelGasoline, true},
		{"fuel:etanol:price", domain.FuelEthanol, true},
		{"fuel:ethanol:price", domain.FuelEthanol, true},
		{"fuel:alcool:price", domain.FuelEthanol, true},
		{"fuel:diesel:price", domain.FuelDiesel, true},
		{"fuel:diesel_s10:price", domain.FuelDieselS10, true},
		{"fuel:diesel_s500:price", domain.FuelDieselS500, true},
		{"fuel:GNV:price", domain.FuelCNV, true},
		{"fuel:cng:price", domain.FuelCNV, true},
		{"fuel:kerosene:price", "", false},
	}

	for _, tc := range cases {
		got, ok := CanonicalFuelType(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("CanonicalFuelType(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractFuelPrices_MinimumWinsOnCollision(t *testing.T) {
	prices := ExtractFuelPrices(map[string]string{
		"fuel:gasoline:price": "5.99",
		"fuel:gasolina:price": "5.79",
		"fuel:petrol:price":   "6.10",
	})
	if got := prices[domain.FuelGasoline]; got != 5.79 {
		t.Fatalf("gasoline = %v, want 5.79 (minimum)", got)
	}
}

func TestExtractFuelPrices_IgnoresNonPriceAndGarbageValues(t *testing.T) {
	prices := ExtractFuelPrices(map[string]string{
		"fuel:gasoline":         "yes",
		"fuel:diesel:price":     "not-a-number",
		"fuel:ethanol:price":    "0",
		"name":                  "Posto X",
		"fuel:gasoline:price":   "R$ 5,89",
		"fuel:diesel_s10_price": "6.15",
	})
	if len(prices) != 2 {
		t.Fatalf("len(prices) = %d, want 2: %v", len(prices), prices)
	}
	if prices[domain.FuelGasoline] != 5.89 {
		t.Fatalf("gasoline = %v, want 5.89", prices[domain.FuelGasoline])
	}
	if prices[domain.FuelDieselS10] != 6.15 {
		t.Fatalf("diesel_s10 = %v, want 6.15", prices[domain.FuelDieselS10])
	}
}

func TestExtractFuelPrices_EmptyTags(t *testing.T) {
	if prices := ExtractFuelPrices(nil); prices != nil {
		t.Fatalf("prices = %v, want nil", prices)
	}
	if prices := ExtractFuelPrices(map[string]string{"name": "Posto"}); prices != nil {
		t.Fatalf("prices = %v, want nil", prices)
	}
}
