package geodata

import (
	"strconv"
	"strings"

	"github.com/precoperto/api/internal/domain"
)

// CanonicalFuelType folds raw tag spellings into the canonical fuel key set.
// Matching is case-insensitive and substring-based; the specific diesel
// grades are checked before plain diesel.
func CanonicalFuelType(raw string) (domain.FuelType, bool) {
	normalized := strings.ToLower(raw)
	switch {
	case strings.Contains(normalized, "s10"):
		return domain.FuelDieselS10, true
	case strings.Contains(normalized, "s500"):
		return domain.FuelDieselS500, true
	case strings.Contains(normalized, "diesel"):
		return domain.FuelDiesel, true
	case strings.Contains(normalized, "etanol"),
		strings.Contains(normalized, "ethanol"),
		strings.Contains(normalized, "alcool"),
		strings.Contains(normalized, "alcohol"):
		return domain.FuelEthanol, true
	case strings.Contains(normalized, "gnv"),
		strings.Contains(normalized, "cng"):
		return domain.FuelCNV, true
	case strings.Contains(normalized, "gasolina"),
		strings.Contains(normalized, "gasoline"),
		strings.Contains(normalized, "petrol"),
		strings.Contains(normalized, "octane"):
		return domain.FuelGasoline, true
	default:
		return "", false
	}
}

// ExtractFuelPrices scans OSM tags for price-carrying keys and maps them onto
// canonical fuel types. When several tags collapse to the same canonical key
// the minimum price wins.
func ExtractFuelPrices(tags map[string]string) map[domain.FuelType]float64 {
	prices := make(map[domain.FuelType]float64)
	for key, value := range tags {
		if !isPriceKey(key) {
			continue
		}
		fuel, ok := CanonicalFuelType(key)
		if !ok {
			continue
		}
		price, ok := parsePriceValue(value)
		if !ok {
			continue
		}
		if existing, found := prices[fuel]; !found || price < existing {
			prices[fuel] = price
		}
	}
	if len(prices) == 0 {
		return nil
	}
	return prices
}

func isPriceKey(key string) bool {
	normalized := strings.ToLower(key)
	return strings.HasSuffix(normalized, ":price") ||
		strings.HasSuffix(normalized, "_price") ||
		strings.HasPrefix(normalized, "price:")
}

// parsePriceValue tolerates currency prefixes, comma decimal separators and
// trailing unit annotations ("R$ 5,89", "5.89 BRL").
func parsePriceValue(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "R$")
	cleaned = strings.TrimPrefix(cleaned, "BRL")
	cleaned = strings.TrimSpace(cleaned)
	if idx := strings.IndexByte(cleaned, ' '); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}
