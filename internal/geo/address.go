package geo

import (
	"fmt"
	"strings"
)

// Address is the uniform shape produced from heterogeneous provider payloads.
type Address struct {
	Street    string `json:"street"`
	StateLine string `json:"stateLine"`
	Country   string `json:"country"`
}

// Empty reports whether no component carries a value.
func (a Address) Empty() bool {
	return a.Street == "" && a.StateLine == "" && a.Country == ""
}

// Display joins the populated components with commas.
func (a Address) Display() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{a.Street, a.StateLine, a.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// FallbackAddress renders the coordinate pair as a street line. Geocoding
// failures degrade to this value instead of surfacing an error.
func FallbackAddress(lat, lon float64) Address {
	return Address{Street: fmt.Sprintf("%.5f, %.5f", lat, lon)}
}

// NormalizeAddress accepts the tag and field shapes the upstream providers
// produce and maps them into a uniform Address. Accepted inputs:
//
//   - map[string]string or map[string]any with OSM "addr:*" tags
//   - map[string]any shaped like a reverse geocoding response ("road",
//     "city", "state", "country", or a nested "address" object)
//   - a free-form string, kept verbatim as the street line
//   - an Address, returned as-is
//
// Unknown or nil input yields a zero Address. The function never fails.
func NormalizeAddress(input any) Address {
	switch v := input.(type) {
	case nil:
		return Address{}
	case Address:
		return v
	case *Address:
		if v == nil {
			return Address{}
		}
		return *v
	case string:
		return Address{Street: strings.TrimSpace(v)}
	case map[string]string:
		generic := make(map[string]any, len(v))
		for key, value := range v {
			generic[key] = value
		}
		return normalizeMap(generic)
	case map[string]any:
		return normalizeMap(v)
	default:
		return Address{}
	}
}

func normalizeMap(fields map[string]any) Address {
	if nested, ok := fields["address"].(map[string]any); ok {
		merged := make(map[string]any, len(fields)+len(nested))
		for key, value := range fields {
			merged[key] = value
		}
		for key, value := range nested {
			merged[key] = value
		}
		fields = merged
	}

	street := firstField(fields, "addr:street", "road", "street", "addr:housename", "pedestrian", "residential")
	if street != "" {
		if number := firstField(fields, "addr:housenumber", "house_number"); number != "" {
			street = street + ", " + number
		}
	}

	city := firstField(fields, "addr:city", "city", "town", "village", "municipality", "suburb")
	state := firstField(fields, "addr:state", "state", "principalSubdivision", "region")
	stateLine := joinNonEmpty(" - ", city, state)

	country := firstField(fields, "addr:country", "country", "countryName", "country_code")

	return Address{Street: street, StateLine: stateLine, Country: country}
}

func firstField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		switch typed := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(typed); trimmed != "" {
				return trimmed
			}
		case fmt.Stringer:
			if trimmed := strings.TrimSpace(typed.String()); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, sep)
}
