package geodata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/precoperto/api/internal/geo"
)

// ErrInvalidPostalCode indicates the code is not an eight digit CEP.
var ErrInvalidPostalCode = errors.New("geodata: invalid postal code")

// ErrPostalCodeNotFound indicates the provider knows no address for the code.
var ErrPostalCodeNotFound = errors.New("geodata: postal code not found")

var postalCodePattern = regexp.MustCompile(`^\d{8}$`)

// PostalLookup resolves a Brazilian CEP into an address.
type PostalLookup interface {
	LookupPostalCode(ctx context.Context, code string) (geo.Address, error)
}

// ViaCEPClient resolves postal codes through the ViaCEP API.
type ViaCEPClient struct {
	baseURL string
	client  *http.Client
	cache   Cache
}

// NewViaCEPClient constructs a client for the given base URL
// (e.g. https://viacep.com.br/ws).
func NewViaCEPClient(baseURL string, client *http.Client, cache Cache) (*ViaCEPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("geodata: viacep base url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	return &ViaCEPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		cache:   cache,
	}, nil
}

type viaCEPResponse struct {
	Street   string `json:"logradouro"`
	District string `json:"bairro"`
	City     string `json:"localidade"`
	State    string `json:"uf"`
	Error    bool   `json:"erro"`
}

// LookupPostalCode accepts "01310-100" or "01310100" and returns the address.
// Postal assignments change rarely; results are cached for a day.
func (c *ViaCEPClient) LookupPostalCode(ctx context.Context, code string) (geo.Address, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(code), "-", "")
	if !postalCodePattern.MatchString(normalized) {
		return geo.Address{}, ErrInvalidPostalCode
	}

	cacheKey := "cep:" + normalized
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, cacheKey); ok {
			var cached geo.Address
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	url := fmt.Sprintf("%s/%s/json", c.baseURL, normalized)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return geo.Address{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return geo.Address{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxGeocodeBody))
		return geo.Address{}, fmt.Errorf("geodata: viacep status %d", resp.StatusCode)
	}

	var payload viaCEPResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGeocodeBody)).Decode(&payload); err != nil {
		return geo.Address{}, fmt.Errorf("geodata: decode viacep payload: %w", err)
	}
	if payload.Error {
		return geo.Address{}, ErrPostalCodeNotFound
	}

	street := payload.Street
	if payload.District != "" {
		if street != "" {
			street += " - " + payload.District
		} else {
			street = payload.District
		}
	}
	address := geo.Address{
		Street:    street,
		StateLine: joinCityState(payload.City, payload.State),
		Country:   "BR",
	}

	if c.cache != nil {
		if raw, err := json.Marshal(address); err == nil {
			c.cache.Set(ctx, cacheKey, raw, 24*time.Hour)
		}
	}
	return address, nil
}

func joinCityState(city, state string) string {
	switch {
	case city != "" && state != "":
		return city + " - " + state
	case city != "":
		return city
	default:
		return state
	}
}
