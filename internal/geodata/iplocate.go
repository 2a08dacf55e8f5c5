package geodata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/precoperto/api/internal/geo"
)

// ErrLocationUnavailable indicates no coarse location could be derived.
var ErrLocationUnavailable = errors.New("geodata: location unavailable")

// IPLocator derives a coarse location from the caller's IP address. Used when
// the device denies or lacks precise geolocation.
type IPLocator interface {
	Locate(ctx context.Context, ip string) (geo.Point, error)
}

// IPAPIClient calls an ipapi.co compatible endpoint.
type IPAPIClient struct {
	baseURL string
	client  *http.Client
}

// NewIPAPIClient constructs a client for the given base URL
// (e.g. https://ipapi.co/json).
func NewIPAPIClient(baseURL string, client *http.Client) (*IPAPIClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("geodata: ip geolocation base url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &IPAPIClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}, nil
}

type ipAPIResponse struct {
	Lat   float64 `json:"latitude"`
	Lon   float64 `json:"longitude"`
	Error bool    `json:"error"`
}

// Locate resolves the IP to a coordinate. An empty ip resolves the caller of
// the upstream request, which is the API server, so callers should pass the
// client address whenever they have one.
func (c *IPAPIClient) Locate(ctx context.Context, ip string) (geo.Point, error) {
	url := c.baseURL
	if trimmed := strings.TrimSpace(ip); trimmed != "" {
		// ipapi.co shape: /{ip}/json
		url = strings.TrimSuffix(c.baseURL, "/json") + "/" + trimmed + "/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return geo.Point{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return geo.Point{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxGeocodeBody))
		return geo.Point{}, fmt.Errorf("geodata: ip geolocation status %d", resp.StatusCode)
	}

	var payload ipAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGeocodeBody)).Decode(&payload); err != nil {
		return geo.Point{}, fmt.Errorf("geodata: decode ip geolocation payload: %w", err)
	}
	point := geo.Point{Lat: payload.Lat, Lon: payload.Lon}
	if payload.Error || !point.Valid() || (point.Lat == 0 && point.Lon == 0) {
		return geo.Point{}, ErrLocationUnavailable
	}
	return point, nil
}
