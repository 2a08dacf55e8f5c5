package geodata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/geo"
)

const maxOverpassBody = 8 << 20

// ErrAllMirrorsFailed indicates every configured Overpass endpoint failed.
var ErrAllMirrorsFailed = errors.New("geodata: all overpass mirrors failed")

// POISearcher queries a spatial index for points of interest around an origin.
type POISearcher interface {
	SearchNearby(ctx context.Context, lat, lon float64, radiusMeters int, kind domain.POIKind) ([]domain.POI, error)
}

// OverpassClientDeps lists the collaborators required by the client.
type OverpassClientDeps struct {
	// MirrorURLs are Overpass interpreter endpoints tried in order.
	MirrorURLs []string
	HTTPClient *http.Client
	Cache      Cache
	CacheTTL   time.Duration
	Logger     *zap.Logger
}

// OverpassClient queries the Overpass API for supermarkets and fuel stations.
// Successful responses are cached keyed by the exact query string.
type OverpassClient struct {
	mirrors  []string
	client   *http.Client
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewOverpassClient validates deps and applies defaults.
func NewOverpassClient(deps OverpassClientDeps) (*OverpassClient, error) {
	if len(deps.MirrorURLs) == 0 {
		return nil, errors.New("geodata: at least one overpass endpoint is required")
	}
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 25 * time.Second}
	}
	cacheTTL := deps.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverpassClient{
		mirrors:  deps.MirrorURLs,
		client:   client,
		cache:    deps.Cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}, nil
}

type overpassElement struct {
	Type   string  `json:"type"`
	ID     int64   `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// SearchNearby issues a spatial tag query around the origin. Mirrors are tried
// in order until one responds; an empty result set is a valid answer, not an
// error.
func (c *OverpassClient) SearchNearby(ctx context.Context, lat, lon float64, radiusMeters int, kind domain.POIKind) ([]domain.POI, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("geodata: unknown poi kind %q", kind)
	}
	query := buildOverpassQuery(lat, lon, radiusMeters, kind)

	var payload overpassResponse
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, "overpass:"+query); ok {
			if err := json.Unmarshal(raw, &payload); err == nil {
				return c.mapElements(payload.Elements, lat, lon, kind), nil
			}
		}
	}

	raw, err := c.execute(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("geodata: decode overpass payload: %w", err)
	}
	if c.cache != nil {
		c.cache.Set(ctx, "overpass:"+query, raw, c.cacheTTL)
	}
	return c.mapElements(payload.Elements, lat, lon, kind), nil
}

func (c *OverpassClient) execute(ctx context.Context, query string) ([]byte, error) {
	var lastErr error
	for _, mirror := range c.mirrors {
		raw, err := c.post(ctx, mirror, query)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("overpass mirror failed",
			zap.String("mirror", providerHost(mirror)),
			zap.Error(err))
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", ErrAllMirrorsFailed, lastErr)
}

func (c *OverpassClient) post(ctx context.Context, endpoint, query string) ([]byte, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "precoperto-api/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxOverpassBody))
		return nil, fmt.Errorf("geodata: overpass status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxOverpassBody))
}

func buildOverpassQuery(lat, lon float64, radiusMeters int, kind domain.POIKind) string {
	var selector string
	switch kind {
	case domain.POIKindFuel:
		selector = `["amenity"="fuel"]`
	default:
		selector = `["shop"~"supermarket|convenience|greengrocer"]`
	}
	around := fmt.Sprintf("(around:%d,%.5f,%.5f)", radiusMeters, lat, lon)
	return fmt.Sprintf(
		"[out:json][timeout:25];(node%s%s;way%s%s;);out center tags;",
		selector, around, selector, around,
	)
}

func (c *OverpassClient) mapElements(elements []overpassElement, originLat, originLon float64, kind domain.POIKind) []domain.POI {
	pois := make([]domain.POI, 0, len(elements))
	for _, element := range elements {
		lat, lon := element.Lat, element.Lon
		if element.Center != nil {
			lat, lon = element.Center.Lat, element.Center.Lon
		}
		if lat == 0 && lon == 0 {
			continue
		}

		tags := element.Tags
		address := geo.NormalizeAddress(tags)

		poi := domain.POI{
			ID:             fmt.Sprintf("%s/%d", element.Type, element.ID),
			OSMType:        element.Type,
			OSMID:          element.ID,
			Kind:           kind,
			Name:           poiName(tags, kind),
			Brand:          tags["brand"],
			Lat:            lat,
			Lon:            lon,
			DistanceMeters: geo.DistanceMeters(originLat, originLon, lat, lon),
			Street:         address.Street,
			StateLine:      address.StateLine,
			Country:        address.Country,
			ShopType:       tags["shop"],
			OpeningHours:   tags["opening_hours"],
			Phone:          firstTag(tags, "phone", "contact:phone"),
			Website:        firstTag(tags, "website", "contact:website"),
			Operator:       tags["operator"],
			Description:    tags["description"],
		}
		if kind == domain.POIKindFuel {
			poi.Prices = ExtractFuelPrices(tags)
		}
		pois = append(pois, poi)
	}
	return pois
}

func poiName(tags map[string]string, kind domain.POIKind) string {
	if name := firstTag(tags, "name", "brand", "operator"); name != "" {
		return name
	}
	if kind == domain.POIKindFuel {
		return "Posto de combustível"
	}
	return "Mercado"
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(tags[key]); value != "" {
			return value
		}
	}
	return ""
}
