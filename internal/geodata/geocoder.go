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

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/precoperto/api/internal/geo"
)

const maxGeocodeBody = 1 << 20

// ReverseGeocoder resolves a coordinate pair into a human-readable address.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) geo.Address
}

// HTTPReverseGeocoderDeps lists the collaborators required by the client.
type HTTPReverseGeocoderDeps struct {
	// ProviderURLs are tried in order; each must contain {lat} and {lon}
	// placeholders. The first provider is primary, the rest are fallbacks.
	ProviderURLs []string
	HTTPClient   *http.Client
	Cache        Cache
	CacheTTL     time.Duration
	// Pool bounds concurrent provider calls. Optional.
	Pool        *WorkerPool
	RetryBase   time.Duration
	MaxAttempts int
	Logger      *zap.Logger
}

// HTTPReverseGeocoder calls public reverse-geocoding providers with bounded
// retries and caches results under a quantized coordinate key. It never
// returns an error: exhausted providers degrade to the coordinate string.
type HTTPReverseGeocoder struct {
	providers   []string
	client      *http.Client
	cache       Cache
	cacheTTL    time.Duration
	pool        *WorkerPool
	retryBase   time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// NewHTTPReverseGeocoder validates deps and applies defaults.
func NewHTTPReverseGeocoder(deps HTTPReverseGeocoderDeps) (*HTTPReverseGeocoder, error) {
	if len(deps.ProviderURLs) == 0 {
		return nil, errors.New("geodata: at least one reverse geocoding provider is required")
	}
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	retryBase := deps.RetryBase
	if retryBase <= 0 {
		retryBase = 700 * time.Millisecond
	}
	maxAttempts := deps.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	cacheTTL := deps.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPReverseGeocoder{
		providers:   deps.ProviderURLs,
		client:      client,
		cache:       deps.Cache,
		cacheTTL:    cacheTTL,
		pool:        deps.Pool,
		retryBase:   retryBase,
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

// ReverseGeocode resolves the coordinate to an address. Results are cached by
// quantized coordinates so repeated lookups for the same POI are free.
func (g *HTTPReverseGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) geo.Address {
	key := geo.CacheKey(lat, lon)
	if g.cache != nil {
		if raw, ok := g.cache.Get(ctx, "revgeo:"+key); ok {
			var cached geo.Address
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached
			}
		}
	}

	address := geo.FallbackAddress(lat, lon)
	resolve := func(ctx context.Context) {
		if resolved, ok := g.resolve(ctx, lat, lon); ok {
			address = resolved
		}
	}
	if g.pool != nil {
		if err := g.pool.Do(ctx, resolve); err != nil {
			return address
		}
	} else {
		resolve(ctx)
	}

	if g.cache != nil {
		if raw, err := json.Marshal(address); err == nil {
			g.cache.Set(ctx, "revgeo:"+key, raw, g.cacheTTL)
		}
	}
	return address
}

func (g *HTTPReverseGeocoder) resolve(ctx context.Context, lat, lon float64) (geo.Address, bool) {
	for _, provider := range g.providers {
		url := expandProviderURL(provider, lat, lon)

		var address geo.Address
		operation := func() error {
			resolved, err := g.fetch(ctx, url)
			if err != nil {
				return err
			}
			address = resolved
			return nil
		}

		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(g.retryBase),
		), uint64(g.maxAttempts-1)), ctx)

		if err := backoff.Retry(operation, policy); err != nil {
			g.logger.Debug("reverse geocode provider failed",
				zap.String("provider", providerHost(provider)),
				zap.Error(err))
			continue
		}
		if !address.Empty() {
			return address, true
		}
	}
	return geo.Address{}, false
}

func (g *HTTPReverseGeocoder) fetch(ctx context.Context, url string) (geo.Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return geo.Address{}, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "precoperto-api/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return geo.Address{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxGeocodeBody))
		err := fmt.Errorf("geodata: reverse geocode status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return geo.Address{}, backoff.Permanent(err)
		}
		return geo.Address{}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGeocodeBody))
	if err != nil {
		return geo.Address{}, err
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return geo.Address{}, backoff.Permanent(fmt.Errorf("geodata: decode reverse geocode payload: %w", err))
	}
	return geo.NormalizeAddress(payload), nil
}

func expandProviderURL(template string, lat, lon float64) string {
	url := strings.ReplaceAll(template, "{lat}", fmt.Sprintf("%f", lat))
	return strings.ReplaceAll(url, "{lon}", fmt.Sprintf("%f", lon))
}

func providerHost(url string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if idx := strings.IndexAny(trimmed, "/?"); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}
