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

	"go.uber.org/zap"

	"github.com/precoperto/api/internal/geo"
)

// Route is a computed path between two coordinates.
type Route struct {
	DistanceMeters  float64     `json:"distanceMeters"`
	DurationSeconds float64     `json:"durationSeconds"`
	Geometry        []geo.Point `json:"geometry,omitempty"`
	// StraightLine marks routes synthesized locally after the routing
	// service failed.
	StraightLine bool `json:"straightLine"`
}

// Router computes a driving route between two points.
type Router interface {
	Route(ctx context.Context, from, to geo.Point) Route
}

// OSRMRouter calls a project-osrm compatible routing service and falls back
// to a straight-line estimate when the service is unreachable. Route never
// returns an error.
type OSRMRouter struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewOSRMRouter constructs a router for the given base URL
// (e.g. https://router.project-osrm.org/route/v1/driving).
func NewOSRMRouter(baseURL string, client *http.Client, logger *zap.Logger) (*OSRMRouter, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("geodata: routing base url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OSRMRouter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}, nil
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route returns the driving route, or a straight-line estimate at an assumed
// 40 km/h when the service fails.
func (r *OSRMRouter) Route(ctx context.Context, from, to geo.Point) Route {
	route, err := r.fetch(ctx, from, to)
	if err != nil {
		r.logger.Debug("routing service failed, using straight line", zap.Error(err))
		return straightLineRoute(from, to)
	}
	return route
}

func (r *OSRMRouter) fetch(ctx context.Context, from, to geo.Point) (Route, error) {
	url := fmt.Sprintf("%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		r.baseURL, from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Route{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxOverpassBody))
		return Route{}, fmt.Errorf("geodata: routing status %d", resp.StatusCode)
	}

	var payload osrmResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOverpassBody)).Decode(&payload); err != nil {
		return Route{}, fmt.Errorf("geodata: decode routing payload: %w", err)
	}
	if payload.Code != "Ok" || len(payload.Routes) == 0 {
		return Route{}, fmt.Errorf("geodata: routing answered %q with %d routes", payload.Code, len(payload.Routes))
	}

	best := payload.Routes[0]
	geometry := make([]geo.Point, 0, len(best.Geometry.Coordinates))
	for _, pair := range best.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		geometry = append(geometry, geo.Point{Lat: pair[1], Lon: pair[0]})
	}
	return Route{
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Geometry:        geometry,
	}, nil
}

func straightLineRoute(from, to geo.Point) Route {
	distance := geo.Distance(from, to)
	const assumedSpeedMetersPerSecond = 40_000.0 / 3600.0
	return Route{
		DistanceMeters:  distance,
		DurationSeconds: distance / assumedSpeedMetersPerSecond,
		Geometry:        []geo.Point{from, to},
		StraightLine:    true,
	}
}
