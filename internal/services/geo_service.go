package services

import (
	"context"
	"errors"

	"github.com/precoperto/api/internal/geo"
	"github.com/precoperto/api/internal/geodata"
)

// ErrInvalidCoordinates indicates a lat/lon pair outside coordinate bounds.
var ErrInvalidCoordinates = errors.New("services: invalid coordinates")

// GeoService exposes the geodata adapters to the HTTP layer.
type GeoService interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (geo.Address, error)
	LookupPostalCode(ctx context.Context, code string) (geo.Address, error)
	Route(ctx context.Context, from, to geo.Point) (geodata.Route, error)
	LocateByIP(ctx context.Context, ip string) (geo.Point, error)
}

// GeoServiceDeps lists the collaborators required by the service.
type GeoServiceDeps struct {
	Geocoder geodata.ReverseGeocoder
	Postal   geodata.PostalLookup
	Router   geodata.Router
	Locator  geodata.IPLocator
}

type geoService struct {
	geocoder geodata.ReverseGeocoder
	postal   geodata.PostalLookup
	router   geodata.Router
	locator  geodata.IPLocator
}

// NewGeoService validates deps.
func NewGeoService(deps GeoServiceDeps) (GeoService, error) {
	if deps.Geocoder == nil {
		return nil, errors.New("services: reverse geocoder is required")
	}
	if deps.Postal == nil {
		return nil, errors.New("services: postal lookup is required")
	}
	if deps.Router == nil {
		return nil, errors.New("services: router is required")
	}
	if deps.Locator == nil {
		return nil, errors.New("services: ip locator is required")
	}
	return &geoService{
		geocoder: deps.Geocoder,
		postal:   deps.Postal,
		router:   deps.Router,
		locator:  deps.Locator,
	}, nil
}

func (s *geoService) ReverseGeocode(ctx context.Context, lat, lon float64) (geo.Address, error) {
	if !(geo.Point{Lat: lat, Lon: lon}).Valid() {
		return geo.Address{}, ErrInvalidCoordinates
	}
	return s.geocoder.ReverseGeocode(ctx, lat, lon), nil
}

func (s *geoService) LookupPostalCode(ctx context.Context, code string) (geo.Address, error) {
	return s.postal.LookupPostalCode(ctx, code)
}

func (s *geoService) Route(ctx context.Context, from, to geo.Point) (geodata.Route, error) {
	if !from.Valid() || !to.Valid() {
		return geodata.Route{}, ErrInvalidCoordinates
	}
	return s.router.Route(ctx, from, to), nil
}

func (s *geoService) LocateByIP(ctx context.Context, ip string) (geo.Point, error) {
	return s.locator.Locate(ctx, ip)
}
