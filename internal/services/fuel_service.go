package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/repositories"
)

// Fuel submission failures.
var (
	ErrFuelStationRequired = errors.New("services: station id is required")
	ErrFuelTypeInvalid     = errors.New("services: unknown fuel type")
	ErrFuelPriceInvalid    = errors.New("services: fuel price must be positive")
)

// FuelPriceService handles community price submissions and reads.
type FuelPriceService interface {
	Submit(ctx context.Context, uid, stationID string, fuel domain.FuelType, price float64) (domain.FuelLevel, error)
	ForStation(ctx context.Context, stationID string) (map[domain.FuelType]domain.FuelLevel, error)
}

// FuelPriceServiceDeps lists the collaborators required by the service.
type FuelPriceServiceDeps struct {
	FuelPrices repositories.FuelPriceRepository
	Clock      func() time.Time
}

type fuelPriceService struct {
	fuelPrices repositories.FuelPriceRepository
	clock      func() time.Time
}

// NewFuelPriceService validates deps and applies defaults.
func NewFuelPriceService(deps FuelPriceServiceDeps) (FuelPriceService, error) {
	if deps.FuelPrices == nil {
		return nil, errors.New("services: fuel price repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &fuelPriceService{fuelPrices: deps.FuelPrices, clock: clock}, nil
}

func (s *fuelPriceService) Submit(ctx context.Context, uid, stationID string, fuel domain.FuelType, price float64) (domain.FuelLevel, error) {
	if strings.TrimSpace(stationID) == "" {
		return domain.FuelLevel{}, ErrFuelStationRequired
	}
	if !domain.ValidFuelType(fuel) {
		return domain.FuelLevel{}, ErrFuelTypeInvalid
	}
	if price <= 0 {
		return domain.FuelLevel{}, ErrFuelPriceInvalid
	}

	level := domain.FuelLevel{
		Price:         price,
		UpdatedAt:     s.clock(),
		ContributorID: uid,
	}
	if err := s.fuelPrices.Submit(ctx, stationID, fuel, level); err != nil {
		return domain.FuelLevel{}, err
	}
	return level, nil
}

func (s *fuelPriceService) ForStation(ctx context.Context, stationID string) (map[domain.FuelType]domain.FuelLevel, error) {
	if strings.TrimSpace(stationID) == "" {
		return nil, ErrFuelStationRequired
	}
	return s.fuelPrices.ForStation(ctx, stationID)
}
