package firestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/precoperto/api/internal/domain"
	platformfs "github.com/precoperto/api/internal/platform/firestore"
)

// FuelPriceRepository stores community price submissions under
// fuelPrices/{stationId}/levels/{fuelType}.
type FuelPriceRepository struct {
	provider *platformfs.Provider
}

func (r *FuelPriceRepository) station(ctx context.Context, stationID string) (*firestore.CollectionRef, error) {
	if strings.TrimSpace(stationID) == "" {
		return nil, platformfs.WrapError("fuelPrices", errors.New("firestore: station id is required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf("fuelPrices/%s/levels", url.PathEscape(stationID))), nil
}

func (r *FuelPriceRepository) Submit(ctx context.Context, stationID string, fuel domain.FuelType, level domain.FuelLevel) error {
	if !domain.ValidFuelType(fuel) {
		return platformfs.WrapError("fuelPrices.submit", fmt.Errorf("firestore: unknown fuel type %q", fuel))
	}
	coll, err := r.station(ctx, stationID)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(string(fuel)).Set(ctx, level); err != nil {
		return platformfs.WrapError("fuelPrices.submit", err)
	}
	return nil
}

func (r *FuelPriceRepository) ForStation(ctx context.Context, stationID string) (map[domain.FuelType]domain.FuelLevel, error) {
	coll, err := r.station(ctx, stationID)
	if err != nil {
		return nil, err
	}

	iter := coll.Documents(ctx)
	defer iter.Stop()

	levels := make(map[domain.FuelType]domain.FuelLevel)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, platformfs.WrapError("fuelPrices.forStation", err)
		}
		fuel := domain.FuelType(snap.Ref.ID)
		if !domain.ValidFuelType(fuel) {
			continue
		}
		var level domain.FuelLevel
		if err := snap.DataTo(&level); err != nil {
			return nil, platformfs.WrapError("fuelPrices.decode", err)
		}
		levels[fuel] = level
	}
	if len(levels) == 0 {
		return nil, nil
	}
	return levels, nil
}

func (r *FuelPriceRepository) ForStations(ctx context.Context, stationIDs []string) (map[string]map[domain.FuelType]domain.FuelLevel, error) {
	result := make(map[string]map[domain.FuelType]domain.FuelLevel, len(stationIDs))
	for _, stationID := range stationIDs {
		levels, err := r.ForStation(ctx, stationID)
		if err != nil {
			return nil, err
		}
		if levels != nil {
			result[stationID] = levels
		}
	}
	return result, nil
}
