// Package firestore implements the repository contracts on Cloud Firestore.
// User-owned data lives in subcollections under users/{uid}; fuel prices and
// marketplace listings are top level collections.
package firestore

import (
	"errors"

	platformfs "github.com/precoperto/api/internal/platform/firestore"
	"github.com/precoperto/api/internal/repositories"
)

// NewRegistry wires every Firestore-backed repository against the shared
// provider.
func NewRegistry(provider *platformfs.Provider) (*repositories.Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}

	orders := &OrderRepository{provider: provider}
	return &repositories.Registry{
		Carts:      &CartRepository{provider: provider},
		Orders:     orders,
		Placer:     orders,
		Coupons:    &CouponRepository{provider: provider},
		Markers:    &MarkerRepository{provider: provider},
		FuelPrices: &FuelPriceRepository{provider: provider},
		Listings:   &ListingRepository{provider: provider},
	}, nil
}
