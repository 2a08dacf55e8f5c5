// Package repositories declares the persistence contracts the services depend
// on. Implementations live in the firestore subpackage; tests substitute
// in-memory stubs.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/precoperto/api/internal/domain"
)

// Sentinel errors shared by every implementation so services can react
// without knowing the backing store.
var (
	// ErrCartAlreadyFulfilled indicates a prior order confirmation already
	// flipped the source cart.
	ErrCartAlreadyFulfilled = errors.New("repositories: cart already fulfilled")
	// ErrCouponExhausted indicates usedCount reached maxUses.
	ErrCouponExhausted = errors.New("repositories: coupon exhausted")
	// ErrCouponExpired indicates the coupon is past its expiry.
	ErrCouponExpired = errors.New("repositories: coupon expired")
	// ErrListingForbidden indicates the caller does not own the listing.
	ErrListingForbidden = errors.New("repositories: listing owned by another user")
)

// RepositoryError lets callers classify persistence failures without
// depending on the backing store's error types.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// IsNotFound reports whether err is a not-found repository error.
func IsNotFound(err error) bool {
	repoErr, ok := err.(RepositoryError)
	return ok && repoErr.IsNotFound()
}

// IsConflict reports whether err is a conflict repository error.
func IsConflict(err error) bool {
	repoErr, ok := err.(RepositoryError)
	return ok && repoErr.IsConflict()
}

// ListPage bounds a cursor-paginated listing.
type ListPage struct {
	Limit      int
	StartAfter string
}

// CartRepository stores carts under the owning user.
type CartRepository interface {
	Create(ctx context.Context, uid string, cart domain.Cart) (domain.Cart, error)
	Get(ctx context.Context, uid, cartID string) (domain.Cart, error)
	// ListPending returns carts with orderPlaced still false, newest first.
	ListPending(ctx context.Context, uid string) ([]domain.Cart, error)
	List(ctx context.Context, uid string) ([]domain.Cart, error)
	Delete(ctx context.Context, uid, cartID string) error
}

// OrderRepository stores confirmed orders under the owning user.
type OrderRepository interface {
	Get(ctx context.Context, uid, orderID string) (domain.Order, error)
	List(ctx context.Context, uid string, page ListPage) ([]domain.Order, error)
}

// OrderPlacer atomically writes an order and flips the source cart. The write
// must refuse when the cart is already fulfilled.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, uid string, order domain.Order) (domain.Order, error)
}

// CouponRepository stores user-scoped coupons. Status is derived by callers;
// only UsedCount mutates after creation.
type CouponRepository interface {
	Create(ctx context.Context, uid string, coupon domain.Coupon) (domain.Coupon, error)
	Get(ctx context.Context, uid, couponID string) (domain.Coupon, error)
	GetByCode(ctx context.Context, uid, code string) (domain.Coupon, error)
	List(ctx context.Context, uid string) ([]domain.Coupon, error)
	// Redeem increments usedCount transactionally and fails when the coupon
	// is exhausted or expired at redemption time.
	Redeem(ctx context.Context, uid, couponID string, now time.Time) (domain.Coupon, error)
	Delete(ctx context.Context, uid, couponID string) error
}

// MarkerKind selects between the favorite and visited collections.
type MarkerKind string

const (
	MarkerFavorite MarkerKind = "favoritos"
	MarkerVisited  MarkerKind = "visitados"
)

// MarkerRepository stores lightweight favorite and visited records keyed by
// POI id.
type MarkerRepository interface {
	Put(ctx context.Context, uid string, kind MarkerKind, marker domain.PlaceMarker) error
	List(ctx context.Context, uid string, kind MarkerKind) ([]domain.PlaceMarker, error)
	Delete(ctx context.Context, uid string, kind MarkerKind, poiID string) error
}

// FuelPriceRepository stores community-submitted fuel prices per station.
type FuelPriceRepository interface {
	Submit(ctx context.Context, stationID string, fuel domain.FuelType, level domain.FuelLevel) error
	// ForStation returns every submitted fuel level for one station.
	ForStation(ctx context.Context, stationID string) (map[domain.FuelType]domain.FuelLevel, error)
	// ForStations batches lookups for a result page of stations.
	ForStations(ctx context.Context, stationIDs []string) (map[string]map[domain.FuelType]domain.FuelLevel, error)
}

// ListingRepository stores producer marketplace and barter board entries.
type ListingRepository interface {
	Create(ctx context.Context, listing domain.Listing) (domain.Listing, error)
	Get(ctx context.Context, kind domain.ListingKind, listingID string) (domain.Listing, error)
	List(ctx context.Context, kind domain.ListingKind, page ListPage) ([]domain.Listing, error)
	Delete(ctx context.Context, kind domain.ListingKind, listingID, ownerUID string) error
}

// Registry bundles every repository for wiring.
type Registry struct {
	Carts      CartRepository
	Orders     OrderRepository
	Placer     OrderPlacer
	Coupons    CouponRepository
	Markers    MarkerRepository
	FuelPrices FuelPriceRepository
	Listings   ListingRepository
}
