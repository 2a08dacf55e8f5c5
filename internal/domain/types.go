// Package domain defines the entities shared by services, repositories and
// handlers.
package domain

import "time"

// POIKind selects the category of points of interest to search for.
type POIKind string

const (
	POIKindMarket POIKind = "market"
	POIKindFuel   POIKind = "fuel"
)

// Valid reports whether the kind is one of the known categories.
func (k POIKind) Valid() bool {
	return k == POIKindMarket || k == POIKindFuel
}

// FuelType is a canonical fuel key. Raw tag synonyms are folded into this set.
type FuelType string

const (
	FuelGasoline   FuelType = "gasoline"
	FuelEthanol    FuelType = "ethanol"
	FuelDiesel     FuelType = "diesel"
	FuelDieselS10  FuelType = "diesel_s10"
	FuelDieselS500 FuelType = "diesel_s500"
	FuelCNV        FuelType = "cnv"
)

// FuelTypes lists every canonical fuel key in display order.
func FuelTypes() []FuelType {
	return []FuelType{FuelGasoline, FuelEthanol, FuelDiesel, FuelDieselS10, FuelDieselS500, FuelCNV}
}

// ValidFuelType reports whether the value is a canonical fuel key.
func ValidFuelType(v FuelType) bool {
	for _, t := range FuelTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// POI is a market or fuel station returned by spatial search. POIs are
// recomputed on every search and never persisted wholesale; only lightweight
// favorite and visited markers reference them by ID.
type POI struct {
	ID             string               `json:"id"`
	OSMType        string               `json:"osmType"`
	OSMID          int64                `json:"osmId"`
	Kind           POIKind              `json:"kind"`
	Name           string               `json:"name"`
	Brand          string               `json:"brand,omitempty"`
	Lat            float64              `json:"lat"`
	Lon            float64              `json:"lon"`
	DistanceMeters float64              `json:"distanceMeters"`
	Street         string               `json:"street"`
	StateLine      string               `json:"stateLine"`
	Country        string               `json:"country"`
	ShopType       string               `json:"shopType,omitempty"`
	OpeningHours   string               `json:"openingHours,omitempty"`
	Phone          string               `json:"phone,omitempty"`
	Website        string               `json:"website,omitempty"`
	Operator       string               `json:"operator,omitempty"`
	Description    string               `json:"description,omitempty"`
	Prices         map[FuelType]float64 `json:"prices,omitempty"`
	Estimated      map[FuelType]bool    `json:"estimated,omitempty"`
	PricesUpdated  *time.Time           `json:"pricesUpdatedAt,omitempty"`
}

// CartItem is a single product line saved into a cart.
type CartItem struct {
	Name  string  `firestore:"name" json:"name"`
	Price float64 `firestore:"price" json:"price"`
	Qty   int     `firestore:"qty" json:"qty"`
}

// CartStatus models the pending to fulfilled state machine.
type CartStatus string

const (
	CartStatusPending   CartStatus = "pending"
	CartStatusFulfilled CartStatus = "fulfilled"
)

// Cart is a saved basket. Line items are immutable after creation; the only
// mutation is flipping OrderPlaced when an order is confirmed from it.
type Cart struct {
	ID           string     `firestore:"-" json:"id"`
	Items        []CartItem `firestore:"items" json:"items"`
	MarketName   string     `firestore:"marketName" json:"marketName"`
	MarketStreet string     `firestore:"marketStreet" json:"marketStreet"`
	MarketState  string     `firestore:"marketState" json:"marketState"`
	Country      string     `firestore:"country" json:"country"`
	OrderPlaced  bool       `firestore:"orderPlaced" json:"orderPlaced"`
	CreatedAt    time.Time  `firestore:"createdAt" json:"createdAt"`
}

// Status derives the cart state from the OrderPlaced flag.
func (c Cart) Status() CartStatus {
	if c.OrderPlaced {
		return CartStatusFulfilled
	}
	return CartStatusPending
}

// DeclaredTotal sums the declared item prices times quantities.
func (c Cart) DeclaredTotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Qty)
	}
	return total
}

// PaymentMethod is the checkout instrument type.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodPix  PaymentMethod = "pix"
)

// SanitizedPayment is the payment record persisted with an order. Full card
// numbers and raw PIX keys never reach storage.
type SanitizedPayment struct {
	Method     PaymentMethod `firestore:"method" json:"method"`
	CardHolder string        `firestore:"cardHolder,omitempty" json:"cardHolder,omitempty"`
	CardLast4  string        `firestore:"cardLast4,omitempty" json:"cardLast4,omitempty"`
	CardExpiry string        `firestore:"cardExpiry,omitempty" json:"cardExpiry,omitempty"`
	PixKeyType string        `firestore:"pixKeyType,omitempty" json:"pixKeyType,omitempty"`
	PixKeyMask string        `firestore:"pixKeyMask,omitempty" json:"pixKeyMask,omitempty"`
}

// OrderItem is a product line captured at confirmation time with the price
// that was charged for the chosen market.
type OrderItem struct {
	Name  string  `firestore:"name" json:"name"`
	Price float64 `firestore:"price" json:"price"`
	Qty   int     `firestore:"qty" json:"qty"`
}

// Order is the immutable record of a confirmed purchase.
type Order struct {
	ID              string           `firestore:"-" json:"id"`
	MarketID        string           `firestore:"marketId" json:"marketId"`
	MarketName      string           `firestore:"marketName" json:"marketName"`
	Total           float64          `firestore:"total" json:"total"`
	CartID          string           `firestore:"cartId" json:"cartId"`
	Pickup          bool             `firestore:"pickup" json:"pickup"`
	DeliveryAddress string           `firestore:"deliveryAddress,omitempty" json:"deliveryAddress,omitempty"`
	StoreAddress    string           `firestore:"storeAddress,omitempty" json:"storeAddress,omitempty"`
	Items           []OrderItem      `firestore:"items" json:"items"`
	Payment         SanitizedPayment `firestore:"payment" json:"payment"`
	CreatedAt       time.Time        `firestore:"createdAt" json:"createdAt"`
}

// CouponType distinguishes percentage and fixed-amount discounts.
type CouponType string

const (
	CouponTypePercent CouponType = "percent"
	CouponTypeFixed   CouponType = "fixed"
)

// CouponStatus is derived at read time, never stored eagerly.
type CouponStatus string

const (
	CouponStatusActive    CouponStatus = "ativo"
	CouponStatusExhausted CouponStatus = "esgotado"
	CouponStatusExpired   CouponStatus = "expirado"
)

// Coupon is a user-scoped discount code. UsedCount is the only stored field
// that changes after creation.
type Coupon struct {
	ID        string     `firestore:"-" json:"id"`
	Code      string     `firestore:"code" json:"code"`
	Type      CouponType `firestore:"type" json:"type"`
	Value     float64    `firestore:"value" json:"value"`
	MaxUses   int        `firestore:"maxUses" json:"maxUses"`
	UsedCount int        `firestore:"usedCount" json:"usedCount"`
	ExpiresAt time.Time  `firestore:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time  `firestore:"createdAt" json:"createdAt"`
}

// Status computes the coupon state at the given instant. Exhaustion wins over
// expiry when both apply.
func (c Coupon) Status(now time.Time) CouponStatus {
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return CouponStatusExhausted
	}
	if !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt) {
		return CouponStatusExpired
	}
	return CouponStatusActive
}

// PlaceMarker is a lightweight favorite or visited record keyed by POI id.
type PlaceMarker struct {
	POIID     string    `firestore:"-" json:"poiId"`
	Name      string    `firestore:"name" json:"name"`
	Kind      POIKind   `firestore:"kind" json:"kind"`
	Lat       float64   `firestore:"lat" json:"lat"`
	Lon       float64   `firestore:"lon" json:"lon"`
	Street    string    `firestore:"street,omitempty" json:"street,omitempty"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// FuelLevel is a community-submitted price for one fuel type at one station.
type FuelLevel struct {
	Price         float64   `firestore:"price" json:"price"`
	UpdatedAt     time.Time `firestore:"updatedAt" json:"updatedAt"`
	ContributorID string    `firestore:"contributorId" json:"contributorId"`
}

// ListingKind separates the producer marketplace from the barter board.
type ListingKind string

const (
	ListingKindProducer ListingKind = "producer"
	ListingKindBarter   ListingKind = "barter"
)

// Listing is an entry on the producer marketplace or the barter board.
type Listing struct {
	ID          string      `firestore:"-" json:"id"`
	Kind        ListingKind `firestore:"-" json:"kind"`
	Title       string      `firestore:"title" json:"title"`
	Description string      `firestore:"description" json:"description"`
	Price       float64     `firestore:"price,omitempty" json:"price,omitempty"`
	Wanted      string      `firestore:"wanted,omitempty" json:"wanted,omitempty"`
	Contact     string      `firestore:"contact" json:"contact"`
	City        string      `firestore:"city,omitempty" json:"city,omitempty"`
	OwnerUID    string      `firestore:"ownerUid" json:"ownerUid"`
	CreatedAt   time.Time   `firestore:"createdAt" json:"createdAt"`
}
