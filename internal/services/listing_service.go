package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/repositories"
)

// Listing validation failures.
var (
	ErrListingTitleEmpty   = errors.New("services: listing title is required")
	ErrListingContactEmpty = errors.New("services: listing contact is required")
	ErrListingPriceInvalid = errors.New("services: producer listing price must be positive")
	ErrListingWantedEmpty  = errors.New("services: barter listing must say what is wanted")
)

// NewListingInput is the payload for posting to the producer marketplace or
// the barter board.
type NewListingInput struct {
	Kind        domain.ListingKind
	Title       string
	Description string
	Price       float64
	Wanted      string
	Contact     string
	City        string
}

// ListingService manages producer marketplace and barter board entries.
type ListingService interface {
	Create(ctx context.Context, uid string, input NewListingInput) (domain.Listing, error)
	Get(ctx context.Context, kind domain.ListingKind, listingID string) (domain.Listing, error)
	List(ctx context.Context, kind domain.ListingKind, page repositories.ListPage) ([]domain.Listing, error)
	Delete(ctx context.Context, uid string, kind domain.ListingKind, listingID string) error
}

// ListingServiceDeps lists the collaborators required by the service.
type ListingServiceDeps struct {
	Listings repositories.ListingRepository
	Clock    func() time.Time
}

type listingService struct {
	listings repositories.ListingRepository
	clock    func() time.Time
}

// NewListingService validates deps and applies defaults.
func NewListingService(deps ListingServiceDeps) (ListingService, error) {
	if deps.Listings == nil {
		return nil, errors.New("services: listing repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &listingService{listings: deps.Listings, clock: clock}, nil
}

func (s *listingService) Create(ctx context.Context, uid string, input NewListingInput) (domain.Listing, error) {
	if input.Kind != domain.ListingKindProducer && input.Kind != domain.ListingKindBarter {
		return domain.Listing{}, errors.New("services: unknown listing kind")
	}
	if strings.TrimSpace(input.Title) == "" {
		return domain.Listing{}, ErrListingTitleEmpty
	}
	if strings.TrimSpace(input.Contact) == "" {
		return domain.Listing{}, ErrListingContactEmpty
	}
	if input.Kind == domain.ListingKindProducer && input.Price <= 0 {
		return domain.Listing{}, ErrListingPriceInvalid
	}
	if input.Kind == domain.ListingKindBarter && strings.TrimSpace(input.Wanted) == "" {
		return domain.Listing{}, ErrListingWantedEmpty
	}

	listing := domain.Listing{
		ID:          newID("lst"),
		Kind:        input.Kind,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Wanted:      strings.TrimSpace(input.Wanted),
		Contact:     strings.TrimSpace(input.Contact),
		City:        strings.TrimSpace(input.City),
		OwnerUID:    uid,
		CreatedAt:   s.clock(),
	}
	return s.listings.Create(ctx, listing)
}

func (s *listingService) Get(ctx context.Context, kind domain.ListingKind, listingID string) (domain.Listing, error) {
	return s.listings.Get(ctx, kind, listingID)
}

func (s *listingService) List(ctx context.Context, kind domain.ListingKind, page repositories.ListPage) ([]domain.Listing, error) {
	return s.listings.List(ctx, kind, page)
}

func (s *listingService) Delete(ctx context.Context, uid string, kind domain.ListingKind, listingID string) error {
	return s.listings.Delete(ctx, kind, listingID, uid)
}
