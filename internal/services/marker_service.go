package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/repositories"
)

// ErrMarkerInvalid indicates the marker misses its POI id or name.
var ErrMarkerInvalid = errors.New("services: marker needs a poi id and a name")

// MarkerService records favorite and visited places.
type MarkerService interface {
	Mark(ctx context.Context, uid string, kind repositories.MarkerKind, marker domain.PlaceMarker) error
	List(ctx context.Context, uid string, kind repositories.MarkerKind) ([]domain.PlaceMarker, error)
	Unmark(ctx context.Context, uid string, kind repositories.MarkerKind, poiID string) error
}

// MarkerServiceDeps lists the collaborators required by the service.
type MarkerServiceDeps struct {
	Markers repositories.MarkerRepository
	Clock   func() time.Time
}

type markerService struct {
	markers repositories.MarkerRepository
	clock   func() time.Time
}

// NewMarkerService validates deps and applies defaults.
func NewMarkerService(deps MarkerServiceDeps) (MarkerService, error) {
	if deps.Markers == nil {
		return nil, errors.New("services: marker repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &markerService{markers: deps.Markers, clock: clock}, nil
}

func (s *markerService) Mark(ctx context.Context, uid string, kind repositories.MarkerKind, marker domain.PlaceMarker) error {
	if strings.TrimSpace(marker.POIID) == "" || strings.TrimSpace(marker.Name) == "" {
		return ErrMarkerInvalid
	}
	marker.CreatedAt = s.clock()
	return s.markers.Put(ctx, uid, kind, marker)
}

func (s *markerService) List(ctx context.Context, uid string, kind repositories.MarkerKind) ([]domain.PlaceMarker, error) {
	return s.markers.List(ctx, uid, kind)
}

func (s *markerService) Unmark(ctx context.Context, uid string, kind repositories.MarkerKind, poiID string) error {
	return s.markers.Delete(ctx, uid, kind, poiID)
}
