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
	"github.com/precoperto/api/internal/repositories"
)

// MarkerRepository stores favorite and visited records under
// users/{uid}/favoritos and users/{uid}/visitados.
type MarkerRepository struct {
	provider *platformfs.Provider
}

func (r *MarkerRepository) collection(ctx context.Context, uid string, kind repositories.MarkerKind) (*firestore.CollectionRef, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, platformfs.WrapError("markers", errors.New("firestore: uid is required"))
	}
	if kind != repositories.MarkerFavorite && kind != repositories.MarkerVisited {
		return nil, platformfs.WrapError("markers", fmt.Errorf("firestore: unknown marker kind %q", kind))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf("users/%s/%s", uid, kind)), nil
}

// markerDocID makes the POI id safe as a document id. POI ids carry a slash
// ("node/123") which Firestore would treat as a path separator.
func markerDocID(poiID string) string {
	return url.PathEscape(poiID)
}

func (r *MarkerRepository) Put(ctx context.Context, uid string, kind repositories.MarkerKind, marker domain.PlaceMarker) error {
	if strings.TrimSpace(marker.POIID) == "" {
		return platformfs.WrapError("markers.put", errors.New("firestore: poi id is required"))
	}
	coll, err := r.collection(ctx, uid, kind)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(markerDocID(marker.POIID)).Set(ctx, marker); err != nil {
		return platformfs.WrapError("markers.put", err)
	}
	return nil
}

func (r *MarkerRepository) List(ctx context.Context, uid string, kind repositories.MarkerKind) ([]domain.PlaceMarker, error) {
	coll, err := r.collection(ctx, uid, kind)
	if err != nil {
		return nil, err
	}

	iter := coll.Query.OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var markers []domain.PlaceMarker
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, platformfs.WrapError("markers.list", err)
		}
		var marker domain.PlaceMarker
		if err := snap.DataTo(&marker); err != nil {
			return nil, platformfs.WrapError("markers.decode", err)
		}
		if unescaped, err := url.PathUnescape(snap.Ref.ID); err == nil {
			marker.POIID = unescaped
		} else {
			marker.POIID = snap.Ref.ID
		}
		markers = append(markers, marker)
	}
	return markers, nil
}

func (r *MarkerRepository) Delete(ctx context.Context, uid string, kind repositories.MarkerKind, poiID string) error {
	coll, err := r.collection(ctx, uid, kind)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(markerDocID(poiID)).Delete(ctx, firestore.Exists); err != nil {
		return platformfs.WrapError("markers.delete", err)
	}
	return nil
}
