// Package store persists places and favorites. It backs the bounding-box
// lookup consumed by the duplicate resolver and the create/favorite writes of
// the share workflow.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placematch/internal/model"
)

// ErrNotFound is returned when a place does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for places.
type Store interface {
	// Places
	FindInBBox(ctx context.Context, box model.BBox) ([]model.PlaceRecord, error)
	CreatePlace(ctx context.Context, req model.CreateRequest) (*model.PlaceRecord, error)
	GetPlace(ctx context.Context, id string) (*model.PlaceRecord, error)
	ImportPlaces(ctx context.Context, reqs []model.CreateRequest) (int64, error)

	// Favorites
	AddFavorite(ctx context.Context, userRef, placeID string) error
	ListFavorites(ctx context.Context, userRef string) ([]model.PlaceRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func validateCreate(req model.CreateRequest) error {
	if req.Name == "" {
		return eris.New("store: place name is required")
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		return eris.Errorf("store: coordinates out of range (%f, %f)", req.Lat, req.Lng)
	}
	return nil
}
