package ports

import (
	"context"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// ProfileState is what a ProfileRepository persists.
type ProfileState struct {
	Current *domain.ConnectionProfile  `json:"current,omitempty" yaml:"current,omitempty"`
	Recent  []domain.ConnectionProfile `json:"recent" yaml:"recent"`
}

// ProfileRepository persists the current connection profile and its history.
type ProfileRepository interface {
	Load(ctx context.Context) (*ProfileState, error)
	Save(ctx context.Context, state *ProfileState) error
}

// EntityFetcher is the REST collaborator serving geographic entities.
type EntityFetcher interface {
	FetchPlaces(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error)
	FetchRoads(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error)
	FetchObjects(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error)
	Formats(ctx context.Context) ([]string, error)
}

// ConnectionProber checks that a profile reaches a live database.
type ConnectionProber interface {
	Probe(ctx context.Context, profile domain.ConnectionProfile) error
}
