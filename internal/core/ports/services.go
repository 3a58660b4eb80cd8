package ports

import (
	"context"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// MapWidget is the rendering surface. Only the map synchronization layer
// calls it.
type MapWidget interface {
	AddFeature(ctx context.Context, f domain.RenderedFeature) error
	RemoveFeature(ctx context.Context, id domain.FeatureID) error
	SetViewportExtent(ctx context.Context, extent domain.Extent, padding domain.Padding) error
	SetLayerVisible(ctx context.Context, layer domain.Layer, visible bool) error
}

// SelectionHandler receives the entities behind the selected features.
type SelectionHandler interface {
	Selected(entities []domain.GeoEntity)
}

// EventPublisher fans map events out to subscribers.
type EventPublisher interface {
	PublishMapEvent(ctx context.Context, event domain.MapEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
