// Package widget holds the rendered map state and streams every change to
// the connected map renderers.
package widget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/ports"
)

// Snapshot is the full rendered state of the map.
type Snapshot struct {
	Features []domain.RenderedFeature `json:"features"`
	Viewport *domain.Extent           `json:"viewport,omitempty"`
	Padding  domain.Padding           `json:"padding"`
	Layers   map[domain.Layer]bool    `json:"layers"`
}

// Widget implements ports.MapWidget. Adding a feature with an id already on
// the map replaces it in place.
type Widget struct {
	mu         sync.RWMutex
	features   map[domain.FeatureID]domain.RenderedFeature
	order      []domain.FeatureID
	viewport   *domain.Extent
	padding    domain.Padding
	layers     map[domain.Layer]bool
	publishers []ports.EventPublisher
	now        func() time.Time
}

// New creates an empty widget with both layers visible.
func New(publishers ...ports.EventPublisher) *Widget {
	return &Widget{
		features:   make(map[domain.FeatureID]domain.RenderedFeature),
		layers:     map[domain.Layer]bool{domain.LayerBase: true, domain.LayerVector: true},
		publishers: publishers,
		now:        time.Now,
	}
}

// AddPublisher registers another event sink.
func (w *Widget) AddPublisher(p ports.EventPublisher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.publishers = append(w.publishers, p)
}

func (w *Widget) AddFeature(ctx context.Context, f domain.RenderedFeature) error {
	w.mu.Lock()
	if _, ok := w.features[f.ID]; !ok {
		w.order = append(w.order, f.ID)
	}
	w.features[f.ID] = f
	w.mu.Unlock()

	w.publish(ctx, domain.MapEvent{Type: domain.EventFeatureAdded, FeatureID: f.ID, Feature: &f})
	return nil
}

// RemoveFeature drops a feature. Unknown ids are ignored.
func (w *Widget) RemoveFeature(ctx context.Context, id domain.FeatureID) error {
	w.mu.Lock()
	if _, ok := w.features[id]; !ok {
		w.mu.Unlock()
		return nil
	}
	delete(w.features, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.mu.Unlock()

	w.publish(ctx, domain.MapEvent{Type: domain.EventFeatureRemoved, FeatureID: id})
	return nil
}

func (w *Widget) SetViewportExtent(ctx context.Context, extent domain.Extent, padding domain.Padding) error {
	w.mu.Lock()
	w.viewport = &extent
	w.padding = padding
	w.mu.Unlock()

	w.publish(ctx, domain.MapEvent{Type: domain.EventViewportFitted, Extent: &extent, Padding: &padding})
	return nil
}

func (w *Widget) SetLayerVisible(ctx context.Context, layer domain.Layer, visible bool) error {
	w.mu.Lock()
	w.layers[layer] = visible
	w.mu.Unlock()

	w.publish(ctx, domain.MapEvent{Type: domain.EventLayerToggled, Layer: layer, Visible: &visible})
	return nil
}

// Features returns the rendered features in insertion order.
func (w *Widget) Features() []domain.RenderedFeature {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.featuresLocked()
}

// Snapshot returns the whole rendered state.
func (w *Widget) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Snapshot{
		Features: w.featuresLocked(),
		Padding:  w.padding,
		Layers:   make(map[domain.Layer]bool, len(w.layers)),
	}
	if w.viewport != nil {
		vp := *w.viewport
		s.Viewport = &vp
	}
	for k, v := range w.layers {
		s.Layers[k] = v
	}
	return s
}

func (w *Widget) featuresLocked() []domain.RenderedFeature {
	out := make([]domain.RenderedFeature, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.features[id])
	}
	return out
}

func (w *Widget) publish(ctx context.Context, ev domain.MapEvent) {
	ev.Timestamp = w.now().UTC()

	w.mu.RLock()
	publishers := w.publishers
	w.mu.RUnlock()

	for _, p := range publishers {
		if err := p.PublishMapEvent(ctx, ev); err != nil {
			slog.Warn("publish map event failed", "type", ev.Type, "error", err)
		}
	}
}
