package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/pkg/geospatial"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
	"github.com/samirrijal/mapview/internal/pkg/telemetry"
)

// FitPadding is the margin kept around rendered features when fitting the
// viewport.
var FitPadding = domain.Padding{Top: 30, Right: 20, Bottom: 30, Left: 20}

type trackedFeature struct {
	feature domain.RenderedFeature
	entity  domain.GeoEntity
}

// MapSync keeps the map widget's rendered features consistent with the
// entities the application asked to show. Entities are queued by AddEntities
// and applied to the widget by Reconcile.
type MapSync struct {
	widget    ports.MapWidget
	messages  *MessageQueue
	selection ports.SelectionHandler
	styles    *StylePicker

	mu          sync.Mutex
	pending     []domain.GeoEntity
	clearSignal bool
	tracked     map[domain.EntityKey]trackedFeature
	known       map[domain.EntityKey]domain.GeoEntity
	baseVisible bool
	observers   []func(context.Context)
}

// NewMapSync creates a MapSync. selection may be nil.
func NewMapSync(widget ports.MapWidget, messages *MessageQueue, selection ports.SelectionHandler, styles *StylePicker) *MapSync {
	if styles == nil {
		styles = NewStylePicker(false, 0)
	}
	return &MapSync{
		widget:      widget,
		messages:    messages,
		selection:   selection,
		styles:      styles,
		tracked:     make(map[domain.EntityKey]trackedFeature),
		known:       make(map[domain.EntityKey]domain.GeoEntity),
		baseVisible: true,
	}
}

// OnChange registers fn to run after AddEntities or Clear changed the state.
// Observers run outside the lock and typically call Reconcile.
func (m *MapSync) OnChange(fn func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// AddEntities queues entities for rendering. Entities without geometry are
// reported as warnings and dropped.
func (m *MapSync) AddEntities(ctx context.Context, entities []domain.GeoEntity) {
	var warnings []string

	m.mu.Lock()
	for _, e := range entities {
		if e.Geometry.Empty() {
			warnings = append(warnings, fmt.Sprintf("%s %s (%d) has no %s.",
				e.Kind.Title(), e.JoinedNames(), e.ID, e.Geometry.Type.Noun()))
			continue
		}
		m.pending = append(m.pending, e)
		m.known[e.Key()] = e
	}
	observers := m.observers
	m.mu.Unlock()

	if m.messages != nil {
		for _, w := range warnings {
			m.messages.Warn(w)
		}
	}
	m.changed(ctx, observers)
}

// Clear requests removal of every rendered feature on the next Reconcile.
func (m *MapSync) Clear(ctx context.Context) {
	m.mu.Lock()
	m.clearSignal = true
	observers := m.observers
	m.mu.Unlock()

	m.changed(ctx, observers)
}

// Reconcile applies the clear signal and the pending queue to the widget and
// fits the viewport when anything changed. A pass with no pending work makes
// no widget call.
func (m *MapSync) Reconcile(ctx context.Context) error {
	ctx, span := telemetry.Start(ctx, telemetry.SpanMapReconcile)
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	mutated := false

	if m.clearSignal {
		for _, key := range m.sortedKeysLocked() {
			if err := m.removeLocked(ctx, key); err != nil {
				errs = append(errs, err)
			}
			mutated = true
		}
		clear(m.tracked)
		clear(m.known)
		m.clearSignal = false
	}

	if len(m.pending) > 0 {
		for _, e := range m.pending {
			if err := m.renderLocked(ctx, e); err != nil {
				errs = append(errs, err)
				continue
			}
			mutated = true
		}
		m.pending = nil
	}

	if mutated {
		if err := m.fitLocked(ctx); err != nil {
			errs = append(errs, err)
		}
		metrics.ReconcilePasses.WithLabelValues("mutated").Inc()
	} else {
		metrics.ReconcilePasses.WithLabelValues("idle").Inc()
	}
	metrics.RenderedFeatures.Set(float64(len(m.tracked)))
	span.SetAttributes(attribute.Int("map.tracked", len(m.tracked)), attribute.Bool("map.mutated", mutated))

	if err := errors.Join(errs...); err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("map reconcile incomplete", "error", err)
		return err
	}
	return nil
}

// RemoveStale makes the rendered set match currentIDs: tracked features not
// listed are removed, listed entities not yet rendered are rendered from the
// entities seen by AddEntities. Unknown ids are skipped.
func (m *MapSync) RemoveStale(ctx context.Context, currentIDs []domain.FeatureID) error {
	want := make(map[domain.EntityKey]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		if key, ok := id.Key(); ok {
			want[key] = struct{}{}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	mutated := false

	for _, key := range m.sortedKeysLocked() {
		if _, ok := want[key]; ok {
			continue
		}
		if err := m.removeLocked(ctx, key); err != nil {
			errs = append(errs, err)
		}
		delete(m.tracked, key)
		mutated = true
	}

	for _, id := range currentIDs {
		key, ok := id.Key()
		if !ok {
			continue
		}
		if _, ok := m.tracked[key]; ok {
			continue
		}
		e, ok := m.known[key]
		if !ok {
			continue
		}
		if err := m.renderLocked(ctx, e); err != nil {
			errs = append(errs, err)
			continue
		}
		mutated = true
	}

	if mutated {
		if err := m.fitLocked(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	metrics.RenderedFeatures.Set(float64(len(m.tracked)))

	return errors.Join(errs...)
}

// OnSelectionChanged resolves selected feature ids to their entities and
// forwards them to the selection handler. Unknown ids are skipped.
func (m *MapSync) OnSelectionChanged(ids []domain.FeatureID) {
	m.mu.Lock()
	entities := make([]domain.GeoEntity, 0, len(ids))
	for _, id := range ids {
		key, ok := id.Key()
		if !ok {
			continue
		}
		if tf, ok := m.tracked[key]; ok {
			entities = append(entities, tf.entity)
		}
	}
	handler := m.selection
	m.mu.Unlock()

	if handler != nil {
		handler.Selected(entities)
	}
}

// ToggleBaseLayer flips the base tile layer visibility and returns the new
// value.
func (m *MapSync) ToggleBaseLayer(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.baseVisible = !m.baseVisible
	metrics.WidgetMutations.WithLabelValues("set_layer_visible").Inc()
	if err := m.widget.SetLayerVisible(ctx, domain.LayerBase, m.baseVisible); err != nil {
		slog.Warn("toggle base layer failed", "error", err)
	}
	return m.baseVisible
}

// BaseLayerVisible reports the base layer visibility flag.
func (m *MapSync) BaseLayerVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseVisible
}

// ClearRequested reports whether a clear is waiting for Reconcile.
func (m *MapSync) ClearRequested() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearSignal
}

// Pending returns a copy of the pending queue.
func (m *MapSync) Pending() []domain.GeoEntity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.GeoEntity(nil), m.pending...)
}

// Tracked returns the rendered features ordered by feature id.
func (m *MapSync) Tracked() []domain.RenderedFeature {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.RenderedFeature, 0, len(m.tracked))
	for _, key := range m.sortedKeysLocked() {
		out = append(out, m.tracked[key].feature)
	}
	return out
}

// TrackedIDs returns the feature ids of the rendered features, sorted.
func (m *MapSync) TrackedIDs() []domain.FeatureID {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.FeatureID, 0, len(m.tracked))
	for _, key := range m.sortedKeysLocked() {
		out = append(out, key.FeatureID())
	}
	return out
}

// Entity returns the entity behind a rendered feature.
func (m *MapSync) Entity(id domain.FeatureID) (domain.GeoEntity, bool) {
	key, ok := id.Key()
	if !ok {
		return domain.GeoEntity{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tf, ok := m.tracked[key]
	return tf.entity, ok
}

// Render projects an entity into its on-map representation.
func Render(e domain.GeoEntity, style domain.Style) domain.RenderedFeature {
	f := domain.RenderedFeature{
		ID:    e.Key().FeatureID(),
		Key:   e.Key(),
		Label: e.Label(),
		Kind:  e.Kind,
		Type:  e.Geometry.Type,
		Parts: make([][]domain.XY, 0, len(e.Geometry.Parts)),
		Style: style,
	}
	for _, part := range e.Geometry.Parts {
		projected := make([]domain.XY, 0, len(part))
		for _, p := range part {
			x, y := geospatial.Project(p.Lat, p.Lon)
			xy := domain.XY{X: x, Y: y}
			projected = append(projected, xy)
			f.Extent = f.Extent.Expand(xy)
		}
		f.Parts = append(f.Parts, projected)
	}
	return f
}

func (m *MapSync) renderLocked(ctx context.Context, e domain.GeoEntity) error {
	f := Render(e, m.styles.Style(e.Kind))

	metrics.WidgetMutations.WithLabelValues("add_feature").Inc()
	if err := m.widget.AddFeature(ctx, f); err != nil {
		return fmt.Errorf("add feature %s: %w", f.ID, err)
	}
	m.tracked[f.Key] = trackedFeature{feature: f, entity: e}
	m.known[f.Key] = e
	return nil
}

func (m *MapSync) removeLocked(ctx context.Context, key domain.EntityKey) error {
	metrics.WidgetMutations.WithLabelValues("remove_feature").Inc()
	if err := m.widget.RemoveFeature(ctx, key.FeatureID()); err != nil {
		return fmt.Errorf("remove feature %s: %w", key.FeatureID(), err)
	}
	return nil
}

func (m *MapSync) fitLocked(ctx context.Context) error {
	if len(m.tracked) == 0 {
		return nil
	}
	var extent domain.Extent
	for _, tf := range m.tracked {
		extent = extent.Union(tf.feature.Extent)
	}
	if !extent.Valid {
		return nil
	}

	metrics.WidgetMutations.WithLabelValues("set_viewport_extent").Inc()
	if err := m.widget.SetViewportExtent(ctx, extent, FitPadding); err != nil {
		return fmt.Errorf("fit viewport: %w", err)
	}
	return nil
}

func (m *MapSync) sortedKeysLocked() []domain.EntityKey {
	keys := make([]domain.EntityKey, 0, len(m.tracked))
	for k := range m.tracked {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

func (m *MapSync) changed(ctx context.Context, observers []func(context.Context)) {
	for _, fn := range observers {
		fn(ctx)
	}
}
