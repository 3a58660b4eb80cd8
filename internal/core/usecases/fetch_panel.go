package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/pkg/idlist"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
	"github.com/samirrijal/mapview/internal/pkg/telemetry"
)

// RequestErrorHeader is the header of messages reporting a failed fetch.
const RequestErrorHeader = "Error occurred"

const formatsCacheKey = "formats"

// PanelState is a snapshot of a fetch panel.
type PanelState struct {
	Kind    domain.Kind `json:"kind"`
	Input   string      `json:"input"`
	Unique  bool        `json:"unique"`
	Format  string      `json:"format,omitempty"`
	Valid   bool        `json:"valid"`
	Loading bool        `json:"loading"`
}

// FetchPanelDeps are the collaborators shared by all fetch panels.
type FetchPanelDeps struct {
	Fetcher     ports.EntityFetcher
	Connections *ConnectionStore
	Map         *MapSync
	Messages    *MessageQueue
	Cache       ports.CacheService
}

// FetchPanel requests entities of one kind by id and hands them to the map.
type FetchPanel struct {
	kind    domain.Kind
	deps    FetchPanelDeps
	onClose func()

	mu     sync.Mutex
	input  string
	unique bool
	format string
	valid  bool

	// submits in flight; the panel is loading while any is running
	inflight int
}

// NewFetchPanel creates a panel for kind. onClose runs when a fetch
// succeeds or the panel is hidden; it must be idempotent.
func NewFetchPanel(kind domain.Kind, deps FetchPanelDeps, onClose func()) *FetchPanel {
	if onClose == nil {
		onClose = func() {}
	}
	return &FetchPanel{kind: kind, deps: deps, onClose: onClose, valid: true}
}

// Kind returns the entity kind the panel fetches.
func (p *FetchPanel) Kind() domain.Kind {
	return p.kind
}

// State returns a snapshot of the panel.
func (p *FetchPanel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PanelState{
		Kind:    p.kind,
		Input:   p.input,
		Unique:  p.unique,
		Format:  p.format,
		Valid:   p.valid,
		Loading: p.inflight > 0,
	}
}

func (p *FetchPanel) SetInput(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.input = text
}

func (p *FetchPanel) SetUnique(unique bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unique = unique
}

func (p *FetchPanel) SetFormat(format string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.format = format
}

// Validate checks the id list and records the result.
func (p *FetchPanel) Validate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.valid = idlist.Validate(p.input)
	return p.valid
}

// Submit validates the input and fetches the requested entities for the
// current connection.
func (p *FetchPanel) Submit(ctx context.Context) error {
	conn := p.deps.Connections.Current()
	if conn == nil {
		return domain.ErrNoConnection
	}

	p.mu.Lock()
	p.valid = idlist.Validate(p.input)
	if !p.valid {
		p.mu.Unlock()
		verr := &domain.ValidationError{}
		verr.Add("ids", "ids must be digits separated by whitespace, commas or semicolons")
		return verr
	}
	req := domain.FetchRequest{
		Profile: *conn,
		IDs:     idlist.Parse(p.input),
		Unique:  p.unique,
		Format:  p.format,
	}
	p.inflight++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inflight--
		p.mu.Unlock()
	}()

	ctx, span := telemetry.Start(ctx, telemetry.SpanPanelSubmit,
		attribute.String("kind", string(p.kind)),
		attribute.Int("ids", len(req.IDs)),
	)
	defer span.End()

	entities, err := p.fetch(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.FetchErrors.WithLabelValues(string(p.kind)).Inc()

		text := err.Error()
		var reqErr *domain.RequestError
		if errors.As(err, &reqErr) && reqErr.Message != "" {
			text = reqErr.Message
		}
		p.deps.Messages.Error(text, RequestErrorHeader)
		return fmt.Errorf("fetch %ss: %w", p.kind, err)
	}

	if !req.Unique {
		for _, id := range missingIDs(req.IDs, entities) {
			p.deps.Messages.Warn(fmt.Sprintf("%s with id %d was not found.", p.kind.Title(), id))
		}
	}

	slog.Debug("entities fetched", "kind", p.kind, "requested", len(req.IDs), "returned", len(entities))
	p.deps.Map.AddEntities(ctx, entities)
	p.onClose()
	return nil
}

// Hide closes the panel. Calling it repeatedly is harmless.
func (p *FetchPanel) Hide() {
	p.onClose()
}

// Clear resets the input.
func (p *FetchPanel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.input = ""
	p.unique = false
	p.valid = true
}

// Formats lists the export formats offered by the backend.
func (p *FetchPanel) Formats(ctx context.Context) ([]string, error) {
	cache := p.deps.Cache
	if cache != nil {
		if data, err := cache.Get(ctx, formatsCacheKey); err == nil {
			var formats []string
			if err := json.Unmarshal(data, &formats); err == nil {
				metrics.CacheHits.WithLabelValues("formats").Inc()
				return formats, nil
			}
			// Unreadable entry; drop it so a failed fetch does not leave it behind.
			if err := cache.Delete(ctx, formatsCacheKey); err != nil {
				slog.Warn("drop cached formats", "error", err)
			}
		}
		metrics.CacheMisses.WithLabelValues("formats").Inc()
	}

	formats, err := p.deps.Fetcher.Formats(ctx)
	if err != nil {
		return nil, err
	}

	// Cache for 5 minutes
	if cache != nil {
		if data, err := json.Marshal(formats); err == nil {
			_ = cache.Set(ctx, formatsCacheKey, data, 300)
		}
	}

	return formats, nil
}

func (p *FetchPanel) fetch(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(string(p.kind)).Observe(time.Since(start).Seconds())
	}()

	switch p.kind {
	case domain.KindPlace:
		return p.deps.Fetcher.FetchPlaces(ctx, req)
	case domain.KindRoad:
		return p.deps.Fetcher.FetchRoads(ctx, req)
	default:
		return p.deps.Fetcher.FetchObjects(ctx, req)
	}
}

// missingIDs returns the requested ids absent from entities, once each, in
// request order.
func missingIDs(requested []int64, entities []domain.GeoEntity) []int64 {
	found := make(map[int64]struct{}, len(entities))
	for _, e := range entities {
		found[e.ID] = struct{}{}
	}

	var missing []int64
	for _, id := range requested {
		if _, ok := found[id]; ok {
			continue
		}
		found[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing
}
