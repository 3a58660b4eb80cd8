package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
	"github.com/samirrijal/mapview/internal/pkg/telemetry"
)

// MaxRecentConnections bounds the recent connection history.
const MaxRecentConnections = 10

// ErrNoProber is returned by Test when no prober is configured.
var ErrNoProber = errors.New("connection probing is not configured")

// ConnectionStore holds the current and recent connection profiles.
type ConnectionStore struct {
	repo         ports.ProfileRepository
	prober       ports.ConnectionProber
	verifyOnSave bool

	mu        sync.RWMutex
	current   *domain.ConnectionProfile
	recent    []domain.ConnectionProfile
	listeners []func(domain.ConnectionProfile)
}

// NewConnectionStore creates a ConnectionStore. repo and prober may be nil.
func NewConnectionStore(repo ports.ProfileRepository, prober ports.ConnectionProber, verifyOnSave bool) *ConnectionStore {
	return &ConnectionStore{repo: repo, prober: prober, verifyOnSave: verifyOnSave}
}

// Load restores persisted state. Missing state is not an error.
func (s *ConnectionStore) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	state, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load connection profiles: %w", err)
	}
	if state == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Current != nil {
		cur := state.Current.WithDefaults()
		s.current = &cur
	}
	s.recent = trimRecent(state.Recent)
	return nil
}

// Current returns the current profile, or nil when none was set.
func (s *ConnectionStore) Current() *domain.ConnectionProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cur := *s.current
	return &cur
}

// Recent returns the recent profiles, most recent first.
func (s *ConnectionStore) Recent() []domain.ConnectionProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConnectionProfile, len(s.recent))
	copy(out, s.recent)
	return out
}

// Subscribe registers fn to be called with every new current profile.
func (s *ConnectionStore) Subscribe(fn func(domain.ConnectionProfile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetCurrent makes profile the current one, records it in the history,
// persists the state and notifies listeners.
func (s *ConnectionStore) SetCurrent(ctx context.Context, profile domain.ConnectionProfile) error {
	profile = profile.WithDefaults()

	if s.verifyOnSave {
		if err := s.Test(ctx, profile); err != nil && !errors.Is(err, ErrNoProber) {
			return err
		}
	}

	s.mu.Lock()
	s.current = &profile
	s.recent = pushRecent(s.recent, profile)
	state := &ports.ProfileState{Current: &profile, Recent: append([]domain.ConnectionProfile(nil), s.recent...)}
	listeners := s.listeners
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, state); err != nil {
			slog.Warn("persist connection profiles failed", "error", err)
		}
	}

	notify(listeners, profile)
	return nil
}

// Test probes the profile against the database.
func (s *ConnectionStore) Test(ctx context.Context, profile domain.ConnectionProfile) error {
	if s.prober == nil {
		return ErrNoProber
	}
	profile = profile.WithDefaults()

	ctx, span := telemetry.Start(ctx, telemetry.SpanConnectionTry)
	defer span.End()

	start := time.Now()
	err := s.prober.Probe(ctx, profile)
	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
	}
	metrics.ProbeDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("%w: %s@%s:%d/%s: %v", domain.ErrUnreachable, profile.Role, profile.Host, profile.Port, profile.Database, err)
	}
	return nil
}

// pushRecent puts p first, drops entries with the same target and keeps at
// most MaxRecentConnections.
func pushRecent(recent []domain.ConnectionProfile, p domain.ConnectionProfile) []domain.ConnectionProfile {
	out := make([]domain.ConnectionProfile, 0, MaxRecentConnections)
	out = append(out, p)
	for _, r := range recent {
		if len(out) == MaxRecentConnections {
			break
		}
		if r.SameTarget(p) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func trimRecent(recent []domain.ConnectionProfile) []domain.ConnectionProfile {
	out := make([]domain.ConnectionProfile, 0, min(len(recent), MaxRecentConnections))
	for _, r := range recent {
		if len(out) == MaxRecentConnections {
			break
		}
		out = append(out, r.WithDefaults())
	}
	return out
}
