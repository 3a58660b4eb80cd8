package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// DefaultProbeTimeout bounds a probe when the caller's context has no
// deadline.
const DefaultProbeTimeout = 5 * time.Second

// Prober implements ports.ConnectionProber by opening a single connection
// and pinging it.
type Prober struct {
	timeout time.Duration
}

// NewProber creates a Prober. A non-positive timeout uses
// DefaultProbeTimeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{timeout: timeout}
}

// Probe reports whether profile points at a reachable database.
func (p *Prober) Probe(ctx context.Context, profile domain.ConnectionProfile) error {
	cfg, err := ConnConfig(profile, p.timeout)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect %s:%d: %w", profile.Host, profile.Port, err)
	}
	defer conn.Close(context.Background())

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ConnConfig builds the pgx configuration for profile.
func ConnConfig(profile domain.ConnectionProfile, timeout time.Duration) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(profile.WithDefaults().DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ConnectTimeout = timeout
	cfg.RuntimeParams["application_name"] = "mapview"
	return cfg, nil
}
