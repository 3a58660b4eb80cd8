package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapview/internal/core/domain"
)

const (
	// MapStream holds map widget events.
	MapStream = "MAPVIEW_MAP"
	// MapSubjectPrefix prefixes the event type in map event subjects.
	MapSubjectPrefix = "mapview.map."
)

// MapSubject returns the subject a map event of type t is published on.
func MapSubject(t domain.MapEventType) string {
	return MapSubjectPrefix + string(t)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      MapStream,
		Subjects:  []string{MapSubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishMapEvent publishes ev on its type's subject.
func (p *Publisher) PublishMapEvent(ctx context.Context, ev domain.MapEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(MapSubject(ev.Type), data, nats.Context(ctx))
	return err
}

// Conn returns the underlying connection, used for readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection with unlimited reconnects.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("mapview"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
