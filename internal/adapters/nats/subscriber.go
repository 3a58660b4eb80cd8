package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// Subscriber consumes map events from JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and enables JetStream.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeMapEvents delivers every map event to handler. Undecodable
// messages are terminated; handler errors cause a redelivery.
func (s *Subscriber) SubscribeMapEvents(ctx context.Context, durable string, handler func(ctx context.Context, ev domain.MapEvent) error) error {
	sub, err := s.js.Subscribe(MapSubjectPrefix+">", func(msg *nats.Msg) {
		ev, err := DecodeMapEvent(msg.Data)
		if err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverNew(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// DecodeMapEvent parses a published map event.
func DecodeMapEvent(data []byte) (domain.MapEvent, error) {
	var ev domain.MapEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return domain.MapEvent{}, fmt.Errorf("decode map event: %w", err)
	}
	if ev.Type == "" {
		return domain.MapEvent{}, fmt.Errorf("decode map event: missing type")
	}
	return ev, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
