package http

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/mapview/internal/adapters/widget"
	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	writeErr error
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeConn) envelopes(t *testing.T) []wsEnvelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wsEnvelope, 0, len(f.messages))
	for _, m := range f.messages {
		var env wsEnvelope
		if err := json.Unmarshal(m, &env); err != nil {
			t.Fatalf("decode %s: %v", m, err)
		}
		out = append(out, env)
	}
	return out
}

func TestHub_SnapshotThenEvents(t *testing.T) {
	hub := NewHub()
	w := widget.New(hub)
	conn := &fakeConn{}
	client := &wsClient{conn: conn}

	if err := hub.join(client, w.Snapshot); err != nil {
		t.Fatalf("join: %v", err)
	}
	if hub.Clients() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.Clients())
	}

	if err := w.SetLayerVisible(context.Background(), domain.LayerBase, false); err != nil {
		t.Fatal(err)
	}

	envs := conn.envelopes(t)
	if len(envs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(envs))
	}
	if envs[0].Type != "snapshot" || envs[0].Snapshot == nil || !envs[0].Snapshot.Layers[domain.LayerBase] {
		t.Errorf("expected snapshot with visible base layer first, got %+v", envs[0])
	}
	if envs[1].Type != "event" || envs[1].Event.Type != domain.EventLayerToggled {
		t.Errorf("expected layer_toggled event, got %+v", envs[1])
	}
}

func TestHub_FollowPushesSelectionAndMessages(t *testing.T) {
	hub := NewHub()
	sel := usecases.NewSelection()
	q := usecases.NewMessageQueue()
	hub.Follow(sel, q)

	conn := &fakeConn{}
	hub.add(&wsClient{conn: conn})

	sel.Selected([]domain.GeoEntity{{ID: 4, Names: []string{"Deusto"}, Kind: domain.KindPlace}})
	q.Warn("Place with id 9 was not found.")
	q.Clear()

	envs := conn.envelopes(t)
	if len(envs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(envs))
	}
	if envs[0].Type != "selection" || len(envs[0].Names) != 1 || envs[0].Names[0] != "Deusto (4)" {
		t.Errorf("unexpected selection push %+v", envs[0])
	}
	if envs[1].Type != "messages" || len(envs[1].Messages) != 1 || envs[1].Messages[0].Text != "Place with id 9 was not found." {
		t.Errorf("unexpected messages push %+v", envs[1])
	}
	if envs[2].Type != "messages" || len(envs[2].Messages) != 0 {
		t.Errorf("expected empty messages push after clear, got %+v", envs[2])
	}
}

func TestHub_DropsFailingClient(t *testing.T) {
	hub := NewHub()
	good := &fakeConn{}
	bad := &fakeConn{writeErr: errors.New("broken pipe")}
	hub.add(&wsClient{conn: good})
	hub.add(&wsClient{conn: bad})

	err := hub.PublishMapEvent(context.Background(), domain.MapEvent{Type: domain.EventFeatureRemoved, FeatureID: "road/1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hub.Clients() != 1 {
		t.Errorf("expected failing client dropped, got %d clients", hub.Clients())
	}
	if len(good.envelopes(t)) != 1 {
		t.Error("expected healthy client to receive the event")
	}
}

func TestHandleWSMessage(t *testing.T) {
	w := widget.New()
	v := usecases.NewViewer(usecases.ViewerDeps{
		Widget:      w,
		Connections: usecases.NewConnectionStore(nil, nil, false),
	})
	deps := &Dependencies{Map: v.Map, Selection: v.Selection, Widget: w}
	ctx := context.Background()

	v.Map.AddEntities(ctx, []domain.GeoEntity{{
		ID:    3,
		Names: []string{"Gran Via"},
		Kind:  domain.KindRoad,
		Geometry: domain.Geometry{
			Type:  domain.GeometryLines,
			Parts: [][]domain.Point{{{Lat: 43.26, Lon: -2.94}, {Lat: 43.26, Lon: -2.93}}},
		},
	}})

	reply := handleWSMessage(ctx, deps, []byte(`{"action":"select","features":["road/3"]}`))
	if reply.Type != "selection" || len(reply.Names) != 1 || reply.Names[0] != "Gran Via (3)" {
		t.Errorf("unexpected selection reply %+v", reply)
	}

	reply = handleWSMessage(ctx, deps, []byte(`{"action":"toggle_base_layer"}`))
	if reply.Type != "base_layer" || reply.Visible == nil || *reply.Visible {
		t.Errorf("unexpected toggle reply %+v", reply)
	}

	reply = handleWSMessage(ctx, deps, []byte(`{"action":"zoom"}`))
	if reply.Type != "error" {
		t.Errorf("expected error reply, got %+v", reply)
	}

	reply = handleWSMessage(ctx, deps, []byte(`not json`))
	if reply.Error != "invalid JSON" {
		t.Errorf("expected invalid JSON error, got %+v", reply)
	}
}
