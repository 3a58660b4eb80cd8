package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/mapview/internal/adapters/widget"
	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/usecases"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// wsMessage is sent by a map renderer.
type wsMessage struct {
	Action   string             `json:"action"` // "select" | "toggle_base_layer"
	Features []domain.FeatureID `json:"features,omitempty"`
}

// wsEnvelope is sent to map renderers.
type wsEnvelope struct {
	Type     string           `json:"type"` // "snapshot" | "event" | "selection" | "messages" | "base_layer" | "error"
	Snapshot *widget.Snapshot `json:"snapshot,omitempty"`
	Event    *domain.MapEvent `json:"event,omitempty"`
	Names    []string         `json:"names,omitempty"`
	Messages []domain.Message `json:"messages,omitempty"`
	Visible  *bool            `json:"visible,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

type wsClient struct {
	conn wsConn
	mu   sync.Mutex
}

// writeJSON serializes writes to the connection.
func (c *wsClient) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(websocket.TextMessage, data)
}

func (c *wsClient) writeLocked(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Hub fans map events out to every connected renderer. It implements
// ports.EventPublisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// PublishMapEvent sends ev to every client. Clients that fail the write are
// dropped; their read loop ends when the socket closes.
func (h *Hub) PublishMapEvent(ctx context.Context, ev domain.MapEvent) error {
	return h.broadcast(wsEnvelope{Type: "event", Event: &ev})
}

// Follow pushes selection and message queue changes to every client. An
// empty list is sent without its field.
func (h *Hub) Follow(selection *usecases.Selection, messages *usecases.MessageQueue) {
	if selection != nil {
		selection.Subscribe(func(names []string) {
			if err := h.broadcast(wsEnvelope{Type: "selection", Names: names}); err != nil {
				slog.Warn("ws selection broadcast failed", "error", err)
			}
		})
	}
	if messages != nil {
		messages.Subscribe(func(msgs []domain.Message) {
			if err := h.broadcast(wsEnvelope{Type: "messages", Messages: msgs}); err != nil {
				slog.Warn("ws messages broadcast failed", "error", err)
			}
		})
	}
}

func (h *Hub) broadcast(env wsEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		err := c.writeLocked(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			slog.Debug("ws write failed, dropping client", "error", err)
			h.remove(c)
		}
	}
	return nil
}

// Clients returns the number of connected renderers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		h.clients[c] = struct{}{}
		metrics.ActiveWebSockets.Inc()
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		metrics.ActiveWebSockets.Dec()
	}
}

// join registers c and sends it the current snapshot ahead of any event.
func (h *Hub) join(c *wsClient, snapshot func() widget.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	h.add(c)
	snap := snapshot()
	data, err := json.Marshal(wsEnvelope{Type: "snapshot", Snapshot: &snap})
	if err != nil {
		return err
	}
	return c.writeLocked(websocket.TextMessage, data)
}

// WebSocketHandler streams the rendered map to a renderer: a snapshot first,
// then every map event, selection change and message queue change. The renderer reports selections and base layer
// toggles back:
//
//	{"action":"select","features":["place/1","road/7"]}
//	{"action":"toggle_base_layer"}
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()

		remoteAddr := conn.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		client := &wsClient{conn: conn}
		if err := deps.Hub.join(client, deps.Widget.Snapshot); err != nil {
			slog.Warn("ws snapshot failed", "remote", remoteAddr, "error", err)
			deps.Hub.remove(client)
			return
		}
		defer deps.Hub.remove(client)

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					client.mu.Lock()
					err := client.writeLocked(websocket.PingMessage, nil)
					client.mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			_ = client.writeJSON(handleWSMessage(context.Background(), deps, msg))
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}

// handleWSMessage applies one renderer message and returns the reply.
func handleWSMessage(ctx context.Context, deps *Dependencies, raw []byte) wsEnvelope {
	var m wsMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return wsEnvelope{Type: "error", Error: "invalid JSON"}
	}

	switch m.Action {
	case "select":
		deps.Map.OnSelectionChanged(m.Features)
		names := []string{}
		if deps.Selection != nil {
			names = deps.Selection.Names()
		}
		return wsEnvelope{Type: "selection", Names: names}

	case "toggle_base_layer":
		visible := deps.Map.ToggleBaseLayer(ctx)
		return wsEnvelope{Type: "base_layer", Visible: &visible}

	default:
		return wsEnvelope{Type: "error", Error: "unknown action: " + m.Action}
	}
}
