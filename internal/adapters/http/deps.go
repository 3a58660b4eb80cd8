package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapview/internal/adapters/valkey"
	"github.com/samirrijal/mapview/internal/adapters/widget"
	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Connections *usecases.ConnectionStore
	Shell       *usecases.Shell
	Panels      map[domain.Kind]*usecases.FetchPanel
	Map         *usecases.MapSync
	Messages    *usecases.MessageQueue
	Selection   *usecases.Selection
	Widget      *widget.Widget
	Hub         *Hub
	NATS        *nats.Conn
	Cache       *valkey.Cache
	Version     string
	OpenAPIPath string
}

func (d *Dependencies) panel(kind domain.Kind) (*usecases.FetchPanel, bool) {
	p, ok := d.Panels[kind]
	return p, ok && p != nil
}
