package usecases

import (
	"context"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/ports"
)

// ViewerDeps are the adapters a Viewer runs against. Cache may be nil.
type ViewerDeps struct {
	Widget      ports.MapWidget
	Fetcher     ports.EntityFetcher
	Connections *ConnectionStore
	Cache       ports.CacheService
	Styles      *StylePicker
}

// Viewer is one map view with its panels, wired together: the map
// reconciles after every change, and a panel closes through the shell.
type Viewer struct {
	Connections *ConnectionStore
	Messages    *MessageQueue
	Selection   *Selection
	Map         *MapSync
	Shell       *Shell
	Panels      map[domain.Kind]*FetchPanel
}

// NewViewer builds a Viewer.
func NewViewer(deps ViewerDeps) *Viewer {
	v := &Viewer{
		Connections: deps.Connections,
		Messages:    NewMessageQueue(),
		Selection:   NewSelection(),
		Panels:      make(map[domain.Kind]*FetchPanel, 3),
	}
	v.Map = NewMapSync(deps.Widget, v.Messages, v.Selection, deps.Styles)
	v.Map.OnChange(func(ctx context.Context) {
		// Errors are logged by Reconcile.
		_ = v.Map.Reconcile(ctx)
	})
	v.Shell = NewShell(v.Connections, v.Map, v.Messages, v.Selection)

	panelDeps := FetchPanelDeps{
		Fetcher:     deps.Fetcher,
		Connections: v.Connections,
		Map:         v.Map,
		Messages:    v.Messages,
		Cache:       deps.Cache,
	}
	for _, kind := range []domain.Kind{domain.KindPlace, domain.KindRoad, domain.KindGeneric} {
		panel := PanelForKind(kind)
		v.Panels[kind] = NewFetchPanel(kind, panelDeps, func() {
			_ = v.Shell.Hide(panel)
		})
	}
	return v
}
