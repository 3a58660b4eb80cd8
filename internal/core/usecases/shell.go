package usecases

import (
	"context"
	"sync"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// Panel names a togglable panel of the shell.
type Panel string

const (
	PanelConnection Panel = "connection"
	PanelPlaces     Panel = "places"
	PanelRoads      Panel = "roads"
	PanelObjects    Panel = "objects"
)

// Panels lists every panel in display order.
var Panels = []Panel{PanelConnection, PanelPlaces, PanelRoads, PanelObjects}

// ParsePanel maps a name to a Panel.
func ParsePanel(s string) (Panel, error) {
	for _, p := range Panels {
		if string(p) == s {
			return p, nil
		}
	}
	return "", domain.ErrUnknownPanel
}

// PanelForKind returns the entity panel that fetches kind.
func PanelForKind(kind domain.Kind) Panel {
	switch kind {
	case domain.KindPlace:
		return PanelPlaces
	case domain.KindRoad:
		return PanelRoads
	default:
		return PanelObjects
	}
}

// ShellState is a snapshot of the navigation state.
type ShellState struct {
	Visible          map[Panel]bool `json:"visible"`
	Disabled         bool           `json:"disabled"`
	HasMessages      bool           `json:"has_messages"`
	SelectedNames    []string       `json:"selected_names"`
	BaseLayerVisible bool           `json:"base_layer_visible"`
}

// Shell controls which panel is shown and whether the entity panels are
// usable.
type Shell struct {
	mapSync   *MapSync
	messages  *MessageQueue
	selection *Selection

	mu      sync.Mutex
	visible map[Panel]bool
	enabled bool
}

// NewShell creates the shell. Without a current connection the connection
// panel starts open and the entity panels are disabled.
func NewShell(conns *ConnectionStore, mapSync *MapSync, messages *MessageQueue, selection *Selection) *Shell {
	s := &Shell{
		mapSync:   mapSync,
		messages:  messages,
		selection: selection,
		visible:   make(map[Panel]bool, len(Panels)),
	}
	if conns.Current() == nil {
		s.visible[PanelConnection] = true
	} else {
		s.enabled = true
	}
	conns.Subscribe(func(domain.ConnectionProfile) {
		s.mu.Lock()
		s.enabled = true
		s.mu.Unlock()
	})
	return s
}

// Toggle flips panel visibility and hides the others. Entity panels only
// toggle while enabled.
func (s *Shell) Toggle(panel Panel) error {
	if _, err := ParsePanel(string(panel)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if panel != PanelConnection && !s.enabled {
		return nil
	}
	old := s.visible[panel]
	for _, p := range Panels {
		s.visible[p] = false
	}
	s.visible[panel] = !old
	return nil
}

// Hide closes panel. It is idempotent.
func (s *Shell) Hide(panel Panel) error {
	if _, err := ParsePanel(string(panel)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible[panel] = false
	return nil
}

// Enabled reports whether the entity panels are usable.
func (s *Shell) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Visible reports whether panel is shown.
func (s *Shell) Visible(panel Panel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible[panel]
}

// ClearShapes asks the map to remove every feature. It reports false when
// the shell is disabled.
func (s *Shell) ClearShapes(ctx context.Context) bool {
	if !s.Enabled() {
		return false
	}
	s.mapSync.Clear(ctx)
	return true
}

// State returns a snapshot of the shell.
func (s *Shell) State() ShellState {
	s.mu.Lock()
	visible := make(map[Panel]bool, len(Panels))
	for _, p := range Panels {
		visible[p] = s.visible[p]
	}
	disabled := !s.enabled
	s.mu.Unlock()

	st := ShellState{
		Visible:          visible,
		Disabled:         disabled,
		BaseLayerVisible: s.mapSync.BaseLayerVisible(),
		SelectedNames:    []string{},
	}
	if s.messages != nil {
		st.HasMessages = s.messages.HasMessages()
	}
	if s.selection != nil {
		st.SelectedNames = s.selection.Names()
	}
	return st
}
