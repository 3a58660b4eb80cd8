package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

func newShell(t *testing.T, connected bool) (*usecases.Shell, *usecases.ConnectionStore, *usecases.MapSync) {
	t.Helper()
	conns := usecases.NewConnectionStore(nil, nil, false)
	if connected {
		_ = conns.SetCurrent(context.Background(), profile("db", 0, "osm", "r"))
	}
	q := usecases.NewMessageQueue()
	sel := usecases.NewSelection()
	m := usecases.NewMapSync(&mockWidget{}, q, sel, nil)
	return usecases.NewShell(conns, m, q, sel), conns, m
}

func TestShell_InitialWithoutConnection(t *testing.T) {
	s, _, _ := newShell(t, false)

	st := s.State()
	if !st.Visible[usecases.PanelConnection] {
		t.Error("connection panel should start visible")
	}
	if !st.Disabled {
		t.Error("entity panels should start disabled")
	}
}

func TestShell_InitialWithConnection(t *testing.T) {
	s, _, _ := newShell(t, true)

	st := s.State()
	if st.Visible[usecases.PanelConnection] {
		t.Error("connection panel should start hidden")
	}
	if st.Disabled {
		t.Error("entity panels should be enabled")
	}
}

func TestShell_DisabledPanelsDoNotToggle(t *testing.T) {
	s, _, _ := newShell(t, false)

	_ = s.Toggle(usecases.PanelPlaces)
	if s.Visible(usecases.PanelPlaces) {
		t.Error("disabled panel must not open")
	}
	if !s.Visible(usecases.PanelConnection) {
		t.Error("connection panel should stay open")
	}
}

func TestShell_ConnectionChangeEnables(t *testing.T) {
	s, conns, _ := newShell(t, false)

	_ = conns.SetCurrent(context.Background(), profile("db", 0, "osm", "r"))
	if !s.Enabled() {
		t.Fatal("expected shell enabled after connection change")
	}

	_ = s.Toggle(usecases.PanelRoads)
	if !s.Visible(usecases.PanelRoads) {
		t.Error("roads should open once enabled")
	}
	if s.Visible(usecases.PanelConnection) {
		t.Error("opening roads should hide connection")
	}
}

func TestShell_ToggleMutuallyExclusive(t *testing.T) {
	s, _, _ := newShell(t, true)

	_ = s.Toggle(usecases.PanelPlaces)
	_ = s.Toggle(usecases.PanelObjects)

	if s.Visible(usecases.PanelPlaces) {
		t.Error("places should be hidden")
	}
	if !s.Visible(usecases.PanelObjects) {
		t.Error("objects should be visible")
	}

	_ = s.Toggle(usecases.PanelObjects)
	if s.Visible(usecases.PanelObjects) {
		t.Error("second toggle should hide objects")
	}

	_ = s.Toggle(usecases.PanelPlaces)
	_ = s.Toggle(usecases.PanelConnection)
	if s.Visible(usecases.PanelPlaces) || !s.Visible(usecases.PanelConnection) {
		t.Error("connection toggle should hide entity panels")
	}
}

func TestShell_HideIdempotent(t *testing.T) {
	s, _, _ := newShell(t, true)
	_ = s.Toggle(usecases.PanelPlaces)

	for i := 0; i < 2; i++ {
		if err := s.Hide(usecases.PanelPlaces); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if s.Visible(usecases.PanelPlaces) {
		t.Error("places should be hidden")
	}
}

func TestShell_UnknownPanel(t *testing.T) {
	s, _, _ := newShell(t, true)

	if err := s.Toggle("settings"); !errors.Is(err, domain.ErrUnknownPanel) {
		t.Errorf("expected ErrUnknownPanel, got %v", err)
	}
	if err := s.Hide("settings"); !errors.Is(err, domain.ErrUnknownPanel) {
		t.Errorf("expected ErrUnknownPanel, got %v", err)
	}
}

func TestShell_ClearShapesGated(t *testing.T) {
	s, _, m := newShell(t, false)

	if s.ClearShapes(context.Background()) {
		t.Error("clear should be refused while disabled")
	}
	if m.ClearRequested() {
		t.Error("map clear must not be requested while disabled")
	}

	s2, _, m2 := newShell(t, true)
	if !s2.ClearShapes(context.Background()) {
		t.Error("clear should be accepted while enabled")
	}
	if !m2.ClearRequested() {
		t.Error("expected map clear signal")
	}
}

func TestShell_StateIncludesSelectionAndMessages(t *testing.T) {
	conns := usecases.NewConnectionStore(nil, nil, false)
	q := usecases.NewMessageQueue()
	sel := usecases.NewSelection()
	m := usecases.NewMapSync(&mockWidget{}, q, sel, nil)
	s := usecases.NewShell(conns, m, q, sel)
	ctx := context.Background()

	m.AddEntities(ctx, []domain.GeoEntity{road(4, "Zubia", "Avenida")})
	_ = m.Reconcile(ctx)
	m.OnSelectionChanged([]domain.FeatureID{"road/4"})
	q.Warn("careful")

	st := s.State()
	if !st.HasMessages {
		t.Error("expected has_messages")
	}
	if len(st.SelectedNames) != 1 || st.SelectedNames[0] != "Avenida, Zubia (4)" {
		t.Errorf("unexpected selected names %v", st.SelectedNames)
	}
	if !st.BaseLayerVisible {
		t.Error("base layer should start visible")
	}
}

func TestParsePanel(t *testing.T) {
	for _, p := range usecases.Panels {
		got, err := usecases.ParsePanel(string(p))
		if err != nil || got != p {
			t.Errorf("ParsePanel(%q) = %q, %v", p, got, err)
		}
	}
	if _, err := usecases.ParsePanel("nope"); err == nil {
		t.Error("expected error for unknown panel")
	}
}
