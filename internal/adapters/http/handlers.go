package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

// profileView is a connection profile as returned to clients. The password
// never leaves the server.
type profileView struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Database    string `json:"database"`
	Role        string `json:"role"`
	PasswordSet bool   `json:"password_set"`
}

func toProfileView(p domain.ConnectionProfile) profileView {
	return profileView{
		Host:        p.Host,
		Port:        p.Port,
		Database:    p.Database,
		Role:        p.Role,
		PasswordSet: p.Password != "",
	}
}

func toProfileViews(ps []domain.ConnectionProfile) []profileView {
	out := make([]profileView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProfileView(p))
	}
	return out
}

// ConnectionState is the body of GET and PUT /v1/connection.
type ConnectionState struct {
	Current *profileView  `json:"current"`
	Recent  []profileView `json:"recent"`
}

func connectionState(conns *usecases.ConnectionStore) ConnectionState {
	st := ConnectionState{Recent: toProfileViews(conns.Recent())}
	if cur := conns.Current(); cur != nil {
		v := toProfileView(*cur)
		st.Current = &v
	}
	return st
}

// GetConnectionHandler returns the current and recent connection profiles.
func GetConnectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(connectionState(deps.Connections))
	}
}

// PutConnectionHandler validates the connection form and makes it current.
func PutConnectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var form domain.ConnectionForm
		if err := c.BodyParser(&form); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		profile, err := form.Validate()
		if err != nil {
			return writeError(c, err)
		}
		if err := deps.Connections.SetCurrent(c.UserContext(), profile); err != nil {
			return writeError(c, err)
		}

		LoggerFromCtx(c.UserContext()).Info("connection saved",
			"host", profile.Host, "port", profile.Port, "database", profile.Database, "role", profile.Role)
		return c.JSON(connectionState(deps.Connections))
	}
}

// RecentConnectionsHandler lists the recent connection profiles, newest first.
func RecentConnectionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(toProfileViews(deps.Connections.Recent()))
	}
}

// TestConnectionHandler probes the submitted form without saving it.
func TestConnectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var form domain.ConnectionForm
		if err := c.BodyParser(&form); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		profile, err := form.Validate()
		if err != nil {
			return writeError(c, err)
		}
		if err := deps.Connections.Test(c.UserContext(), profile); err != nil {
			if errors.Is(err, domain.ErrUnreachable) {
				return c.JSON(fiber.Map{"ok": false, "message": err.Error()})
			}
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

// ShellStateHandler returns the navigation state.
func ShellStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Shell.State())
	}
}

// TogglePanelHandler flips a panel's visibility.
func TogglePanelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		panel, err := usecases.ParsePanel(c.Params("panel"))
		if err != nil {
			return errNotFound(c, "unknown panel: "+c.Params("panel"))
		}
		if err := deps.Shell.Toggle(panel); err != nil {
			return writeError(c, err)
		}
		return c.JSON(deps.Shell.State())
	}
}

// HidePanelHandler closes a panel.
func HidePanelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		panel, err := usecases.ParsePanel(c.Params("panel"))
		if err != nil {
			return errNotFound(c, "unknown panel: "+c.Params("panel"))
		}
		if err := deps.Shell.Hide(panel); err != nil {
			return writeError(c, err)
		}
		return c.JSON(deps.Shell.State())
	}
}

// ClearShapesHandler removes every feature from the map.
func ClearShapesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !deps.Shell.ClearShapes(c.UserContext()) {
			return errConflict(c, domain.ErrNoConnection.Error())
		}
		return c.JSON(deps.Shell.State())
	}
}

func panelFromParams(c *fiber.Ctx, deps *Dependencies) (*usecases.FetchPanel, bool) {
	kind, ok := domain.ParseKind(c.Params("kind"))
	if !ok {
		return nil, false
	}
	return deps.panel(kind)
}

// PanelStateHandler returns a fetch panel's form state.
func PanelStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		panel, ok := panelFromParams(c, deps)
		if !ok {
			return errNotFound(c, "unknown panel: "+c.Params("kind"))
		}
		return c.JSON(panel.State())
	}
}

type submitRequest struct {
	Input  string `json:"input"`
	Unique bool   `json:"unique"`
	Format string `json:"format"`
}

// SubmitResponse is the body of a successful panel submit.
type SubmitResponse struct {
	Panel    usecases.PanelState `json:"panel"`
	Rendered []domain.FeatureID  `json:"rendered"`
	Messages []domain.Message    `json:"messages"`
}

// SubmitPanelHandler fetches the listed ids and renders them on the map.
func SubmitPanelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		panel, ok := panelFromParams(c, deps)
		if !ok {
			return errNotFound(c, "unknown panel: "+c.Params("kind"))
		}

		var req submitRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Input) > 10000 {
			return errBadRequest(c, "input too long (max 10000 characters)")
		}

		panel.SetInput(req.Input)
		panel.SetUnique(req.Unique)
		panel.SetFormat(strings.TrimSpace(req.Format))

		if err := panel.Submit(c.UserContext()); err != nil {
			return writeError(c, err)
		}

		return c.JSON(SubmitResponse{
			Panel:    panel.State(),
			Rendered: deps.Map.TrackedIDs(),
			Messages: deps.Messages.Messages(),
		})
	}
}

// ClearPanelHandler resets a panel's form.
func ClearPanelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		panel, ok := panelFromParams(c, deps)
		if !ok {
			return errNotFound(c, "unknown panel: "+c.Params("kind"))
		}
		panel.Clear()
		return c.JSON(panel.State())
	}
}

// FormatsHandler lists the export formats offered for generic objects.
func FormatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		panel, ok := deps.panel(domain.KindGeneric)
		if !ok {
			return errNotFound(c, "objects panel not available")
		}
		formats, err := panel.Formats(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		if formats == nil {
			formats = []string{}
		}
		return c.JSON(fiber.Map{"result": formats})
	}
}

// ListMessagesHandler returns queued messages, oldest first.
func ListMessagesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c)
		page, pg := paginate(deps.Messages.Messages(), offset, limit)

		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// ClearMessagesHandler empties the message queue.
func ClearMessagesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Messages.Clear()
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// MapGeoJSONHandler returns the rendered features as a GeoJSON
// FeatureCollection in EPSG:4326.
func MapGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := deps.Widget.GeoJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// MapState is the body of GET /v1/map/state.
type MapState struct {
	Tracked          []domain.FeatureID `json:"tracked"`
	Pending          int                `json:"pending"`
	ClearRequested   bool               `json:"clear_requested"`
	BaseLayerVisible bool               `json:"base_layer_visible"`
	Viewport         *domain.Extent     `json:"viewport,omitempty"`
	Padding          domain.Padding     `json:"padding"`
	SelectedNames    []string           `json:"selected_names"`
}

// MapStateHandler returns the synchronization state of the map.
func MapStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := deps.Widget.Snapshot()
		st := MapState{
			Tracked:          deps.Map.TrackedIDs(),
			Pending:          len(deps.Map.Pending()),
			ClearRequested:   deps.Map.ClearRequested(),
			BaseLayerVisible: deps.Map.BaseLayerVisible(),
			Viewport:         snap.Viewport,
			Padding:          snap.Padding,
			SelectedNames:    []string{},
		}
		if deps.Selection != nil {
			st.SelectedNames = deps.Selection.Names()
		}
		return c.JSON(st)
	}
}

type featuresRequest struct {
	Features []domain.FeatureID `json:"features"`
}

// SelectFeaturesHandler reports the renderer's selection.
func SelectFeaturesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req featuresRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		deps.Map.OnSelectionChanged(req.Features)

		names := []string{}
		if deps.Selection != nil {
			names = deps.Selection.Names()
		}
		return c.JSON(fiber.Map{"selected_names": names})
	}
}

// ToggleBaseLayerHandler flips the base tile layer.
func ToggleBaseLayerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		visible := deps.Map.ToggleBaseLayer(c.UserContext())
		return c.JSON(fiber.Map{"base_layer_visible": visible})
	}
}

// SyncFeaturesHandler makes the rendered set match the listed feature ids.
func SyncFeaturesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req featuresRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Map.RemoveStale(c.UserContext(), req.Features); err != nil {
			LoggerFromCtx(c.UserContext()).Warn("map sync incomplete", "error", err)
		}
		return c.JSON(fiber.Map{"tracked": deps.Map.TrackedIDs()})
	}
}
