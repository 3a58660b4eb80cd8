package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/mapview/internal/adapters/http"
	"github.com/samirrijal/mapview/internal/adapters/widget"
	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

// ---- Mocks ----

type mockFetcher struct {
	fetchPlacesFn  func(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error)
	fetchRoadsFn   func(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error)
	fetchObjectsFn func(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error)
	formatsFn      func(ctx context.Context) ([]string, error)
}

func (m *mockFetcher) FetchPlaces(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
	if m.fetchPlacesFn != nil {
		return m.fetchPlacesFn(ctx, req)
	}
	return nil, nil
}

func (m *mockFetcher) FetchRoads(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
	if m.fetchRoadsFn != nil {
		return m.fetchRoadsFn(ctx, req)
	}
	return nil, nil
}

func (m *mockFetcher) FetchObjects(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
	if m.fetchObjectsFn != nil {
		return m.fetchObjectsFn(ctx, req)
	}
	return nil, nil
}

func (m *mockFetcher) Formats(ctx context.Context) ([]string, error) {
	if m.formatsFn != nil {
		return m.formatsFn(ctx)
	}
	return nil, nil
}

type mockProber struct {
	probeFn func(ctx context.Context, p domain.ConnectionProfile) error
}

func (m *mockProber) Probe(ctx context.Context, p domain.ConnectionProfile) error {
	if m.probeFn != nil {
		return m.probeFn(ctx, p)
	}
	return nil
}

// ---- Test helpers ----

type testEnv struct {
	deps    *handler.Dependencies
	fetcher *mockFetcher
	prober  *mockProber
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeEnv(t *testing.T, connected bool) *testEnv {
	t.Helper()
	env := &testEnv{fetcher: &mockFetcher{}, prober: &mockProber{}}

	conns := usecases.NewConnectionStore(nil, env.prober, false)
	if connected {
		if err := conns.SetCurrent(context.Background(), domain.ConnectionProfile{Host: "db", Database: "osm", Role: "reader", Password: "pw"}); err != nil {
			t.Fatalf("set connection: %v", err)
		}
	}

	hub := handler.NewHub()
	w := widget.New(hub)
	v := usecases.NewViewer(usecases.ViewerDeps{
		Widget:      w,
		Fetcher:     env.fetcher,
		Connections: conns,
		Styles:      usecases.NewStylePicker(false, 1),
	})
	hub.Follow(v.Selection, v.Messages)

	env.deps = &handler.Dependencies{
		Connections: v.Connections,
		Shell:       v.Shell,
		Panels:      v.Panels,
		Map:         v.Map,
		Messages:    v.Messages,
		Selection:   v.Selection,
		Widget:      w,
		Hub:         hub,
	}
	return env
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, readBody(t, resp.Body)
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeAPIError(t *testing.T, body []byte) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("decode error body %s: %v", body, err)
	}
	return apiErr
}

func placeEntity(id int64, name string) domain.GeoEntity {
	return domain.GeoEntity{
		ID:    id,
		Names: []string{name},
		Kind:  domain.KindPlace,
		Geometry: domain.Geometry{
			Type: domain.GeometryPolygons,
			Parts: [][]domain.Point{{
				{Lat: 43.26, Lon: -2.93}, {Lat: 43.27, Lon: -2.93}, {Lat: 43.27, Lon: -2.92}, {Lat: 43.26, Lon: -2.93},
			}},
		},
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeEnv(t, false).deps)

	status, body := do(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", result["status"])
	}
}

func TestReady_NoOptionalDeps(t *testing.T) {
	app := setupApp(makeEnv(t, false).deps)

	status, body := do(t, app, "GET", "/v1/ready", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
}

// ---- Connection ----

func TestGetConnection_Empty(t *testing.T) {
	app := setupApp(makeEnv(t, false).deps)

	status, body := do(t, app, "GET", "/v1/connection", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var st handler.ConnectionState
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	if st.Current != nil {
		t.Errorf("expected no current connection, got %+v", st.Current)
	}
}

func TestPutConnection_SavesAndEnablesShell(t *testing.T) {
	env := makeEnv(t, false)
	app := setupApp(env.deps)

	status, body := do(t, app, "PUT", "/v1/connection",
		`{"host":"db.local","port":"","database":"osm","role":"reader","password":"secret"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if strings.Contains(string(body), "secret") {
		t.Error("password must not be returned")
	}

	var st struct {
		Current struct {
			Host        string `json:"host"`
			Port        int    `json:"port"`
			PasswordSet bool   `json:"password_set"`
		} `json:"current"`
		Recent []json.RawMessage `json:"recent"`
	}
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	if st.Current.Host != "db.local" || st.Current.Port != domain.DefaultPort || !st.Current.PasswordSet {
		t.Errorf("unexpected current %+v", st.Current)
	}
	if len(st.Recent) != 1 {
		t.Errorf("expected 1 recent, got %d", len(st.Recent))
	}
	if env.deps.Shell.State().Disabled {
		t.Error("expected shell enabled after saving a connection")
	}
}

func TestPutConnection_Validation(t *testing.T) {
	app := setupApp(makeEnv(t, false).deps)

	status, body := do(t, app, "PUT", "/v1/connection", `{"host":"","port":"54x","database":"osm","role":"reader"}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	apiErr := decodeAPIError(t, body)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request, got %s", apiErr.Code)
	}
	fields := map[string]bool{}
	for _, f := range apiErr.Fields {
		fields[f.Field] = true
	}
	if !fields["host"] || !fields["port"] {
		t.Errorf("expected host and port field errors, got %+v", apiErr.Fields)
	}
}

func TestTestConnection(t *testing.T) {
	env := makeEnv(t, false)
	app := setupApp(env.deps)

	status, body := do(t, app, "POST", "/v1/connection/test", `{"host":"db","database":"osm","role":"reader"}`)
	if status != 200 || !strings.Contains(string(body), `"ok":true`) {
		t.Fatalf("expected ok, got %d: %s", status, body)
	}

	env.prober.probeFn = func(ctx context.Context, p domain.ConnectionProfile) error {
		return errors.New("connection refused")
	}
	status, body = do(t, app, "POST", "/v1/connection/test", `{"host":"db","database":"osm","role":"reader"}`)
	if status != 200 || !strings.Contains(string(body), `"ok":false`) {
		t.Fatalf("expected ok=false, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), "connection refused") {
		t.Errorf("expected probe error in message, got %s", body)
	}
}

// ---- Shell ----

func TestShell_InitialState(t *testing.T) {
	app := setupApp(makeEnv(t, false).deps)

	status, body := do(t, app, "GET", "/v1/shell", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var st usecases.ShellState
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	if !st.Disabled {
		t.Error("expected shell disabled without connection")
	}
	if !st.Visible[usecases.PanelConnection] {
		t.Error("expected connection panel visible")
	}
}

func TestShell_ToggleUnknownPanel(t *testing.T) {
	app := setupApp(makeEnv(t, true).deps)

	status, body := do(t, app, "POST", "/v1/shell/lakes/toggle", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if apiErr := decodeAPIError(t, body); apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %s", apiErr.Code)
	}
}

func TestShell_ToggleAndHide(t *testing.T) {
	env := makeEnv(t, true)
	app := setupApp(env.deps)

	if status, _ := do(t, app, "POST", "/v1/shell/roads/toggle", ""); status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !env.deps.Shell.Visible(usecases.PanelRoads) {
		t.Fatal("expected roads panel visible")
	}
	if status, _ := do(t, app, "POST", "/v1/shell/roads/hide", ""); status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if env.deps.Shell.Visible(usecases.PanelRoads) {
		t.Error("expected roads panel hidden")
	}
}

func TestShell_ClearWithoutConnection(t *testing.T) {
	app := setupApp(makeEnv(t, false).deps)

	status, _ := do(t, app, "POST", "/v1/shell/clear", "")
	if status != 409 {
		t.Fatalf("expected 409, got %d", status)
	}
}

// ---- Panels ----

func TestSubmitPanel_RendersFeatures(t *testing.T) {
	env := makeEnv(t, true)
	var got domain.FetchRequest
	env.fetcher.fetchPlacesFn = func(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
		got = req
		return []domain.GeoEntity{placeEntity(1, "Bilbao")}, nil
	}
	app := setupApp(env.deps)

	status, body := do(t, app, "POST", "/v1/panels/places/submit", `{"input":"1, 2"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if len(got.IDs) != 2 || got.Profile.Host != "db" {
		t.Errorf("unexpected fetch request %+v", got)
	}

	var resp handler.SubmitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Rendered) != 1 || resp.Rendered[0] != "place/1" {
		t.Errorf("expected place/1 rendered, got %v", resp.Rendered)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Text != "Place with id 2 was not found." {
		t.Errorf("unexpected messages %+v", resp.Messages)
	}

	// The map endpoint serves the rendered feature.
	status, body = do(t, app, "GET", "/v1/map", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"FeatureCollection"`) || !strings.Contains(string(body), "Bilbao (1)") {
		t.Errorf("unexpected GeoJSON %s", body)
	}
}

func TestSubmitPanel_Errors(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		path      string
		body      string
		fetchErr  error
		status    int
		code      string
	}{
		{name: "no connection", connected: false, path: "/v1/panels/roads/submit", body: `{"input":"1"}`, status: 409, code: "conflict"},
		{name: "invalid ids", connected: true, path: "/v1/panels/roads/submit", body: `{"input":"1, x"}`, status: 400, code: "bad_request"},
		{name: "unknown kind", connected: true, path: "/v1/panels/lakes/submit", body: `{"input":"1"}`, status: 404, code: "not_found"},
		{name: "backend error", connected: true, path: "/v1/panels/roads/submit", body: `{"input":"1"}`,
			fetchErr: &domain.RequestError{Status: 200, Message: "relation does not exist"}, status: 502, code: "bad_gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := makeEnv(t, tt.connected)
			env.fetcher.fetchRoadsFn = func(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
				return nil, tt.fetchErr
			}
			app := setupApp(env.deps)

			status, body := do(t, app, "POST", tt.path, tt.body)
			if status != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, status, body)
			}
			if apiErr := decodeAPIError(t, body); apiErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, apiErr.Code)
			}
		})
	}
}

func TestSubmitPanel_BackendErrorQueuesMessage(t *testing.T) {
	env := makeEnv(t, true)
	env.fetcher.fetchObjectsFn = func(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
		return nil, &domain.RequestError{Status: 500, Message: "boom"}
	}
	app := setupApp(env.deps)

	if status, _ := do(t, app, "POST", "/v1/panels/objects/submit", `{"input":"3","format":"geojson"}`); status != 502 {
		t.Fatalf("expected 502, got %d", status)
	}

	msgs := env.deps.Messages.Messages()
	if len(msgs) != 1 || msgs[0].Header != usecases.RequestErrorHeader || msgs[0].Text != "boom" {
		t.Errorf("unexpected messages %+v", msgs)
	}
}

func TestPanelStateAndClear(t *testing.T) {
	env := makeEnv(t, true)
	app := setupApp(env.deps)
	env.deps.Panels[domain.KindRoad].SetInput("5")

	status, body := do(t, app, "GET", "/v1/panels/roads", "")
	if status != 200 || !strings.Contains(string(body), `"input":"5"`) {
		t.Fatalf("unexpected state %d: %s", status, body)
	}

	status, body = do(t, app, "POST", "/v1/panels/roads/clear", "")
	if status != 200 || !strings.Contains(string(body), `"input":""`) {
		t.Fatalf("unexpected state after clear %d: %s", status, body)
	}
}

func TestFormats(t *testing.T) {
	env := makeEnv(t, true)
	env.fetcher.formatsFn = func(ctx context.Context) ([]string, error) {
		return []string{"geojson", "wkt"}, nil
	}
	app := setupApp(env.deps)

	status, body := do(t, app, "GET", "/v1/formats", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result struct {
		Result []string `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Result) != 2 {
		t.Errorf("expected 2 formats, got %v", result.Result)
	}
}

// ---- Messages ----

func TestMessages_PaginationAndClear(t *testing.T) {
	env := makeEnv(t, true)
	for i := 0; i < 5; i++ {
		env.deps.Messages.Warn(fmt.Sprintf("warning %d", i))
	}
	app := setupApp(env.deps)

	req := httptest.NewRequest("GET", "/v1/messages?offset=2&limit=2", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %q", link)
	}

	var result struct {
		Data       []domain.Message   `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 5 || len(result.Data) != 2 || result.Data[0].Text != "warning 2" {
		t.Errorf("unexpected page %+v", result)
	}

	if status, _ := do(t, app, "DELETE", "/v1/messages", ""); status != 204 {
		t.Fatalf("expected 204, got %d", status)
	}
	if env.deps.Messages.HasMessages() {
		t.Error("expected queue emptied")
	}
}

// ---- Map ----

func TestMap_SelectionToggleAndSync(t *testing.T) {
	env := makeEnv(t, true)
	ctx := context.Background()
	env.deps.Map.AddEntities(ctx, []domain.GeoEntity{placeEntity(1, "Bilbao"), placeEntity(2, "Getxo")})
	app := setupApp(env.deps)

	status, body := do(t, app, "POST", "/v1/map/selection", `{"features":["place/2","road/9"]}`)
	if status != 200 || !strings.Contains(string(body), "Getxo (2)") {
		t.Fatalf("unexpected selection response %d: %s", status, body)
	}

	status, body = do(t, app, "POST", "/v1/map/base-layer/toggle", "")
	if status != 200 || !strings.Contains(string(body), `"base_layer_visible":false`) {
		t.Fatalf("unexpected toggle response %d: %s", status, body)
	}

	status, body = do(t, app, "POST", "/v1/map/sync", `{"features":["place/1"]}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	ids := env.deps.Map.TrackedIDs()
	if len(ids) != 1 || ids[0] != "place/1" {
		t.Errorf("expected only place/1 tracked, got %v", ids)
	}

	status, body = do(t, app, "GET", "/v1/map/state", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var st handler.MapState
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	if st.BaseLayerVisible || len(st.Tracked) != 1 || st.Viewport == nil {
		t.Errorf("unexpected map state %+v", st)
	}
}

func TestMapState_ETag(t *testing.T) {
	app := setupApp(makeEnv(t, true).deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/map/state", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}

	req := httptest.NewRequest("GET", "/v1/map/state", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_Features(t *testing.T) {
	env := makeEnv(t, true)
	env.deps.Map.AddEntities(context.Background(), []domain.GeoEntity{placeEntity(7, "Deusto")})
	env.deps.Messages.Warn("heads up")
	app := setupApp(env.deps)

	query := `{"query":"{ features { id label kind names } messages { text } connection { host password_set } shell { disabled } }"}`
	status, body := do(t, app, "POST", "/graphql", query)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result struct {
		Data struct {
			Features []struct {
				ID    string   `json:"id"`
				Label string   `json:"label"`
				Kind  string   `json:"kind"`
				Names []string `json:"names"`
			} `json:"features"`
			Messages []struct {
				Text string `json:"text"`
			} `json:"messages"`
			Connection struct {
				Host        string `json:"host"`
				PasswordSet bool   `json:"password_set"`
			} `json:"connection"`
			Shell struct {
				Disabled bool `json:"disabled"`
			} `json:"shell"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if len(result.Data.Features) != 1 || result.Data.Features[0].ID != "place/7" || result.Data.Features[0].Label != "Deusto (7)" {
		t.Errorf("unexpected features %+v", result.Data.Features)
	}
	if len(result.Data.Features) == 1 && (len(result.Data.Features[0].Names) != 1 || result.Data.Features[0].Names[0] != "Deusto") {
		t.Errorf("unexpected names %v", result.Data.Features[0].Names)
	}
	if len(result.Data.Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(result.Data.Messages))
	}
	if result.Data.Connection.Host != "db" || !result.Data.Connection.PasswordSet {
		t.Errorf("unexpected connection %+v", result.Data.Connection)
	}
	if result.Data.Shell.Disabled {
		t.Error("expected shell enabled")
	}
}

func TestMetrics_ExposesRequestCounters(t *testing.T) {
	app := setupApp(makeEnv(t, false).deps)

	if status, _ := do(t, app, "GET", "/v1/health", ""); status != 200 {
		t.Fatalf("health: expected 200, got %d", status)
	}

	status, body := do(t, app, "GET", "/metrics", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), "mapview_http_requests_total") {
		t.Error("expected mapview_http_requests_total in metrics output")
	}
}

func TestDocs_MissingDocumentIsAPIError(t *testing.T) {
	env := makeEnv(t, false)
	env.deps.OpenAPIPath = t.TempDir() + "/missing.yaml"
	app := setupApp(env.deps)

	status, body := do(t, app, "GET", "/docs/openapi.yaml", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if apiErr := decodeAPIError(t, body); apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %q", apiErr.Code)
	}

	status, _ = do(t, app, "GET", "/docs", "")
	if status != 200 {
		t.Errorf("expected swagger UI to load, got %d", status)
	}
}
