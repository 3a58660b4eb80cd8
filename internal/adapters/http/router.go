package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/mapview/internal/pkg/metrics"
)

// submitTimeout exceeds the default backend timeout so the REST client
// reports a slow backend first.
const (
	requestTimeout = 15 * time.Second
	submitTimeout  = 60 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 600 requests per minute per IP; renderers poll
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Connection settings
	v1.Get("/connection", GetConnectionHandler(deps))
	v1.Put("/connection", timeout.NewWithContext(PutConnectionHandler(deps), requestTimeout))
	v1.Get("/connection/recent", RecentConnectionsHandler(deps))
	v1.Post("/connection/test", timeout.NewWithContext(TestConnectionHandler(deps), requestTimeout))

	// Shell navigation
	v1.Get("/shell", ShellStateHandler(deps))
	v1.Post("/shell/clear", ClearShapesHandler(deps))
	v1.Post("/shell/:panel/toggle", TogglePanelHandler(deps))
	v1.Post("/shell/:panel/hide", HidePanelHandler(deps))

	// Fetch panels
	v1.Get("/panels/:kind", PanelStateHandler(deps))
	v1.Post("/panels/:kind/submit", timeout.NewWithContext(SubmitPanelHandler(deps), submitTimeout))
	v1.Post("/panels/:kind/clear", ClearPanelHandler(deps))
	v1.Get("/formats", timeout.NewWithContext(FormatsHandler(deps), requestTimeout))

	// Messages
	v1.Get("/messages", ListMessagesHandler(deps))
	v1.Delete("/messages", ClearMessagesHandler(deps))

	// Map
	v1.Get("/map", MapGeoJSONHandler(deps))
	v1.Get("/map/state", MapStateHandler(deps))
	v1.Post("/map/selection", SelectFeaturesHandler(deps))
	v1.Post("/map/base-layer/toggle", ToggleBaseLayerHandler(deps))
	v1.Post("/map/sync", SyncFeaturesHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.OpenAPIPath)

	// WebSocket
	if deps.Hub != nil && deps.Widget != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps)))
	}
}
