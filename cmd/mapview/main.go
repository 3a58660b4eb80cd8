package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapview/internal/adapters/filestore"
	"github.com/samirrijal/mapview/internal/adapters/http"
	natsadapter "github.com/samirrijal/mapview/internal/adapters/nats"
	"github.com/samirrijal/mapview/internal/adapters/postgres"
	"github.com/samirrijal/mapview/internal/adapters/restclient"
	"github.com/samirrijal/mapview/internal/adapters/valkey"
	"github.com/samirrijal/mapview/internal/adapters/widget"
	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/core/usecases"
	"github.com/samirrijal/mapview/internal/pkg/config"
	"github.com/samirrijal/mapview/internal/pkg/logging"
	"github.com/samirrijal/mapview/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("mapview")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		if cfg.Store.Driver == "valkey" {
			log.Fatalf("valkey: %v", err)
		}
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
	}
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}

	// Connection profiles
	var profiles ports.ProfileRepository
	switch cfg.Store.Driver {
	case "valkey":
		profiles = valkey.NewProfileRepository(cache)
	default:
		profiles = filestore.NewProfileRepository(cfg.Store.Path)
	}
	conns := usecases.NewConnectionStore(profiles, postgres.NewProber(postgres.DefaultProbeTimeout), cfg.Connection.VerifyOnSave)
	if err := conns.Load(ctx); err != nil {
		slog.Warn("connection profiles not loaded", "error", err)
	}

	// Map widget and its event sinks
	hub := http.NewHub()
	mapWidget := widget.New(hub)

	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			mapWidget.AddPublisher(pub)
			natsConn = pub.Conn()
		}
	}

	// Use cases
	viewer := usecases.NewViewer(usecases.ViewerDeps{
		Widget:      mapWidget,
		Fetcher:     restclient.New(cfg.Backend.URL, time.Duration(cfg.Backend.Timeout)*time.Second),
		Connections: conns,
		Cache:       cacheSvc,
		Styles:      usecases.NewStylePicker(cfg.Map.RandomizeHue, uint64(time.Now().UnixNano())),
	})
	hub.Follow(viewer.Selection, viewer.Messages)

	deps := &http.Dependencies{
		Connections: viewer.Connections,
		Shell:       viewer.Shell,
		Panels:      viewer.Panels,
		Map:         viewer.Map,
		Messages:    viewer.Messages,
		Selection:   viewer.Selection,
		Widget:      mapWidget,
		Hub:         hub,
		NATS:        natsConn,
		Cache:       cache,
		Version:     version,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "mapview",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Map renderer assets
	if cfg.Server.StaticDir != "" {
		app.Static("/", cfg.Server.StaticDir)
	}

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("mapview starting", "addr", addr, "backend", cfg.Backend.URL, "store", cfg.Store.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
