// Command maptail follows the map events a mapview instance publishes to
// NATS and logs them, one record per event.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/mapview/internal/adapters/nats"
	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/pkg/config"
	"github.com/samirrijal/mapview/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("maptail")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.NATS.URL == "" {
		log.Fatal("nats.url is required (MAPVIEW_NATS_URL)")
	}

	durable := "maptail"
	if len(os.Args) > 1 {
		durable = os.Args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeMapEvents(ctx, durable, func(ctx context.Context, ev domain.MapEvent) error {
		attrs := []any{"type", ev.Type, "at", ev.Timestamp}
		switch ev.Type {
		case domain.EventFeatureAdded:
			attrs = append(attrs, "feature", ev.FeatureID)
			if ev.Feature != nil {
				attrs = append(attrs, "label", ev.Feature.Label, "parts", len(ev.Feature.Parts))
			}
		case domain.EventFeatureRemoved:
			attrs = append(attrs, "feature", ev.FeatureID)
		case domain.EventViewportFitted:
			if ev.Extent != nil {
				attrs = append(attrs, "min_x", ev.Extent.MinX, "min_y", ev.Extent.MinY, "max_x", ev.Extent.MaxX, "max_y", ev.Extent.MaxY)
			}
		case domain.EventLayerToggled:
			attrs = append(attrs, "layer", ev.Layer)
			if ev.Visible != nil {
				attrs = append(attrs, "visible", *ev.Visible)
			}
		}
		slog.Info("map event", attrs...)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("following map events", "subject", natsadapter.MapSubjectPrefix+">", "durable", durable)
	<-ctx.Done()
	slog.Info("stopped")
}
