package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapview",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapview",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Map synchronization metrics
	ReconcilePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "map",
		Name:      "reconcile_passes_total",
		Help:      "Reconciliation passes, by whether they mutated the widget",
	}, []string{"outcome"})

	WidgetMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "map",
		Name:      "widget_mutations_total",
		Help:      "Calls made against the map widget",
	}, []string{"op"})

	RenderedFeatures = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapview",
		Subsystem: "map",
		Name:      "rendered_features",
		Help:      "Features currently tracked on the map",
	})

	// Fetch metrics
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapview",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Duration of entity fetches against the backend",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "fetch",
		Name:      "errors_total",
		Help:      "Entity fetches that failed",
	}, []string{"kind"})

	MessagesPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "messages",
		Name:      "pushed_total",
		Help:      "User-visible messages pushed, by kind",
	}, []string{"kind"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapview",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	ProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapview",
		Subsystem: "db",
		Name:      "probe_duration_seconds",
		Help:      "Duration of connection profile probes",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"result"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
