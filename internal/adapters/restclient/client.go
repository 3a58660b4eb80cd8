// Package restclient talks to the REST backend that serves places, roads and
// generic objects.
package restclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/pkg/telemetry"
)

const (
	placePath  = "/api/v1/place"
	roadPath   = "/api/v1/road"
	objectPath = "/api/v1/object"
	formatPath = "/api/v1/format"
)

// Client implements ports.EntityFetcher over fasthttp.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "mapview",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
}

// FetchPlaces requests places by id.
func (c *Client) FetchPlaces(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
	var resp placeResponse
	if err := c.post(ctx, placePath, newIDRequest(req), &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &domain.RequestError{Status: fasthttp.StatusOK, Message: resp.Message}
	}

	out := make([]domain.GeoEntity, 0, len(resp.Places))
	for _, p := range resp.Places {
		out = append(out, domain.GeoEntity{
			ID:       p.ID,
			Names:    []string{p.Name},
			Kind:     domain.KindPlace,
			Geometry: domain.Geometry{Type: domain.GeometryPolygons, Parts: toParts(p.Polygons)},
		})
	}
	return out, nil
}

// FetchRoads requests roads by id.
func (c *Client) FetchRoads(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
	var resp roadResponse
	if err := c.post(ctx, roadPath, newIDRequest(req), &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &domain.RequestError{Status: fasthttp.StatusOK, Message: resp.Message}
	}

	out := make([]domain.GeoEntity, 0, len(resp.Roads))
	for _, r := range resp.Roads {
		out = append(out, domain.GeoEntity{
			ID:       r.ID,
			Names:    r.Names,
			Kind:     domain.KindRoad,
			Geometry: domain.Geometry{Type: domain.GeometryLines, Parts: toParts(r.Lines)},
		})
	}
	return out, nil
}

// FetchObjects requests generic objects by id in the chosen format.
func (c *Client) FetchObjects(ctx context.Context, req domain.FetchRequest) ([]domain.GeoEntity, error) {
	var resp objectResponse
	if err := c.post(ctx, objectPath, newObjectRequest(req), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &domain.RequestError{Status: fasthttp.StatusOK, Message: resp.Message}
	}

	out := make([]domain.GeoEntity, 0, len(resp.Result))
	for _, o := range resp.Result {
		geom := domain.Geometry{Type: domain.GeometryLines, Parts: toParts(o.Lines)}
		if o.Type == string(domain.GeometryPolygons) {
			geom = domain.Geometry{Type: domain.GeometryPolygons, Parts: toParts(o.Polygons)}
		}
		out = append(out, domain.GeoEntity{
			ID:       o.ID,
			Names:    o.Names,
			Kind:     domain.KindGeneric,
			Geometry: geom,
		})
	}
	return out, nil
}

// Formats lists the object formats the backend understands.
func (c *Client) Formats(ctx context.Context) ([]string, error) {
	var resp formatResponse
	if err := c.post(ctx, formatPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil && resp.Message != "" {
		return nil, &domain.RequestError{Status: fasthttp.StatusOK, Message: resp.Message}
	}
	return resp.Result, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	ctx, span := telemetry.Start(ctx, telemetry.SpanBackendFetch, attribute.String("http.path", path))
	defer span.End()

	err := c.do(ctx, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, body any, out any) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{h: &req.Header})

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		req.SetBody(data)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return &domain.RequestError{Err: fmt.Errorf("POST %s: %w", path, err)}
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		var e errorBody
		_ = json.Unmarshal(resp.Body(), &e)
		return &domain.RequestError{Status: status, Message: e.Message, Err: fmt.Errorf("HTTP %d for %s", status, path)}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &domain.RequestError{Status: status, Err: fmt.Errorf("decode %s response: %w", path, err)}
	}
	return nil
}

func toParts(in [][]wirePoint) [][]domain.Point {
	if len(in) == 0 {
		return nil
	}
	out := make([][]domain.Point, 0, len(in))
	for _, part := range in {
		pts := make([]domain.Point, 0, len(part))
		for _, p := range part {
			pts = append(pts, domain.Point{Lat: p.Lat, Lon: p.Lon})
		}
		out = append(out, pts)
	}
	return out
}

// headerCarrier adapts fasthttp request headers for trace propagation.
type headerCarrier struct {
	h *fasthttp.RequestHeader
}

func (c headerCarrier) Get(key string) string {
	return string(c.h.Peek(key))
}

func (c headerCarrier) Set(key, value string) {
	c.h.Set(key, value)
}

func (c headerCarrier) Keys() []string {
	var keys []string
	c.h.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}
