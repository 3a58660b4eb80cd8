package widget

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/pkg/geospatial"
)

// FeatureCollection exports the rendered features as GeoJSON in EPSG:4326.
func (w *Widget) FeatureCollection() *geojson.FeatureCollection {
	return ToFeatureCollection(w.Features())
}

// GeoJSON returns the rendered features as an encoded FeatureCollection.
func (w *Widget) GeoJSON() ([]byte, error) {
	return w.FeatureCollection().MarshalJSON()
}

// ToFeatureCollection converts rendered features to GeoJSON. Coordinates are
// unprojected back to longitude/latitude.
func ToFeatureCollection(features []domain.RenderedFeature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	var bbox domain.Extent

	for _, f := range features {
		fc.AddFeature(toFeature(f))
		bbox = bbox.Union(f.Extent)
	}
	if bbox.Valid {
		minLat, minLon := geospatial.Unproject(bbox.MinX, bbox.MinY)
		maxLat, maxLon := geospatial.Unproject(bbox.MaxX, bbox.MaxY)
		fc.BoundingBox = []float64{minLon, minLat, maxLon, maxLat}
	}
	return fc
}

func toFeature(f domain.RenderedFeature) *geojson.Feature {
	var geom *geojson.Geometry
	if f.Type == domain.GeometryPolygons {
		polygons := make([][][][]float64, 0, len(f.Parts))
		for _, ring := range f.Parts {
			polygons = append(polygons, [][][]float64{toLonLat(ring)})
		}
		geom = geojson.NewMultiPolygonGeometry(polygons...)
	} else {
		lines := make([][][]float64, 0, len(f.Parts))
		for _, line := range f.Parts {
			lines = append(lines, toLonLat(line))
		}
		geom = geojson.NewMultiLineStringGeometry(lines...)
	}

	feature := geojson.NewFeature(geom)
	feature.ID = string(f.ID)
	feature.SetProperty("name", f.Label)
	feature.SetProperty("kind", string(f.Kind))
	feature.SetProperty("entity_id", f.Key.ID)
	feature.SetProperty("stroke", f.Style.Stroke.CSS())
	feature.SetProperty("stroke_width", f.Style.StrokeWidth)
	if f.Style.Fill != nil {
		feature.SetProperty("fill", f.Style.Fill.CSS())
	}
	return feature
}

func toLonLat(path []domain.XY) [][]float64 {
	out := make([][]float64, 0, len(path))
	for _, p := range path {
		lat, lon := geospatial.Unproject(p.X, p.Y)
		out = append(out, []float64{lon, lat})
	}
	return out
}
