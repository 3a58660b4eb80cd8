package geospatial

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadius is the WGS 84 semi-major axis in meters, as used by EPSG:3857.
const EarthRadius = 6378137.0

// MaxLatitude is the latitude at which Web Mercator becomes square.
const MaxLatitude = 85.0511287798066

// Project converts an EPSG:4326 coordinate into EPSG:3857 meters.
// Latitudes beyond MaxLatitude are clamped.
func Project(lat, lon float64) (x, y float64) {
	ll := s2.LatLngFromDegrees(clampLat(lat), lon)

	x = EarthRadius * ll.Lng.Radians()
	y = EarthRadius * math.Log(math.Tan(math.Pi/4+ll.Lat.Radians()/2))
	return x, y
}

// Unproject converts EPSG:3857 meters back into EPSG:4326 degrees.
func Unproject(x, y float64) (lat, lon float64) {
	lonA := s1.Angle(x/EarthRadius) * s1.Radian
	latA := s1.Angle(2*math.Atan(math.Exp(y/EarthRadius))-math.Pi/2) * s1.Radian
	return latA.Degrees(), lonA.Degrees()
}

func clampLat(lat float64) float64 {
	return math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
}
