package geospatial

import (
	"math"
	"testing"
)

func TestProject_Origin(t *testing.T) {
	x, y := Project(0, 0)
	if math.Abs(x) > 1e-9 || math.Abs(y) > 1e-9 {
		t.Errorf("expected origin, got (%f, %f)", x, y)
	}
}

func TestProject_KnownPoint(t *testing.T) {
	// Bilbao
	x, y := Project(43.263, -2.935)
	if math.Abs(x-(-326722.7)) > 1 {
		t.Errorf("unexpected x: %f", x)
	}
	if math.Abs(y-5352089.2) > 1 {
		t.Errorf("unexpected y: %f", y)
	}
}

func TestProject_Antimeridian(t *testing.T) {
	x, _ := Project(0, 180)
	if math.Abs(x-math.Pi*EarthRadius) > 1e-6 {
		t.Errorf("expected %f, got %f", math.Pi*EarthRadius, x)
	}
}

func TestProject_ClampsPoles(t *testing.T) {
	_, y := Project(90, 0)
	if math.IsInf(y, 0) || math.IsNaN(y) {
		t.Fatalf("pole produced %f", y)
	}
	_, yMax := Project(MaxLatitude, 0)
	if y != yMax {
		t.Errorf("expected clamp to %f, got %f", yMax, y)
	}
}

func TestUnproject_RoundTrip(t *testing.T) {
	points := [][2]float64{{43.263, -2.935}, {-33.86, 151.21}, {0, 0}, {60.17, 24.94}}
	for _, p := range points {
		x, y := Project(p[0], p[1])
		lat, lon := Unproject(x, y)
		if math.Abs(lat-p[0]) > 1e-9 || math.Abs(lon-p[1]) > 1e-9 {
			t.Errorf("round trip of %v gave (%f, %f)", p, lat, lon)
		}
	}
}
