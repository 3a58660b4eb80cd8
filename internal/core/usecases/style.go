package usecases

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// Fixed palette per kind.
var (
	PlaceStyle = domain.Style{
		Stroke:      domain.RGBA{R: 0, G: 128, B: 255, A: 1},
		StrokeWidth: 3,
		Fill:        &domain.RGBA{R: 0, G: 128, B: 255, A: 0.1},
	}
	RoadStyle = domain.Style{
		Stroke:      domain.RGBA{R: 255, G: 0, B: 0, A: 1},
		StrokeWidth: 3,
	}
	DefaultStyle = domain.Style{
		Stroke:      domain.RGBA{R: 0, G: 0, B: 0, A: 1},
		StrokeWidth: 3,
		Fill:        &domain.RGBA{R: 0, G: 0, B: 0, A: 0.1},
	}
)

// hueRange is a kind-scoped band in HSL space. Hues are in degrees and may
// wrap below zero.
type hueRange struct {
	hueMin, hueMax     float64
	sat                float64
	lightMin, lightMax float64
}

var hueRanges = map[domain.Kind]hueRange{
	domain.KindPlace:   {hueMin: 190, hueMax: 230, sat: 1, lightMin: 0.40, lightMax: 0.60},
	domain.KindRoad:    {hueMin: -15, hueMax: 15, sat: 1, lightMin: 0.40, lightMax: 0.55},
	domain.KindGeneric: {hueMin: 0, hueMax: 0, sat: 0, lightMin: 0, lightMax: 0.30},
}

// StylePicker assigns feature styles by kind, optionally varying the colour
// within the kind's hue band so adjacent entities can be told apart.
type StylePicker struct {
	randomize bool

	mu  sync.Mutex
	rng *rand.Rand
}

// NewStylePicker creates a StylePicker. seed makes randomized styles
// reproducible.
func NewStylePicker(randomize bool, seed uint64) *StylePicker {
	return &StylePicker{
		randomize: randomize,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Style returns the style for an entity of the given kind.
func (p *StylePicker) Style(kind domain.Kind) domain.Style {
	base := baseStyle(kind)
	if !p.randomize {
		return base
	}

	r, ok := hueRanges[kind]
	if !ok {
		r = hueRanges[domain.KindGeneric]
	}

	p.mu.Lock()
	h := r.hueMin + p.rng.Float64()*(r.hueMax-r.hueMin)
	l := r.lightMin + p.rng.Float64()*(r.lightMax-r.lightMin)
	p.mu.Unlock()

	c := hslToRGBA(h, r.sat, l)
	out := domain.Style{Stroke: c, StrokeWidth: base.StrokeWidth}
	if base.Fill != nil {
		fill := c
		fill.A = base.Fill.A
		out.Fill = &fill
	}
	return out
}

func baseStyle(kind domain.Kind) domain.Style {
	switch kind {
	case domain.KindPlace:
		return PlaceStyle
	case domain.KindRoad:
		return RoadStyle
	default:
		return DefaultStyle
	}
}

// hslToRGBA converts hue (degrees), saturation and lightness in [0, 1] into an
// opaque colour.
func hslToRGBA(h, s, l float64) domain.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return domain.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 1,
	}
}
