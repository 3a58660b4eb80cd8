package domain

// Point represents a geographic coordinate (WGS 84).
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// XY is a projected coordinate (Web Mercator metres).
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Extent is a projected bounding box. The zero value is empty.
type Extent struct {
	MinX  float64 `json:"min_x"`
	MinY  float64 `json:"min_y"`
	MaxX  float64 `json:"max_x"`
	MaxY  float64 `json:"max_y"`
	Valid bool    `json:"valid"`
}

// Expand grows the extent to include p.
func (e Extent) Expand(p XY) Extent {
	if !e.Valid {
		return Extent{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y, Valid: true}
	}
	e.MinX = min(e.MinX, p.X)
	e.MinY = min(e.MinY, p.Y)
	e.MaxX = max(e.MaxX, p.X)
	e.MaxY = max(e.MaxY, p.Y)
	return e
}

// Union returns the smallest extent covering both.
func (e Extent) Union(o Extent) Extent {
	if !o.Valid {
		return e
	}
	if !e.Valid {
		return o
	}
	return Extent{
		MinX:  min(e.MinX, o.MinX),
		MinY:  min(e.MinY, o.MinY),
		MaxX:  max(e.MaxX, o.MaxX),
		MaxY:  max(e.MaxY, o.MaxY),
		Valid: true,
	}
}

// Padding is the viewport margin in screen pixels.
type Padding struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Layer names a map layer the widget can show or hide.
type Layer string

const (
	LayerBase   Layer = "base"
	LayerVector Layer = "vector"
)
