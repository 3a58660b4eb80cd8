package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies a fetched entity.
type Kind string

const (
	KindPlace   Kind = "place"
	KindRoad    Kind = "road"
	KindGeneric Kind = "object"
)

// Title returns the capitalised kind as used in user-facing messages.
func (k Kind) Title() string {
	switch k {
	case KindPlace:
		return "Place"
	case KindRoad:
		return "Road"
	default:
		return "Object"
	}
}

// ParseKind maps a path segment ("places", "road", "objects", ...) to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSuffix(s, "s")) {
	case "place":
		return KindPlace, true
	case "road":
		return KindRoad, true
	case "object":
		return KindGeneric, true
	}
	return "", false
}

// GeometryType tells whether a geometry holds closed rings or open lines.
type GeometryType string

const (
	GeometryPolygons GeometryType = "MultiPolygon"
	GeometryLines    GeometryType = "MultiLineString"
)

// Noun is the plural used in "has no ..." warnings.
func (t GeometryType) Noun() string {
	if t == GeometryPolygons {
		return "polygons"
	}
	return "lines"
}

// Geometry is either a set of rings or a set of lines, depending on Type.
type Geometry struct {
	Type  GeometryType `json:"type"`
	Parts [][]Point    `json:"parts"`
}

// Empty reports whether the geometry has nothing to render: no parts, or
// only parts without points.
func (g Geometry) Empty() bool {
	for _, part := range g.Parts {
		if len(part) > 0 {
			return false
		}
	}
	return true
}

// GeoEntity is an immutable object returned by the backend.
type GeoEntity struct {
	ID       int64    `json:"id"`
	Names    []string `json:"names"`
	Kind     Kind     `json:"kind"`
	Geometry Geometry `json:"geometry"`
}

// Key identifies the entity across kinds.
func (e GeoEntity) Key() EntityKey {
	return EntityKey{Kind: e.Kind, ID: e.ID}
}

// JoinedNames joins names in server order.
func (e GeoEntity) JoinedNames() string {
	return strings.Join(e.Names, ", ")
}

// Label is the feature display name: sorted names followed by the id.
func (e GeoEntity) Label() string {
	names := append([]string(nil), e.Names...)
	sort.Strings(names)
	return fmt.Sprintf("%s (%d)", strings.Join(names, ", "), e.ID)
}

// EntityKey is the identity of a rendered feature.
type EntityKey struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

// FeatureID renders the key as "<kind>/<id>".
func (k EntityKey) FeatureID() FeatureID {
	return FeatureID(string(k.Kind) + "/" + strconv.FormatInt(k.ID, 10))
}

// FeatureID is the identifier the map widget knows a feature by.
type FeatureID string

// Key parses the feature id back into an EntityKey.
func (f FeatureID) Key() (EntityKey, bool) {
	kind, raw, ok := strings.Cut(string(f), "/")
	if !ok {
		return EntityKey{}, false
	}
	k, ok := ParseKind(kind)
	if !ok {
		return EntityKey{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return EntityKey{}, false
	}
	return EntityKey{Kind: k, ID: id}, true
}

// RGBA is a colour with alpha in [0, 1].
type RGBA struct {
	R uint8   `json:"r"`
	G uint8   `json:"g"`
	B uint8   `json:"b"`
	A float64 `json:"a"`
}

// CSS formats the colour as rgba().
func (c RGBA) CSS() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

// Style is the visual style of a rendered feature.
type Style struct {
	Stroke      RGBA    `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
	Fill        *RGBA   `json:"fill,omitempty"`
}

// RenderedFeature is an entity's representation on the map.
type RenderedFeature struct {
	ID     FeatureID    `json:"id"`
	Key    EntityKey    `json:"key"`
	Label  string       `json:"label"`
	Kind   Kind         `json:"kind"`
	Type   GeometryType `json:"type"`
	Parts  [][]XY       `json:"parts"`
	Extent Extent       `json:"extent"`
	Style  Style        `json:"style"`
}

// MessageKind is the severity of a user-visible notification.
type MessageKind string

const (
	MessageWarn  MessageKind = "warn"
	MessageError MessageKind = "error"
)

// Message is a user-visible notification.
type Message struct {
	Kind   MessageKind `json:"kind"`
	Text   string      `json:"text"`
	Header string      `json:"header,omitempty"`
}

// HasHeader reports whether the message carries a header line.
func (m Message) HasHeader() bool {
	return m.Header != ""
}

// FetchRequest is what a panel asks the backend for.
type FetchRequest struct {
	Profile ConnectionProfile
	IDs     []int64
	Unique  bool
	Format  string
}
