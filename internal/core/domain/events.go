package domain

import "time"

// MapEventType names a change applied to the rendered map.
type MapEventType string

const (
	EventFeatureAdded   MapEventType = "feature_added"
	EventFeatureRemoved MapEventType = "feature_removed"
	EventViewportFitted MapEventType = "viewport_fitted"
	EventLayerToggled   MapEventType = "layer_toggled"
)

// MapEvent is published by the map widget every time its state changes.
type MapEvent struct {
	Type      MapEventType     `json:"type"`
	FeatureID FeatureID        `json:"feature_id,omitempty"`
	Feature   *RenderedFeature `json:"feature,omitempty"`
	Extent    *Extent          `json:"extent,omitempty"`
	Padding   *Padding         `json:"padding,omitempty"`
	Layer     Layer            `json:"layer,omitempty"`
	Visible   *bool            `json:"visible,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
