// Package service contains business logic for the plat-wfs editing service.
package service

import "time"

// Dataset is a server-backed feature type that can be loaded for editing.
// Huma reads the json/doc tags for OpenAPI; the yaml tags define the
// catalogue file format.
type Dataset struct {
	ID           string   `json:"id,omitempty" yaml:"id" doc:"Unique dataset identifier" example:"roads"`
	Name         string   `json:"name" yaml:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"Roads"`
	URL          string   `json:"url" yaml:"url" required:"true" format:"uri" doc:"WFS endpoint" example:"http://localhost:8080/geoserver/wfs"`
	FeatureType  string   `json:"featureType" yaml:"featureType" required:"true" doc:"Feature type local name" example:"roads"`
	FeatureNS    string   `json:"featureNS,omitempty" yaml:"featureNS,omitempty" doc:"Feature type namespace URI" example:"http://www.openplans.org/topp"`
	Prefix       string   `json:"prefix,omitempty" yaml:"prefix,omitempty" doc:"Feature type namespace prefix" example:"topp"`
	GeometryName string   `json:"geometryName,omitempty" yaml:"geometryName,omitempty" default:"the_geom" doc:"Geometry property name"`
	GeometryType string   `json:"geometryType,omitempty" yaml:"geometryType,omitempty" enum:"Point,MultiPoint,LineString,MultiLineString,Polygon,MultiPolygon" doc:"Allowed GeoJSON geometry type; empty accepts any"`
	SRSName      string   `json:"srsName,omitempty" yaml:"srsName,omitempty" doc:"Coordinate reference system" example:"EPSG:3857"`
	MaxFeatures  int      `json:"maxFeatures,omitempty" yaml:"maxFeatures,omitempty" minimum:"0" doc:"Load limit, 0 for all"`
	WMSLayer     string   `json:"wmsLayer,omitempty" yaml:"wmsLayer,omitempty" doc:"Rendered preview layer refreshed after a save" example:"topp:roads"`
	Strip        []string `json:"strip,omitempty" yaml:"strip,omitempty" doc:"Computed properties removed before saving" example:"[\"bbox\"]"`
}

// ViewState is a saved map view.
type ViewState struct {
	Center   [2]float64 `json:"center" doc:"Map center (x, y)"`
	Zoom     float64    `json:"zoom" minimum:"0" maximum:"30" doc:"Zoom level"`
	Rotation float64    `json:"rotation,omitempty" doc:"Rotation in radians"`
}

// Snapshot is a named piece of persisted client state.
type Snapshot struct {
	Name          string         `json:"name" required:"false" doc:"Snapshot name, taken from the path" example:"home"`
	View          *ViewState     `json:"view,omitempty" doc:"Map view"`
	VisibleLayers []string       `json:"visibleLayers,omitempty" doc:"Layers switched on"`
	Extra         map[string]any `json:"extra,omitempty" doc:"Free-form client state"`
	UpdatedAt     time.Time      `json:"updatedAt" required:"false" readOnly:"true" doc:"Last write time"`
}
