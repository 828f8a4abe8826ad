// Package feature holds the editable feature model shared by the edit
// workflow and the WFS codec.
package feature

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Tag marks a feature's pending change relative to the last known server state.
type Tag string

const (
	Unmodified Tag = ""
	Added      Tag = "added"
	Updated    Tag = "updated"
	Removed    Tag = "removed"
)

// String returns the tag name, "unmodified" for the zero value.
func (t Tag) String() string {
	if t == Unmodified {
		return "unmodified"
	}
	return string(t)
}

// Feature is a geometry with a flat attribute set and a stable identifier.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// New creates a feature, copying props.
func New(id string, geom orb.Geometry, props map[string]any) *Feature {
	f := &Feature{ID: id, Geometry: geom, Properties: geojson.Properties{}}
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

// Clone returns a deep copy of the feature.
func (f *Feature) Clone() *Feature {
	if f == nil {
		return nil
	}
	c := &Feature{ID: f.ID, Properties: f.Properties.Clone()}
	if f.Geometry != nil {
		c.Geometry = orb.Clone(f.Geometry)
	}
	if c.Properties == nil {
		c.Properties = geojson.Properties{}
	}
	return c
}

// GeometryType returns the GeoJSON type name of the geometry, or "" if unset.
func (f *Feature) GeometryType() string {
	if f.Geometry == nil {
		return ""
	}
	return f.Geometry.GeoJSONType()
}

// FromGeoJSON converts an orb GeoJSON feature. The id is taken from the
// feature's "id" member when it is a string or number.
func FromGeoJSON(gf *geojson.Feature) *Feature {
	f := &Feature{
		Geometry:   gf.Geometry,
		Properties: gf.Properties.Clone(),
	}
	if f.Properties == nil {
		f.Properties = geojson.Properties{}
	}
	switch id := gf.ID.(type) {
	case string:
		f.ID = id
	case float64:
		f.ID = fmt.Sprintf("%v", id)
	case int, int64:
		f.ID = fmt.Sprintf("%d", id)
	}
	return f
}

// GeoJSON converts the feature to an orb GeoJSON feature.
func (f *Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	if f.ID != "" {
		gf.ID = f.ID
	}
	for k, v := range f.Properties {
		gf.Properties[k] = v
	}
	return gf
}

var (
	// ErrNotMultiPart is returned when removing a part from a single-part geometry.
	ErrNotMultiPart = errors.New("geometry is not multi-part")
	ErrPartIndex    = errors.New("part index out of range")
)

// PartCount returns the number of parts of a multi-part geometry, or 1.
func PartCount(g orb.Geometry) int {
	switch m := g.(type) {
	case orb.MultiPoint:
		return len(m)
	case orb.MultiLineString:
		return len(m)
	case orb.MultiPolygon:
		return len(m)
	case orb.Collection:
		return len(m)
	case nil:
		return 0
	default:
		return 1
	}
}

// RemovePart returns a copy of g without the part at index, along with the
// number of parts left.
func RemovePart(g orb.Geometry, index int) (orb.Geometry, int, error) {
	n := PartCount(g)
	switch g.(type) {
	case orb.MultiPoint, orb.MultiLineString, orb.MultiPolygon, orb.Collection:
	default:
		return nil, 0, ErrNotMultiPart
	}
	if index < 0 || index >= n {
		return nil, 0, fmt.Errorf("%w: %d not in [0,%d)", ErrPartIndex, index, n)
	}

	switch m := orb.Clone(g).(type) {
	case orb.MultiPoint:
		out := append(m[:index:index], m[index+1:]...)
		return out, len(out), nil
	case orb.MultiLineString:
		out := append(m[:index:index], m[index+1:]...)
		return out, len(out), nil
	case orb.MultiPolygon:
		out := append(m[:index:index], m[index+1:]...)
		return out, len(out), nil
	case orb.Collection:
		out := append(m[:index:index], m[index+1:]...)
		return out, len(out), nil
	}
	return nil, 0, ErrNotMultiPart
}
