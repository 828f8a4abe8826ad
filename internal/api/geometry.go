package api

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-wfs/internal/edit"
	"github.com/joeblew999/plat-wfs/internal/feature"
	"github.com/joeblew999/plat-wfs/internal/humastar"
)

// FeatureBody is a feature in GeoJSON form together with its modification tag.
type FeatureBody struct {
	ID         string         `json:"id" doc:"Feature id" example:"roads.12"`
	Tag        string         `json:"tag" enum:"unmodified,added,updated,removed" doc:"Pending modification"`
	Geometry   map[string]any `json:"geometry" doc:"GeoJSON geometry"`
	Properties map[string]any `json:"properties" doc:"Attribute values"`
}

var featureActions = []humastar.ActionDef{
	{Rel: "edit", Pattern: "/api/v1/session/features/%s/edit", Method: "POST", Title: "Open in attribute editor"},
	{Rel: "rollback", Pattern: "/api/v1/session/features/%s/rollback", Method: "POST", Title: "Discard unsaved edits"},
	{Rel: "history", Pattern: "/api/v1/session/features/%s/log", Method: "GET", Title: "Change log"},
	{Rel: "delete", Pattern: "/api/v1/session/features/%s", Method: "DELETE", Title: "Delete feature"},
}

// Actions implements humastar.Actor.
func (b FeatureBody) Actions() []humastar.Action {
	if b.Tag == feature.Removed.String() {
		return humastar.ActionsFor(b.ID, featureActions[1:3])
	}
	return humastar.ActionsFor(b.ID, featureActions)
}

func featureBody(f *feature.Feature, tag feature.Tag) FeatureBody {
	b := FeatureBody{
		ID:         f.ID,
		Tag:        tag.String(),
		Properties: map[string]any(f.Properties),
	}
	if b.Properties == nil {
		b.Properties = map[string]any{}
	}
	if f.Geometry != nil {
		b.Geometry = geometryMap(f.Geometry)
	}
	return b
}

func featureBodies(features []*feature.Feature, tag feature.Tag) []FeatureBody {
	out := make([]FeatureBody, len(features))
	for i, f := range features {
		out[i] = featureBody(f, tag)
	}
	return out
}

func itemBodies(items []edit.Item) []FeatureBody {
	out := make([]FeatureBody, len(items))
	for i, it := range items {
		out[i] = featureBody(it.Feature, it.Tag)
	}
	return out
}

func geometryMap(g orb.Geometry) map[string]any {
	data, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// parseGeometry converts a GeoJSON geometry object into an orb geometry.
func parseGeometry(m map[string]any) (orb.Geometry, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	if g.Geometry() == nil {
		return nil, fmt.Errorf("invalid geometry: missing coordinates")
	}
	return g.Geometry(), nil
}
