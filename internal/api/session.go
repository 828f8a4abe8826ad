package api

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wfs/internal/edit"
	"github.com/joeblew999/plat-wfs/internal/feature"
	"github.com/joeblew999/plat-wfs/internal/humastar"
	"github.com/joeblew999/plat-wfs/internal/service"
	"github.com/joeblew999/plat-wfs/internal/wfs"
)

// SessionBody describes the active edit session.
type SessionBody struct {
	ID        string       `json:"id" doc:"Session id"`
	Dataset   string       `json:"dataset" doc:"Dataset id"`
	TypeName  string       `json:"typeName" doc:"Qualified feature type"`
	Opened    time.Time    `json:"opened" doc:"Load time"`
	State     string       `json:"state" enum:"idle,submitting,succeeded,failed" doc:"Save state"`
	LastError string       `json:"lastError,omitempty" doc:"Message of the last failed save"`
	Stats     edit.Stats   `json:"stats" doc:"Feature counts by tag"`
	Active    *FeatureBody `json:"active,omitempty" doc:"Feature open in the attribute editor"`
}

// Actions implements humastar.Actor.
func (b SessionBody) Actions() []humastar.Action {
	actions := []humastar.Action{
		{Rel: "discard", Href: "/api/v1/session", Method: "DELETE", Title: "Discard session"},
		{Rel: "reload", Href: "/api/v1/datasets/" + b.Dataset + "/session", Method: "POST", Title: "Reload dataset"},
	}
	pending := b.Stats.Added + b.Stats.Updated + b.Stats.Removed
	if pending > 0 && b.State != edit.Submitting.String() {
		actions = append(actions, humastar.Action{
			Rel:    "save",
			Href:   "/api/v1/session/save",
			Method: "POST",
			Title:  fmt.Sprintf("Save %d changes", pending),
		})
	}
	return actions
}

type FeatureIDInput struct {
	ID string `path:"id" doc:"Feature id" example:"roads.12"`
}

type FeatureListInput struct {
	Offset int    `query:"offset" minimum:"0" doc:"Items to skip"`
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" default:"100" doc:"Page size"`
	Tag    string `query:"tag" doc:"Only features with this tag (unmodified, added, updated, removed)"`
}

type NewFeature struct {
	Geometry   map[string]any `json:"geometry" required:"true" doc:"GeoJSON geometry"`
	Properties map[string]any `json:"properties,omitempty" doc:"Attribute values"`
}

type FeaturePatch struct {
	Geometry   map[string]any `json:"geometry,omitempty" doc:"Replacement GeoJSON geometry"`
	Properties map[string]any `json:"properties,omitempty" doc:"Attribute values to set; null clears an attribute"`
}

type RollbackBody struct {
	Removed bool         `json:"removed" doc:"True when an unsaved new feature was dropped"`
	Feature *FeatureBody `json:"feature,omitempty" doc:"Restored feature"`
}

type PartBody struct {
	Remaining int  `json:"remaining" doc:"Parts left"`
	Deleted   bool `json:"deleted" doc:"True when the last part was removed and the feature deleted"`
}

type LogBody struct {
	ID       string        `json:"id" doc:"Feature id"`
	Original *FeatureBody  `json:"original,omitempty" doc:"Last server-confirmed state; absent for new features"`
	Changes  []FeatureBody `json:"changes" doc:"Edits in order"`
}

type TransactionBody struct {
	Inserts []FeatureBody `json:"inserts" doc:"Features to insert"`
	Updates []FeatureBody `json:"updates" doc:"Features to update"`
	Deletes []FeatureBody `json:"deletes" doc:"Features to delete"`
	XML     string        `json:"xml,omitempty" doc:"WFS Transaction document that a save would send"`
}

// RegisterSession registers the edit session routes.
func (h *APIHandler) RegisterSession(api huma.API) {
	huma.Post(api, "/api/v1/datasets/{id}/session", h.OpenSession, huma.OperationTags("session"))
	huma.Get(api, "/api/v1/session", h.GetSession, huma.OperationTags("session"))
	huma.Delete(api, "/api/v1/session", h.DiscardSession, huma.OperationTags("session"))
	huma.Delete(api, "/api/v1/session/edit", h.EndEdit, huma.OperationTags("session"))
	huma.Get(api, "/api/v1/session/transaction", h.GetTransaction, huma.OperationTags("session"))
	huma.Post(api, "/api/v1/session/save", h.Save, huma.OperationTags("session"))
}

// RegisterFeatures registers feature editing routes.
func (h *APIHandler) RegisterFeatures(api huma.API) {
	huma.Get(api, "/api/v1/session/features", h.ListFeatures, huma.OperationTags("features"))
	huma.Post(api, "/api/v1/session/features", h.AddFeature, huma.OperationTags("features"))
	huma.Get(api, "/api/v1/session/features/{id}", h.GetFeature, huma.OperationTags("features"))
	huma.Put(api, "/api/v1/session/features/{id}", h.PutFeature, huma.OperationTags("features"))
	huma.Delete(api, "/api/v1/session/features/{id}", h.DeleteFeature, huma.OperationTags("features"))
	huma.Delete(api, "/api/v1/session/features/{id}/parts/{part}", h.RemovePart, huma.OperationTags("features"))
	huma.Post(api, "/api/v1/session/features/{id}/edit", h.BeginEdit, huma.OperationTags("features"))
	huma.Post(api, "/api/v1/session/features/{id}/rollback", h.Rollback, huma.OperationTags("features"))
	huma.Get(api, "/api/v1/session/features/{id}/log", h.GetLog, huma.OperationTags("features"))
}

func sessionBody(as *service.ActiveSession) SessionBody {
	b := SessionBody{
		ID:       as.ID,
		Dataset:  as.Dataset.ID,
		TypeName: as.WFS().TypeName(),
		Opened:   as.Opened,
		State:    as.Edit.State().String(),
		Stats:    as.Edit.Stats(),
	}
	if err := as.Edit.LastError(); err != nil {
		b.LastError = service.Describe(err)
	}
	if f := as.Edit.Active(); f != nil {
		fb := featureBody(f, as.Edit.Tag(f.ID))
		b.Active = &fb
	}
	return b
}

func (h *APIHandler) current() (*service.ActiveSession, error) {
	as, err := h.svc.Session.Current()
	if err != nil {
		return nil, apiError(err)
	}
	return as, nil
}

func (h *APIHandler) OpenSession(ctx context.Context, input *DatasetIDInput) (*struct{ Body SessionBody }, error) {
	as, err := h.svc.Session.Open(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body SessionBody }{Body: sessionBody(as)}, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *struct{}) (*struct{ Body SessionBody }, error) {
	as, err := h.current()
	if err != nil {
		return nil, err
	}
	return &struct{ Body SessionBody }{Body: sessionBody(as)}, nil
}

func (h *APIHandler) DiscardSession(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Session.Discard(); err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session discarded"}}, nil
}

func (h *APIHandler) EndEdit(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	as, err := h.current()
	if err != nil {
		return nil, err
	}
	as.Edit.EndEdit()
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Attribute editor closed"}}, nil
}

func (h *APIHandler) GetTransaction(ctx context.Context, input *struct{}) (*struct{ Body TransactionBody }, error) {
	as, err := h.current()
	if err != nil {
		return nil, err
	}
	tx := as.Edit.Transaction()
	body := TransactionBody{
		Inserts: featureBodies(tx.Inserts, feature.Added),
		Updates: featureBodies(tx.Updates, feature.Updated),
		Deletes: featureBodies(tx.Deletes, feature.Removed),
	}
	if !tx.Empty() {
		var buf bytes.Buffer
		if err := wfs.EncodeTransaction(&buf, as.WFS(), tx); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		body.XML = buf.String()
	}
	return &struct{ Body TransactionBody }{Body: body}, nil
}

func (h *APIHandler) Save(ctx context.Context, input *struct{}) (*struct{ Body service.SaveOutcome }, error) {
	out, err := h.svc.Session.Save(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body service.SaveOutcome }{Body: *out}, nil
}

func (h *APIHandler) ListFeatures(ctx context.Context, input *FeatureListInput) (*struct {
	Body humastar.PageBody[FeatureBody]
}, error) {
	as, err := h.current()
	if err != nil {
		return nil, err
	}
	var tag feature.Tag
	filter := input.Tag != ""
	if filter {
		switch strings.ToLower(input.Tag) {
		case "unmodified":
			tag = feature.Unmodified
		case "added":
			tag = feature.Added
		case "updated":
			tag = feature.Updated
		case "removed":
			tag = feature.Removed
		default:
			return nil, huma.Error400BadRequest("unknown tag " + input.Tag)
		}
	}
	items := as.Edit.Features()
	if filter {
		kept := items[:0]
		for _, it := range items {
			if it.Tag == tag {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	return &struct {
		Body humastar.PageBody[FeatureBody]
	}{Body: humastar.Page(itemBodies(items), input.Offset, input.Limit)}, nil
}

func (h *APIHandler) AddFeature(ctx context.Context, input *struct{ Body NewFeature }) (*struct{ Body FeatureBody }, error) {
	geom, err := parseGeometry(input.Body.Geometry)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	f, err := h.svc.Session.Add(geom, input.Body.Properties)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body FeatureBody }{Body: featureBody(f, feature.Added)}, nil
}

func (h *APIHandler) GetFeature(ctx context.Context, input *FeatureIDInput) (*struct{ Body FeatureBody }, error) {
	as, err := h.current()
	if err != nil {
		return nil, err
	}
	it, err := as.Edit.Get(input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body FeatureBody }{Body: featureBody(it.Feature, it.Tag)}, nil
}

func (h *APIHandler) PutFeature(ctx context.Context, input *struct {
	FeatureIDInput
	Body FeaturePatch
}) (*struct{ Body FeatureBody }, error) {
	if input.Body.Geometry == nil && input.Body.Properties == nil {
		return nil, huma.Error400BadRequest("geometry or properties required")
	}
	as, err := h.current()
	if err != nil {
		return nil, err
	}
	var f *feature.Feature
	// Geometry first: it is the only part that can fail validation.
	if input.Body.Geometry != nil {
		geom, err := parseGeometry(input.Body.Geometry)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		if f, err = h.svc.Session.SetGeometry(input.ID, geom); err != nil {
			return nil, apiError(err)
		}
	}
	if input.Body.Properties != nil {
		if f, err = h.svc.Session.SetAttributes(input.ID, input.Body.Properties); err != nil {
			return nil, apiError(err)
		}
	}
	return &struct{ Body FeatureBody }{Body: featureBody(f, as.Edit.Tag(f.ID))}, nil
}

func (h *APIHandler) DeleteFeature(ctx context.Context, input *FeatureIDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Session.Delete(input.ID); err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Feature deleted"}}, nil
}

func (h *APIHandler) RemovePart(ctx context.Context, input *struct {
	FeatureIDInput
	Part int `path:"part" doc:"Zero-based part index"`
}) (*struct{ Body PartBody }, error) {
	left, err := h.svc.Session.RemovePart(input.ID, input.Part)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body PartBody }{Body: PartBody{Remaining: left, Deleted: left == 0}}, nil
}

func (h *APIHandler) BeginEdit(ctx context.Context, input *FeatureIDInput) (*struct{ Body FeatureBody }, error) {
	as, err := h.current()
	if err != nil {
		return nil, err
	}
	f, err := as.Edit.BeginEdit(input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body FeatureBody }{Body: featureBody(f, as.Edit.Tag(f.ID))}, nil
}

func (h *APIHandler) Rollback(ctx context.Context, input *FeatureIDInput) (*struct{ Body RollbackBody }, error) {
	f, err := h.svc.Session.Rollback(input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if f == nil {
		return &struct{ Body RollbackBody }{Body: RollbackBody{Removed: true}}, nil
	}
	fb := featureBody(f, feature.Unmodified)
	return &struct{ Body RollbackBody }{Body: RollbackBody{Feature: &fb}}, nil
}

func (h *APIHandler) GetLog(ctx context.Context, input *FeatureIDInput) (*struct{ Body LogBody }, error) {
	as, err := h.current()
	if err != nil {
		return nil, err
	}
	e, ok := as.Edit.Log(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("no change log for " + input.ID)
	}
	body := LogBody{ID: e.ID, Changes: featureBodies(e.Changes, feature.Unmodified)}
	if e.Original != nil {
		fb := featureBody(e.Original, feature.Unmodified)
		body.Original = &fb
	}
	return &struct{ Body LogBody }{Body: body}, nil
}
