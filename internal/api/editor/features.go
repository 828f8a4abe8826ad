package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wfs/internal/edit"
	"github.com/joeblew999/plat-wfs/internal/humastar"
	"github.com/joeblew999/plat-wfs/internal/service"
)

// FeatureHandler applies Datastar form submissions to the edit session.
type FeatureHandler struct {
	sessions *service.SessionService
}

// NewFeatureHandler creates a new feature handler.
func NewFeatureHandler(sessions *service.SessionService) *FeatureHandler {
	return &FeatureHandler{sessions: sessions}
}

func (h *FeatureHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/editor/features/{id}/attributes", h.SetAttributes, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/features/{id}/parts", h.RemovePart, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/save", h.Save, huma.OperationTags("editor"))
}

// AttributesInput carries the feature id and the attribute form signals,
// e.g. {"attributes": {"name": "Main St", "lanes": 2}}.
type AttributesInput struct {
	ID string `path:"id" doc:"Feature id"`
	humastar.SignalsInput
}

func (h *FeatureHandler) SetAttributes(ctx context.Context, input *AttributesInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("attributes") {
		return nil, huma.Error400BadRequest("attributes signal is required")
	}
	attrs := signals.Map("attributes")
	if attrs == nil {
		return nil, huma.Error400BadRequest("attributes signal must be an object")
	}

	return humastar.Stream(func(sse humastar.SSE) {
		f, err := h.sessions.SetAttributes(input.ID, attrs)
		if err != nil {
			sse.Error(message(err))
			return
		}
		sse.Signals(map[string]any{"attributes": map[string]any(f.Properties)})
		sse.Success("Attributes updated")
	}), nil
}

// PartInput carries the feature id and the part signal, e.g. {"part": 1}.
type PartInput struct {
	ID string `path:"id" doc:"Feature id"`
	humastar.SignalsInput
}

func (h *FeatureHandler) RemovePart(ctx context.Context, input *PartInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("part") {
		return nil, huma.Error400BadRequest("part signal is required")
	}
	part := signals.Int("part")

	return humastar.Stream(func(sse humastar.SSE) {
		left, err := h.sessions.RemovePart(input.ID, part)
		if err != nil {
			sse.Error(message(err))
			return
		}
		sse.Signals(map[string]any{"parts": left})
		if left == 0 {
			sse.Success("Last part removed, feature deleted")
			return
		}
		sse.Success(fmt.Sprintf("Part removed, %d left", left))
	}), nil
}

// Save commits pending edits. A client that still shows a running save
// ({"saving": true}) is told so without submitting again.
func (h *FeatureHandler) Save(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	var signals humastar.Signals
	if len(input.RawBody) > 0 {
		var err error
		if signals, err = input.MustParse(); err != nil {
			return nil, err
		}
	}

	return humastar.Stream(func(sse humastar.SSE) {
		if signals.Bool("saving") {
			sse.Error(message(edit.ErrSaveInProgress))
			return
		}
		sse.Signals(map[string]any{"saving": true})
		out, err := h.sessions.Save(ctx)
		sse.Signals(map[string]any{"saving": false})
		if err != nil {
			sse.Error(message(err))
			return
		}
		sse.Success(fmt.Sprintf("Saved: %d inserted, %d updated, %d deleted", out.Inserted, out.Updated, out.Deleted))
	}), nil
}

func message(err error) string {
	switch {
	case errors.Is(err, service.ErrNoSession):
		return "No dataset is loaded for editing"
	case errors.Is(err, edit.ErrNothingToSave):
		return "Nothing to save"
	case errors.Is(err, edit.ErrSaveInProgress):
		return "A save is already in progress"
	default:
		return service.Describe(err)
	}
}
