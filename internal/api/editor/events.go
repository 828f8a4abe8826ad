// Package editor contains Datastar SSE handlers for the editor UI.
package editor

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wfs/internal/edit"
	"github.com/joeblew999/plat-wfs/internal/humastar"
	"github.com/joeblew999/plat-wfs/internal/service"
)

// EventHandler streams edit session events to the Datastar UI via SSE.
type EventHandler struct {
	bus      *service.EventBus
	sessions *service.SessionService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(bus *service.EventBus, sessions *service.SessionService) *EventHandler {
	return &EventHandler{bus: bus, sessions: sessions}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/events", h.Events,
		huma.OperationTags("editor"),
	)
}

func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ch := h.bus.Subscribe()
			defer h.bus.Unsubscribe(ch)

			sse.Signals(h.status())
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					h.send(sse, ev)
				}
			}
		},
	}, nil
}

// send forwards one event as a browser CustomEvent and updates the
// status signals it affects.
func (h *EventHandler) send(sse humastar.SSE, ev service.Event) {
	sse.Event(ev.Kind(), ev)
	switch e := ev.(type) {
	case service.SaveStarted:
		sse.Signals(map[string]any{"saving": true, "error": "", "success": ""})
	case service.SaveFailed:
		sse.Signals(map[string]any{"saving": false})
		sse.Error(e.Message)
	case service.SaveSucceeded:
		sse.Signals(h.status())
		sse.Success(fmt.Sprintf("Saved: %d inserted, %d updated, %d deleted", e.Inserted, e.Updated, e.Deleted))
	case service.FeatureChanged, service.SessionOpened, service.SessionClosed:
		sse.Signals(h.status())
	}
}

// status returns the session signals shown in the editor toolbar.
func (h *EventHandler) status() map[string]any {
	as, err := h.sessions.Current()
	if err != nil {
		return map[string]any{"dataset": "", "pending": 0, "saving": false}
	}
	st := as.Edit.Stats()
	return map[string]any{
		"dataset":  as.Dataset.ID,
		"features": st.Features,
		"added":    st.Added,
		"updated":  st.Updated,
		"removed":  st.Removed,
		"pending":  st.Added + st.Updated + st.Removed,
		"saving":   as.Edit.State() == edit.Submitting,
	}
}
