package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wfs/internal/db"
)

// HistoryInput filters the commit history.
type HistoryInput struct {
	Dataset string `query:"dataset" doc:"Only records of this dataset"`
	Feature string `query:"feature" doc:"Only records of this feature id"`
	Limit   int    `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Maximum records"`
}

// HistoryOutput is the response for the history listing.
type HistoryOutput struct {
	Body []db.Record
}

// RegisterHistory registers the commit history route.
func (h *APIHandler) RegisterHistory(api huma.API) {
	huma.Get(api, "/api/v1/history", h.GetHistory, huma.OperationTags("history"))
}

// GetHistory lists committed operations, newest first.
func (h *APIHandler) GetHistory(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	if h.svc.History == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	records, err := h.svc.History.List(ctx, input.Dataset, input.Feature, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read history", err)
	}
	if records == nil {
		records = []db.Record{}
	}
	return &HistoryOutput{Body: records}, nil
}
