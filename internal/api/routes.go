// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang/glog"

	"github.com/joeblew999/plat-wfs/internal/db"
	"github.com/joeblew999/plat-wfs/internal/edit"
	"github.com/joeblew999/plat-wfs/internal/feature"
	"github.com/joeblew999/plat-wfs/internal/service"
	"github.com/joeblew999/plat-wfs/internal/wfs"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Dataset  *service.DatasetService
	Session  *service.SessionService
	Snapshot *service.SnapshotService
	History  *db.History // nil when DuckDB is unavailable
}

// Types

type DatasetIDInput struct {
	ID string `path:"id" doc:"Dataset ID" example:"roads"`
}

type DatasetOutput struct {
	Body service.Dataset
}

type DatasetsOutput struct {
	Body []service.Dataset
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedDatasetBody struct {
	ID      string          `json:"id" doc:"Generated dataset ID"`
	Dataset service.Dataset `json:"dataset" doc:"Created dataset"`
	Message string          `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterDatasets registers dataset catalogue routes.
func (h *APIHandler) RegisterDatasets(api huma.API) {
	huma.Get(api, "/api/v1/datasets", h.GetDatasets, huma.OperationTags("datasets"))
	huma.Post(api, "/api/v1/datasets", h.CreateDataset, huma.OperationTags("datasets"))
	huma.Get(api, "/api/v1/datasets/{id}", h.GetDataset, huma.OperationTags("datasets"))
	huma.Put(api, "/api/v1/datasets/{id}", h.PutDataset, huma.OperationTags("datasets"))
	huma.Delete(api, "/api/v1/datasets/{id}", h.DeleteDataset, huma.OperationTags("datasets"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetDatasets(ctx context.Context, input *struct{}) (*DatasetsOutput, error) {
	return &DatasetsOutput{Body: h.svc.Dataset.List()}, nil
}

func (h *APIHandler) CreateDataset(ctx context.Context, input *struct{ Body service.Dataset }) (*struct{ Body CreatedDatasetBody }, error) {
	created, err := h.svc.Dataset.Create(input.Body)
	if err != nil {
		if errors.Is(err, service.ErrExists) {
			return nil, huma.Error409Conflict(err.Error())
		}
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body CreatedDatasetBody }{Body: CreatedDatasetBody{
		ID: created.ID, Dataset: created, Message: "Dataset created",
	}}, nil
}

func (h *APIHandler) GetDataset(ctx context.Context, input *DatasetIDInput) (*DatasetOutput, error) {
	d, err := h.svc.Dataset.Get(input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &DatasetOutput{Body: d}, nil
}

func (h *APIHandler) PutDataset(ctx context.Context, input *struct {
	DatasetIDInput
	Body service.Dataset
}) (*DatasetOutput, error) {
	d, err := h.svc.Dataset.Update(input.ID, input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	return &DatasetOutput{Body: d}, nil
}

func (h *APIHandler) DeleteDataset(ctx context.Context, input *DatasetIDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Dataset.Delete(input.ID); err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Dataset deleted"}}, nil
}

// apiError maps domain errors to Huma status errors.
func apiError(err error) error {
	var exc *wfs.ExceptionError
	var herr *wfs.HTTPError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, edit.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrNoSession):
		return huma.Error409Conflict("No dataset is loaded for editing")
	case errors.Is(err, service.ErrExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, edit.ErrNothingToSave):
		return huma.Error409Conflict("Nothing to save")
	case errors.Is(err, edit.ErrSaveInProgress):
		return huma.Error409Conflict("A save is already in progress")
	case errors.Is(err, edit.ErrGeometryType),
		errors.Is(err, feature.ErrNotMultiPart),
		errors.Is(err, feature.ErrPartIndex):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.As(err, &exc), errors.As(err, &herr),
		errors.Is(err, wfs.ErrTransport), errors.Is(err, wfs.ErrResponse):
		return huma.Error502BadGateway(service.Describe(err), err)
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(service.Describe(err))
	default:
		glog.Errorf("api: %v", err)
		return huma.Error500InternalServerError("Internal error", err)
	}
}
