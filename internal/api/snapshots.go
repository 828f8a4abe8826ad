package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wfs/internal/service"
)

type SnapshotNameInput struct {
	Name string `path:"name" minLength:"1" maxLength:"100" doc:"Snapshot name" example:"home"`
}

// RegisterSnapshots registers named client-state routes.
func (h *APIHandler) RegisterSnapshots(api huma.API) {
	huma.Get(api, "/api/v1/snapshots", h.ListSnapshots, huma.OperationTags("snapshots"))
	huma.Get(api, "/api/v1/snapshots/{name}", h.GetSnapshot, huma.OperationTags("snapshots"))
	huma.Put(api, "/api/v1/snapshots/{name}", h.PutSnapshot, huma.OperationTags("snapshots"))
	huma.Delete(api, "/api/v1/snapshots/{name}", h.DeleteSnapshot, huma.OperationTags("snapshots"))
}

func (h *APIHandler) ListSnapshots(ctx context.Context, input *struct{}) (*struct{ Body []service.Snapshot }, error) {
	return &struct{ Body []service.Snapshot }{Body: h.svc.Snapshot.List()}, nil
}

func (h *APIHandler) GetSnapshot(ctx context.Context, input *SnapshotNameInput) (*struct{ Body service.Snapshot }, error) {
	snap, err := h.svc.Snapshot.Get(input.Name)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body service.Snapshot }{Body: snap}, nil
}

func (h *APIHandler) PutSnapshot(ctx context.Context, input *struct {
	SnapshotNameInput
	Body service.Snapshot
}) (*struct{ Body service.Snapshot }, error) {
	snap, err := h.svc.Snapshot.Put(input.Name, input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body service.Snapshot }{Body: snap}, nil
}

func (h *APIHandler) DeleteSnapshot(ctx context.Context, input *SnapshotNameInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Snapshot.Delete(input.Name); err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Snapshot deleted"}}, nil
}
