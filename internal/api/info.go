package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wfs/internal/service"
	"github.com/joeblew999/plat-wfs/internal/wfs"
)

type InfoHandler struct {
	dataDir  string
	dbOK     bool
	sessions *service.SessionService
}

func NewInfoHandler(dataDir string, dbOK bool, sessions *service.SessionService) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, sessions: sessions}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name       string   `json:"name" doc:"Service name"`
	Version    string   `json:"version" doc:"Service version"`
	WFSVersion string   `json:"wfs_version" doc:"WFS protocol version spoken to feature services"`
	DataDir    string   `json:"data_dir" doc:"Data directory path"`
	DB         bool     `json:"db" doc:"Whether the history database is available"`
	Session    string   `json:"session,omitempty" doc:"Dataset loaded for editing"`
	Features   []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:       "plat-wfs",
		Version:    "0.1.0",
		WFSVersion: wfs.Version,
		DataDir:    h.dataDir,
		DB:         h.dbOK,
		Features:   []string{"wfs-t", "geojson", "snapshots", "duckdb", "datastar"},
	}
	if as, err := h.sessions.Current(); err == nil {
		body.Session = as.Dataset.ID
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
