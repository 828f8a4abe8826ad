// Package server is the application context: it owns the event bus,
// services, history database and HTTP routes, and tears them down in Close.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/golang/glog"

	"github.com/joeblew999/plat-wfs/internal/api"
	"github.com/joeblew999/plat-wfs/internal/api/editor"
	"github.com/joeblew999/plat-wfs/internal/db"
	"github.com/joeblew999/plat-wfs/internal/service"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	// Timeout bounds every request to a feature service. Zero means 30s.
	Timeout time.Duration
	// NoHistory skips opening the DuckDB history store.
	NoHistory bool
}

// Server is the WFS editing HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	bus      *service.EventBus
	services *api.Services
}

// New creates a server. A history database that cannot be opened is logged
// and the server runs without /api/v1/history.
func New(cfg Config) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-wfs API", "1.0.0")
	humaConfig.Info.Description = "Edit features of WFS-T services: load a dataset, edit locally, review and save the transaction."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
		bus:     service.NewEventBus(),
	}

	var history *db.History
	if !cfg.NoHistory {
		history = s.openHistory()
	}

	datasets := service.NewDatasetService(cfg.DataDir, s.bus)
	var recorder service.HistoryRecorder
	if history != nil {
		recorder = history
	}
	s.services = &api.Services{
		Dataset:  datasets,
		Session:  service.NewSessionService(datasets, s.bus, recorder, &http.Client{Timeout: cfg.Timeout}),
		Snapshot: service.NewSnapshotService(cfg.DataDir),
		History:  history,
	}

	s.routes()
	return s
}

func (s *Server) openHistory() *db.History {
	conn, err := db.Open(db.Config{DataDir: s.config.DataDir, DBName: "wfs"})
	if err != nil {
		glog.Warningf("history database unavailable: %v", err)
		return nil
	}
	history, err := db.NewHistory(context.Background(), conn)
	if err != nil {
		glog.Warningf("history database unavailable: %v", err)
		conn.Close()
		return nil
	}
	s.db = conn
	return history
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Datasets returns the dataset catalogue.
func (s *Server) Datasets() *service.DatasetService {
	return s.services.Dataset
}

// Sessions returns the edit session service.
func (s *Server) Sessions() *service.SessionService {
	return s.services.Session
}

// Close discards the active session and closes the history database.
func (s *Server) Close() error {
	if err := s.services.Session.Discard(); err == nil {
		glog.Info("edit session closed on shutdown")
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.db != nil, s.services.Session).RegisterRoutes(s.humaAPI)

	editor.NewEventHandler(s.bus, s.services.Session).RegisterRoutes(s.humaAPI)
	editor.NewFeatureHandler(s.services.Session).RegisterRoutes(s.humaAPI)

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-wfs",
		"status":  "running",
		"docs":    "/docs",
	})
}
