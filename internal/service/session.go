package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-wfs/internal/db"
	"github.com/joeblew999/plat-wfs/internal/edit"
	"github.com/joeblew999/plat-wfs/internal/feature"
	"github.com/joeblew999/plat-wfs/internal/wfs"
)

// ErrNoSession is returned when no dataset is loaded for editing.
var ErrNoSession = errors.New("no active edit session")

// HistoryRecorder stores committed operations.
type HistoryRecorder interface {
	Record(ctx context.Context, records []db.Record) error
}

// ActiveSession is the dataset currently loaded for editing.
type ActiveSession struct {
	ID      string
	Dataset Dataset
	Opened  time.Time
	Edit    *edit.Session

	client *wfs.Client
}

// SaveOutcome is the result of a successful save.
type SaveOutcome struct {
	SaveID      string   `json:"saveId" doc:"Id of the save in the history"`
	Inserted    int      `json:"inserted" doc:"Features inserted"`
	Updated     int      `json:"updated" doc:"Features updated"`
	Deleted     int      `json:"deleted" doc:"Features deleted"`
	InsertedIDs []string `json:"insertedIds,omitempty" doc:"Server ids of inserted features, in order"`
}

// SessionService owns the single edit session of the server.
type SessionService struct {
	datasets *DatasetService
	bus      *EventBus
	history  HistoryRecorder
	http     *http.Client

	mu      sync.RWMutex
	current *ActiveSession
}

// NewSessionService creates a session service. history may be nil.
func NewSessionService(datasets *DatasetService, bus *EventBus, history HistoryRecorder, httpClient *http.Client) *SessionService {
	return &SessionService{
		datasets: datasets,
		bus:      bus,
		history:  history,
		http:     httpClient,
	}
}

func wfsConfig(d Dataset) wfs.Config {
	return wfs.Config{
		URL:          d.URL,
		FeatureType:  d.FeatureType,
		FeatureNS:    d.FeatureNS,
		Prefix:       d.Prefix,
		GeometryName: d.GeometryName,
		SRSName:      d.SRSName,
		MaxFeatures:  d.MaxFeatures,
	}
}

// Client returns a WFS client for a dataset.
func (s *SessionService) Client(d Dataset) *wfs.Client {
	return wfs.New(wfsConfig(d), s.http)
}

// Open loads a dataset and makes it the active session, discarding the
// previous one. If loading fails the previous session is kept.
func (s *SessionService) Open(ctx context.Context, datasetID string) (*ActiveSession, error) {
	d, err := s.datasets.Get(datasetID)
	if err != nil {
		return nil, err
	}
	client := s.Client(d)
	features, err := client.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.ID, err)
	}

	as := &ActiveSession{
		ID:      ulid.Make().String(),
		Dataset: d,
		Opened:  time.Now().UTC(),
		Edit: edit.NewSession(features, edit.Options{
			GeometryType: d.GeometryType,
			Strip:        d.Strip,
		}),
		client: client,
	}

	s.mu.Lock()
	prev := s.current
	s.current = as
	s.mu.Unlock()

	if prev != nil {
		s.bus.Publish(SessionClosed{Dataset: prev.Dataset.ID})
	}
	glog.Infof("session %s opened on %s with %d features", as.ID, d.ID, len(features))
	s.bus.Publish(SessionOpened{Dataset: d.ID, Features: len(features)})
	return as, nil
}

// Current returns the active session.
func (s *SessionService) Current() (*ActiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSession
	}
	return s.current, nil
}

// Discard drops the active session and its unsaved edits.
func (s *SessionService) Discard() error {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	if prev == nil {
		return ErrNoSession
	}
	glog.Infof("session %s on %s discarded", prev.ID, prev.Dataset.ID)
	s.bus.Publish(SessionClosed{Dataset: prev.Dataset.ID})
	return nil
}

func (s *SessionService) changed(as *ActiveSession, id, action string) {
	s.bus.Publish(FeatureChanged{
		Dataset: as.Dataset.ID,
		ID:      id,
		Action:  action,
		Tag:     as.Edit.Tag(id),
	})
}

// Add draws a new feature.
func (s *SessionService) Add(geom orb.Geometry, props map[string]any) (*feature.Feature, error) {
	as, err := s.Current()
	if err != nil {
		return nil, err
	}
	f, err := as.Edit.Add(geom, props)
	if err != nil {
		return nil, err
	}
	s.changed(as, f.ID, "added")
	return f, nil
}

// SetAttributes edits attribute values of a feature.
func (s *SessionService) SetAttributes(id string, props map[string]any) (*feature.Feature, error) {
	as, err := s.Current()
	if err != nil {
		return nil, err
	}
	f, err := as.Edit.SetAttributes(id, props)
	if err != nil {
		return nil, err
	}
	s.changed(as, id, "attributes")
	return f, nil
}

// SetGeometry replaces the geometry of a feature.
func (s *SessionService) SetGeometry(id string, geom orb.Geometry) (*feature.Feature, error) {
	as, err := s.Current()
	if err != nil {
		return nil, err
	}
	f, err := as.Edit.SetGeometry(id, geom)
	if err != nil {
		return nil, err
	}
	s.changed(as, id, "geometry")
	return f, nil
}

// Delete marks a feature for removal.
func (s *SessionService) Delete(id string) error {
	as, err := s.Current()
	if err != nil {
		return err
	}
	if err := as.Edit.Delete(id); err != nil {
		return err
	}
	s.changed(as, id, "deleted")
	return nil
}

// RemovePart removes one part of a multi-part geometry.
func (s *SessionService) RemovePart(id string, index int) (int, error) {
	as, err := s.Current()
	if err != nil {
		return 0, err
	}
	left, err := as.Edit.RemovePart(id, index)
	if err != nil {
		return 0, err
	}
	s.changed(as, id, "part-removed")
	return left, nil
}

// Rollback discards unsaved edits to one feature.
func (s *SessionService) Rollback(id string) (*feature.Feature, error) {
	as, err := s.Current()
	if err != nil {
		return nil, err
	}
	f, err := as.Edit.Rollback(id)
	if err != nil {
		return nil, err
	}
	s.changed(as, id, "rolled-back")
	return f, nil
}

// Save submits pending changes of the active session. On success the
// commit is written to history and the dataset's preview layer is asked
// to refresh.
func (s *SessionService) Save(ctx context.Context) (*SaveOutcome, error) {
	as, err := s.Current()
	if err != nil {
		return nil, err
	}

	if preview := as.Edit.Transaction(); !preview.Empty() && as.Edit.State() != edit.Submitting {
		s.bus.Publish(SaveStarted{
			Dataset: as.Dataset.ID,
			Inserts: len(preview.Inserts),
			Updates: len(preview.Updates),
			Deletes: len(preview.Deletes),
		})
	}

	tx, res, err := as.Edit.Save(ctx, as.client)
	if err != nil {
		if errors.Is(err, edit.ErrNothingToSave) || errors.Is(err, edit.ErrSaveInProgress) {
			return nil, err
		}
		msg := Describe(err)
		glog.Warningf("save %s: %v", as.Dataset.ID, err)
		s.bus.Publish(SaveFailed{Dataset: as.Dataset.ID, Message: msg})
		return nil, err
	}

	out := &SaveOutcome{
		SaveID:      ulid.Make().String(),
		Inserted:    res.Inserted,
		Updated:     res.Updated,
		Deleted:     res.Deleted,
		InsertedIDs: res.InsertedIDs,
	}
	glog.Infof("save %s on %s: inserted=%d updated=%d deleted=%d",
		out.SaveID, as.Dataset.ID, out.Inserted, out.Updated, out.Deleted)

	if s.history != nil {
		// The server already committed; a history failure does not fail the save.
		if err := s.history.Record(ctx, historyRecords(out.SaveID, as.Dataset.ID, tx, res)); err != nil {
			glog.Errorf("history for save %s: %v", out.SaveID, err)
		}
	}

	s.bus.Publish(SaveSucceeded{
		Dataset:  as.Dataset.ID,
		Inserted: out.Inserted,
		Updated:  out.Updated,
		Deleted:  out.Deleted,
	})
	s.bus.Publish(LayerRefreshed{Dataset: as.Dataset.ID, Layer: as.Dataset.WMSLayer})
	return out, nil
}

func historyRecords(saveID, dataset string, tx *edit.Transaction, res *edit.Result) []db.Record {
	now := time.Now().UTC()
	records := make([]db.Record, 0, tx.Len())
	add := func(f *feature.Feature, id, action string) {
		var doc string
		if data, err := f.GeoJSON().MarshalJSON(); err == nil {
			doc = string(data)
		}
		records = append(records, db.Record{
			ID:          ulid.Make().String(),
			SaveID:      saveID,
			Dataset:     dataset,
			FeatureID:   id,
			Action:      action,
			Feature:     doc,
			CommittedAt: now,
		})
	}
	for i, f := range tx.Inserts {
		id := f.ID
		if i < len(res.InsertedIDs) && res.InsertedIDs[i] != "" {
			id = res.InsertedIDs[i]
		}
		add(f, id, "insert")
	}
	for _, f := range tx.Updates {
		add(f, f.ID, "update")
	}
	for _, f := range tx.Deletes {
		add(f, f.ID, "delete")
	}
	return records
}

// Describe turns a save or load error into a message for the editor.
func Describe(err error) string {
	var exc *wfs.ExceptionError
	var herr *wfs.HTTPError
	switch {
	case errors.As(err, &exc):
		return "Transaction rejected by the feature service: " + exc.Error()
	case errors.As(err, &herr):
		return fmt.Sprintf("Feature service answered HTTP %d", herr.Status)
	case errors.Is(err, wfs.ErrResponse):
		return "The feature service sent a response that could not be read"
	case errors.Is(err, wfs.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return "Network error, the feature service could not be reached"
	default:
		return err.Error()
	}
}

// WFS returns the connection settings of the session's feature type.
func (a *ActiveSession) WFS() wfs.Config {
	return a.client.Config()
}
