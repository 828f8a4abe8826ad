// Package edit implements the edit-transaction lifecycle for one dataset:
// change log, modification tracking, transaction building and reconciliation
// of save results.
package edit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-wfs/internal/feature"
)

var (
	ErrNotFound      = errors.New("feature not found")
	ErrGeometryType  = errors.New("geometry type does not match dataset")
	ErrNothingToSave = errors.New("no pending changes")
)

// Options configures a session.
type Options struct {
	// GeometryType restricts geometries to one GeoJSON type, e.g. "MultiPolygon".
	// Empty accepts any type.
	GeometryType string
	// Strip names properties removed before serialization. Nil uses DefaultStrip.
	Strip []string
	// NewID generates ids for drawn features. Defaults to a ULID.
	NewID func() string
}

// Item is a feature together with its modification tag.
type Item struct {
	Feature *feature.Feature
	Tag     feature.Tag
}

// Stats counts features by tag.
type Stats struct {
	Features int `json:"features"`
	Added    int `json:"added"`
	Updated  int `json:"updated"`
	Removed  int `json:"removed"`
}

// Session owns the features, change log and tags of one loaded dataset.
// All methods are safe for concurrent use. Returned features are copies.
type Session struct {
	mu       sync.Mutex
	opts     Options
	features *feature.Collection
	log      *ChangeLog
	tracker  *Tracker
	builder  *Builder
	rec      Reconciler

	// active is the feature currently open in the attribute editor.
	active *feature.Feature
}

// NewSession starts a session over freshly loaded features.
func NewSession(features []*feature.Feature, opts Options) *Session {
	if opts.NewID == nil {
		opts.NewID = func() string { return ulid.Make().String() }
	}
	owned := make([]*feature.Feature, len(features))
	for i, f := range features {
		owned[i] = f.Clone()
	}
	return &Session{
		opts:     opts,
		features: feature.NewCollection(owned),
		log:      NewChangeLog(owned),
		tracker:  NewTracker(),
		builder:  NewBuilder(opts.Strip...),
	}
}

func (s *Session) checkGeometry(g orb.Geometry) error {
	if g == nil {
		return fmt.Errorf("%w: missing geometry", ErrGeometryType)
	}
	if s.opts.GeometryType != "" && g.GeoJSONType() != s.opts.GeometryType {
		return fmt.Errorf("%w: got %s, want %s", ErrGeometryType, g.GeoJSONType(), s.opts.GeometryType)
	}
	return nil
}

func (s *Session) get(id string) (*feature.Feature, error) {
	f, ok := s.features.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f, nil
}

// Add inserts a newly drawn feature and tags it added.
func (s *Session) Add(geom orb.Geometry, props map[string]any) (*feature.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkGeometry(geom); err != nil {
		return nil, err
	}
	f := feature.New(s.opts.NewID(), orb.Clone(geom), props)
	s.features.Add(f)
	s.tracker.Added(f.ID)
	s.log.Record(f)
	return f.Clone(), nil
}

// SetAttributes sets the given attributes on a feature. A nil value clears
// the attribute: the key stays with a nil value so the next update sends it
// without a value.
func (s *Session) SetAttributes(id string, props map[string]any) (*feature.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.get(id)
	if err != nil {
		return nil, err
	}
	for k, v := range props {
		f.Properties[k] = v
	}
	s.tracker.Changed(id)
	s.log.Record(f)
	return f.Clone(), nil
}

// SetGeometry replaces the geometry of a feature.
func (s *Session) SetGeometry(id string, geom orb.Geometry) (*feature.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := s.checkGeometry(geom); err != nil {
		return nil, err
	}
	f.Geometry = orb.Clone(geom)
	s.tracker.Changed(id)
	s.log.Record(f)
	return f.Clone(), nil
}

// Delete marks a feature for removal. Features that were never saved are
// dropped immediately.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(id); err != nil {
		return err
	}
	if s.tracker.Removed(id) {
		s.features.Remove(id)
	}
	if s.active != nil && s.active.ID == id {
		s.active = nil
	}
	return nil
}

// RemovePart removes one part of a multi-part geometry. Removing the last
// part deletes the feature. It returns the remaining part count.
func (s *Session) RemovePart(id string, index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.get(id)
	if err != nil {
		return 0, err
	}
	geom, left, err := feature.RemovePart(f.Geometry, index)
	if err != nil {
		return 0, err
	}
	if left > 0 {
		f.Geometry = geom
		s.log.Record(f)
	}
	if s.tracker.PartRemoved(id, left) {
		s.features.Remove(id)
	}
	if left == 0 && s.active != nil && s.active.ID == id {
		s.active = nil
	}
	return left, nil
}

// Rollback discards unsaved edits to one feature, restoring the last
// server-confirmed state. Unsaved new features are removed.
func (s *Session) Rollback(id string) (*feature.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(id); err != nil {
		return nil, err
	}
	orig := s.log.Original(id)
	s.tracker.Clear(id)
	if orig == nil {
		s.features.Remove(id)
		if s.active != nil && s.active.ID == id {
			s.active = nil
		}
		return nil, nil
	}
	s.features.Add(orig)
	if s.active != nil && s.active.ID == id {
		s.active = orig
	}
	return orig.Clone(), nil
}

// BeginEdit opens a feature in the attribute editor.
func (s *Session) BeginEdit(id string) (*feature.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.get(id)
	if err != nil {
		return nil, err
	}
	s.active = f
	return f.Clone(), nil
}

// EndEdit closes the attribute editor.
func (s *Session) EndEdit() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

// Active returns the feature open in the attribute editor, nil if none.
func (s *Session) Active() *feature.Feature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.Clone()
}

// Get returns one feature and its tag.
func (s *Session) Get(id string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.get(id)
	if err != nil {
		return Item{}, err
	}
	return Item{Feature: f.Clone(), Tag: s.tracker.Tag(id)}, nil
}

// Features returns all features in load order, new features last.
func (s *Session) Features() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.features.All()
	items := make([]Item, len(all))
	for i, f := range all {
		items[i] = Item{Feature: f.Clone(), Tag: s.tracker.Tag(f.ID)}
	}
	return items
}

// Tag returns the modification tag of id.
func (s *Session) Tag(id string) feature.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Tag(id)
}

// Log returns the change log entry of id.
func (s *Session) Log(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Entry(id)
}

// Stats counts features by tag.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Features: s.features.Len()}
	for _, f := range s.features.All() {
		switch s.tracker.Tag(f.ID) {
		case feature.Added:
			st.Added++
		case feature.Updated:
			st.Updated++
		case feature.Removed:
			st.Removed++
		}
	}
	return st
}

// Transaction builds the request a save would send right now.
func (s *Session) Transaction() *Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Build(s.features.All(), s.tracker)
}

// State returns the save state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.State()
}

// LastError returns the error of the last failed save.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Err()
}

// Acknowledge returns a finished save to Idle.
func (s *Session) Acknowledge() {
	s.mu.Lock()
	s.rec.Acknowledge()
	s.mu.Unlock()
}

// Save snapshots pending changes, submits them and reconciles the outcome.
// The snapshot is taken when Save is called; edits made while the request
// is in flight keep their tags and go out with the next save. On failure the
// feature that was open in the editor is restored.
func (s *Session) Save(ctx context.Context, sub Submitter) (*Transaction, *Result, error) {
	s.mu.Lock()
	tx := s.builder.Build(s.features.All(), s.tracker)
	if tx.Empty() {
		s.mu.Unlock()
		return tx, nil, ErrNothingToSave
	}
	if err := s.rec.Begin(); err != nil {
		s.mu.Unlock()
		return tx, nil, err
	}
	backup := s.active
	s.active = nil
	s.mu.Unlock()

	res, err := sub.Submit(ctx, tx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.active == nil {
			s.active = backup
		}
		s.rec.Fail(err)
		return tx, nil, err
	}
	s.reconcile(tx, res)
	s.rec.Succeed(res)
	return tx, res, nil
}

func (s *Session) reconcile(tx *Transaction, res *Result) {
	for i, sent := range tx.Inserts {
		id := sent.ID
		rev := tx.revs[id]
		if i < len(res.InsertedIDs) && res.InsertedIDs[i] != "" && res.InsertedIDs[i] != id {
			newID := res.InsertedIDs[i]
			// A fid already held by another feature is not adopted.
			if _, live := s.features.Get(id); !live || s.features.Rename(id, newID) {
				s.tracker.Rename(id, newID)
				s.log.Rename(id, newID)
				id = newID
			}
		}
		committed := sent.Clone()
		committed.ID = id

		if _, ok := s.features.Get(id); !ok {
			// Deleted locally while the insert was in flight: it now exists
			// on the server, so queue a delete.
			s.features.Add(committed)
			s.tracker.Mark(id, feature.Removed)
			s.log.Rebase(committed)
			continue
		}
		s.log.Rebase(committed)
		if !s.tracker.ClearIf(id, rev) && s.tracker.Tag(id) == feature.Added {
			s.tracker.Mark(id, feature.Updated)
		}
	}

	for _, sent := range tx.Updates {
		if s.tracker.ClearIf(sent.ID, tx.revs[sent.ID]) {
			if f, ok := s.features.Get(sent.ID); ok {
				s.log.Rebase(f)
			}
			continue
		}
		s.log.Rebase(sent)
		// Rolled back in flight: the server now holds the sent state, so the
		// restored feature has to go out again.
		if _, ok := s.features.Get(sent.ID); ok && s.tracker.Tag(sent.ID) == feature.Unmodified {
			s.tracker.Mark(sent.ID, feature.Updated)
		}
	}

	for _, sent := range tx.Deletes {
		s.tracker.Clear(sent.ID)
		s.features.Remove(sent.ID)
		if s.active != nil && s.active.ID == sent.ID {
			s.active = nil
		}
	}
}
