package edit

import "github.com/joeblew999/plat-wfs/internal/feature"

// Entry is the edit history of one feature since it was loaded.
type Entry struct {
	ID string
	// Original is the last server-confirmed state, nil for features created
	// in this session and not yet saved.
	Original *feature.Feature
	// Changes holds one snapshot per recorded edit, oldest first.
	Changes []*feature.Feature
}

// Latest returns the most recent snapshot, falling back to Original.
func (e *Entry) Latest() *feature.Feature {
	if n := len(e.Changes); n > 0 {
		return e.Changes[n-1]
	}
	return e.Original
}

func (e *Entry) clone() *Entry {
	c := &Entry{ID: e.ID, Original: e.Original.Clone()}
	for _, ch := range e.Changes {
		c.Changes = append(c.Changes, ch.Clone())
	}
	return c
}

// ChangeLog keeps an append-only history per feature id. It is not safe for
// concurrent use; Session serializes access.
type ChangeLog struct {
	entries map[string]*Entry
}

// NewChangeLog creates one entry per loaded feature with an empty change list.
func NewChangeLog(features []*feature.Feature) *ChangeLog {
	l := &ChangeLog{entries: make(map[string]*Entry, len(features))}
	for _, f := range features {
		l.entries[f.ID] = &Entry{ID: f.ID, Original: f.Clone()}
	}
	return l
}

// Record appends a snapshot of f's current state. Features without an entry
// get one with a nil original.
func (l *ChangeLog) Record(f *feature.Feature) {
	e, ok := l.entries[f.ID]
	if !ok {
		e = &Entry{ID: f.ID}
		l.entries[f.ID] = e
	}
	e.Changes = append(e.Changes, f.Clone())
}

// Entry returns a copy of the entry for id.
func (l *ChangeLog) Entry(id string) (*Entry, bool) {
	e, ok := l.entries[id]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// Original returns the server-confirmed state of id, nil if there is none.
func (l *ChangeLog) Original(id string) *feature.Feature {
	if e, ok := l.entries[id]; ok {
		return e.Original.Clone()
	}
	return nil
}

// Rebase makes f the server-confirmed state of its entry. Recorded changes
// are kept.
func (l *ChangeLog) Rebase(f *feature.Feature) {
	e, ok := l.entries[f.ID]
	if !ok {
		e = &Entry{ID: f.ID}
		l.entries[f.ID] = e
	}
	e.Original = f.Clone()
}

// Rename moves an entry to a new id, used when the server assigns ids to
// inserted features.
func (l *ChangeLog) Rename(oldID, newID string) {
	e, ok := l.entries[oldID]
	if !ok || oldID == newID {
		return
	}
	delete(l.entries, oldID)
	e.ID = newID
	if e.Original != nil {
		e.Original.ID = newID
	}
	for _, ch := range e.Changes {
		ch.ID = newID
	}
	l.entries[newID] = e
}

// Len returns the number of entries.
func (l *ChangeLog) Len() int {
	return len(l.entries)
}
