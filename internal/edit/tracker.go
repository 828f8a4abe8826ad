package edit

import "github.com/joeblew999/plat-wfs/internal/feature"

// Tracker keeps modification tags in a side table keyed by feature id. Every
// mutation bumps the feature's revision so a save can tell whether a feature
// changed while its request was in flight.
type Tracker struct {
	tags map[string]feature.Tag
	revs map[string]uint64
}

// NewTracker creates an empty tracker; every feature starts unmodified.
func NewTracker() *Tracker {
	return &Tracker{
		tags: make(map[string]feature.Tag),
		revs: make(map[string]uint64),
	}
}

// Tag returns the current tag of id.
func (t *Tracker) Tag(id string) feature.Tag {
	return t.tags[id]
}

// Revision returns the mutation counter of id.
func (t *Tracker) Revision(id string) uint64 {
	return t.revs[id]
}

// Added tags a newly drawn feature.
func (t *Tracker) Added(id string) {
	t.set(id, feature.Added)
}

// Changed records a geometry or attribute edit. Added and removed tags win.
func (t *Tracker) Changed(id string) {
	switch t.tags[id] {
	case feature.Added, feature.Removed:
		t.revs[id]++
	default:
		t.set(id, feature.Updated)
	}
}

// Removed records a delete. It reports true when the feature only ever
// existed locally and should be discarded rather than sent.
func (t *Tracker) Removed(id string) (discard bool) {
	if t.tags[id] == feature.Added {
		delete(t.tags, id)
		t.revs[id]++
		return true
	}
	t.set(id, feature.Removed)
	return false
}

// PartRemoved records removal of one part of a multi-part geometry.
// Removing the last part counts as a delete.
func (t *Tracker) PartRemoved(id string, remaining int) (discard bool) {
	if remaining == 0 {
		return t.Removed(id)
	}
	t.Changed(id)
	return false
}

// Mark forces a tag, used by reconciliation.
func (t *Tracker) Mark(id string, tag feature.Tag) {
	t.set(id, tag)
}

// Clear drops the tag of id.
func (t *Tracker) Clear(id string) {
	delete(t.tags, id)
	t.revs[id]++
}

// ClearIf drops the tag of id only if its revision still equals rev.
func (t *Tracker) ClearIf(id string, rev uint64) bool {
	if t.revs[id] != rev {
		return false
	}
	delete(t.tags, id)
	return true
}

// Rename moves tag and revision to a new id.
func (t *Tracker) Rename(oldID, newID string) {
	if oldID == newID {
		return
	}
	if tag, ok := t.tags[oldID]; ok {
		t.tags[newID] = tag
		delete(t.tags, oldID)
	}
	if rev, ok := t.revs[oldID]; ok {
		t.revs[newID] = rev
		delete(t.revs, oldID)
	}
}

// Pending returns the number of features with a tag.
func (t *Tracker) Pending() int {
	return len(t.tags)
}

func (t *Tracker) set(id string, tag feature.Tag) {
	if tag == feature.Unmodified {
		delete(t.tags, id)
	} else {
		t.tags[id] = tag
	}
	t.revs[id]++
}
