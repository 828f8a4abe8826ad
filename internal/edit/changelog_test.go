package edit

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-wfs/internal/feature"
)

func TestChangeLogRecordsInOrder(t *testing.T) {
	a := feature.New("a", orb.Point{0, 0}, map[string]any{"name": "one"})
	log := NewChangeLog([]*feature.Feature{a})

	a.Properties["name"] = "two"
	log.Record(a)
	a.Properties["name"] = "three"
	log.Record(a)

	e, ok := log.Entry("a")
	require.True(t, ok)
	assert.Equal(t, "one", e.Original.Properties["name"])
	require.Len(t, e.Changes, 2)
	assert.Equal(t, "two", e.Changes[0].Properties["name"])
	assert.Equal(t, "three", e.Latest().Properties["name"])
}

func TestChangeLogNewFeature(t *testing.T) {
	log := NewChangeLog(nil)
	log.Record(feature.New("n", orb.Point{1, 1}, nil))

	e, ok := log.Entry("n")
	require.True(t, ok)
	assert.Nil(t, e.Original)
	assert.Len(t, e.Changes, 1)
	assert.Nil(t, log.Original("n"))
}

func TestChangeLogRebaseAndRename(t *testing.T) {
	log := NewChangeLog(nil)
	n := feature.New("tmp", orb.Point{1, 1}, nil)
	log.Record(n)
	log.Rename("tmp", "roads.9")

	committed := n.Clone()
	committed.ID = "roads.9"
	log.Rebase(committed)

	_, ok := log.Entry("tmp")
	assert.False(t, ok)
	e, ok := log.Entry("roads.9")
	require.True(t, ok)
	assert.Equal(t, "roads.9", e.Original.ID)
	assert.Len(t, e.Changes, 1, "rebase keeps history")
	assert.Equal(t, "roads.9", e.Changes[0].ID)
}

func TestChangeLogEntryIsCopy(t *testing.T) {
	log := NewChangeLog([]*feature.Feature{feature.New("a", orb.Point{}, map[string]any{"k": 1})})
	e, _ := log.Entry("a")
	e.Original.Properties["k"] = 2

	assert.Equal(t, 1, log.Original("a").Properties["k"])
}
