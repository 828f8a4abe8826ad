package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotService(t *testing.T) {
	dir := t.TempDir()
	svc := NewSnapshotService(dir)

	_, err := svc.Get("home")
	assert.ErrorIs(t, err, ErrNotFound)

	snap, err := svc.Put("home", Snapshot{
		View:          &ViewState{Center: [2]float64{1, 2}, Zoom: 12},
		VisibleLayers: []string{"roads", "parcels"},
	})
	require.NoError(t, err)
	assert.Equal(t, "home", snap.Name)
	assert.False(t, snap.UpdatedAt.IsZero())

	_, err = svc.Put("away", Snapshot{Extra: map[string]any{"basemap": "osm"}})
	require.NoError(t, err)

	reloaded := NewSnapshotService(dir)
	list := reloaded.List()
	require.Len(t, list, 2)
	assert.Equal(t, "away", list[0].Name)
	assert.Equal(t, "osm", list[0].Extra["basemap"])
	assert.Equal(t, 12.0, list[1].View.Zoom)
	assert.Equal(t, []string{"roads", "parcels"}, list[1].VisibleLayers)

	require.NoError(t, reloaded.Delete("home"))
	assert.ErrorIs(t, reloaded.Delete("home"), ErrNotFound)
	assert.Len(t, NewSnapshotService(dir).List(), 1)
}
