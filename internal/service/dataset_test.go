package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetServiceCRUD(t *testing.T) {
	dir := t.TempDir()
	bus := NewEventBus()
	events := bus.Subscribe()
	svc := NewDatasetService(dir, bus)
	assert.Empty(t, svc.List())

	d, err := svc.Create(Dataset{Name: "Main Roads", URL: "http://example.com/wfs", FeatureType: "roads"})
	require.NoError(t, err)
	assert.Equal(t, "main_roads", d.ID)
	assert.Equal(t, "the_geom", d.GeometryName)

	_, err = svc.Create(Dataset{Name: "Main Roads"})
	assert.ErrorIs(t, err, ErrExists)

	_, err = svc.Create(Dataset{Name: "!!!"})
	assert.Error(t, err)

	d.GeometryType = "MultiLineString"
	_, err = svc.Update("main_roads", d)
	require.NoError(t, err)

	_, err = svc.Update("nope", d)
	assert.ErrorIs(t, err, ErrNotFound)

	// A fresh service reads the catalogue back from disk.
	reloaded := NewDatasetService(dir, nil)
	got, err := reloaded.Get("main_roads")
	require.NoError(t, err)
	assert.Equal(t, "MultiLineString", got.GeometryType)
	assert.Equal(t, "http://example.com/wfs", got.URL)

	require.NoError(t, svc.Delete("main_roads"))
	assert.ErrorIs(t, svc.Delete("main_roads"), ErrNotFound)
	_, err = svc.Get("main_roads")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"dataset-changed", "dataset-changed", "dataset-changed"}, kinds(drain(events)))
}

func TestDatasetServiceReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yml := `datasets:
  - id: parcels
    name: Parcels
    url: http://example.com/wfs
    featureType: parcels
    prefix: topp
    featureNS: http://www.openplans.org/topp
    geometryType: MultiPolygon
    srsName: EPSG:3857
    wmsLayer: topp:parcels
    strip: [bbox, area]
  - name: Trees
    url: http://example.com/wfs
    featureType: trees
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datasets.yaml"), []byte(yml), 0644))

	svc := NewDatasetService(dir, nil)
	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, "parcels", list[0].ID)
	assert.Equal(t, []string{"bbox", "area"}, list[0].Strip)
	assert.Equal(t, "topp:parcels", list[0].WMSLayer)
	assert.Equal(t, "trees", list[1].ID)
	assert.Equal(t, "the_geom", list[1].GeometryName)
}

func TestDatasetServiceBadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datasets.yaml"), []byte("datasets: [:"), 0644))
	assert.Empty(t, NewDatasetService(dir, nil).List())
}

func TestGenerateID(t *testing.T) {
	assert.Equal(t, "main_roads", generateID("Main Roads"))
	assert.Equal(t, "a-b_c", generateID(" A-b C? "))
}
