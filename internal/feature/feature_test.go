package feature

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	f := New("a", orb.LineString{{0, 0}, {1, 1}}, map[string]any{"name": "main"})
	c := f.Clone()

	c.Properties["name"] = "side"
	c.Geometry.(orb.LineString)[0] = orb.Point{9, 9}

	assert.Equal(t, "main", f.Properties["name"])
	assert.Equal(t, orb.Point{0, 0}, f.Geometry.(orb.LineString)[0])
}

func TestFromGeoJSONID(t *testing.T) {
	gf := geojson.NewFeature(orb.Point{1, 2})
	gf.ID = "roads.7"
	gf.Properties["name"] = "x"

	f := FromGeoJSON(gf)
	assert.Equal(t, "roads.7", f.ID)
	assert.Equal(t, "Point", f.GeometryType())

	gf.ID = float64(12)
	assert.Equal(t, "12", FromGeoJSON(gf).ID)

	gf.ID = nil
	assert.Equal(t, "", FromGeoJSON(gf).ID)
}

func TestRemovePart(t *testing.T) {
	mp := orb.MultiPoint{{0, 0}, {1, 1}, {2, 2}}

	g, left, err := RemovePart(mp, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, left)
	assert.Equal(t, orb.MultiPoint{{0, 0}, {2, 2}}, g)
	assert.Len(t, mp, 3, "input must not be mutated")

	_, _, err = RemovePart(mp, 3)
	assert.ErrorIs(t, err, ErrPartIndex)

	_, _, err = RemovePart(orb.Point{0, 0}, 0)
	assert.ErrorIs(t, err, ErrNotMultiPart)

	g, left, err = RemovePart(orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
	assert.Empty(t, g)
}

func TestCollectionOrder(t *testing.T) {
	c := NewCollection([]*Feature{
		New("a", orb.Point{}, nil),
		New("b", orb.Point{}, nil),
		New("c", orb.Point{}, nil),
	})

	require.True(t, c.Remove("b"))
	assert.False(t, c.Remove("b"))
	c.Add(New("d", orb.Point{}, nil))
	require.True(t, c.Rename("a", "a2"))

	var ids []string
	for _, f := range c.All() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"a2", "c", "d"}, ids)
	assert.Equal(t, 3, c.Len())

	_, ok := c.Get("a")
	assert.False(t, ok)
}
