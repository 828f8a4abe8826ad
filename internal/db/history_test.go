package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	h, err := NewHistory(ctx, conn)
	require.NoError(t, err)

	// Creating twice is fine.
	_, err = NewHistory(ctx, conn)
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, h.Record(ctx, []Record{
		{ID: "1", SaveID: "s1", Dataset: "roads", FeatureID: "roads.1", Action: "insert", Feature: `{"type":"Feature"}`, CommittedAt: base},
		{ID: "2", SaveID: "s1", Dataset: "roads", FeatureID: "roads.2", Action: "delete", CommittedAt: base},
		{ID: "3", SaveID: "s2", Dataset: "parcels", FeatureID: "parcels.9", Action: "update", CommittedAt: base.Add(time.Minute)},
	}))
	require.NoError(t, h.Record(ctx, nil))

	all, err := h.List(ctx, "", "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID)

	roads, err := h.List(ctx, "roads", "", 10)
	require.NoError(t, err)
	require.Len(t, roads, 2)
	for _, r := range roads {
		assert.Equal(t, "s1", r.SaveID)
	}

	one, err := h.List(ctx, "roads", "roads.1", 10)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "insert", one[0].Action)
	assert.Equal(t, `{"type":"Feature"}`, one[0].Feature)
	assert.True(t, base.Equal(one[0].CommittedAt))
}

func TestHistoryDuplicateRollsBack(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	h, err := NewHistory(ctx, conn)
	require.NoError(t, err)

	now := time.Now().UTC()
	err = h.Record(ctx, []Record{
		{ID: "a", SaveID: "s", Dataset: "d", FeatureID: "f1", Action: "insert", CommittedAt: now},
		{ID: "a", SaveID: "s", Dataset: "d", FeatureID: "f2", Action: "insert", CommittedAt: now},
	})
	require.Error(t, err)

	all, err := h.List(ctx, "", "", 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}
