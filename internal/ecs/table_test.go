package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableCreateAndTryGet(t *testing.T) {
	tbl := NewTable()
	id, err := tbl.Create()
	require.NoError(t, err)

	e, ok := tbl.TryGet(id)
	require.True(t, ok)
	assert.Equal(t, id, e.ID())
	assert.True(t, e.IsLive())
}

func TestTableGenerationPreventsStaleAccess(t *testing.T) {
	tbl := NewTable()
	id, _ := tbl.Create()
	require.NoError(t, tbl.Destroy(id))

	for _, e := range tbl.takePendingSpawn() {
		_ = e // drain the spawn set like Refresh would
	}
	for _, e := range tbl.takePendingDelete() {
		tbl.finalizeDestroy(e)
	}

	newID, _ := tbl.Create()
	assert.Equal(t, id.slot(), newID.slot(), "freed slot should be recycled")
	assert.NotEqual(t, id.generation(), newID.generation())

	_, ok := tbl.TryGet(id)
	assert.False(t, ok, "stale id from before recycling must not resolve")

	got, ok := tbl.TryGet(newID)
	assert.True(t, ok)
	assert.Equal(t, newID, got.ID())
}

func TestTableDestroyUnknownEntityErrors(t *testing.T) {
	tbl := NewTable()
	err := tbl.Destroy(EntityID(99999))
	assert.Error(t, err)
}

func TestTableSetParentTracksChildrenAndPartition(t *testing.T) {
	tbl := NewTable()
	parent, _ := tbl.Create()
	child, _ := tbl.Create()

	p, _ := tbl.TryGet(parent)
	p.worldPartition = WorldPartition(3)

	require.NoError(t, tbl.SetParent(child, parent))

	c, _ := tbl.TryGet(child)
	assert.Equal(t, parent, c.Parent())
	assert.Equal(t, WorldPartition(3), c.WorldPartition())
	assert.Contains(t, p.Children(), child)

	require.NoError(t, tbl.SetParent(child, InvalidEntityID))
	assert.Equal(t, InvalidEntityID, c.Parent())
	assert.NotContains(t, p.Children(), child)
}

func TestTableNumEntitiesCountsLiveOnly(t *testing.T) {
	tbl := NewTable()
	_, _ = tbl.Create()
	_, _ = tbl.Create()
	assert.Equal(t, 2, tbl.NumEntities())
}
