package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testComponent struct {
	idx   ComponentIndex
	value int
}

func (c *testComponent) ComponentIndex() ComponentIndex { return c.idx }
func (c *testComponent) Serialize() ([]byte, error)     { return []byte{byte(c.value)}, nil }
func (c *testComponent) Deserialize(b []byte) error {
	if len(b) > 0 {
		c.value = int(b[0])
	}
	return nil
}

const (
	compA ComponentIndex = iota
	compB
	compC
)

func TestEntityAddComponentMaintainsSortOrder(t *testing.T) {
	e := newEntity(EntityID(0))
	e.AddComponent(compC, &testComponent{idx: compC})
	e.AddComponent(compA, &testComponent{idx: compA})
	e.AddComponent(compB, &testComponent{idx: compB})

	assert.Equal(t, []ComponentIndex{compA, compB, compC}, e.Components())
}

func TestEntityAddComponentReplacesInPlace(t *testing.T) {
	e := newEntity(EntityID(0))
	e.AddComponent(compA, &testComponent{idx: compA, value: 1})
	e.AddComponent(compA, &testComponent{idx: compA, value: 2})

	got, err := e.GetComponent(compA)
	require.NoError(t, err)
	assert.Equal(t, 2, got.(*testComponent).value)
	assert.Len(t, e.Components(), 1)
}

func TestEntityRemoveComponent(t *testing.T) {
	e := newEntity(EntityID(0))
	e.AddComponent(compA, &testComponent{idx: compA})

	assert.True(t, e.RemoveComponent(compA))
	assert.False(t, e.HasComponent(compA))
	assert.False(t, e.RemoveComponent(compA), "removing twice reports not-present")
}

func TestEntityGetComponentMissingErrors(t *testing.T) {
	e := newEntity(EntityID(0))
	_, err := e.GetComponent(compA)
	assert.Error(t, err)
}

func TestEntityCurrentBitsReflectsLiveComponents(t *testing.T) {
	e := newEntity(EntityID(0))
	e.AddComponent(compA, &testComponent{idx: compA})
	e.AddComponent(compB, &testComponent{idx: compB})

	bits := e.currentBits()
	assert.True(t, bits.Test(int(compA)))
	assert.True(t, bits.Test(int(compB)))
	assert.False(t, bits.Test(int(compC)))
}
