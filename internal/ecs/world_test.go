package ecs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type posRow struct {
	RowHeader
	Pos *testComponent
}

func posLoader(e *Entity) (interface{}, bool) {
	c, err := e.GetComponent(compA)
	if err != nil {
		return nil, false
	}
	return &posRow{RowHeader: RowHeader{Entity: e.ID()}, Pos: c.(*testComponent)}, true
}

func TestWorldSpawnAdmitsEntityIntoMatchingFamily(t *testing.T) {
	w := NewWorld(NopTransport{})
	require.NoError(t, w.RegisterFamily("withA", []ComponentIndex{compA}, nil, posLoader))
	binding := NewFamilyBinding[posRow](w.Families, "withA")

	id, err := w.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, w.AddComponent(id, compA, &testComponent{idx: compA, value: 1}))

	assert.Equal(t, 0, binding.Len(), "family membership is not visible before Refresh")

	require.NoError(t, w.Refresh())
	assert.Equal(t, 1, binding.Len())
	assert.Equal(t, id, binding.Rows()[0].Entity)
}

func TestWorldRemoveComponentEvictsFromFamily(t *testing.T) {
	w := NewWorld(NopTransport{})
	require.NoError(t, w.RegisterFamily("withA", []ComponentIndex{compA}, nil, posLoader))
	binding := NewFamilyBinding[posRow](w.Families, "withA")

	id, _ := w.CreateEntity()
	require.NoError(t, w.AddComponent(id, compA, &testComponent{idx: compA}))
	require.NoError(t, w.Refresh())
	require.Equal(t, 1, binding.Len())

	require.NoError(t, w.RemoveComponent(id, compA))
	require.NoError(t, w.Refresh())
	assert.Equal(t, 0, binding.Len())
}

func TestWorldDestroyEntityRunsDeleterAndFreesSlot(t *testing.T) {
	w := NewWorld(NopTransport{})
	require.NoError(t, w.RegisterFamily("withA", []ComponentIndex{compA}, nil, posLoader))

	destroyed := false
	require.NoError(t, w.Deleters.Register(compA, 0, func(interface{}) { destroyed = true }))

	id, _ := w.CreateEntity()
	require.NoError(t, w.AddComponent(id, compA, &testComponent{idx: compA}))
	require.NoError(t, w.Refresh())

	require.NoError(t, w.DestroyEntity(id))
	require.NoError(t, w.Refresh())

	assert.True(t, destroyed)
	_, ok := w.Table.TryGet(id)
	assert.False(t, ok)
}

func TestWorldReloadFiresOnInPlaceComponentReplace(t *testing.T) {
	w := NewWorld(NopTransport{})
	require.NoError(t, w.RegisterFamily("withA", []ComponentIndex{compA}, nil, posLoader))

	var reloaded int
	binding := NewFamilyBinding[posRow](w.Families, "withA")
	unsub := func() {}
	_ = unsub
	require.NoError(t, binding.Listen(recorderListener{onReload: func(EntityID) { reloaded++ }}))

	id, _ := w.CreateEntity()
	require.NoError(t, w.AddComponent(id, compA, &testComponent{idx: compA, value: 1}))
	require.NoError(t, w.Refresh())

	require.NoError(t, w.AddComponent(id, compA, &testComponent{idx: compA, value: 2}))
	require.NoError(t, w.Refresh())

	assert.Equal(t, 1, reloaded)
	assert.Equal(t, 2, binding.Rows()[0].Pos.value)
}

type recorderListener struct {
	onAdd    func(EntityID)
	onRemove func(EntityID)
	onReload func(EntityID)
}

func (l recorderListener) OnAdd(id EntityID) {
	if l.onAdd != nil {
		l.onAdd(id)
	}
}
func (l recorderListener) OnRemove(id EntityID) {
	if l.onRemove != nil {
		l.onRemove(id)
	}
}
func (l recorderListener) OnReload(id EntityID) {
	if l.onReload != nil {
		l.onReload(id)
	}
}

type countingSystem struct {
	name     string
	timeline Timeline
	strategy Strategy
	family   string
	calls    *int
}

func (s countingSystem) Name() string             { return s.name }
func (s countingSystem) Timeline() Timeline        { return s.timeline }
func (s countingSystem) Strategy() Strategy        { return s.strategy }
func (s countingSystem) Access() []ComponentAccess { return nil }
func (s countingSystem) FamilyName() string        { return s.family }
func (s countingSystem) UpdateRow(dt float64, row interface{}) error {
	*s.calls++
	return nil
}

func TestWorldStepRunsRegisteredSystemsOverRows(t *testing.T) {
	w := NewWorld(NopTransport{})
	require.NoError(t, w.RegisterFamily("withA", []ComponentIndex{compA}, nil, posLoader))

	id, _ := w.CreateEntity()
	require.NoError(t, w.AddComponent(id, compA, &testComponent{idx: compA}))
	require.NoError(t, w.Refresh())

	calls := 0
	require.NoError(t, w.RegisterSystem(countingSystem{
		name: "count", timeline: TimelineVariableUpdate, strategy: StrategyIndividual,
		family: "withA", calls: &calls,
	}))

	require.NoError(t, w.Step(context.Background(), TimelineVariableUpdate, 1.0/60))
	assert.Equal(t, 1, calls)
}
