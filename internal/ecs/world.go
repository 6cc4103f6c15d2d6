package ecs

import (
	"context"

	"github.com/totodo713/ecsforge/internal/ecs/compstore"
	"github.com/totodo713/ecsforge/internal/ecs/log"
	"github.com/totodo713/ecsforge/internal/ecs/mask"
)

// World wires together every subsystem this package implements: the mask
// registry, the component deleter table, the entity table, the family
// engine, the two messaging planes, and the scheduler. It is the single
// point of orchestration for Refresh, matching spec §4.3's requirement
// that refresh run as one ordered pass rather than each subsystem
// reconciling independently.
//
// Grounded on the teacher's world.go, which played the same integrating
// role (holding the EntityManager, SystemManager and EventBus together)
// but rebuilt every query from scratch each frame; this World instead
// drives the incremental family engine built in family.go.
type World struct {
	Masks     *mask.Registry
	Deleters  *compstore.DeleterTable
	Table     *Table
	Families  *FamilyEngine
	Bus       *MessageBus
	Scheduler *Scheduler
	Log       *log.Logger
}

// NewWorld constructs an empty world. transport routes non-local system
// messages; pass NopTransport{} for a single-process configuration.
func NewWorld(transport Transport) *World {
	registry := mask.NewRegistry()
	families := NewFamilyEngine(registry)
	table := NewTable()
	bus := NewMessageBus(transport)
	return &World{
		Masks:     registry,
		Deleters:  compstore.NewDeleterTable(),
		Table:     table,
		Families:  families,
		Log:       log.New("world"),
		Bus:       bus,
		Scheduler: NewScheduler(families, table, bus),
	}
}

// MaskFor interns the mask formed by the union of the given component
// indices, for use as a family's required mask.
func (w *World) MaskFor(indices ...ComponentIndex) MaskHandle {
	var b maskBits
	for _, idx := range indices {
		b = b.Set(int(idx))
	}
	return w.Masks.Intern(b)
}

// RegisterFamily declares a family requiring every component in required,
// plus an optional set of components that are loaded when present but do
// not gate membership (spec §4.4 "Optional components"). Pass nil for
// optional when a family has none.
func (w *World) RegisterFamily(name string, required, optional []ComponentIndex, loader RowLoader) error {
	return w.Families.Register(name, w.MaskFor(required...), w.MaskFor(optional...), loader)
}

// RegisterSystem adds sys to the scheduler.
func (w *World) RegisterSystem(sys System) error {
	return w.Scheduler.Register(sys)
}

// CreateEntity allocates a new pending entity, visible to families after
// the next Refresh.
func (w *World) CreateEntity() (EntityID, error) {
	return w.Table.Create()
}

// DestroyEntity defers id's destruction to the next Refresh.
func (w *World) DestroyEntity(id EntityID) error {
	return w.Table.Destroy(id)
}

// AddComponent attaches v under idx to id, deferring family re-evaluation
// to the next Refresh.
func (w *World) AddComponent(id EntityID, idx ComponentIndex, v Component) error {
	e, ok := w.Table.TryGet(id)
	if !ok {
		return newError(ErrInvalidEntity, "AddComponent on unknown entity").WithEntity(id)
	}
	e.AddComponent(idx, v)
	w.Table.dirty.Add(id)
	return nil
}

// RemoveComponent detaches the component at idx from id, deferring family
// re-evaluation to the next Refresh.
func (w *World) RemoveComponent(id EntityID, idx ComponentIndex) error {
	e, ok := w.Table.TryGet(id)
	if !ok {
		return newError(ErrInvalidEntity, "RemoveComponent on unknown entity").WithEntity(id)
	}
	if e.RemoveComponent(idx) {
		w.Table.dirty.Add(id)
	}
	return nil
}

// GetComponent returns id's component at idx.
func (w *World) GetComponent(id EntityID, idx ComponentIndex) (Component, error) {
	e, ok := w.Table.TryGet(id)
	if !ok {
		return nil, newError(ErrInvalidEntity, "GetComponent on unknown entity").WithEntity(id)
	}
	return e.GetComponent(idx)
}

// Refresh runs the one ordered reconciliation pass spec §4.3 describes:
// spawn admission, then dirty-entity mask recomputation/reconciliation,
// then destroy eviction are all queued into each affected family, and only
// then does a single per-family update_entities batch replay every queued
// add, then every queued reload, then compact every queued removal (spec
// §4.4 step 4). Finalizing a destroyed entity's components and freeing its
// slot happens last, after every family has released its row for that
// entity.
//
// Queuing admission ahead of removal (rather than evicting destroyed
// entities first) matters: a family F=[E1,E2,E3] that both spawns a
// matching E4 and destroys E1 in the same tick admits E4 before compacting
// away E1, producing rows=[E4,E2,E3] rather than an order that depends on
// which of the two happened to be processed first.
func (w *World) Refresh() error {
	if w.Table.iterating {
		return newError(ErrRefreshDuringIterate, "Refresh called while a family binding is iterating")
	}

	destroyed := w.Table.takePendingDelete()

	spawned := w.Table.takePendingSpawn()
	for _, e := range spawned {
		e.mask = w.Masks.Intern(e.currentBits())
		e.dirty = false
		if w.Table.dirty.Contains(e.id) {
			_ = w.Table.dirty.Remove(e.id)
		}
		w.Families.onSpawn(e)
	}
	if len(spawned) > 0 {
		w.Log.Debug("refresh: spawned entities", "count", len(spawned))
	}

	for _, e := range w.Table.takeDirty() {
		if !e.live {
			continue
		}
		oldMask := e.mask
		newMask := w.Masks.Intern(e.currentBits())
		e.mask = newMask
		e.dirty = false
		w.Families.onMaskChanged(e, oldMask, newMask, true)
	}

	for _, e := range destroyed {
		w.Families.onDestroy(e)
	}

	w.Families.updateEntities()

	for _, e := range destroyed {
		for _, c := range e.components {
			w.Deleters.Destroy(c.index, c.value)
		}
		w.Table.finalizeDestroy(e)
	}
	if len(destroyed) > 0 {
		w.Log.Debug("refresh: destroyed entities", "count", len(destroyed))
	}

	return nil
}

// Step runs the scheduler's systems for timeline, with delta time dt, then
// Refresh. On the fixed-update timeline every live entity's inbox is aged
// by one tick before the systems run; other timelines do not age inboxes.
// Refresh runs even when a system returned an error; the system's error is
// returned in preference to Refresh's.
func (w *World) Step(ctx context.Context, timeline Timeline, dt float64) error {
	if timeline == TimelineFixedUpdate {
		for _, id := range w.Table.AllLive() {
			if e, ok := w.Table.TryGet(id); ok {
				e.PumpInbox()
			}
		}
	}
	err := w.Scheduler.Step(ctx, timeline, dt)
	if rerr := w.Refresh(); err == nil {
		err = rerr
	}
	return err
}
