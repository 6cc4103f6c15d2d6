package ecs

import (
	"github.com/totodo713/ecsforge/internal/ecs/compstore"
)

// slotState distinguishes the four states a table slot can be in between
// refreshes.
type slotState uint8

const (
	slotFree slotState = iota
	slotPendingSpawn
	slotSpawned
	slotPendingDestroy
)

type slot struct {
	entity     *Entity
	generation uint32
	state      slotState
}

// Table is the entity slot pool: a slot-allocated store of live entities
// indexed by the low 32 bits of EntityID, with generation bits preventing
// use-after-free of a recycled id (spec §4.3). Grounded on the teacher's
// entity_manager.go, which tracked entities in a plain map with no
// generation recycling; this is the concrete slot+generation scheme Design
// Notes §9 calls for.
//
// Table is single-owner: only the tick thread mutates it, per spec §5.
type Table struct {
	slots     []slot
	freeSlots []uint32
	byUUID    map[UUID]EntityID

	pendingSpawn  *compstore.SparseSet[EntityID]
	dirty         *compstore.SparseSet[EntityID]
	pendingDelete *compstore.SparseSet[EntityID]

	iterating bool // guards against RefreshDuringIteration
}

// NewTable creates an empty entity table.
func NewTable() *Table {
	return &Table{
		byUUID:        make(map[UUID]EntityID),
		pendingSpawn:  compstore.NewSparseSet[EntityID](),
		dirty:         compstore.NewSparseSet[EntityID](),
		pendingDelete: compstore.NewSparseSet[EntityID](),
	}
}

// BeginIteration marks the table as being iterated by a family binding.
// Until EndIteration, Create, Destroy and World.Refresh return
// ErrRefreshDuringIterate; adding or removing a component, SetParent and
// MarkDirty do not check the flag and are not rejected.
func (t *Table) BeginIteration() { t.iterating = true }

// EndIteration clears the iteration guard.
func (t *Table) EndIteration() { t.iterating = false }

func (t *Table) checkNotIterating() error {
	if t.iterating {
		return newError(ErrRefreshDuringIterate, "structural mutation attempted during family iteration")
	}
	return nil
}

// Create allocates a slot and returns a new pending entity's id. The entity
// becomes visible to families only after the next Refresh (spec: "created
// as pending ... spawned during the next refresh").
func (t *Table) Create() (EntityID, error) {
	if err := t.checkNotIterating(); err != nil {
		return InvalidEntityID, err
	}
	var idx uint32
	if n := len(t.freeSlots); n > 0 {
		idx = t.freeSlots[n-1]
		t.freeSlots = t.freeSlots[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot{})
	}
	gen := t.slots[idx].generation
	id := newEntityID(idx, gen)
	e := newEntity(id)
	t.slots[idx] = slot{entity: e, generation: gen, state: slotPendingSpawn}
	t.byUUID[e.uuid] = id
	t.pendingSpawn.Add(id)
	return id, nil
}

// TryGet resolves id to its entity if the slot is live and the generation
// matches.
func (t *Table) TryGet(id EntityID) (*Entity, bool) {
	if id == InvalidEntityID {
		return nil, false
	}
	idx := id.slot()
	if int(idx) >= len(t.slots) {
		return nil, false
	}
	s := &t.slots[idx]
	if s.generation != id.generation() || s.state == slotFree {
		return nil, false
	}
	return s.entity, true
}

// ByUUID resolves a UUID to its current EntityID.
func (t *Table) ByUUID(u UUID) (EntityID, bool) {
	id, ok := t.byUUID[u]
	return id, ok
}

// Destroy defers destruction of id to the next Refresh. Returns an error if
// id does not resolve to a live entity.
func (t *Table) Destroy(id EntityID) error {
	if err := t.checkNotIterating(); err != nil {
		return err
	}
	_, ok := t.TryGet(id)
	if !ok {
		return newError(ErrInvalidEntity, "destroy called on unknown entity").WithEntity(id)
	}
	if t.pendingDelete.Contains(id) {
		return nil
	}
	t.pendingDelete.Add(id)
	return nil
}

// NumEntities returns the count of currently live (spawned or pending)
// entities.
func (t *Table) NumEntities() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].state != slotFree {
			n++
		}
	}
	return n
}

// AllLive returns every currently live entity id.
func (t *Table) AllLive() []EntityID {
	out := make([]EntityID, 0, len(t.slots))
	for i := range t.slots {
		s := &t.slots[i]
		if s.state != slotFree {
			out = append(out, s.entity.id)
		}
	}
	return out
}

// MarkDirty flags id for mask re-derivation at the next refresh, without
// changing its component set itself (used for reload-only in-place
// mutation, spec §4.4 "Reload").
func (t *Table) MarkDirty(id EntityID) {
	if e, ok := t.TryGet(id); ok {
		e.dirty = true
		t.dirty.Add(id)
	}
}

// takePendingSpawn drains and returns entities created since the last
// refresh, in creation order, marking them spawned.
func (t *Table) takePendingSpawn() []*Entity {
	ids := t.pendingSpawn.ToSlice()
	t.pendingSpawn.Clear()
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if s := &t.slots[id.slot()]; s.state == slotPendingSpawn {
			s.state = slotSpawned
			out = append(out, s.entity)
		}
	}
	return out
}

// takeDirty drains and returns every dirty live entity.
func (t *Table) takeDirty() []*Entity {
	ids := t.dirty.ToSlice()
	t.dirty.Clear()
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := t.TryGet(id); ok {
			out = append(out, e)
		}
	}
	return out
}

// takePendingDelete drains and returns entities destroyed since the last
// refresh.
func (t *Table) takePendingDelete() []*Entity {
	ids := t.pendingDelete.ToSlice()
	t.pendingDelete.Clear()
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := t.TryGet(id); ok {
			out = append(out, e)
		}
	}
	return out
}

// finalizeDestroy frees id's slot and bumps its generation, after the
// family engine has removed it from every family and its components have
// been destroyed through the deleter table.
func (t *Table) finalizeDestroy(e *Entity) {
	idx := e.id.slot()
	delete(t.byUUID, e.uuid)
	if p := e.parent; p != InvalidEntityID {
		if parent, ok := t.TryGet(p); ok {
			removeChild(parent, e.id)
		}
	}
	s := &t.slots[idx]
	s.entity = nil
	s.generation++
	s.state = slotFree
	t.freeSlots = append(t.freeSlots, idx)
	e.live = false
}

// SetParent links child under parent, propagating the world partition tag
// and bumping both revision counters.
func (t *Table) SetParent(child, parent EntityID) error {
	c, ok := t.TryGet(child)
	if !ok {
		return newError(ErrInvalidEntity, "unknown child entity").WithEntity(child)
	}
	if parent == InvalidEntityID {
		if c.parent != InvalidEntityID {
			if old, ok := t.TryGet(c.parent); ok {
				removeChild(old, child)
			}
		}
		c.parent = InvalidEntityID
		c.hierarchyRevision++
		return nil
	}
	p, ok := t.TryGet(parent)
	if !ok {
		return newError(ErrInvalidEntity, "unknown parent entity").WithEntity(parent)
	}
	if c.parent != InvalidEntityID {
		if old, ok := t.TryGet(c.parent); ok {
			removeChild(old, child)
		}
	}
	c.parent = parent
	c.worldPartition = p.worldPartition
	c.hierarchyRevision++
	p.children = append(p.children, child)
	p.childrenRevision++
	return nil
}

func removeChild(parent *Entity, child EntityID) {
	for i, c := range parent.children {
		if c == child {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			parent.childrenRevision++
			return
		}
	}
}
