package ecs

import (
	"sort"

	"github.com/totodo713/ecsforge/internal/ecs/mask"
)

// RowLoader builds a family's row representation for an entity that
// matches the family's inclusion mask. Codegen emits one of these per
// declared family (spec §4.8 "generated row types ... loadComponents"); it
// returns ok=false only if a component the family requires turns out
// unreadable, which should not happen for an entity the mask already
// admitted. A loader for a family with optional components reads those
// through GetComponent and tolerates the "missing" error, leaving the
// corresponding row field nil/zero.
type RowLoader func(e *Entity) (row interface{}, ok bool)

// FamilyListener observes membership and reload events for one family. A
// system base codegen generates embeds a binding that implements this to
// learn when rows enter, leave, or are refreshed in place.
type FamilyListener interface {
	OnAdd(id EntityID)
	OnRemove(id EntityID)
	OnReload(id EntityID)
}

// anchoredRow is satisfied by any row type that embeds RowHeader. Because
// setAnchor is declared in this package, Go's promoted-method rule lets a
// row type defined in another package (e.g. a codegen-generated row, or
// cmd/ecsdemo's demo row) still satisfy this unexported-method interface
// purely by embedding RowHeader — no row type needs to live in package ecs
// for the family engine to manage its anchor.
type anchoredRow interface {
	setAnchor(Anchor)
}

// RowHeader is the embeddable anchor/identity prefix a family row carries,
// matching spec §4.8's generated row shape "{anchor, entity_id,
// component_ptr_1..k}". Embedding it opts a row into the weak-reference
// scheme family.go maintains (spec §4.4's nullable-reference-anchor
// requirement); rows that don't embed it are still tracked by a parallel
// anchor array at the family level, so FamilyBinding.WeakRef works
// regardless, but only an embedding row gets its own anchor field updated
// in place.
type RowHeader struct {
	Entity EntityID
	anchor Anchor
}

func (h *RowHeader) setAnchor(a Anchor) { h.anchor = a }

// Anchor returns the row's current anchor.
func (h *RowHeader) Anchor() Anchor { return h.anchor }

// family holds one family's inclusion/optional masks, its current rows in
// swap-to-tail order, the reverse index from entity to row slot, and the
// three per-refresh mutation queues spec §4.4's update_entities batch
// algorithm drains in order: admit, reload, then compact removals.
type family struct {
	name      string
	registry  *mask.Registry
	inclusion MaskHandle // bits a row must have to be a member
	optional  MaskHandle // bits that, if present, are also loaded
	watched   MaskHandle // inclusion ∪ optional: any change here triggers a reload
	loader    RowLoader
	listeners []FamilyListener

	rows     []interface{}
	entityOf []EntityID
	anchors  []Anchor
	indexOf  map[EntityID]int
	arena    *AnchorArena

	toAdd        []*Entity
	toReload     []*Entity
	toRemove     []EntityID
	queuedAdd    map[EntityID]bool
	queuedRemove map[EntityID]bool
}

func newFamily(name string, registry *mask.Registry, inclusion, optional MaskHandle, loader RowLoader) *family {
	watched := registry.Intern(registry.Bits(inclusion).Union(registry.Bits(optional)))
	return &family{
		name:         name,
		registry:     registry,
		inclusion:    inclusion,
		optional:     optional,
		watched:      watched,
		loader:       loader,
		indexOf:      make(map[EntityID]int),
		arena:        NewAnchorArena(),
		queuedAdd:    make(map[EntityID]bool),
		queuedRemove: make(map[EntityID]bool),
	}
}

func (f *family) contains(h MaskHandle) bool {
	return f.registry.Contains(h, f.inclusion)
}

func (f *family) queueAdd(e *Entity) {
	if f.queuedAdd[e.id] {
		return
	}
	f.queuedAdd[e.id] = true
	f.toAdd = append(f.toAdd, e)
}

func (f *family) queueReload(e *Entity) {
	f.toReload = append(f.toReload, e)
}

func (f *family) queueRemove(id EntityID) {
	if f.queuedRemove[id] {
		return
	}
	f.queuedRemove[id] = true
	f.toRemove = append(f.toRemove, id)
}

// updateEntities drains this family's three queues in the exact order spec
// §4.4 requires: append every admitted row and fire on-added as a batch,
// then reload rows in place and fire on-reloaded as a batch, then compact
// removed rows to the tail (binary search against a sorted to_remove list,
// forward scan, swap-to-tail) and fire on-removed once per row in the
// trailing contiguous span that step produces.
func (f *family) updateEntities() {
	f.runAdds()
	f.runReloads()
	f.runRemovals()
}

func (f *family) runAdds() {
	if len(f.toAdd) == 0 {
		return
	}
	pending := f.toAdd
	f.toAdd = nil
	f.queuedAdd = make(map[EntityID]bool)

	added := make([]EntityID, 0, len(pending))
	for _, e := range pending {
		if _, exists := f.indexOf[e.id]; exists {
			continue
		}
		row, ok := f.loader(e)
		if !ok {
			continue
		}
		anc := f.arena.New()
		if rr, ok := row.(anchoredRow); ok {
			rr.setAnchor(anc)
		}
		f.indexOf[e.id] = len(f.rows)
		f.rows = append(f.rows, row)
		f.entityOf = append(f.entityOf, e.id)
		f.anchors = append(f.anchors, anc)
		added = append(added, e.id)
	}
	for _, id := range added {
		for _, l := range f.listeners {
			l.OnAdd(id)
		}
	}
}

func (f *family) runReloads() {
	if len(f.toReload) == 0 {
		return
	}
	pending := f.toReload
	f.toReload = nil

	reloaded := make([]EntityID, 0, len(pending))
	for _, e := range pending {
		i, ok := f.indexOf[e.id]
		if !ok {
			continue
		}
		row, ok := f.loader(e)
		if !ok {
			// the entity no longer satisfies the family's data
			// requirements despite still matching on mask; treat as a
			// removal rather than leaving a stale row in place.
			f.queueRemove(e.id)
			continue
		}
		if rr, ok := row.(anchoredRow); ok {
			rr.setAnchor(f.anchors[i])
		}
		f.rows[i] = row
		reloaded = append(reloaded, e.id)
	}
	for _, id := range reloaded {
		for _, l := range f.listeners {
			l.OnReload(id)
		}
	}
}

func (f *family) runRemovals() {
	if len(f.toRemove) == 0 {
		return
	}
	pending := f.toRemove
	f.toRemove = nil
	f.queuedRemove = make(map[EntityID]bool)

	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	n := forEachSwapRemove(len(f.rows), func(i int) bool {
		id := f.entityOf[i]
		k := sort.Search(len(pending), func(k int) bool { return pending[k] >= id })
		if k < len(pending) && pending[k] == id {
			pending = append(pending[:k], pending[k+1:]...)
			return true
		}
		return false
	}, func(i, j int) {
		f.rows[i], f.rows[j] = f.rows[j], f.rows[i]
		f.entityOf[i], f.entityOf[j] = f.entityOf[j], f.entityOf[i]
		f.anchors[i], f.anchors[j] = f.anchors[j], f.anchors[i]
		f.indexOf[f.entityOf[i]] = i
	})

	removedIDs := append([]EntityID(nil), f.entityOf[n:]...)
	removedAnchors := append([]Anchor(nil), f.anchors[n:]...)
	for _, id := range removedIDs {
		delete(f.indexOf, id)
	}
	f.rows = f.rows[:n]
	f.entityOf = f.entityOf[:n]
	f.anchors = f.anchors[:n]

	for _, anc := range removedAnchors {
		f.arena.Invalidate(anc)
	}
	for _, id := range removedIDs {
		for _, l := range f.listeners {
			l.OnRemove(id)
		}
	}
}

// FamilyEngine owns every registered family and drives membership
// transitions during World.Refresh, per spec §4.4: a family is the set of
// entities whose mask is a superset of an inclusion mask, with an optional
// mask of components that are loaded when present but do not gate
// membership. Rows are (re)loaded by codegen-emitted loaders and kept
// swap-to-tail dense.
//
// Grounded on the teacher's world.go family/query bookkeeping (a map of
// ComponentBitSet to []EntityID rebuilt wholesale every frame); this
// version keeps rows incrementally instead of rebuilding, queuing mutations
// during a tick and replaying them once per refresh via updateEntities, per
// spec §4.3/§4.4's "queue all per-family mutations and replay add → reload
// → remove once per refresh" requirement.
type FamilyEngine struct {
	registry *mask.Registry
	families map[string]*family
	order    []string
}

// NewFamilyEngine creates an engine interning masks through registry.
func NewFamilyEngine(registry *mask.Registry) *FamilyEngine {
	return &FamilyEngine{
		registry: registry,
		families: make(map[string]*family),
	}
}

// Register declares a family under name with the given inclusion mask,
// optional mask, and row loader. Registering the same name twice returns
// ErrSchemaConflict.
func (fe *FamilyEngine) Register(name string, inclusion, optional MaskHandle, loader RowLoader) error {
	if _, exists := fe.families[name]; exists {
		return newError(ErrSchemaConflict, "family already registered: "+name)
	}
	fe.families[name] = newFamily(name, fe.registry, inclusion, optional, loader)
	fe.order = append(fe.order, name)
	return nil
}

// AddListener attaches l to the named family's add/remove/reload events.
func (fe *FamilyEngine) AddListener(name string, l FamilyListener) error {
	f, ok := fe.families[name]
	if !ok {
		return newError(ErrUnknownSystem, "no such family: "+name)
	}
	f.listeners = append(f.listeners, l)
	return nil
}

// Rows returns the named family's current row set. The returned slice
// aliases internal storage and must not be retained past the next
// Refresh.
func (fe *FamilyEngine) Rows(name string) []interface{} {
	f, ok := fe.families[name]
	if !ok {
		return nil
	}
	return f.rows
}

// EntitiesOf returns the named family's current entity ids, in the same
// swap-to-tail order as Rows. Used by the scheduler to dispatch entity
// messages to a RowSystem's receiving family (spec §4.7 "delivery order:
// entity order within family, then enqueue order within entity").
func (fe *FamilyEngine) EntitiesOf(name string) []EntityID {
	f, ok := fe.families[name]
	if !ok {
		return nil
	}
	return f.entityOf
}

// weakRef takes a WeakRef against the row currently held for id in the
// named family, or false if id is not a current member.
func (fe *FamilyEngine) weakRef(name string, id EntityID) (WeakRef, bool) {
	f, ok := fe.families[name]
	if !ok {
		return WeakRef{}, false
	}
	i, ok := f.indexOf[id]
	if !ok {
		return WeakRef{}, false
	}
	return f.arena.Ref(f.anchors[i]), true
}

// validRef reports whether ref still observes a live row in the named
// family.
func (fe *FamilyEngine) validRef(name string, ref WeakRef) bool {
	f, ok := fe.families[name]
	if !ok {
		return false
	}
	return f.arena.Valid(ref)
}

// onSpawn queues a newly spawned entity for admission into every family
// whose inclusion mask its committed mask satisfies. The admission itself
// happens later, in updateEntities.
func (fe *FamilyEngine) onSpawn(e *Entity) {
	for _, name := range fe.order {
		f := fe.families[name]
		if f.contains(e.mask) {
			f.queueAdd(e)
		}
	}
}

// onMaskChanged queues one entity's family membership reconciliation after
// its committed mask moves from oldMask to newMask (or stays the same but
// its component data changed in place, signalled by oldMask == newMask
// with dataChanged set). A family whose watched mask (inclusion ∪
// optional) changes while the entity remains a member is queued for
// reload, not just one whose inclusion bits changed, since an optional
// component appearing or disappearing must still re-resolve the row.
func (fe *FamilyEngine) onMaskChanged(e *Entity, oldMask, newMask MaskHandle, dataChanged bool) {
	for _, name := range fe.order {
		f := fe.families[name]
		wasIn := f.contains(oldMask)
		isIn := f.contains(newMask)
		switch {
		case !wasIn && isIn:
			f.queueAdd(e)
		case wasIn && !isIn:
			f.queueRemove(e.id)
		case wasIn && isIn:
			if oldMask == newMask {
				if dataChanged {
					f.queueReload(e)
				}
			} else if fe.registry.ChangedBetween(oldMask, newMask, f.watched) {
				f.queueReload(e)
			}
		}
	}
}

// onDestroy queues id for removal from every family it currently belongs
// to (or is queued to join this tick).
func (fe *FamilyEngine) onDestroy(e *Entity) {
	for _, name := range fe.order {
		f := fe.families[name]
		if _, present := f.indexOf[e.id]; present || f.queuedAdd[e.id] {
			f.queueRemove(e.id)
		}
	}
}

// updateEntities replays every family's queued add/reload/remove mutations
// in registration order. Called once per World.Refresh, after every
// spawn/dirty/destroy event for the tick has been queued, so that — per
// spec §4.3's worked example — an entity spawned the same tick a sibling
// row is destroyed is admitted before the destroyed row is compacted away.
func (fe *FamilyEngine) updateEntities() {
	for _, name := range fe.order {
		fe.families[name].updateEntities()
	}
}
