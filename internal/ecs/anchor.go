package ecs

// AnchorArena backs the nullable-reference-anchor mechanism spec §4.4 and
// Design Notes §9 describe: "observers must be invalidated exactly when the
// observed row dies; observation must not keep the row alive." Rather than
// the original C++ engine's intrusive doubly-linked list of back-pointers
// embedded in each row (see
// _examples/original_source/.../nullable_reference.h), this spec uses an
// arena of stable slots plus a generation counter per slot: a WeakRef is
// {slot, generation}; dereferencing checks the generation, and destroying a
// row bumps its slot's generation so every outstanding WeakRef resolves to
// absent without walking a list.
type AnchorArena struct {
	generation []uint32
	free       []int32
}

// NewAnchorArena creates an empty arena.
func NewAnchorArena() *AnchorArena {
	return &AnchorArena{}
}

// Anchor identifies one arena slot: the stable identity a family row embeds
// so other code can take a WeakRef into it.
type Anchor struct {
	slot int32
}

// New allocates a fresh anchor slot (generation 0 on first use).
func (a *AnchorArena) New() Anchor {
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		return Anchor{slot: slot}
	}
	slot := int32(len(a.generation))
	a.generation = append(a.generation, 0)
	return Anchor{slot: slot}
}

// Invalidate bumps the slot's generation, making every outstanding WeakRef
// taken against the previous generation resolve to absent, and returns the
// slot to the free list. Called when the row the anchor was embedded in is
// destroyed.
func (a *AnchorArena) Invalidate(anc Anchor) {
	a.generation[anc.slot]++
	a.free = append(a.free, anc.slot)
}

// Ref returns a WeakRef observing anc at its current generation.
func (a *AnchorArena) Ref(anc Anchor) WeakRef {
	return WeakRef{slot: anc.slot, generation: a.generation[anc.slot]}
}

// WeakRef is a non-owning, invalidation-safe reference to a family row.
// Holding one never keeps the row alive.
type WeakRef struct {
	slot       int32
	generation uint32
}

// Valid reports whether the row this WeakRef was taken against is still
// alive (its anchor has not been invalidated since).
func (a *AnchorArena) Valid(w WeakRef) bool {
	if int(w.slot) >= len(a.generation) {
		return false
	}
	return a.generation[w.slot] == w.generation
}
