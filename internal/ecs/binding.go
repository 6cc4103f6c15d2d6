package ecs

// FamilyBinding gives a system typed access to one family's rows without
// forcing FamilyEngine itself to be generic over every row type a codegen
// schema might declare — the engine stores rows as interface{} and each
// binding narrows them back to Row at the call site. Grounded on the
// teacher's base_system.go, which hands concrete systems a typed slice
// computed from an ad hoc query each frame; this binding instead reads
// directly from FamilyEngine's incrementally maintained row set.
//
// Spec §4.5 requires, beyond simple iteration: len/random access (At),
// begin/end-style iteration (ForEach), a single accessor that fails unless
// exactly one row is present (Single), and a predicate-driven linear search
// with both a failing and a non-failing form (Match/TryMatch).
type FamilyBinding[Row any] struct {
	engine *FamilyEngine
	name   string
}

// NewFamilyBinding creates a typed view onto the named family. The family
// must already be registered with a loader that produces *Row values.
func NewFamilyBinding[Row any](engine *FamilyEngine, name string) *FamilyBinding[Row] {
	return &FamilyBinding[Row]{engine: engine, name: name}
}

// Rows returns the family's current rows, cast to *Row. A row whose loader
// produced a different concrete type is skipped rather than panicking,
// since that indicates a codegen/schema mismatch a caller should detect
// some other way, not crash a tick over.
func (b *FamilyBinding[Row]) Rows() []*Row {
	raw := b.engine.Rows(b.name)
	out := make([]*Row, 0, len(raw))
	for _, r := range raw {
		if typed, ok := r.(*Row); ok {
			out = append(out, typed)
		}
	}
	return out
}

// Len returns the family's current row count without allocating.
func (b *FamilyBinding[Row]) Len() int {
	return len(b.engine.Rows(b.name))
}

// ForEach calls fn once per current row, in swap-to-tail order (spec I4:
// unspecified and may change between ticks).
func (b *FamilyBinding[Row]) ForEach(fn func(row *Row)) {
	for _, r := range b.engine.Rows(b.name) {
		if typed, ok := r.(*Row); ok {
			fn(typed)
		}
	}
}

// At returns the row at index i in the family's current order, or false if
// i is out of range (spec §4.5 "random access").
func (b *FamilyBinding[Row]) At(i int) (*Row, bool) {
	raw := b.engine.Rows(b.name)
	if i < 0 || i >= len(raw) {
		return nil, false
	}
	typed, ok := raw[i].(*Row)
	return typed, ok
}

// Single returns the family's one row. It fails with ErrFamilyEmpty if the
// family has no rows, or ErrFamilyAmbiguous if it has more than one (spec
// §4.5 boundary B2: "single() fails unless exactly one row is present").
func (b *FamilyBinding[Row]) Single() (*Row, error) {
	raw := b.engine.Rows(b.name)
	switch len(raw) {
	case 0:
		return nil, newError(ErrFamilyEmpty, "family has no rows: "+b.name)
	case 1:
		typed, ok := raw[0].(*Row)
		if !ok {
			return nil, newError(ErrFamilyEmpty, "family row type mismatch: "+b.name)
		}
		return typed, nil
	default:
		return nil, newError(ErrFamilyAmbiguous, "family has more than one row: "+b.name)
	}
}

// Match returns the first row satisfying predicate, by linear scan in the
// family's current order, failing with ErrFamilyEmpty if none does (spec
// §4.5 "match(predicate)").
func (b *FamilyBinding[Row]) Match(predicate func(*Row) bool) (*Row, error) {
	row, ok := b.TryMatch(predicate)
	if !ok {
		return nil, newError(ErrFamilyEmpty, "no row matched predicate: "+b.name)
	}
	return row, nil
}

// TryMatch is Match without the error: it reports false instead of failing
// when no row satisfies predicate (spec §4.5 "try_match(predicate)").
func (b *FamilyBinding[Row]) TryMatch(predicate func(*Row) bool) (*Row, bool) {
	for _, r := range b.engine.Rows(b.name) {
		typed, ok := r.(*Row)
		if ok && predicate(typed) {
			return typed, true
		}
	}
	return nil, false
}

// Listen registers l against the bound family's add/remove/reload events.
func (b *FamilyBinding[Row]) Listen(l FamilyListener) error {
	return b.engine.AddListener(b.name, l)
}

// WeakRef takes a non-owning reference to id's row in this family, valid
// exactly until that row is removed (spec §4.4's anchor/weak-reference
// requirement). It returns false if id is not currently a member.
func (b *FamilyBinding[Row]) WeakRef(id EntityID) (WeakRef, bool) {
	return b.engine.weakRef(b.name, id)
}

// Valid reports whether ref still observes a live row in this family.
func (b *FamilyBinding[Row]) Valid(ref WeakRef) bool {
	return b.engine.validRef(b.name, ref)
}
