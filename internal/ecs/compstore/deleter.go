// Package compstore provides the component deleter table: the type-erased
// per-component destructor registry the runtime consults instead of a
// global type registry (spec §4.2).
package compstore

import (
	"fmt"
	"sync"
)

// Index is the dense integer a codegen pass assigns to a component type.
type Index int32

// Destructor releases any resources held by a component value before its
// slot is reused. Most components are plain data and use NopDestructor.
type Destructor func(v interface{})

// NopDestructor is the default destructor for plain-data components.
func NopDestructor(interface{}) {}

// entry pairs a destructor with the size hint codegen emits for a type.
type entry struct {
	destroy Destructor
	size    int
}

// DeleterTable holds one destructor and size per component Index. It is
// process-wide, append-only state after warmup (spec §5 "Shared-resource
// policy"): registering the same index twice with an identical size is a
// no-op, mirroring the teacher's RegisterComponentType idempotency check in
// storage/component_store.go, generalized from "already registered is an
// error" to "already registered with the same shape is a no-op" per spec
// §4.2 ("Adding a component of an already-seen type is idempotent").
type DeleterTable struct {
	mu      sync.RWMutex
	entries map[Index]entry
}

// NewDeleterTable creates an empty table.
func NewDeleterTable() *DeleterTable {
	return &DeleterTable{entries: make(map[Index]entry)}
}

// Register installs the destructor and size for a component index. It is
// idempotent when called again with the same size; a size mismatch is a
// programming error (the codegen contract assigning two different shapes to
// one index) and returns an error instead of silently overwriting.
func (t *DeleterTable) Register(idx Index, size int, destroy Destructor) error {
	if destroy == nil {
		destroy = NopDestructor
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.entries[idx]; ok {
		if existing.size != size {
			return fmt.Errorf("compstore: component index %d re-registered with size %d, previously %d", idx, size, existing.size)
		}
		return nil
	}
	t.entries[idx] = entry{destroy: destroy, size: size}
	return nil
}

// IsRegistered reports whether idx has a destructor installed.
func (t *DeleterTable) IsRegistered(idx Index) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[idx]
	return ok
}

// SizeOf returns the registered size for idx, or 0 if unregistered.
func (t *DeleterTable) SizeOf(idx Index) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[idx].size
}

// Destroy invokes the registered destructor for idx on v. It is a no-op if
// idx was never registered (defensive: destruction must never panic the
// refresh loop over a stale component).
func (t *DeleterTable) Destroy(idx Index, v interface{}) {
	t.mu.RLock()
	d := t.entries[idx].destroy
	t.mu.RUnlock()
	if d != nil {
		d(v)
	}
}
