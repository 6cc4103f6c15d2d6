// Package ecs implements the entity/component/family/system/message runtime
// described by the project's ECS specification: entity and component
// storage, family grouping by component-set membership, the system
// scheduler, and the two messaging planes that let systems communicate
// without direct coupling.
package ecs

import (
	"crypto/rand"
	"fmt"

	"github.com/totodo713/ecsforge/internal/ecs/compstore"
	"github.com/totodo713/ecsforge/internal/ecs/mask"
)

// EntityID is an opaque identifier for an entity. -1 is reserved as the
// invalid value. The low 32 bits are a slot index into the entity table;
// the high 32 bits are a generation counter that prevents a stale id from
// resolving to a slot that has since been recycled.
type EntityID int64

// InvalidEntityID is the reserved invalid value.
const InvalidEntityID EntityID = -1

func newEntityID(slot uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(slot))
}

func (id EntityID) slot() uint32       { return uint32(uint64(id)) }
func (id EntityID) generation() uint32 { return uint32(uint64(id) >> 32) }

// ComponentIndex is the dense integer a codegen pass assigns to a component
// type, the key into the deleter table and into an entity's sorted
// component-pointer list.
type ComponentIndex = compstore.Index

// MessageIndex is the dense integer assigned to an entity-message or
// system-message type.
type MessageIndex int32

// MaskHandle is an interned reference to a component-set bitmap.
type MaskHandle = mask.Handle

// maskBits is the raw bitmap type interned by MaskHandle values.
type maskBits = mask.Bits

// UUID is a 128-bit identity independent of EntityID, used by prefab and
// serialization paths and by external editors to name entities.
type UUID [16]byte

// NewUUID generates a random UUID (version-agnostic: the runtime only needs
// uniqueness, not RFC 4122 version bits). crypto/rand is used because no
// example repository in the corpus pulls in a dedicated UUID library for an
// ECS-shaped core; see DESIGN.md.
func NewUUID() UUID {
	var u UUID
	_, _ = rand.Read(u[:])
	return u
}

// String renders the UUID in the canonical 8-4-4-4-12 hex form.
func (u UUID) String() string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}

// IsZero reports whether u is the zero UUID (never assigned to a live
// entity).
func (u UUID) IsZero() bool {
	return u == UUID{}
}

// Timeline identifies one of the fixed execution phases a tick walks.
// Halley's original engine (see _examples/original_source) calls these
// TimeLine::FixedUpdate / VariableUpdate / Render; spec.md gestures at the
// same three phases without naming them, so this spelling is adopted
// directly from the original source per SPEC_FULL.md §4.6.
type Timeline int

const (
	TimelineFixedUpdate Timeline = iota
	TimelineVariableUpdate
	TimelineRender
	numTimelines
)

func (t Timeline) String() string {
	switch t {
	case TimelineFixedUpdate:
		return "fixed-update"
	case TimelineVariableUpdate:
		return "variable-update"
	case TimelineRender:
		return "render"
	default:
		return "unknown-timeline"
	}
}

// WorldPartition is the 8-bit tag propagated from a parent entity to its
// children (spec §3 Entity).
type WorldPartition uint8
