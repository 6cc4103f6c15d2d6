package ecs

// Component is the contract every component type satisfies. The runtime
// never inspects a concrete component type directly: it reaches components
// only through the deleter table (compstore.DeleterTable) and through the
// family row loaders codegen emits (§4.8). Grounded on the teacher's
// world.go Component interface, trimmed to the serialize/index contract
// spec §3 actually requires — the teacher's Clone/Validate/Size methods are
// dropped because nothing in this spec's family/message/snapshot paths
// calls them (see DESIGN.md).
type Component interface {
	// ComponentIndex returns the dense index codegen assigned this type.
	ComponentIndex() ComponentIndex
	// Serialize converts the component to bytes for snapshotting.
	Serialize() ([]byte, error)
	// Deserialize loads component state from bytes produced by Serialize.
	Deserialize([]byte) error
}

// componentSlot pairs a component index with its value, kept in a sorted
// slice on each Entity (spec §3: "vector of (component_index, component_ptr)
// pairs, kept sorted by component_index").
type componentSlot struct {
	index ComponentIndex
	value Component
}
