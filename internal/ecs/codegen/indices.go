package codegen

import (
	"sort"

	"github.com/totodo713/ecsforge/internal/ecs"
)

// AssignComponentIndices assigns each declared component a dense
// ComponentIndex in sorted-name order, so that two builds of the same
// schema always agree on indices regardless of declaration order in the
// YAML file (spec §4.8: "ids are dense and assigned deterministically from
// the sorted schema, not from declaration order, so a reordered YAML file
// does not change a previously-serialized snapshot's meaning").
func (s *Schema) AssignComponentIndices() map[string]ecs.ComponentIndex {
	names := s.ComponentNames()
	sort.Strings(names)
	out := make(map[string]ecs.ComponentIndex, len(names))
	for i, name := range names {
		out[name] = ecs.ComponentIndex(i)
	}
	return out
}

// AssignMessageIndices assigns each declared entity-message a dense
// MessageIndex in sorted-name order, on the same rationale as
// AssignComponentIndices.
func (s *Schema) AssignMessageIndices() map[string]ecs.MessageIndex {
	names := s.MessageNames()
	sort.Strings(names)
	out := make(map[string]ecs.MessageIndex, len(names))
	for i, name := range names {
		out[name] = ecs.MessageIndex(i)
	}
	return out
}

// AssignSystemMessageIndices assigns each declared system-message a dense
// MessageIndex, in a space shared with entity messages offset past the
// highest entity-message index, so a MessageBus subscription key never
// collides between the two message kinds.
func (s *Schema) AssignSystemMessageIndices() map[string]ecs.MessageIndex {
	base := ecs.MessageIndex(len(s.Messages))
	names := s.SystemMessageNames()
	sort.Strings(names)
	out := make(map[string]ecs.MessageIndex, len(names))
	for i, name := range names {
		out[name] = base + ecs.MessageIndex(i)
	}
	return out
}
