package codegen

import (
	"errors"
	"fmt"

	"github.com/totodo713/ecsforge/internal/ecs"
)

// Errors returned by Registry, grounded on the teacher's mod/errors.go
// sentinel-error idiom (plain errors.New values, no custom Error type)
// rather than this package's structured *ecs.Error, since these are
// registration-time programmer errors rather than runtime entity errors.
var (
	ErrAlreadyRegistered = errors.New("codegen: already registered")
	ErrNotFound          = errors.New("codegen: not found")
	ErrUnknownDestination = errors.New("codegen: unknown destination")
)

// ComponentFactory constructs a zero-value instance of a registered
// component type, for the deserialize-then-populate path a snapshot reload
// drives.
type ComponentFactory func() ecs.Component

// MessageFactory constructs a zero-value instance of a registered message
// type.
type MessageFactory func() ecs.Message

// SystemFactory constructs a system bound against world. Generated system
// bases close over their FamilyBinding in the returned value.
type SystemFactory func(world *ecs.World) ecs.System

// Registry is the runtime half of the codegen contract: the name-to-index
// and name-to-factory maps a generated init() function populates, and that
// the mod-script bridge and snapshot loader both consult by name (spec §7
// "factory registries: component, system, message factories, plus a
// reflector"). Grounded on the teacher's mod/factory.go ModECSAPIFactoryImpl
// (a name-keyed map with create/destroy and an already-exists error),
// generalized from one factory kind to four.
type Registry struct {
	componentIndex    map[string]ecs.ComponentIndex
	componentFactory  map[string]ComponentFactory
	messageIndex      map[string]ecs.MessageIndex
	messageFactory    map[string]MessageFactory
	systemMessageIdx  map[string]ecs.MessageIndex
	systemFactory     map[string]SystemFactory
	componentFields   map[string][]FieldSchema
	messageFields     map[string][]FieldSchema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		componentIndex:   make(map[string]ecs.ComponentIndex),
		componentFactory: make(map[string]ComponentFactory),
		messageIndex:     make(map[string]ecs.MessageIndex),
		messageFactory:   make(map[string]MessageFactory),
		systemMessageIdx: make(map[string]ecs.MessageIndex),
		systemFactory:    make(map[string]SystemFactory),
		componentFields:  make(map[string][]FieldSchema),
		messageFields:    make(map[string][]FieldSchema),
	}
}

// LoadSchema assigns dense indices from s and records each declared type's
// fields for the reflector, but does not itself register any factory — a
// generated init() (or, in tests, a hand-written one) calls
// RegisterComponent/RegisterMessage/RegisterSystem separately to supply
// the constructor for each declared name.
func (r *Registry) LoadSchema(s *Schema) {
	r.componentIndex = s.AssignComponentIndices()
	r.messageIndex = s.AssignMessageIndices()
	r.systemMessageIdx = s.AssignSystemMessageIndices()
	for _, c := range s.Components {
		r.componentFields[c.Name] = c.Fields
	}
	for _, m := range s.Messages {
		r.messageFields[m.Name] = m.Fields
	}
}

// RegisterComponent installs factory as the constructor for the named
// component, which must already have an index from a loaded schema.
func (r *Registry) RegisterComponent(name string, factory ComponentFactory) error {
	if _, ok := r.componentIndex[name]; !ok {
		return fmt.Errorf("%w: component %q not declared in schema", ErrNotFound, name)
	}
	if _, exists := r.componentFactory[name]; exists {
		return fmt.Errorf("%w: component %q", ErrAlreadyRegistered, name)
	}
	r.componentFactory[name] = factory
	return nil
}

// RegisterMessage installs factory as the constructor for the named
// message type, whether declared as an entity-message ("messages:") or a
// system-message ("system_messages:") in the schema — both share the same
// name-to-factory space since NewMessage is the single construction path
// snapshot reload and the mod-script bridge both call by name.
func (r *Registry) RegisterMessage(name string, factory MessageFactory) error {
	_, isEntityMessage := r.messageIndex[name]
	_, isSystemMessage := r.systemMessageIdx[name]
	if !isEntityMessage && !isSystemMessage {
		return fmt.Errorf("%w: message %q not declared in schema", ErrNotFound, name)
	}
	if _, exists := r.messageFactory[name]; exists {
		return fmt.Errorf("%w: message %q", ErrAlreadyRegistered, name)
	}
	r.messageFactory[name] = factory
	return nil
}

// RegisterSystem installs factory as the constructor for the named system.
// Unlike components and messages, system names are not schema-indexed
// (systems have no wire identity), so any name is accepted on first use.
func (r *Registry) RegisterSystem(name string, factory SystemFactory) error {
	if _, exists := r.systemFactory[name]; exists {
		return fmt.Errorf("%w: system %q", ErrAlreadyRegistered, name)
	}
	r.systemFactory[name] = factory
	return nil
}

// ComponentIndex returns the dense index assigned to the named component.
func (r *Registry) ComponentIndex(name string) (ecs.ComponentIndex, bool) {
	idx, ok := r.componentIndex[name]
	return idx, ok
}

// MessageIndex returns the dense index assigned to the named entity-
// message.
func (r *Registry) MessageIndex(name string) (ecs.MessageIndex, bool) {
	idx, ok := r.messageIndex[name]
	return idx, ok
}

// SystemMessageIndex returns the dense index assigned to the named
// system-message.
func (r *Registry) SystemMessageIndex(name string) (ecs.MessageIndex, bool) {
	idx, ok := r.systemMessageIdx[name]
	return idx, ok
}

// NewComponent constructs a fresh instance of the named component type.
func (r *Registry) NewComponent(name string) (ecs.Component, error) {
	factory, ok := r.componentFactory[name]
	if !ok {
		return nil, fmt.Errorf("%w: component %q", ErrNotFound, name)
	}
	return factory(), nil
}

// NewMessage constructs a fresh instance of the named message type, entity
// message or system message alike.
func (r *Registry) NewMessage(name string) (ecs.Message, error) {
	factory, ok := r.messageFactory[name]
	if !ok {
		return nil, fmt.Errorf("%w: message %q", ErrNotFound, name)
	}
	return factory(), nil
}

// BuildSystem constructs the named system, bound against world.
func (r *Registry) BuildSystem(name string, world *ecs.World) (ecs.System, error) {
	factory, ok := r.systemFactory[name]
	if !ok {
		return nil, fmt.Errorf("%w: system %q", ErrNotFound, name)
	}
	return factory(world), nil
}

// Fields is the reflector: it returns the declared field schema for a
// component or message name, for tooling (editors, mod scripts) that needs
// to enumerate a type's shape without a concrete Go value in hand.
func (r *Registry) Fields(typeName string) ([]FieldSchema, bool) {
	if f, ok := r.componentFields[typeName]; ok {
		return f, true
	}
	f, ok := r.messageFields[typeName]
	return f, ok
}

// ParseDestination maps a schema's destination string to an ecs.Destination.
func ParseDestination(s string) (ecs.Destination, error) {
	switch s {
	case "", "local":
		return ecs.DestLocal, nil
	case "host":
		return ecs.DestHost, nil
	case "all_clients":
		return ecs.DestAllClients, nil
	case "remote_clients":
		return ecs.DestRemoteClients, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDestination, s)
	}
}
