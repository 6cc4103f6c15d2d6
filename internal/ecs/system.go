package ecs

// AccessMode distinguishes a system's read-only component access from a
// mutating one, used only to validate that two systems placed in the same
// StrategyParallel group never race on the same component index (spec §4.6
// "access flags").
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
)

// ComponentAccess declares one component a system touches and how.
type ComponentAccess struct {
	Index ComponentIndex
	Mode  AccessMode
}

// Strategy selects how the scheduler drives a system across its bound
// family's rows, grounded on the teacher's base_system.go (one Update call
// per frame, no row concurrency) generalized to the three strategies spec
// §4.6 names.
type Strategy int

const (
	// StrategyGlobal calls the system's Update once per tick; the system
	// does its own iteration over whatever bindings it holds.
	StrategyGlobal Strategy = iota
	// StrategyIndividual calls UpdateRow once per matched row, in swap-
	// to-tail order, sequentially.
	StrategyIndividual
	// StrategyParallel calls UpdateRow once per matched row, concurrently,
	// via the parallel_for primitive (errgroup-backed, see scheduler.go).
	StrategyParallel
)

// System is the contract every scheduled system satisfies: identity,
// which timeline it runs on, and how the scheduler should drive it.
type System interface {
	Name() string
	Timeline() Timeline
	Strategy() Strategy
	Access() []ComponentAccess
}

// GlobalSystem is a System whose Update call handles its own iteration
// over whatever family bindings it holds. Used with StrategyGlobal.
type GlobalSystem interface {
	System
	Update(dt float64) error
}

// RowSystem is a System driven one row at a time against a single bound
// family. Used with StrategyIndividual and StrategyParallel. FamilyName
// names the family UpdateRow expects rows from; UpdateRow receives the
// family's loader-produced row value (the same interface{} FamilyEngine
// stores, to be type-asserted the way codegen-generated bases already do
// for FamilyBinding).
type RowSystem interface {
	System
	FamilyName() string
	UpdateRow(dt float64, row interface{}) error
}

// Initializer is implemented by a system whose init_base(spec §4.6 step 1)
// must run exactly once, the first time the scheduler ever steps its
// timeline, before its first update_base call.
type Initializer interface {
	Init() error
}

// EntityMessageReceiver is implemented by a system that wants entity
// messages dispatched to it before each of its update_base calls (spec
// §4.6 step 2, §4.7 "entity messages ... delivered at the start of each
// system's next update_base"). EntityMessageInterest declares which
// message indices the system wants delivered; OnMessageReceived is called
// once per matching message still queued in a receiving-family member's
// inbox, in (entity order within family, then enqueue order within entity).
type EntityMessageReceiver interface {
	System
	EntityMessageInterest() []MessageIndex
	OnMessageReceived(entity EntityID, msg Message)
}

// SystemMessageReceiver is implemented by a system that wants its
// system-message inbox drained after each of its update_base calls (spec
// §4.6 step 2, §4.7 "system messages"). SystemMessageInterest declares
// which message indices the system subscribes to on the bus.
// OnSystemMessage handles one delivered message and returns a result value
// (or nil) plus an error; for a unicast message with a callback, the
// scheduler invokes that callback with this return synchronously once
// OnSystemMessage returns.
type SystemMessageReceiver interface {
	System
	SystemMessageInterest() []MessageIndex
	OnSystemMessage(msg SystemMessage) (interface{}, error)
}
