package ecs

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Scheduler drives systems across the three fixed timelines (spec §4.6).
// Within a timeline, systems run in registration order; a system's own
// row set may run concurrently (StrategyParallel) via parallel_for, but
// systems never run concurrently with each other — only one system's rows
// are ever in flight at a time, which keeps cross-system ordering
// deterministic without needing full dependency analysis.
//
// Grounded on the teacher's game.go Update loop (a flat, hardcoded call
// sequence over concrete systems); this generalizes that into a
// timeline-indexed, strategy-aware dispatch table, with init_base/entity-
// message-dispatch/system-message-drain steps spec §4.6 step 1-2 add
// around each system's own update.
type Scheduler struct {
	engine  *FamilyEngine
	table   *Table
	bus     *MessageBus
	systems map[Timeline][]System

	initialized map[string]bool
}

// NewScheduler creates a scheduler driving families through engine, rows
// through table, and system messages through bus.
func NewScheduler(engine *FamilyEngine, table *Table, bus *MessageBus) *Scheduler {
	return &Scheduler{
		engine:      engine,
		table:       table,
		bus:         bus,
		systems:     make(map[Timeline][]System),
		initialized: make(map[string]bool),
	}
}

// Register adds s to its declared timeline, appended after any
// already-registered system on that timeline. If s implements
// SystemMessageReceiver, it is also subscribed to the bus for every
// message index it declares interest in. Returns ErrSchemaConflict if s is
// StrategyParallel and writes a component index another StrategyParallel
// system on the same timeline also writes, since the two systems'
// parallel_for rows could then race on shared component storage if they
// were ever reordered to overlap.
func (s *Scheduler) Register(sys System) error {
	if sys.Strategy() == StrategyParallel {
		for _, existing := range s.systems[sys.Timeline()] {
			if existing.Strategy() != StrategyParallel {
				continue
			}
			if writeOverlap(sys.Access(), existing.Access()) {
				return newError(ErrSchemaConflict, fmt.Sprintf(
					"parallel systems %q and %q both write an overlapping component on timeline %s",
					sys.Name(), existing.Name(), sys.Timeline())).WithSystem(sys.Name())
			}
		}
	}
	if recv, ok := sys.(SystemMessageReceiver); ok && s.bus != nil {
		for _, idx := range recv.SystemMessageInterest() {
			s.bus.Subscribe(sys.Name(), idx)
		}
	}
	s.systems[sys.Timeline()] = append(s.systems[sys.Timeline()], sys)
	return nil
}

func writeOverlap(a, b []ComponentAccess) bool {
	writes := make(map[ComponentIndex]bool, len(a))
	for _, acc := range a {
		if acc.Mode == AccessWrite {
			writes[acc.Index] = true
		}
	}
	for _, acc := range b {
		if acc.Mode == AccessWrite && writes[acc.Index] {
			return true
		}
	}
	return false
}

// Step runs every system registered on timeline, in order, with the given
// delta time, per spec §4.6: (1) a system stepped for the first time gets
// its init_base called first; (2) each system dispatches its pending
// entity messages, runs its own update, then drains its system-message
// inbox; (3) once every system in the timeline has returned, World.Step
// runs Refresh. The first system error stops the timeline and is returned.
func (s *Scheduler) Step(ctx context.Context, timeline Timeline, dt float64) error {
	for _, sys := range s.systems[timeline] {
		if err := s.runSystem(ctx, sys, dt); err != nil {
			return fmt.Errorf("system %q: %w", sys.Name(), err)
		}
	}
	return nil
}

func (s *Scheduler) runSystem(ctx context.Context, sys System, dt float64) error {
	if init, ok := sys.(Initializer); ok && !s.initialized[sys.Name()] {
		if err := init.Init(); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		s.initialized[sys.Name()] = true
	}

	if recv, ok := sys.(EntityMessageReceiver); ok {
		s.dispatchEntityMessages(recv)
	}

	if err := s.runUpdate(ctx, sys, dt); err != nil {
		return err
	}

	if recv, ok := sys.(SystemMessageReceiver); ok && s.bus != nil {
		s.drainSystemMessages(recv)
	}
	return nil
}

// dispatchEntityMessages hands recv every message, of every index it
// declared interest in, still queued in the inboxes of entities belonging
// to its receiving family, in (entity order within family, then enqueue
// order within entity) — spec §4.7's delivery order.
func (s *Scheduler) dispatchEntityMessages(recv EntityMessageReceiver) {
	rowSys, ok := recv.(RowSystem)
	if !ok || s.table == nil {
		return
	}
	interest := recv.EntityMessageInterest()
	if len(interest) == 0 {
		return
	}
	for _, id := range s.engine.EntitiesOf(rowSys.FamilyName()) {
		e, ok := s.table.TryGet(id)
		if !ok {
			continue
		}
		for _, idx := range interest {
			for _, msg := range e.ConsumeInbox(idx) {
				recv.OnMessageReceived(id, msg)
			}
		}
	}
}

// drainSystemMessages hands recv every system message queued for it since
// the last drain, invoking any per-message callback synchronously with the
// handler's result once it returns (spec §4.7 "the engine invokes callback
// directly (local)").
func (s *Scheduler) drainSystemMessages(recv SystemMessageReceiver) {
	for _, msg := range s.bus.Drain(recv.Name()) {
		result, err := recv.OnSystemMessage(msg)
		if msg.Callback != nil {
			msg.Callback(result, err)
		}
	}
}

func (s *Scheduler) runUpdate(ctx context.Context, sys System, dt float64) error {
	switch typed := sys.(type) {
	case GlobalSystem:
		return typed.Update(dt)
	case RowSystem:
		rows := s.engine.Rows(typed.FamilyName())
		switch sys.Strategy() {
		case StrategyIndividual:
			for _, row := range rows {
				if err := typed.UpdateRow(dt, row); err != nil {
					return err
				}
			}
			return nil
		case StrategyParallel:
			return parallelFor(ctx, rows, func(row interface{}) error {
				return typed.UpdateRow(dt, row)
			})
		default:
			return newError(ErrSchemaConflict, "row system declared StrategyGlobal").WithSystem(sys.Name())
		}
	default:
		return newError(ErrUnknownSystem, "system implements neither GlobalSystem nor RowSystem").WithSystem(sys.Name())
	}
}

// parallelFor runs fn once per element of rows concurrently, using
// errgroup to return the first error; every row's fn still runs, since fn
// takes no context and nothing is cancelled — the
// parallel_for primitive spec §4.6 names for StrategyParallel systems.
func parallelFor(ctx context.Context, rows []interface{}, fn func(interface{}) error) error {
	g, _ := errgroup.WithContext(ctx)
	for _, row := range rows {
		row := row
		g.Go(func() error { return fn(row) })
	}
	return g.Wait()
}
