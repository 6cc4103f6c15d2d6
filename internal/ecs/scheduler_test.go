package ecs

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totodo713/ecsforge/internal/ecs/mask"
)

type parallelCountSystem struct {
	family string
	access []ComponentAccess
	calls  *int64
}

func (s parallelCountSystem) Name() string             { return "parallel-count" }
func (s parallelCountSystem) Timeline() Timeline        { return TimelineVariableUpdate }
func (s parallelCountSystem) Strategy() Strategy        { return StrategyParallel }
func (s parallelCountSystem) Access() []ComponentAccess { return s.access }
func (s parallelCountSystem) FamilyName() string        { return s.family }
func (s parallelCountSystem) UpdateRow(dt float64, row interface{}) error {
	atomic.AddInt64(s.calls, 1)
	return nil
}

func TestSchedulerParallelStrategyVisitsEveryRow(t *testing.T) {
	registry := mask.NewRegistry()
	engine := NewFamilyEngine(registry)
	required := registry.Intern(maskBits{}.Set(int(compA)))
	require.NoError(t, engine.Register("withA", required, mask.Zero, posLoader))

	for i := 0; i < 50; i++ {
		e := newEntity(EntityID(i))
		e.AddComponent(compA, &testComponent{idx: compA, value: i})
		e.mask = registry.Intern(e.currentBits())
		engine.onSpawn(e)
	}
	engine.updateEntities()

	sched := NewScheduler(engine, NewTable(), NewMessageBus(NopTransport{}))
	var calls int64
	require.NoError(t, sched.Register(parallelCountSystem{family: "withA", calls: &calls}))

	require.NoError(t, sched.Step(context.Background(), TimelineVariableUpdate, 1.0/60))
	assert.Equal(t, int64(50), calls)
}

func TestSchedulerRejectsOverlappingParallelWrites(t *testing.T) {
	registry := mask.NewRegistry()
	engine := NewFamilyEngine(registry)
	sched := NewScheduler(engine, NewTable(), NewMessageBus(NopTransport{}))

	var calls int64
	write := []ComponentAccess{{Index: compA, Mode: AccessWrite}}
	require.NoError(t, sched.Register(parallelCountSystem{family: "f1", access: write, calls: &calls}))

	second := parallelCountSystem{family: "f2", access: write, calls: &calls}
	err := sched.Register(second)
	assert.Error(t, err)
}

type initCountSystem struct {
	name      string
	initCalls *int
	updates   *int
}

func (s initCountSystem) Name() string             { return s.name }
func (s initCountSystem) Timeline() Timeline        { return TimelineVariableUpdate }
func (s initCountSystem) Strategy() Strategy        { return StrategyGlobal }
func (s initCountSystem) Access() []ComponentAccess { return nil }
func (s initCountSystem) Init() error               { *s.initCalls++; return nil }
func (s initCountSystem) Update(dt float64) error   { *s.updates++; return nil }

func TestSchedulerInitRunsOnceBeforeFirstUpdate(t *testing.T) {
	registry := mask.NewRegistry()
	engine := NewFamilyEngine(registry)
	sched := NewScheduler(engine, NewTable(), NewMessageBus(NopTransport{}))

	var inits, updates int
	require.NoError(t, sched.Register(initCountSystem{name: "init-me", initCalls: &inits, updates: &updates}))

	require.NoError(t, sched.Step(context.Background(), TimelineVariableUpdate, 1.0/60))
	require.NoError(t, sched.Step(context.Background(), TimelineVariableUpdate, 1.0/60))
	require.NoError(t, sched.Step(context.Background(), TimelineVariableUpdate, 1.0/60))

	assert.Equal(t, 1, inits, "init_base must run exactly once regardless of step count")
	assert.Equal(t, 3, updates)
}

type entityMsgRow struct {
	RowHeader
	Pos *testComponent
}

func entityMsgLoader(e *Entity) (interface{}, bool) {
	c, err := e.GetComponent(compA)
	if err != nil {
		return nil, false
	}
	return &entityMsgRow{RowHeader: RowHeader{Entity: e.ID()}, Pos: c.(*testComponent)}, true
}

type entityMsgSystem struct {
	family   string
	received []MessageIndex
}

func (s *entityMsgSystem) Name() string                         { return "entity-msg" }
func (s *entityMsgSystem) Timeline() Timeline                   { return TimelineVariableUpdate }
func (s *entityMsgSystem) Strategy() Strategy                   { return StrategyIndividual }
func (s *entityMsgSystem) Access() []ComponentAccess             { return nil }
func (s *entityMsgSystem) FamilyName() string                   { return s.family }
func (s *entityMsgSystem) UpdateRow(dt float64, row interface{}) error { return nil }
func (s *entityMsgSystem) EntityMessageInterest() []MessageIndex { return []MessageIndex{7} }
func (s *entityMsgSystem) OnMessageReceived(entity EntityID, msg Message) {
	s.received = append(s.received, msg.MessageIndex())
}

func TestSchedulerDispatchesEntityMessagesBeforeUpdate(t *testing.T) {
	w := NewWorld(NopTransport{})
	require.NoError(t, w.RegisterFamily("withA", []ComponentIndex{compA}, nil, entityMsgLoader))

	id, _ := w.CreateEntity()
	require.NoError(t, w.AddComponent(id, compA, &testComponent{idx: compA}))
	require.NoError(t, w.Refresh())

	e, _ := w.Table.TryGet(id)
	e.SendMessage(7, &testMessage{idx: 7, value: 1}, -1)

	sys := &entityMsgSystem{family: "withA"}
	require.NoError(t, w.RegisterSystem(sys))

	require.NoError(t, w.Step(context.Background(), TimelineVariableUpdate, 1.0/60))
	assert.Equal(t, []MessageIndex{7}, sys.received)
	assert.Empty(t, e.Inbox(), "dispatched message must be consumed from the entity's inbox")
}

type unicastSystem struct {
	name     string
	handled  []int
	lastErr  error
	override func(msg SystemMessage) (interface{}, error)
}

func (s *unicastSystem) Name() string                    { return s.name }
func (s *unicastSystem) Timeline() Timeline               { return TimelineVariableUpdate }
func (s *unicastSystem) Strategy() Strategy               { return StrategyGlobal }
func (s *unicastSystem) Access() []ComponentAccess        { return nil }
func (s *unicastSystem) Update(dt float64) error          { return nil }
func (s *unicastSystem) SystemMessageInterest() []MessageIndex { return []MessageIndex{3} }
func (s *unicastSystem) OnSystemMessage(msg SystemMessage) (interface{}, error) {
	if s.override != nil {
		return s.override(msg)
	}
	s.handled = append(s.handled, msg.Payload.(*testMessage).value)
	return msg.Payload.(*testMessage).value * 2, nil
}

func TestSchedulerDrainsSystemMessagesAfterUpdateAndInvokesCallback(t *testing.T) {
	registry := mask.NewRegistry()
	engine := NewFamilyEngine(registry)
	bus := NewMessageBus(NopTransport{})
	sched := NewScheduler(engine, NewTable(), bus)

	sys := &unicastSystem{name: "unicast-sys"}
	require.NoError(t, sched.Register(sys))

	var callbackResult interface{}
	var callbackErr error
	require.NoError(t, bus.Publish(SystemMessage{
		Index:   3,
		Payload: &testMessage{idx: 3, value: 21},
		Callback: func(result interface{}, err error) {
			callbackResult = result
			callbackErr = err
		},
	}))

	require.NoError(t, sched.Step(context.Background(), TimelineVariableUpdate, 1.0/60))

	assert.Equal(t, []int{21}, sys.handled)
	require.NoError(t, callbackErr)
	assert.Equal(t, 42, callbackResult)
}

func TestSchedulerUnicastWithNoSubscriberFailsPublish(t *testing.T) {
	bus := NewMessageBus(NopTransport{})
	err := bus.Publish(SystemMessage{Index: 3, Payload: &testMessage{idx: 3}})
	assert.ErrorIs(t, err, Code(ErrNoRecipient))
}

func TestSchedulerAmbiguousUnicastAcrossTwoRegisteredSystems(t *testing.T) {
	registry := mask.NewRegistry()
	engine := NewFamilyEngine(registry)
	bus := NewMessageBus(NopTransport{})
	sched := NewScheduler(engine, NewTable(), bus)

	require.NoError(t, sched.Register(&unicastSystem{name: "a"}))
	require.NoError(t, sched.Register(&unicastSystem{name: "b"}))

	err := bus.Publish(SystemMessage{Index: 3, Payload: &testMessage{idx: 3, value: 1}})
	assert.ErrorIs(t, err, Code(ErrAmbiguousRecipient))
}

func TestSchedulerMulticastFansOutToEveryRegisteredSystem(t *testing.T) {
	registry := mask.NewRegistry()
	engine := NewFamilyEngine(registry)
	bus := NewMessageBus(NopTransport{})
	sched := NewScheduler(engine, NewTable(), bus)

	a := &unicastSystem{name: "a"}
	b := &unicastSystem{name: "b"}
	require.NoError(t, sched.Register(a))
	require.NoError(t, sched.Register(b))

	require.NoError(t, bus.Publish(SystemMessage{
		Index: 3, Payload: &testMessage{idx: 3, value: 5}, Multicast: true,
	}))

	require.NoError(t, sched.Step(context.Background(), TimelineVariableUpdate, 1.0/60))

	assert.Equal(t, []int{5}, a.handled)
	assert.Equal(t, []int{5}, b.handled)
}

func TestSchedulerAllowsNonOverlappingParallelWrites(t *testing.T) {
	registry := mask.NewRegistry()
	engine := NewFamilyEngine(registry)
	sched := NewScheduler(engine, NewTable(), NewMessageBus(NopTransport{}))

	var calls int64
	require.NoError(t, sched.Register(parallelCountSystem{
		family: "f1", access: []ComponentAccess{{Index: compA, Mode: AccessWrite}}, calls: &calls,
	}))
	err := sched.Register(parallelCountSystem{
		family: "f2", access: []ComponentAccess{{Index: compB, Mode: AccessWrite}}, calls: &calls,
	})
	assert.NoError(t, err)
}
