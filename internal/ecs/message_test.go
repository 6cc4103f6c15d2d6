package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMessage struct {
	idx   MessageIndex
	value int
}

func (m testMessage) MessageIndex() MessageIndex  { return m.idx }
func (m testMessage) Serialize() ([]byte, error)  { return []byte{byte(m.value)}, nil }
func (m *testMessage) Deserialize(b []byte) error { m.value = int(b[0]); return nil }

func TestEntityInboxSendAndConsume(t *testing.T) {
	tbl := NewTable()
	id, _ := tbl.Create()
	e, _ := tbl.TryGet(id)

	e.SendMessage(1, &testMessage{idx: 1, value: 42}, -1)
	assert.Len(t, e.Inbox(), 1)

	got := e.ConsumeInbox(1)
	require.Len(t, got, 1)
	assert.Equal(t, 42, got[0].(*testMessage).value)
	assert.Empty(t, e.Inbox())
}

func TestEntityInboxExpiresByTTL(t *testing.T) {
	tbl := NewTable()
	id, _ := tbl.Create()
	e, _ := tbl.TryGet(id)

	e.SendMessage(1, &testMessage{idx: 1}, 1)
	e.PumpInbox() // age 1, ttl 1: still alive
	assert.Len(t, e.Inbox(), 1)
	e.PumpInbox() // age 2, ttl 1: expired
	assert.Empty(t, e.Inbox())
}

func TestEntityInboxNoTTLNeverExpires(t *testing.T) {
	tbl := NewTable()
	id, _ := tbl.Create()
	e, _ := tbl.TryGet(id)

	e.SendMessage(1, &testMessage{idx: 1}, -1)
	for i := 0; i < 100; i++ {
		e.PumpInbox()
	}
	assert.Len(t, e.Inbox(), 1)
}

func TestMessageBusUnicastDeliversToSoleSubscriber(t *testing.T) {
	bus := NewMessageBus(NopTransport{})
	unsub := bus.Subscribe("sys-a", 5)

	err := bus.Publish(SystemMessage{Index: 5, Payload: &testMessage{idx: 5, value: 7}, Destination: DestLocal})
	require.NoError(t, err)

	drained := bus.Drain("sys-a")
	require.Len(t, drained, 1)
	assert.Equal(t, 7, drained[0].Payload.(*testMessage).value)

	unsub()
	require.ErrorIs(t, bus.Publish(SystemMessage{Index: 5, Destination: DestLocal, Target: ""}), Code(ErrNoRecipient))
}

func TestMessageBusUnicastWithNoSubscriberIsNoRecipient(t *testing.T) {
	bus := NewMessageBus(NopTransport{})
	err := bus.Publish(SystemMessage{Index: 5, Destination: DestLocal})
	assert.ErrorIs(t, err, Code(ErrNoRecipient))
}

func TestMessageBusUnicastWithMultipleSubscribersIsAmbiguous(t *testing.T) {
	bus := NewMessageBus(NopTransport{})
	bus.Subscribe("sys-a", 5)
	bus.Subscribe("sys-b", 5)

	err := bus.Publish(SystemMessage{Index: 5, Destination: DestLocal})
	assert.ErrorIs(t, err, Code(ErrAmbiguousRecipient))
}

func TestMessageBusUnicastTargetPicksNamedRecipient(t *testing.T) {
	bus := NewMessageBus(NopTransport{})
	bus.Subscribe("sys-a", 5)
	bus.Subscribe("sys-b", 5)

	err := bus.Publish(SystemMessage{Index: 5, Destination: DestLocal, Target: "sys-b", Payload: &testMessage{idx: 5, value: 1}})
	require.NoError(t, err)

	assert.Empty(t, bus.Drain("sys-a"))
	assert.Len(t, bus.Drain("sys-b"), 1)
}

func TestMessageBusMulticastFansOutToEverySubscriber(t *testing.T) {
	bus := NewMessageBus(NopTransport{})
	bus.Subscribe("sys-a", 5)
	bus.Subscribe("sys-b", 5)

	err := bus.Publish(SystemMessage{Index: 5, Destination: DestLocal, Multicast: true})
	require.NoError(t, err)

	assert.Len(t, bus.Drain("sys-a"), 1)
	assert.Len(t, bus.Drain("sys-b"), 1)
}

func TestMessageBusMulticastWithNoSubscribersIsNotAnError(t *testing.T) {
	bus := NewMessageBus(NopTransport{})
	err := bus.Publish(SystemMessage{Index: 9, Destination: DestLocal, Multicast: true})
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), bus.Stats().Dropped)
}

func TestMessageBusRemoteClientsRequiresTargets(t *testing.T) {
	bus := NewMessageBus(NopTransport{})
	err := bus.Publish(SystemMessage{Index: 1, Destination: DestRemoteClients})
	assert.Error(t, err)
}

type recordingTransport struct {
	sent []SystemMessage
}

func (r *recordingTransport) Send(m SystemMessage) error {
	r.sent = append(r.sent, m)
	return nil
}

func TestMessageBusRoutesNonLocalThroughTransport(t *testing.T) {
	transport := &recordingTransport{}
	bus := NewMessageBus(transport)

	err := bus.Publish(SystemMessage{Index: 2, Destination: DestHost})
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, DestHost, transport.sent[0].Destination)
}

func TestMessageBusStatsTrackPublishAndDrop(t *testing.T) {
	bus := NewMessageBus(NopTransport{})
	_ = bus.Publish(SystemMessage{Index: 9, Destination: DestLocal, Multicast: true})
	stats := bus.Stats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
}
