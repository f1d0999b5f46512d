package ws

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHub_SubscribeMovesBetweenProjects(t *testing.T) {
	hub := NewHub(testLogger())
	s := newTestSession(hub, "u1")

	hub.Subscribe("p1", s)
	assert.Equal(t, 1, hub.SubscriberCount("p1"))

	hub.Subscribe("p2", s)
	assert.Equal(t, 0, hub.SubscriberCount("p1"))
	assert.Equal(t, 1, hub.SubscriberCount("p2"))
}

func TestHub_UnregisterDropsSubscription(t *testing.T) {
	hub := NewHub(testLogger())
	s := newTestSession(hub, "u1")
	hub.Subscribe("p1", s)

	hub.Unregister(s)
	assert.Equal(t, 0, hub.SubscriberCount("p1"))

	// broadcasting to an empty project is a no-op
	hub.Broadcast("p1", []byte(`{}`))
	assert.Empty(t, drainFrameTypes(t, s))
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub(testLogger())
	a := newTestSession(hub, "u1")
	b := newTestSession(hub, "u1")
	hub.Subscribe("p1", a)
	hub.Subscribe("p1", b)

	hub.Broadcast("p1", []byte(`{"type":"tags_updated"}`))

	assert.Len(t, drainFrameTypes(t, a), 1)
	assert.Len(t, drainFrameTypes(t, b), 1)
}

func TestHub_CloseCancelsPendingDebounce(t *testing.T) {
	hub := NewHub(testLogger())
	s := newTestSession(hub, "u1")

	var fired atomic.Bool
	s.scheduleDebounce(30*time.Millisecond, func() { fired.Store(true) })

	hub.Close()
	time.Sleep(60 * time.Millisecond)

	assert.False(t, fired.Load(), "shutdown must cancel pending sync timers")
}

func TestSession_EnqueueDropsWhenFull(t *testing.T) {
	hub := NewHub(testLogger())
	s := newTestSession(hub, "u1")

	for i := 0; i < sendBufferSize+10; i++ {
		s.enqueue([]byte(`{"type":"tags_updated"}`))
	}

	// overflow is dropped, never blocks the caller
	assert.Len(t, drainFrameTypes(t, s), sendBufferSize)
}

func TestSession_DebounceLastWriteWins(t *testing.T) {
	hub := NewHub(testLogger())
	s := newTestSession(hub, "u1")

	var calls atomic.Int32
	s.scheduleDebounce(20*time.Millisecond, func() { calls.Add(1) })
	s.scheduleDebounce(20*time.Millisecond, func() { calls.Add(1) })
	s.scheduleDebounce(20*time.Millisecond, func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
