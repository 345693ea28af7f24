package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/moodbox/internal/app/playback"
)

type recordingStream struct {
	mu  sync.Mutex
	got []*Notification
	err error
}

func (r *recordingStream) Send(n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func (r *recordingStream) received() []*Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Notification(nil), r.got...)
}

func TestManager_BroadcastStampsSequence(t *testing.T) {
	m := NewManager()
	a, b := &recordingStream{}, &recordingStream{}
	m.Subscribe(a)
	m.Subscribe(b)
	require.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(&Notification{Event: playback.Event{Type: playback.EventTrackChanged}})
	m.Broadcast(&Notification{Event: playback.Event{Type: playback.EventProgress}})

	for _, s := range []*recordingStream{a, b} {
		got := s.received()
		require.Len(t, got, 2)
		assert.Equal(t, uint64(1), got[0].SequenceNo)
		assert.Equal(t, uint64(2), got[1].SequenceNo)
		assert.Equal(t, playback.EventProgress, got[1].Event.Type)
	}
}

func TestManager_FailingSubscriberIsRemoved(t *testing.T) {
	m := NewManager()
	bad := &recordingStream{err: errors.New("closed pipe")}
	good := &recordingStream{}
	m.Subscribe(bad)
	m.Subscribe(good)

	m.Broadcast(&Notification{})
	assert.Equal(t, 1, m.SubscriberCount())

	m.Broadcast(&Notification{})
	assert.Len(t, bad.received(), 1)
	assert.Len(t, good.received(), 2)
}

func TestManager_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager()
	m.sendTimeout = 20 * time.Millisecond

	release := make(chan struct{})
	defer close(release)
	m.Subscribe(StreamFunc(func(*Notification) error {
		<-release
		return nil
	}))
	fast := &recordingStream{}
	m.Subscribe(fast)

	start := time.Now()
	m.Broadcast(&Notification{})
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, fast.received(), 1)
	assert.Equal(t, 2, m.SubscriberCount(), "timeouts keep the subscription")
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	id := m.Subscribe(s)

	m.Broadcast(&Notification{SessionID: "abc"})
	require.Len(t, s.received(), 1)

	m.Unsubscribe(id)
	m.Unsubscribe(id)
	m.Broadcast(&Notification{SessionID: "abc"})
	assert.Len(t, s.received(), 1)
	assert.Zero(t, m.SubscriberCount())
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{})
	m.Subscribe(&recordingStream{})

	m.Close()
	assert.Zero(t, m.SubscriberCount())
}
