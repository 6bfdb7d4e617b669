package views

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type visibilityEvent struct {
	postID  string
	visible bool
}

func collector() (func(string, bool), func() []visibilityEvent) {
	var mu sync.Mutex
	var events []visibilityEvent
	record := func(postID string, visible bool) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, visibilityEvent{postID, visible})
	}
	snapshot := func() []visibilityEvent {
		mu.Lock()
		defer mu.Unlock()
		out := make([]visibilityEvent, len(events))
		copy(out, events)
		return out
	}
	return record, snapshot
}

func TestEventWatcherDelivers(t *testing.T) {
	w := NewEventWatcher()
	record, snapshot := collector()

	require.NoError(t, w.BeginWatching("h1", "p1", record))

	n := w.Deliver("p1", true)
	assert.Equal(t, 1, n)
	assert.Equal(t, []visibilityEvent{{"p1", true}}, snapshot())

	// Events for unwatched posts go nowhere
	n = w.Deliver("p2", true)
	assert.Equal(t, 0, n)
	assert.Len(t, snapshot(), 1)
}

func TestEventWatcherStopEndsDelivery(t *testing.T) {
	w := NewEventWatcher()
	record, snapshot := collector()

	require.NoError(t, w.BeginWatching("h1", "p1", record))
	w.StopWatching("h1")

	assert.Equal(t, 0, w.Deliver("p1", true))
	assert.Empty(t, snapshot())
	assert.False(t, w.Watching("p1"))

	// Stopping an unknown handle is a no-op
	w.StopWatching("missing")
}

func TestEventWatcherMultipleHandlesSamePost(t *testing.T) {
	w := NewEventWatcher()
	record, snapshot := collector()

	require.NoError(t, w.BeginWatching("h1", "p1", record))
	require.NoError(t, w.BeginWatching("h2", "p1", record))

	assert.Equal(t, 2, w.Deliver("p1", true))
	assert.Len(t, snapshot(), 2)

	w.StopWatching("h1")
	assert.True(t, w.Watching("p1"))
	assert.Equal(t, 1, w.Deliver("p1", false))
}

func TestEventWatcherRebindHandle(t *testing.T) {
	w := NewEventWatcher()
	record, _ := collector()

	require.NoError(t, w.BeginWatching("h1", "p1", record))
	// Re-registering the same handle moves it to the new post
	require.NoError(t, w.BeginWatching("h1", "p2", record))

	assert.False(t, w.Watching("p1"))
	assert.True(t, w.Watching("p2"))
	assert.Equal(t, 0, w.Deliver("p1", true))
	assert.Equal(t, 1, w.Deliver("p2", true))
}
