package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreatesSessionLazily(t *testing.T) {
	store := newFakeStore()
	store.seed = []string{"p1"}

	m := NewManager(store, fastConfig(), time.Minute)
	m.Start()
	defer m.Stop()

	assert.Equal(t, 0, m.ActiveSessions())

	s := m.Session(context.Background(), "user-1")
	require.NotNil(t, s)
	assert.Equal(t, 1, m.ActiveSessions())
	assert.True(t, s.Recorder.Ready())
	assert.True(t, s.Recorder.HasViewed("p1"))

	// Same user gets the same session back
	again := m.Session(context.Background(), "user-1")
	assert.Same(t, s, again)
	assert.Equal(t, 1, m.ActiveSessions())

	m.Session(context.Background(), "user-2")
	assert.Equal(t, 2, m.ActiveSessions())
}

func TestManagerStopFlushesPending(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store, fastConfig(), time.Minute)
	m.Start()

	s := m.Session(context.Background(), "user-1")
	s.Recorder.RecordNow("p1")

	m.Stop()

	assert.True(t, store.wasRecorded("p1"))
	assert.Equal(t, 0, m.ActiveSessions())
}

func TestManagerEvictsIdleSessions(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store, fastConfig(), 60*time.Millisecond)
	m.Start()
	defer m.Stop()

	s := m.Session(context.Background(), "user-1")
	s.Recorder.RecordNow("p1")

	// The janitor flushes before closing, so the pending view survives
	require.Eventually(t, func() bool {
		return m.ActiveSessions() == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, store.wasRecorded("p1"))
}

func TestManagerActivityDefersEviction(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store, fastConfig(), 80*time.Millisecond)
	m.Start()
	defer m.Stop()

	m.Session(context.Background(), "user-1")

	// Keep touching the session; it must outlive several janitor passes
	for i := 0; i < 6; i++ {
		time.Sleep(30 * time.Millisecond)
		m.Session(context.Background(), "user-1")
	}
	assert.Equal(t, 1, m.ActiveSessions())
}
