package views

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chirpfeed/backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitializeForTests()
	m.Run()
}

// fakeStore is an in-memory Store with injectable failures
type fakeStore struct {
	mu sync.Mutex

	seed    []string
	seedErr error

	recordErr error
	batches   [][]string // every RecordViews call, in order
	recorded  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{recorded: make(map[string]bool)}
}

func (s *fakeStore) RecentlyViewed(ctx context.Context, userID string, since time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seedErr != nil {
		return nil, s.seedErr
	}
	if len(s.seed) > limit {
		return s.seed[:limit], nil
	}
	return s.seed, nil
}

func (s *fakeStore) RecordViews(ctx context.Context, userID string, postIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]string, len(postIDs))
	copy(batch, postIDs)
	s.batches = append(s.batches, batch)
	if s.recordErr != nil {
		return s.recordErr
	}
	for _, id := range postIDs {
		s.recorded[id] = true
	}
	return nil
}

func (s *fakeStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *fakeStore) wasRecorded(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorded[postID]
}

// fakeWatcher records registrations without dispatching anything
type fakeWatcher struct {
	mu      sync.Mutex
	began   []string // post IDs passed to BeginWatching
	stopped []string // handles passed to StopWatching
}

func (w *fakeWatcher) BeginWatching(handle, postID string, onChange func(string, bool)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.began = append(w.began, postID)
	return nil
}

func (w *fakeWatcher) StopWatching(handle string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = append(w.stopped, handle)
}

func (w *fakeWatcher) beganCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.began)
}

// fastConfig keeps timer tests quick while preserving the dwell < flush
// ordering headroom the assertions rely on
func fastConfig() Config {
	return Config{
		DwellTime:     50 * time.Millisecond,
		FlushInterval: 40 * time.Millisecond,
		SeedWindow:    24 * time.Hour,
		SeedLimit:     100,
	}
}

func TestInitializeSeedsViewedSet(t *testing.T) {
	store := newFakeStore()
	store.seed = []string{"p1", "p2"}

	r := NewRecorder("user-1", store, nil, fastConfig())
	r.Initialize(context.Background())
	defer r.Close()

	require.True(t, r.Ready())
	assert.True(t, r.HasViewed("p1"))
	assert.True(t, r.HasViewed("p2"))
	assert.False(t, r.HasViewed("p3"))
}

func TestInitializeFailsSoft(t *testing.T) {
	store := newFakeStore()
	store.seedErr = errors.New("connection refused")

	r := NewRecorder("user-1", store, nil, fastConfig())
	r.Initialize(context.Background())
	defer r.Close()

	// Seed failure still marks the recorder ready with an empty set
	require.True(t, r.Ready())
	assert.False(t, r.HasViewed("p1"))
}

func TestObserveSkipsAlreadyViewed(t *testing.T) {
	store := newFakeStore()
	store.seed = []string{"seen"}
	watcher := &fakeWatcher{}

	r := NewRecorder("user-1", store, watcher, fastConfig())
	r.Initialize(context.Background())
	defer r.Close()

	r.Observe("h1", "seen")
	assert.Equal(t, 0, watcher.beganCount())

	r.Observe("h2", "fresh")
	assert.Equal(t, 1, watcher.beganCount())
}

func TestObserveWithoutWatcherIsNoop(t *testing.T) {
	r := NewRecorder("user-1", newFakeStore(), nil, fastConfig())
	defer r.Close()

	r.Observe("h1", "p1") // must not panic
	assert.Equal(t, 0, r.PendingCount())
}

func TestShortGlimpseNeverConfirms(t *testing.T) {
	store := newFakeStore()
	cfg := fastConfig()
	r := NewRecorder("user-1", store, &fakeWatcher{}, cfg)
	defer r.Close()

	r.onVisibilityChange("p1", true)
	time.Sleep(cfg.DwellTime / 3)
	r.onVisibilityChange("p1", false)

	// Wait well past dwell and flush; nothing should have happened
	time.Sleep(3 * cfg.DwellTime)
	assert.Equal(t, 0, r.PendingCount())
	assert.Equal(t, 0, store.batchCount())
	assert.False(t, r.HasViewed("p1"))
}

func TestFullDwellConfirmsExactlyOnce(t *testing.T) {
	store := newFakeStore()
	cfg := fastConfig()
	r := NewRecorder("user-1", store, &fakeWatcher{}, cfg)
	defer r.Close()

	r.onVisibilityChange("p1", true)

	require.Eventually(t, func() bool {
		return r.PendingCount() == 1
	}, 2*time.Second, 5*time.Millisecond, "dwell expiry should queue the view")

	// Rapid visibility toggles after confirmation must not re-queue
	for i := 0; i < 5; i++ {
		r.onVisibilityChange("p1", false)
		r.onVisibilityChange("p1", true)
	}
	assert.Equal(t, 1, r.PendingCount())

	require.Eventually(t, func() bool {
		return store.wasRecorded("p1")
	}, 2*time.Second, 5*time.Millisecond, "debounced flush should persist the view")

	require.Equal(t, 1, store.batchCount())
	assert.Equal(t, []string{"p1"}, store.batches[0])
	assert.True(t, r.HasViewed("p1"))
	assert.Equal(t, 0, r.PendingCount())
}

func TestFlushWithEmptyBufferIsNoop(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder("user-1", store, nil, fastConfig())
	defer r.Close()

	r.Flush(context.Background())
	assert.Equal(t, 0, store.batchCount())
}

func TestFailedFlushDropsBatch(t *testing.T) {
	store := newFakeStore()
	store.recordErr = errors.New("write timeout")
	r := NewRecorder("user-1", store, nil, fastConfig())
	defer r.Close()

	r.RecordNow("p1")
	r.Flush(context.Background())

	require.Equal(t, 1, store.batchCount())
	// Batch is dropped, not re-queued, and the viewed-set is unchanged
	assert.Equal(t, 0, r.PendingCount())
	assert.False(t, r.HasViewed("p1"))

	// A later flush must not replay the lost batch
	r.Flush(context.Background())
	assert.Equal(t, 1, store.batchCount())
}

func TestRecordNowBypassesDwell(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder("user-1", store, nil, fastConfig())
	defer r.Close()

	r.RecordNow("p1")
	assert.Equal(t, 1, r.PendingCount())

	// Duplicate manual records don't re-queue
	r.RecordNow("p1")
	assert.Equal(t, 1, r.PendingCount())

	r.Flush(context.Background())
	assert.True(t, store.wasRecorded("p1"))
	assert.True(t, r.HasViewed("p1"))

	// Once viewed, further records are no-ops
	r.RecordNow("p1")
	assert.Equal(t, 0, r.PendingCount())
}

func TestDebounceCoalescesBurst(t *testing.T) {
	store := newFakeStore()
	cfg := fastConfig()
	r := NewRecorder("user-1", store, nil, cfg)
	defer r.Close()

	// Confirmations spaced inside the window keep pushing the flush out,
	// so the whole burst lands in one batch
	r.RecordNow("p1")
	time.Sleep(cfg.FlushInterval / 2)
	r.RecordNow("p2")
	time.Sleep(cfg.FlushInterval / 2)
	r.RecordNow("p3")

	require.Eventually(t, func() bool {
		return store.batchCount() > 0
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, 1, store.batchCount())
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, store.batches[0])
}

func TestUnobserveCancelsDwell(t *testing.T) {
	store := newFakeStore()
	watcher := &fakeWatcher{}
	cfg := fastConfig()
	r := NewRecorder("user-1", store, watcher, cfg)
	defer r.Close()

	r.Observe("h1", "p1")
	r.onVisibilityChange("p1", true)
	r.Unobserve("h1")

	time.Sleep(3 * cfg.DwellTime)
	assert.Equal(t, 0, r.PendingCount())
	assert.Contains(t, watcher.stopped, "h1")
}

func TestCloseCancelsOutstandingTimers(t *testing.T) {
	store := newFakeStore()
	cfg := fastConfig()
	r := NewRecorder("user-1", store, &fakeWatcher{}, cfg)

	r.onVisibilityChange("p1", true) // dwell armed
	r.RecordNow("p2")                // flush armed
	r.Close()

	time.Sleep(3 * cfg.DwellTime)
	// No write may happen after teardown
	assert.Equal(t, 0, store.batchCount())
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 3*time.Second, cfg.DwellTime)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
	assert.Equal(t, 24*time.Hour, cfg.SeedWindow)
	assert.Equal(t, 100, cfg.SeedLimit)
}
