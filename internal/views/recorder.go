package views

import (
	"context"
	"sync"
	"time"

	"github.com/chirpfeed/backend/internal/logger"
	"github.com/chirpfeed/backend/internal/metrics"
	"go.uber.org/zap"
)

// Config controls recorder timing. Zero values fall back to defaults.
type Config struct {
	// DwellTime is how long a post must stay continuously visible before it
	// counts as viewed. Visibility loss before expiry cancels the countdown;
	// there is no partial credit.
	DwellTime time.Duration

	// FlushInterval is the batch window. The flush timer debounces: every
	// newly confirmed view pushes the flush out by the full interval, so a
	// burst of views from one scroll lands in a single upsert.
	FlushInterval time.Duration

	// SeedWindow and SeedLimit bound the history query that seeds the
	// viewed-set at initialization.
	SeedWindow time.Duration
	SeedLimit  int
}

const (
	defaultDwellTime     = 3 * time.Second
	defaultFlushInterval = 2 * time.Second
	defaultSeedWindow    = 24 * time.Hour
	defaultSeedLimit     = 100
)

func (c Config) withDefaults() Config {
	if c.DwellTime <= 0 {
		c.DwellTime = defaultDwellTime
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.SeedWindow <= 0 {
		c.SeedWindow = defaultSeedWindow
	}
	if c.SeedLimit <= 0 {
		c.SeedLimit = defaultSeedLimit
	}
	return c
}

// Recorder tracks which posts a single user has seen and reports each one to
// the store at most once per session, batching writes to keep amplification
// down. View recording is a soft analytics signal: every failure path
// degrades to "the view is lost" rather than an error the caller sees.
//
// Per post the lifecycle is: observed -> visible (dwell timer armed) ->
// confirmed (pending buffer) -> flushed (viewed-set). Posts already in the
// viewed-set are never re-observed.
type Recorder struct {
	cfg     Config
	store   Store
	watcher Watcher
	userID  string

	mu      sync.Mutex
	ready   bool
	closed  bool
	viewed  map[string]struct{}
	pending map[string]struct{}
	dwell   map[string]*time.Timer // post ID -> armed dwell countdown
	handles map[string]string      // watch handle -> post ID
	flush   *time.Timer
}

// NewRecorder creates a recorder for the given user. watcher may be nil,
// in which case Observe is a no-op and views arrive via RecordNow only.
func NewRecorder(userID string, store Store, watcher Watcher, cfg Config) *Recorder {
	return &Recorder{
		cfg:     cfg.withDefaults(),
		store:   store,
		watcher: watcher,
		userID:  userID,
		viewed:  make(map[string]struct{}),
		pending: make(map[string]struct{}),
		dwell:   make(map[string]*time.Timer),
		handles: make(map[string]string),
	}
}

// Initialize seeds the viewed-set from recent history. Fails soft: on any
// read error the recorder starts empty and is still marked ready, so a
// storage outage never blocks the feed. The cost of the fallback is a few
// duplicate upsert no-ops later.
func (r *Recorder) Initialize(ctx context.Context) {
	since := time.Now().Add(-r.cfg.SeedWindow)
	start := time.Now()

	postIDs, err := r.store.RecentlyViewed(ctx, r.userID, since, r.cfg.SeedLimit)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.ready = true

	if err != nil {
		metrics.Get().ViewSeedFailuresTotal.WithLabelValues().Inc()
		logger.Log.Warn("View history seed failed, starting with empty viewed-set",
			logger.WithUserID(r.userID), zap.Error(err))
		return
	}

	for _, id := range postIDs {
		r.viewed[id] = struct{}{}
	}
	metrics.Get().ViewSeedDuration.WithLabelValues("database").Observe(time.Since(start).Seconds())
}

// Ready reports whether Initialize has completed (successfully or not)
func (r *Recorder) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Observe begins visibility tracking for the post rendered at handle.
// Skipped when the post is already in the viewed-set, and a no-op when no
// watcher is configured.
func (r *Recorder) Observe(handle, postID string) {
	if r.watcher == nil || handle == "" || postID == "" {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, seen := r.viewed[postID]; seen {
		r.mu.Unlock()
		return
	}
	r.handles[handle] = postID
	r.mu.Unlock()

	if err := r.watcher.BeginWatching(handle, postID, r.onVisibilityChange); err != nil {
		logger.Log.Debug("Visibility watcher rejected registration",
			logger.WithPostID(postID), zap.Error(err))
		r.mu.Lock()
		delete(r.handles, handle)
		r.mu.Unlock()
	}
}

// Unobserve stops visibility tracking for a handle and cancels any dwell
// countdown for the post it was showing.
func (r *Recorder) Unobserve(handle string) {
	if r.watcher != nil {
		r.watcher.StopWatching(handle)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	postID, ok := r.handles[handle]
	if !ok {
		return
	}
	delete(r.handles, handle)
	r.cancelDwellLocked(postID)
}

// onVisibilityChange is the watcher callback. Becoming visible arms the
// dwell countdown; losing visibility before it expires cancels it.
func (r *Recorder) onVisibilityChange(postID string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	if !visible {
		r.cancelDwellLocked(postID)
		return
	}

	if _, seen := r.viewed[postID]; seen {
		return
	}
	if _, queued := r.pending[postID]; queued {
		return
	}
	if _, armed := r.dwell[postID]; armed {
		return
	}

	r.dwell[postID] = time.AfterFunc(r.cfg.DwellTime, func() {
		r.dwellExpired(postID)
	})
}

func (r *Recorder) dwellExpired(postID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, armed := r.dwell[postID]; !armed {
		// Canceled between timer fire and lock acquisition
		return
	}
	delete(r.dwell, postID)
	r.confirmLocked(postID, "dwell")
}

func (r *Recorder) cancelDwellLocked(postID string) {
	if t, ok := r.dwell[postID]; ok {
		t.Stop()
		delete(r.dwell, postID)
	}
}

// RecordNow marks the post viewed immediately, bypassing the dwell timer.
// Used when the user explicitly opens a post's detail page.
func (r *Recorder) RecordNow(postID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || postID == "" {
		return
	}
	r.cancelDwellLocked(postID)
	r.confirmLocked(postID, "manual")
}

// confirmLocked queues a post for the next batch. Callers hold r.mu.
func (r *Recorder) confirmLocked(postID string, trigger string) {
	if r.closed {
		return
	}
	if _, seen := r.viewed[postID]; seen {
		return
	}
	if _, queued := r.pending[postID]; queued {
		return
	}

	r.pending[postID] = struct{}{}
	metrics.Get().ViewsConfirmedTotal.WithLabelValues(trigger).Inc()

	// Debounce-on-arrival: each confirmation restarts the batch window
	if r.flush == nil {
		r.flush = time.AfterFunc(r.cfg.FlushInterval, func() {
			r.Flush(context.Background())
		})
	} else {
		r.flush.Reset(r.cfg.FlushInterval)
	}
}

// Flush drains the pending buffer and writes it to the store as one batched
// upsert. Swap-then-process: the buffer is replaced under the lock before
// the write, so confirmations arriving mid-flush land in the next batch
// instead of being dropped. A failed write discards the batch: delivery is
// at-most-once and lost views are acceptable.
func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	if r.flush != nil {
		r.flush.Stop()
		r.flush = nil
	}
	if r.closed || len(r.pending) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.pending
	r.pending = make(map[string]struct{})
	r.mu.Unlock()

	postIDs := make([]string, 0, len(batch))
	for id := range batch {
		postIDs = append(postIDs, id)
	}

	if err := r.store.RecordViews(ctx, r.userID, postIDs); err != nil {
		metrics.Get().ViewFlushFailuresTotal.WithLabelValues().Inc()
		logger.Log.Error("View batch write failed, dropping batch",
			logger.WithUserID(r.userID), logger.WithBatchSize(len(postIDs)), zap.Error(err))
		return
	}

	metrics.Get().ViewFlushesTotal.WithLabelValues().Inc()
	metrics.Get().ViewFlushBatchSize.WithLabelValues().Observe(float64(len(postIDs)))

	r.mu.Lock()
	if !r.closed {
		for id := range batch {
			r.viewed[id] = struct{}{}
		}
	}
	r.mu.Unlock()
}

// HasViewed reports whether the post is in the viewed-set
func (r *Recorder) HasViewed(postID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, seen := r.viewed[postID]
	return seen
}

// PendingCount returns the number of confirmed views awaiting flush
func (r *Recorder) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Close cancels all dwell timers and the flush timer. Pending views that
// were never flushed are dropped; callers that want them persisted must
// Flush first (the manager does). No writes happen after Close.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for id, t := range r.dwell {
		t.Stop()
		delete(r.dwell, id)
	}
	if r.flush != nil {
		r.flush.Stop()
		r.flush = nil
	}
	handles := make([]string, 0, len(r.handles))
	for h := range r.handles {
		handles = append(handles, h)
	}
	r.handles = make(map[string]string)
	r.mu.Unlock()

	if r.watcher != nil {
		for _, h := range handles {
			r.watcher.StopWatching(h)
		}
	}
}
