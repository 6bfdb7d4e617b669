package views

import (
	"context"
	"sync"
	"time"

	"github.com/chirpfeed/backend/internal/logger"
	"github.com/chirpfeed/backend/internal/metrics"
	"go.uber.org/zap"
)

// Session bundles a user's recorder with the event watcher feeding it
type Session struct {
	Recorder *Recorder
	Watcher  *EventWatcher

	lastSeen time.Time
}

// Manager owns the live per-user recorder sessions. Sessions are created
// lazily on first use (seeding the viewed-set from the store) and reaped by
// a janitor once idle: the server-side equivalent of the client unmounting
// the feed. Evicted sessions get a final flush before teardown so confirmed
// views aren't lost to the idle timeout.
type Manager struct {
	store   Store
	cfg     Config
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	stop chan struct{}
	done chan struct{}
}

const defaultIdleTTL = 10 * time.Minute

// NewManager creates a session manager over the given store
func NewManager(store Store, cfg Config, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &Manager{
		store:    store,
		cfg:      cfg,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the idle-session janitor
func (m *Manager) Start() {
	go m.janitor()
}

// Stop reaps the janitor and tears down every session, flushing first
func (m *Manager) Stop() {
	close(m.stop)
	<-m.done

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for userID, s := range sessions {
		s.Recorder.Flush(ctx)
		s.Recorder.Close()
		logger.Log.Debug("View session closed on shutdown", logger.WithUserID(userID))
	}
	metrics.Get().ActiveRecorders.WithLabelValues().Set(0)
}

// Session returns the user's live session, creating and seeding one on
// first use. Creation is synchronous but fail-soft: a seed error still
// yields a working (empty) recorder.
func (m *Manager) Session(ctx context.Context, userID string) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		s.lastSeen = time.Now()
		m.mu.Unlock()
		return s
	}

	watcher := NewEventWatcher()
	s := &Session{
		Recorder: NewRecorder(userID, m.store, watcher, m.cfg),
		Watcher:  watcher,
		lastSeen: time.Now(),
	}
	m.sessions[userID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	s.Recorder.Initialize(ctx)
	metrics.Get().ActiveRecorders.WithLabelValues().Set(float64(count))
	logger.Log.Debug("View session created", logger.WithUserID(userID))
	return s
}

// ActiveSessions returns the number of live sessions
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) janitor() {
	defer close(m.done)

	interval := m.idleTTL / 2
	if interval < time.Second {
		interval = m.idleTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.reapIdle(now)
		}
	}
}

func (m *Manager) reapIdle(now time.Time) {
	m.mu.Lock()
	expired := make(map[string]*Session)
	for userID, s := range m.sessions {
		if now.Sub(s.lastSeen) >= m.idleTTL {
			expired[userID] = s
			delete(m.sessions, userID)
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for userID, s := range expired {
		s.Recorder.Flush(ctx)
		s.Recorder.Close()
		logger.Log.Debug("Idle view session evicted",
			logger.WithUserID(userID), zap.Duration("idle_ttl", m.idleTTL))
	}
	metrics.Get().ActiveRecorders.WithLabelValues().Set(float64(remaining))
}
