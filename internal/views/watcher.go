package views

import "sync"

// Watcher is the visibility-detection capability a Recorder observes posts
// through. On the web client this is an intersection observer; server-side
// it's an EventWatcher fed by client-reported visibility events. Tests plug
// in fakes.
type Watcher interface {
	// BeginWatching starts visibility tracking for the post rendered at the
	// given handle. onChange fires with visible=true when the post enters
	// the viewport and visible=false when it leaves.
	BeginWatching(handle string, postID string, onChange func(postID string, visible bool)) error

	// StopWatching ends tracking for a handle. Unknown handles are a no-op.
	StopWatching(handle string)
}

type watch struct {
	postID   string
	onChange func(postID string, visible bool)
}

// EventWatcher dispatches externally reported visibility events to the
// callbacks registered for each post. Multiple handles may watch the same
// post (the same card rendered in two feed columns).
type EventWatcher struct {
	mu       sync.RWMutex
	byHandle map[string]*watch
	byPost   map[string]map[string]*watch // post ID -> handle -> watch
}

// NewEventWatcher creates an empty watcher registry
func NewEventWatcher() *EventWatcher {
	return &EventWatcher{
		byHandle: make(map[string]*watch),
		byPost:   make(map[string]map[string]*watch),
	}
}

// BeginWatching implements Watcher
func (w *EventWatcher) BeginWatching(handle string, postID string, onChange func(string, bool)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Re-registering a handle replaces its previous watch
	if old, ok := w.byHandle[handle]; ok {
		delete(w.byPost[old.postID], handle)
		if len(w.byPost[old.postID]) == 0 {
			delete(w.byPost, old.postID)
		}
	}

	entry := &watch{postID: postID, onChange: onChange}
	w.byHandle[handle] = entry
	if w.byPost[postID] == nil {
		w.byPost[postID] = make(map[string]*watch)
	}
	w.byPost[postID][handle] = entry
	return nil
}

// StopWatching implements Watcher
func (w *EventWatcher) StopWatching(handle string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.byHandle[handle]
	if !ok {
		return
	}
	delete(w.byHandle, handle)
	delete(w.byPost[entry.postID], handle)
	if len(w.byPost[entry.postID]) == 0 {
		delete(w.byPost, entry.postID)
	}
}

// Deliver routes a visibility event to every watch registered for the post.
// Returns the number of callbacks invoked; zero means nothing is observing
// the post (already viewed, or never registered).
func (w *EventWatcher) Deliver(postID string, visible bool) int {
	w.mu.RLock()
	callbacks := make([]func(string, bool), 0, len(w.byPost[postID]))
	for _, entry := range w.byPost[postID] {
		callbacks = append(callbacks, entry.onChange)
	}
	w.mu.RUnlock()

	// Invoke outside the lock: callbacks take the recorder's mutex
	for _, fn := range callbacks {
		fn(postID, visible)
	}
	return len(callbacks)
}

// Watching reports whether any handle is observing the post
func (w *EventWatcher) Watching(postID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.byPost[postID]) > 0
}
