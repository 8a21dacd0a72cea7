// Package sessions keeps track of live coaching connections so the server
// can warn and cancel them while draining.
package sessions

import (
	"context"
	"sync"
	"time"
)

// Live is the part of a coaching session the tracker needs.
type Live interface {
	Cancel()
	SendWarning(code, message string) error
}

type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*entry
	wg       sync.WaitGroup
	now      func() time.Time
}

type entry struct {
	live      Live
	startedAt time.Time
	once      sync.Once
}

func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Register adds a live session. Registering an id twice replaces the older
// entry. The returned func must be called when the session ends.
func (t *Tracker) Register(sessionID string, live Live) (unregister func()) {
	if t == nil {
		return func() {}
	}

	e := &entry{live: live, startedAt: t.clock()}

	t.mu.Lock()
	if t.sessions == nil {
		t.sessions = make(map[string]*entry)
	}
	old := t.sessions[sessionID]
	t.sessions[sessionID] = e
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		t.unregister(sessionID, old)
	}
	return func() { t.unregister(sessionID, e) }
}

func (t *Tracker) unregister(sessionID string, e *entry) {
	e.once.Do(func() {
		t.mu.Lock()
		if t.sessions[sessionID] == e {
			delete(t.sessions, sessionID)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

func (t *Tracker) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Oldest reports how long the longest-running session has been connected.
func (t *Tracker) Oldest() time.Duration {
	if t == nil {
		return 0
	}
	now := t.clock()
	var oldest time.Duration
	t.mu.Lock()
	for _, e := range t.sessions {
		if age := now.Sub(e.startedAt); age > oldest {
			oldest = age
		}
	}
	t.mu.Unlock()
	return oldest
}

func (t *Tracker) snapshot() []Live {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Live, 0, len(t.sessions))
	for _, e := range t.sessions {
		if e.live != nil {
			out = append(out, e.live)
		}
	}
	return out
}

// WarnAll is best effort: a failed send still counts as attempted.
func (t *Tracker) WarnAll(code, message string) (sent int) {
	if t == nil {
		return 0
	}
	for _, live := range t.snapshot() {
		_ = live.SendWarning(code, message)
		sent++
	}
	return sent
}

func (t *Tracker) CancelAll() (canceled int) {
	if t == nil {
		return 0
	}
	for _, live := range t.snapshot() {
		live.Cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every registered session has unregistered or ctx ends.
func (t *Tracker) Wait(ctx context.Context) bool {
	if t == nil {
		return true
	}
	if ctx == nil {
		t.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
