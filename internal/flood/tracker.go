package flood

import (
	"sync"
	"time"
)

type key struct {
	chatID int64
	userID int64
}

// Tracker keeps a sliding window of message timestamps per (chat, user).
// Windows are ephemeral by design and live in process memory only.
type Tracker struct {
	mu      sync.Mutex
	windows map[key][]time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		windows: make(map[key][]time.Time),
	}
}

// Track records a message at the given time and reports whether the user
// exceeded limit messages within window. On exceed the window is cleared,
// so a burst triggers exactly one action.
func (t *Tracker) Track(chatID, userID int64, at time.Time, limit int, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{chatID: chatID, userID: userID}
	recent := t.windows[k][:0]
	for _, ts := range t.windows[k] {
		if at.Sub(ts) < window {
			recent = append(recent, ts)
		}
	}
	recent = append(recent, at)

	if len(recent) > limit {
		delete(t.windows, k)
		return true
	}
	t.windows[k] = recent
	return false
}

// Reset drops the window for a user, if any.
func (t *Tracker) Reset(chatID, userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, key{chatID: chatID, userID: userID})
}

// Len returns the number of active windows.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}
