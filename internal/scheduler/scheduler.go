package scheduler

import (
	"context"
	"sync"

	"time"
)

// Scheduler owns all deferred side effects (delayed deletions, delayed chat
// leaves) as explicit task records with cancellation handles, so timeout and
// cancel races stay deterministic.
type Scheduler struct {
	mu      sync.Mutex
	seq     uint64
	timers  map[uint64]*time.Timer
	stopped bool
}

// Handle cancels a single scheduled task.
type Handle struct {
	s  *Scheduler
	id uint64
}

func New() *Scheduler {
	return &Scheduler{
		timers: make(map[uint64]*time.Timer),
	}
}

// After schedules fn to run once after d. The returned handle cancels it.
// Tasks scheduled after Stop are dropped.
func (s *Scheduler) After(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Handle{}
	}

	s.seq++
	id := s.seq
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, pending := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if pending {
			fn()
		}
	})
	return Handle{s: s, id: id}
}

// Cancel stops the task if it has not fired yet and reports whether it did.
func (h Handle) Cancel() bool {
	if h.s == nil {
		return false
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	timer, ok := h.s.timers[h.id]
	if !ok {
		return false
	}
	delete(h.s.timers, h.id)
	return timer.Stop()
}

// Pending returns the number of tasks not yet fired or cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) Start(ctx context.Context) error {
	return nil
}

// Stop cancels all outstanding tasks.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	return nil
}
