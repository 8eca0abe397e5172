package game

import (
	"sync"
	"time"
)

// Cancel stops a scheduled task. It is safe to call more than once.
type Cancel func()

// Scheduler runs functions after a delay or periodically.
type Scheduler interface {
	// AfterFunc runs f once after d.
	AfterFunc(d time.Duration, f func()) Cancel
	// Every runs f every d until cancelled.
	Every(d time.Duration, f func()) Cancel
}

// RealScheduler schedules on the runtime's timers. Callbacks run on their
// own goroutines.
type RealScheduler struct{}

// AfterFunc implements Scheduler using time.AfterFunc.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Every implements Scheduler with a ticker goroutine.
func (RealScheduler) Every(d time.Duration, f func()) Cancel {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f()
			case <-done:
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// ManualScheduler is a Scheduler driven by a virtual clock. Nothing runs
// until Advance is called.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks map[uint64]*manualTask
}

type manualTask struct {
	id    uint64
	at    time.Duration
	every time.Duration
	// order breaks ties between tasks due at the same instant
	order uint64
	fn    func()
}

// NewManualScheduler creates a ManualScheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[uint64]*manualTask)}
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	return s.add(d, 0, f)
}

// Every implements Scheduler.
func (s *ManualScheduler) Every(d time.Duration, f func()) Cancel {
	return s.add(d, d, f)
}

func (s *ManualScheduler) add(d, every time.Duration, f func()) Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTask{id: s.seq, at: s.now + d, every: every, order: s.seq, fn: f}
	s.tasks[t.id] = t

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.tasks, t.id)
	}
}

// Advance moves the virtual clock forward by d, running every task that
// falls due in time order. Tasks scheduled by running callbacks are
// honoured if they fall due within the same window. Callbacks run without
// the scheduler's lock held.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}

		s.now = next.at
		if next.every > 0 {
			s.seq++
			next.at += next.every
			next.order = s.seq
		} else {
			delete(s.tasks, next.id)
		}
		fn := next.fn
		s.mu.Unlock()

		fn()
	}
}

// nextDue returns the earliest task due at or before target. Ties run in
// scheduling order.
func (s *ManualScheduler) nextDue(target time.Duration) *manualTask {
	var best *manualTask
	for _, t := range s.tasks {
		if t.at > target {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.order < best.order) {
			best = t
		}
	}
	return best
}

// Pending returns the number of scheduled tasks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Now returns the virtual time elapsed since creation.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
