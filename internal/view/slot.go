package view

import (
	"sync"
	"time"
)

// Slot holds at most one pending timer. Scheduling replaces the previous
// timer, and a replaced timer's callback is never run even if it already
// fired and is waiting on a lock.
type Slot struct {
	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

// Schedule stops any pending timer and arranges for fn to run after d.
// It returns the generation of the new timer.
func (s *Slot) Schedule(d time.Duration, fn func(gen uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(d, func() { fn(gen) })
	return gen
}

// Cancel stops the pending timer and invalidates its generation.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// Current reports whether gen belongs to the most recently scheduled timer.
func (s *Slot) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}
