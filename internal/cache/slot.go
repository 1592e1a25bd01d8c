// Package cache holds single-value TTL memoization used to rate-limit
// expensive host queries.
package cache

import (
	"sync/atomic"
	"time"
)

type entry[T any] struct {
	value      T
	capturedAt time.Time
}

// Slot memoizes one value for a fixed TTL. Writers replace the whole entry with a
// single pointer swap, so readers never see a value paired with the wrong timestamp.
type Slot[T any] struct {
	ttl   time.Duration
	now   func() time.Time
	entry atomic.Pointer[entry[T]]
}

// NewSlot returns an empty slot with the given TTL.
func NewSlot[T any](ttl time.Duration) *Slot[T] {
	return &Slot[T]{ttl: ttl, now: time.Now}
}

// WithClock swaps the time source; intended for tests.
func (s *Slot[T]) WithClock(now func() time.Time) *Slot[T] {
	s.now = now
	return s
}

// TTL reports the configured time-to-live.
func (s *Slot[T]) TTL() time.Duration {
	return s.ttl
}

// Get returns the cached value while now-capturedAt < ttl.
func (s *Slot[T]) Get() (T, bool) {
	var zero T
	e := s.entry.Load()
	if e == nil {
		return zero, false
	}
	if s.now().Sub(e.capturedAt) >= s.ttl {
		return zero, false
	}
	return e.value, true
}

// Put stores value stamped with the current time, replacing any previous entry.
func (s *Slot[T]) Put(value T) {
	s.entry.Store(&entry[T]{value: value, capturedAt: s.now()})
}

// Invalidate drops the current entry so the next Get misses.
func (s *Slot[T]) Invalidate() {
	s.entry.Store(nil)
}
