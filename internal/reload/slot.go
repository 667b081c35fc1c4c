package reload

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the slot is closed and empty.
var ErrClosed = errors.New("slot closed")

// Slot is a single-element queue where a push replaces any pending element.
type Slot[T any] struct {
	mu     sync.Mutex
	value  T
	full   bool
	closed bool
	wake   chan struct{}
}

// NewSlot creates an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{wake: make(chan struct{}, 1)}
}

// Push stores v, reporting whether it replaced a pending element. Pushing to
// a closed slot drops v.
func (s *Slot[T]) Push(v T) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	replaced = s.full
	s.value = v
	s.full = true

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return replaced
}

// TryPop takes the pending element without blocking.
func (s *Slot[T]) TryPop() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeLocked()
}

// Pop blocks until an element is pending, ctx is done, or the slot is
// closed.
func (s *Slot[T]) Pop(ctx context.Context) (T, error) {
	for {
		s.mu.Lock()
		v, ok := s.takeLocked()
		closed := s.closed
		s.mu.Unlock()

		if ok {
			return v, nil
		}
		if closed {
			return v, ErrClosed
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			return v, ctx.Err()
		}
	}
}

// Close wakes every blocked Pop. A pending element can still be popped.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.wake)
}

func (s *Slot[T]) takeLocked() (T, bool) {
	var zero T
	if !s.full {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.full = false
	return v, true
}
