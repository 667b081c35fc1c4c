// Package signal provides a small observer list used for change and
// lifecycle notifications.
//
// Delivery is synchronous: Emit invokes every connected slot on the calling
// goroutine, in connection order, before returning. No lock is held while a
// slot runs, so slots may connect or disconnect other slots (including
// themselves) without deadlocking. Changes made during an Emit take effect
// from the next Emit.
package signal

import "sync"

// Signal is a list of callbacks receiving a payload of type A.
// The zero value is ready to use.
type Signal[A any] struct {
	mu     sync.Mutex
	slots  []*slot[A]
	nextID uint64
}

type slot[A any] struct {
	id uint64
	fn func(A)
}

// Connection is the handle returned by Connect. Disconnect removes the slot.
type Connection struct {
	once       sync.Once
	disconnect func()
}

// Disconnect removes the slot from its signal. It is safe to call more than
// once and on a nil Connection.
func (c *Connection) Disconnect() {
	if c == nil || c.disconnect == nil {
		return
	}
	c.once.Do(c.disconnect)
}

// Connect appends fn to the signal and returns a handle that removes it.
func (s *Signal[A]) Connect(fn func(A)) *Connection {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.slots = append(s.slots, &slot[A]{id: id, fn: fn})
	s.mu.Unlock()

	return &Connection{disconnect: func() { s.remove(id) }}
}

// Emit calls every connected slot with a.
func (s *Signal[A]) Emit(a A) {
	s.mu.Lock()
	slots := make([]*slot[A], len(s.slots))
	copy(slots, s.slots)
	s.mu.Unlock()

	for _, sl := range slots {
		sl.fn(a)
	}
}

// Len returns the number of connected slots.
func (s *Signal[A]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func (s *Signal[A]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sl := range s.slots {
		if sl.id == id {
			s.slots = append(s.slots[:i:i], s.slots[i+1:]...)
			return
		}
	}
}
