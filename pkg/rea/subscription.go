package rea

import (
	"sync"
	"sync/atomic"
)

// Subscription is the handle returned by Subscribe. Releasing it stops all
// further notifications to the attached callback.
type Subscription struct {
	id     uint64
	closed atomic.Bool
	detach func(id uint64)
}

func newSubscription(detach func(id uint64)) *Subscription {
	return &Subscription{
		id:     nextID(),
		detach: detach,
	}
}

// ID returns the unique identifier for this subscription.
func (s *Subscription) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Unsubscribe releases the subscription. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.closed.Swap(true) {
		return
	}
	if s.detach != nil {
		s.detach(s.id)
	}
}

// Closed reports whether the subscription has been released.
func (s *Subscription) Closed() bool {
	if s == nil {
		return true
	}
	return s.closed.Load()
}

// listener pairs a callback with the subscription that controls it.
type listener[T any] struct {
	sub *Subscription
	fn  func(T)
}

// listenerList keeps callbacks in attachment order.
type listenerList[T any] struct {
	mu      sync.RWMutex
	entries []listener[T]
}

// add appends fn and returns its subscription.
func (l *listenerList[T]) add(fn func(T)) *Subscription {
	sub := newSubscription(l.remove)
	l.mu.Lock()
	l.entries = append(l.entries, listener[T]{sub: sub, fn: fn})
	l.mu.Unlock()
	return sub
}

// remove deletes the listener with the given subscription ID.
// Order of the remaining listeners is preserved.
func (l *listenerList[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.sub.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

// snapshot copies the listener slice so callbacks run without the lock held.
func (l *listenerList[T]) snapshot() []listener[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]listener[T], len(l.entries))
	copy(out, l.entries)
	return out
}

// len returns the number of live listeners.
func (l *listenerList[T]) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// notify delivers v to every listener that is still attached.
// A listener released by an earlier callback in the same pass is skipped.
func (l *listenerList[T]) notify(v T) {
	for _, e := range l.snapshot() {
		if e.sub.Closed() {
			continue
		}
		e.fn(v)
	}
}
