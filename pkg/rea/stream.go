package rea

import "sync"

// Stream is a read-only source of values.
type Stream[T any] interface {
	// Subscribe attaches fn and returns the subscription that releases it.
	Subscribe(fn func(T)) *Subscription
}

// StreamFunc adapts a subscribe function to the Stream interface.
type StreamFunc[T any] func(fn func(T)) *Subscription

// Subscribe calls f(fn).
func (f StreamFunc[T]) Subscribe(fn func(T)) *Subscription {
	return f(fn)
}

// stream is the pointer-backed Stream returned by this package, so that
// streams compare by identity.
type stream[T any] struct {
	subscribe func(fn func(T)) *Subscription
}

func (s *stream[T]) Subscribe(fn func(T)) *Subscription {
	return s.subscribe(fn)
}

func newStream[T any](subscribe func(fn func(T)) *Subscription) Stream[T] {
	return &stream[T]{subscribe: subscribe}
}

// Operator transforms one stream into another.
type Operator[T, R any] func(Stream[T]) Stream[R]

// Derive returns a stream that applies fn to every upstream emission,
// including a replayed initial value. index counts emissions per subscriber
// and starts at 0. fn is not evaluated until something subscribes.
func Derive[T, R any](src Stream[T], fn func(value T, index int) R) Stream[R] {
	return newStream(func(next func(R)) *Subscription {
		var (
			mu    sync.Mutex
			index int
		)
		return src.Subscribe(func(v T) {
			mu.Lock()
			i := index
			index++
			mu.Unlock()
			next(fn(v, i))
		})
	})
}

// Map returns an operator applying fn to every value.
func Map[T, R any](fn func(T) R) Operator[T, R] {
	return func(src Stream[T]) Stream[R] {
		return Derive(src, func(v T, _ int) R { return fn(v) })
	}
}

// Filter returns an operator that drops values for which keep returns false.
func Filter[T any](keep func(T) bool) Operator[T, T] {
	return func(src Stream[T]) Stream[T] {
		return newStream(func(next func(T)) *Subscription {
			return src.Subscribe(func(v T) {
				if keep(v) {
					next(v)
				}
			})
		})
	}
}

// Pipe applies ops to src in order. The result is always read-only, even
// when no operators are given.
func Pipe[T any](src Stream[T], ops ...Operator[T, T]) Stream[T] {
	out := newStream(src.Subscribe)
	for _, op := range ops {
		out = op(out)
	}
	return out
}

// Subject is a hot stream without replay. Subscribers receive only values
// emitted after they attached.
type Subject[T any] struct {
	subs listenerList[T]
}

// NewSubject creates an empty subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Emit delivers v to every current subscriber in attachment order.
func (s *Subject[T]) Emit(v T) {
	s.subs.notify(v)
}

// Subscribe attaches fn without replaying anything.
func (s *Subject[T]) Subscribe(fn func(T)) *Subscription {
	return s.subs.add(fn)
}

// Subscribers returns the number of attached subscribers.
func (s *Subject[T]) Subscribers() int {
	return s.subs.len()
}

// Of returns a cold stream that emits values synchronously to each new
// subscriber. The returned subscription is already complete; releasing it
// is a no-op.
func Of[T any](values ...T) Stream[T] {
	return newStream(func(fn func(T)) *Subscription {
		for _, v := range values {
			fn(v)
		}
		return newSubscription(nil)
	})
}
