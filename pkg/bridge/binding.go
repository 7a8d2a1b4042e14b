package bridge

import (
	"sync"

	"github.com/vango-dev/reaxar/pkg/rea"
	"github.com/vango-dev/reaxar/pkg/service"
	"github.com/vango-dev/reaxar/pkg/store"
)

// State is the lifecycle state of a Binding.
type State int

const (
	Idle       State = iota // Not attached yet
	Subscribed              // Receiving values
	Released                // Terminal
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Subscribed:
		return "Subscribed"
	case Released:
		return "Released"
	default:
		return "Unknown"
	}
}

// Source labels used in diagnostics and metrics.
const (
	SourceCell    = "cell"
	SourceStream  = "stream"
	SourceStore   = "store"
	SourceService = "service"
)

// Binding holds a component's local copy of a reactive source's latest value.
type Binding[T any] struct {
	session  *Session
	source   string
	onChange func(T)

	mu    sync.Mutex
	state State
	gen   uint64
	src   rea.Stream[T]
	sub   *rea.Subscription
	value T
	ready bool
}

func newBinding[T any](s *Session, source string, onChange func(T)) *Binding[T] {
	return &Binding[T]{
		session:  s,
		source:   source,
		onChange: onChange,
	}
}

// AttachCell subscribes to cell. The binding is seeded with the cell's
// current value, so Ready is true immediately.
func AttachCell[T any](s *Session, cell *rea.Cell[T], onChange func(T)) *Binding[T] {
	b := newBinding(s, SourceCell, onChange)
	b.value, b.ready = cell.Get(), true
	b.start(cell)
	return b
}

// AttachStream subscribes to stream. The binding has no value until the
// stream first emits.
func AttachStream[T any](s *Session, stream rea.Stream[T], onChange func(T)) *Binding[T] {
	b := newBinding(s, SourceStream, onChange)
	b.start(stream)
	return b
}

// AttachStore subscribes to the store registered under key. If no usable
// store is registered, a warning is logged and the returned binding is
// already released without a value; it does not retry.
func AttachStore[T any](s *Session, key string, onChange func(T)) *Binding[T] {
	b := newBinding(s, SourceStore, onChange)

	st, err := store.Lookup[T](s.rt.Stores(), key)
	if err != nil {
		s.logger.Warn("store not found or not ready, binding stays empty",
			"key", key,
			"error", err,
		)
		b.mu.Lock()
		b.state = Released
		b.mu.Unlock()
		return b
	}

	b.value, b.ready = st.Get(), true
	b.start(st.Cell())
	return b
}

// AttachServiceStream resolves the service registered under key and
// subscribes to the stream returned by method. It fails if the service
// cannot be resolved.
func AttachServiceStream[S, T any](s *Session, key string, method func(S) rea.Stream[T], onChange func(T)) (*Binding[T], error) {
	svc, err := service.Resolve[S](s.rt.Services(), key)
	if err != nil {
		return nil, err
	}
	b := newBinding(s, SourceService, onChange)
	b.start(method(svc))
	return b, nil
}

// start attaches the binding for the first time and ties it to the session.
func (b *Binding[T]) start(src rea.Stream[T]) {
	if b.session.Disposed() {
		b.mu.Lock()
		b.state = Released
		b.mu.Unlock()
		return
	}

	b.session.OnCleanup(b.Release)
	if obs := b.session.observer(); obs != nil {
		obs.BindingOpened(b.source)
	}
	b.attach(src)
}

// attach subscribes to src. The caller must have released any previous
// subscription.
func (b *Binding[T]) attach(src rea.Stream[T]) {
	b.mu.Lock()
	if b.state == Released {
		b.mu.Unlock()
		return
	}
	b.gen++
	gen := b.gen
	b.state = Subscribed
	b.src = src
	b.mu.Unlock()

	sub := src.Subscribe(func(v T) { b.receive(gen, v) })

	b.mu.Lock()
	if b.gen != gen || b.state == Released {
		b.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	b.sub = sub
	b.mu.Unlock()
}

// receive stores v unless the attachment it belongs to is gone.
func (b *Binding[T]) receive(gen uint64, v T) {
	b.mu.Lock()
	if b.gen != gen || b.state == Released {
		b.mu.Unlock()
		return
	}
	b.value = v
	b.ready = true
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(v)
	}
}

// Value returns the latest value, or the zero value if none arrived yet.
func (b *Binding[T]) Value() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Ready reports whether the binding holds a value.
func (b *Binding[T]) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// State returns the lifecycle state.
func (b *Binding[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Rebind switches the binding to src. It does nothing if src is the
// current source or the binding was released. The value from the previous
// source is kept until src delivers one.
func (b *Binding[T]) Rebind(src rea.Stream[T]) {
	b.mu.Lock()
	if b.state == Released || sameIdentity(b.src, src) {
		b.mu.Unlock()
		return
	}
	old := b.sub
	b.sub = nil
	b.gen++
	b.mu.Unlock()

	old.Unsubscribe()
	b.attach(src)
}

// Release unsubscribes and moves the binding to Released. Calling it more
// than once is a no-op.
func (b *Binding[T]) Release() {
	b.mu.Lock()
	if b.state == Released {
		b.mu.Unlock()
		return
	}
	wasAttached := b.state == Subscribed
	b.state = Released
	b.gen++
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	sub.Unsubscribe()
	if obs := b.session.observer(); obs != nil && wasAttached {
		obs.BindingClosed(b.source)
	}
}
