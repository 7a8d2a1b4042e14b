package rea

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/reaxar/internal/errors"
	"github.com/vango-dev/reaxar/internal/goid"
)

// DefaultMaxNotifyDepth bounds how deeply Set may recurse when subscribers
// set the cell they are observing.
const DefaultMaxNotifyDepth = 64

// CellOption configures a Cell.
type CellOption func(*cellConfig)

type cellConfig struct {
	name     string
	maxDepth int32
	logger   *slog.Logger
}

// WithName labels the cell in diagnostics.
func WithName(name string) CellOption {
	return func(c *cellConfig) {
		c.name = name
	}
}

// WithMaxNotifyDepth sets the nested notification limit.
// Values below 1 fall back to DefaultMaxNotifyDepth.
func WithMaxNotifyDepth(n int) CellOption {
	return func(c *cellConfig) {
		if n > 0 {
			c.maxDepth = int32(n)
		}
	}
}

// WithLogger sets the diagnostic logger. If nil, slog.Default() is used.
func WithLogger(l *slog.Logger) CellOption {
	return func(c *cellConfig) {
		c.logger = l
	}
}

// Cell is a reactive value container with replay-on-subscribe.
type Cell[T any] struct {
	id   uint64
	name string

	// value is the current cell value.
	value T

	// mu protects value and serializes attach against Set.
	mu sync.RWMutex

	subs listenerList[T]

	// passMu serializes notification passes across goroutines. The goroutine
	// holding it is recorded in owner so its nested Sets recurse instead of
	// waiting on themselves.
	passMu sync.Mutex
	owner  atomic.Uint64

	// depth counts nested notifications within the current pass. Only the
	// owner goroutine touches it.
	depth    int32
	maxDepth int32

	logger *slog.Logger
}

// NewCell creates a cell holding initial.
func NewCell[T any](initial T, opts ...CellOption) *Cell[T] {
	cfg := cellConfig{maxDepth: DefaultMaxNotifyDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Cell[T]{
		id:       nextID(),
		name:     cfg.name,
		value:    initial,
		maxDepth: cfg.maxDepth,
		logger:   cfg.logger,
	}
}

// ID returns the unique identifier for this cell.
func (c *Cell[T]) ID() uint64 {
	return c.id
}

// Name returns the diagnostic name given with WithName.
func (c *Cell[T]) Name() string {
	return c.name
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set stores v and synchronously notifies every subscriber in attachment
// order. Setting an equal value still notifies.
func (c *Cell[T]) Set(v T) {
	c.write(func(T) T { return v })
}

// Update sets the cell to fn applied to the current value.
func (c *Cell[T]) Update(fn func(T) T) {
	c.write(fn)
}

// Subscribe attaches fn, invokes it once with the current value and returns
// the subscription that releases it.
func (c *Cell[T]) Subscribe(fn func(T)) *Subscription {
	c.mu.RLock()
	sub := c.subs.add(fn)
	current := c.value
	c.mu.RUnlock()

	fn(current)
	return sub
}

// Unsubscribe releases sub. It is equivalent to sub.Unsubscribe().
func (c *Cell[T]) Unsubscribe(sub *Subscription) {
	sub.Unsubscribe()
}

// Subscribers returns the number of attached subscribers.
func (c *Cell[T]) Subscribers() int {
	return c.subs.len()
}

// Stream returns a read-only view of the cell.
func (c *Cell[T]) Stream() Stream[T] {
	return newStream(c.Subscribe)
}

// Pipe chains ops over the cell's emissions and returns a read-only stream.
func (c *Cell[T]) Pipe(ops ...Operator[T, T]) Stream[T] {
	return Pipe[T](c, ops...)
}

// Computed derives a same-typed stream; see Derive for other result types.
func (c *Cell[T]) Computed(fn func(value T, index int) T) Stream[T] {
	return Derive[T, T](c, fn)
}

// write stores fn(value) and notifies. A Set from inside a subscriber on the
// goroutine running the current pass nests into it; Sets from any other
// goroutine wait for the pass to finish, so concurrent writers are delivered
// one after another and never count toward the nesting limit.
//
// A subscriber that hands a Set to another goroutine and waits for it
// deadlocks.
func (c *Cell[T]) write(fn func(T) T) {
	gid := goid.ID()
	if c.owner.Load() == gid {
		c.notify(c.store(fn))
		return
	}

	c.passMu.Lock()
	c.owner.Store(gid)
	defer func() {
		c.depth = 0
		c.owner.Store(0)
		c.passMu.Unlock()
	}()

	c.notify(c.store(fn))
}

func (c *Cell[T]) store(fn func(T) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := fn(c.value)
	c.value = v
	return v
}

func (c *Cell[T]) notify(v T) {
	c.depth++
	defer func() { c.depth-- }()

	if c.depth > c.maxDepth {
		c.logger.Error(errors.New(errors.CodeReentrancyLimit).WithKey(c.name).Error(),
			"cell_id", c.id,
			"depth", c.depth,
			"limit", c.maxDepth,
		)
		return
	}

	c.subs.notify(v)
}
