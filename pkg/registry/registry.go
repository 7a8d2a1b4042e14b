package registry

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Observer receives registry events, typically to feed metrics.
type Observer interface {
	// Added is called after key was stored. overwrote reports whether an
	// existing value was replaced.
	Added(kind, key string, overwrote bool)

	// Missed is called when Get finds no value for key.
	Missed(kind, key string)

	// Reset is called after all entries were cleared.
	Reset(kind string, cleared int)
}

// Option configures a Registry.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	observer Observer
}

// WithLogger sets the diagnostic logger. If nil, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// Registry maps string keys to values of type V.
type Registry[V any] struct {
	kind     string
	logger   *slog.Logger
	observer Observer

	mu      sync.RWMutex
	entries map[string]V
}

// New creates an empty registry. kind names the entry type ("store",
// "service") in diagnostics.
func New[V any](kind string, opts ...Option) *Registry[V] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Registry[V]{
		kind:     kind,
		logger:   cfg.logger,
		observer: cfg.observer,
		entries:  make(map[string]V),
	}
}

// Kind returns the entry kind given to New.
func (r *Registry[V]) Kind() string {
	return r.kind
}

// Logger returns the registry's diagnostic logger.
func (r *Registry[V]) Logger() *slog.Logger {
	return r.logger
}

// Add stores value under key. An existing value is replaced and a warning is
// logged; Add never fails.
func (r *Registry[V]) Add(key string, value V) {
	r.mu.Lock()
	_, exists := r.entries[key]
	r.entries[key] = value
	r.mu.Unlock()

	if key == "" {
		r.logger.Warn(r.kind+" registered with empty key", "kind", r.kind)
	}
	if exists {
		r.logger.Warn(r.kind+" with key already exists, overwriting",
			"kind", r.kind,
			"key", key,
		)
	}
	if r.observer != nil {
		r.observer.Added(r.kind, key, exists)
	}
}

// Has reports whether key is registered.
func (r *Registry[V]) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Get returns the value for key. ok is false if key is not registered.
func (r *Registry[V]) Get(key string) (value V, ok bool) {
	r.mu.RLock()
	value, ok = r.entries[key]
	r.mu.RUnlock()

	if !ok && r.observer != nil {
		r.observer.Missed(r.kind, key)
	}
	return value, ok
}

// Peek is Get without the observer's miss report. Use it for identity
// checks that are not lookups in their own right.
func (r *Registry[V]) Peek(key string) (value V, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok = r.entries[key]
	return value, ok
}

// All returns a copy of every entry. Mutating the result does not affect
// the registry.
func (r *Registry[V]) All() map[string]V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.entries)
}

// Keys returns the registered keys in sorted order.
func (r *Registry[V]) Keys() []string {
	r.mu.RLock()
	keys := slices.Collect(maps.Keys(r.entries))
	r.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// Len returns the number of entries.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reset removes every entry. Values already returned by Get remain usable.
func (r *Registry[V]) Reset() {
	r.mu.Lock()
	cleared := len(r.entries)
	r.entries = make(map[string]V)
	r.mu.Unlock()

	r.logger.Debug(r.kind+" registry reset", "kind", r.kind, "cleared", cleared)
	if r.observer != nil {
		r.observer.Reset(r.kind, cleared)
	}
}
