package store

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vango-dev/reaxar/internal/errors"
	"github.com/vango-dev/reaxar/pkg/rea"
	"github.com/vango-dev/reaxar/pkg/registry"
)

// Kind is the registry kind used for stores.
const Kind = "store"

// Entry is the type-erased view of a store kept in the registry.
type Entry interface {
	// Key returns the key the store was created with ("" for local stores).
	Key() string

	// Snapshot returns the current value.
	Snapshot() any

	// Reset restores the initial value.
	Reset()

	// Watch subscribes fn to the store's values, starting with the current one.
	Watch(fn func(any)) *rea.Subscription

	// SetJSON decodes data into the store's value type and sets it.
	SetJSON(data []byte) error
}

// Registry is the store registry.
type Registry = registry.Registry[Entry]

// NewRegistry creates an empty store registry.
func NewRegistry(opts ...registry.Option) *Registry {
	return registry.New[Entry](Kind, opts...)
}

// Store is a reactive cell paired with the value it was created with.
type Store[T any] struct {
	key     string
	cell    *rea.Cell[T]
	initial T
}

// Create builds a store holding initial and registers it under key.
// A store already registered under key is replaced with a warning.
func Create[T any](reg *Registry, initial T, key string, opts ...rea.CellOption) *Store[T] {
	base := []rea.CellOption{rea.WithName(key), rea.WithLogger(reg.Logger())}
	s := newStore(key, initial, append(base, opts...)...)
	reg.Add(key, s)
	return s
}

// New builds an unregistered store.
func New[T any](initial T, opts ...rea.CellOption) *Store[T] {
	return newStore("", initial, opts...)
}

func newStore[T any](key string, initial T, opts ...rea.CellOption) *Store[T] {
	return &Store[T]{
		key:     key,
		cell:    rea.NewCell(initial, opts...),
		initial: initial,
	}
}

// Key returns the registration key.
func (s *Store[T]) Key() string {
	return s.key
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	return s.cell.Get()
}

// Set replaces the current value and notifies subscribers.
func (s *Store[T]) Set(v T) {
	s.cell.Set(v)
}

// Update sets the value to fn applied to the current value.
func (s *Store[T]) Update(fn func(T) T) {
	s.cell.Update(fn)
}

// Initial returns the value the store was created with.
func (s *Store[T]) Initial() T {
	return s.initial
}

// Cell exposes the underlying cell for composition with rea.Derive and
// rea.Pipe, and for subscriptions that need to be released.
func (s *Store[T]) Cell() *rea.Cell[T] {
	return s.cell
}

// Reset sets the store back to its initial value. Subscribers see an
// ordinary notification.
func (s *Store[T]) Reset() {
	s.cell.Set(s.initial)
}

// Subscribe attaches fn for the lifetime of the store. Use
// Cell().Subscribe for a subscription that can be released.
func (s *Store[T]) Subscribe(fn func(T)) {
	s.cell.Subscribe(fn)
}

// ToObject returns the current value.
func (s *Store[T]) ToObject() T {
	return s.cell.Get()
}

// Snapshot returns the current value as any.
func (s *Store[T]) Snapshot() any {
	return s.cell.Get()
}

// Watch subscribes fn to type-erased values.
func (s *Store[T]) Watch(fn func(any)) *rea.Subscription {
	return s.cell.Subscribe(func(v T) { fn(v) })
}

// SetJSON decodes data as T and sets it.
func (s *Store[T]) SetJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("store %q: decode value: %w", s.key, err)
	}
	s.cell.Set(v)
	return nil
}

// Lookup resolves key to a typed store. It fails if key is not registered
// or the registered store does not hold T.
func Lookup[T any](reg *Registry, key string) (*Store[T], error) {
	entry, ok := reg.Get(key)
	if !ok || entry == nil {
		return nil, errors.New(errors.CodeStoreNotFound).WithKey(key).Wrap(ErrNotFound)
	}
	s, ok := entry.(*Store[T])
	if !ok || s.cell == nil {
		return nil, errors.New(errors.CodeStoreTypeMismatch).
			WithKey(key).
			WithDetail(fmt.Sprintf("registered store holds %T, requested %s", entry.Snapshot(), reflect.TypeFor[T]())).
			Wrap(ErrTypeMismatch)
	}
	return s, nil
}
