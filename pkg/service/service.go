package service

import (
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/vango-dev/reaxar/internal/errors"
	"github.com/vango-dev/reaxar/pkg/registry"
)

// Kind is the registry kind used for services.
const Kind = "service"

// ErrNotFound is matched (with errors.Is) by every failed strict lookup.
var ErrNotFound = stderrors.New("service not found")

// Registry is the service registry.
type Registry = registry.Registry[any]

// NewRegistry creates an empty service registry.
func NewRegistry(opts ...registry.Option) *Registry {
	return registry.New[any](Kind, opts...)
}

// Register adds svc under key. A service already registered under key is
// replaced; the registry logs one warning for the overwrite.
func Register(reg *Registry, key string, svc any) {
	reg.Add(key, svc)
}

// Resolve returns the service registered under key as T. It fails with an
// error matching ErrNotFound if nothing is registered under key, or if the
// registered service is not a T.
func Resolve[T any](reg *Registry, key string) (T, error) {
	var zero T
	v, ok := reg.Get(key)
	if !ok || v == nil {
		return zero, NotFound(key)
	}
	svc, ok := v.(T)
	if !ok {
		return zero, NotFound(key).
			WithDetail(fmt.Sprintf("registered service is %T, requested %s", v, reflect.TypeFor[T]()))
	}
	return svc, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](reg *Registry, key string) T {
	svc, err := Resolve[T](reg, key)
	if err != nil {
		panic(err)
	}
	return svc
}

// NotFound builds the strict-lookup error for key.
func NotFound(key string) *errors.ReaError {
	return errors.New(errors.CodeServiceNotFound).
		WithKey(key).
		WithSuggestion("register the service with service.Register before resolving it").
		Wrap(ErrNotFound)
}
