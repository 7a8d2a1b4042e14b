// Package reaxar is the entry point for the reaxar reactive-state layer.
//
// A Runtime carries everything reactive code needs to share: the store
// registry, the service registry, the diagnostic logger, an optional metrics
// observer and the tracer used for fetch spans. Create one per application
// (or per test) and pass it to the code that builds stores, registers
// services and attaches UI sessions:
//
//	rt := reaxar.New(reaxar.Config{Logger: logger})
//
//	cart := reaxar.CreateStore(rt, []Item{}, "cart")
//	reaxar.RegisterService(rt, "todos", NewTodoService(api))
//
//	sess := bridge.NewSession(rt)
//	defer sess.Dispose()
//	items := bridge.AttachStore[[]Item](sess, "cart", rerender)
//
// See pkg/rea for the reactive cell, pkg/store and pkg/service for the two
// registries, and pkg/bridge for UI lifecycle integration.
package reaxar

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reaxar/pkg/rea"
	"github.com/vango-dev/reaxar/pkg/registry"
	"github.com/vango-dev/reaxar/pkg/service"
	"github.com/vango-dev/reaxar/pkg/store"
)

// TracerName is the instrumentation name used for reaxar spans.
const TracerName = "github.com/vango-dev/reaxar"

// Observer receives runtime events. metrics.Collector implements it.
type Observer interface {
	registry.Observer

	// BindingOpened is called when a UI binding attaches to a source.
	BindingOpened(source string)

	// BindingClosed is called when a UI binding is released.
	BindingClosed(source string)

	// FetchFinished is called when a fetch cycle settles. outcome is
	// "success", "error" or "not_found".
	FetchFinished(service, outcome string, elapsed time.Duration)
}

// Config configures a Runtime.
type Config struct {
	// Logger is the diagnostic sink for warnings such as duplicate keys.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// MaxNotifyDepth bounds nested notifications for cells created through
	// the runtime. Zero uses rea.DefaultMaxNotifyDepth.
	MaxNotifyDepth int

	// Observer receives registry, binding and fetch events. Optional.
	Observer Observer

	// TracerProvider provides the tracer for fetch spans.
	// If nil, the global OpenTelemetry provider is used.
	TracerProvider trace.TracerProvider
}

// Runtime is the explicit context object shared by stores, services and
// UI sessions.
type Runtime struct {
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
	maxDepth int

	stores   *store.Registry
	services *service.Registry
}

// New creates a Runtime with empty registries.
func New(cfg Config) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	opts := []registry.Option{registry.WithLogger(logger)}
	if cfg.Observer != nil {
		opts = append(opts, registry.WithObserver(cfg.Observer))
	}

	return &Runtime{
		logger:   logger,
		observer: cfg.Observer,
		tracer:   tp.Tracer(TracerName),
		maxDepth: cfg.MaxNotifyDepth,
		stores:   store.NewRegistry(opts...),
		services: service.NewRegistry(opts...),
	}
}

// Logger returns the runtime's diagnostic logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Observer returns the configured observer, or nil.
func (rt *Runtime) Observer() Observer {
	return rt.observer
}

// Tracer returns the tracer used for fetch spans.
func (rt *Runtime) Tracer() trace.Tracer {
	return rt.tracer
}

// Stores returns the store registry.
func (rt *Runtime) Stores() *store.Registry {
	return rt.stores
}

// Services returns the service registry.
func (rt *Runtime) Services() *service.Registry {
	return rt.services
}

// CellOptions returns the cell options implied by the runtime config.
func (rt *Runtime) CellOptions() []rea.CellOption {
	return []rea.CellOption{
		rea.WithLogger(rt.logger),
		rea.WithMaxNotifyDepth(rt.maxDepth),
	}
}

// Reset clears both registries. References already resolved by consumers
// remain valid.
func (rt *Runtime) Reset() {
	rt.stores.Reset()
	rt.services.Reset()
}

// NewCell creates a cell using the runtime's logger and depth limit.
func NewCell[T any](rt *Runtime, initial T, opts ...rea.CellOption) *rea.Cell[T] {
	return rea.NewCell(initial, append(rt.CellOptions(), opts...)...)
}

// CreateStore creates a store and registers it under key in the runtime's
// store registry.
func CreateStore[T any](rt *Runtime, initial T, key string, opts ...rea.CellOption) *store.Store[T] {
	return store.Create(rt.stores, initial, key, append(rt.CellOptions(), opts...)...)
}

// RegisterService registers svc under key in the runtime's service registry.
func RegisterService(rt *Runtime, key string, svc any) {
	service.Register(rt.services, key, svc)
}

// ResolveService strictly resolves the service registered under key.
func ResolveService[T any](rt *Runtime, key string) (T, error) {
	return service.Resolve[T](rt.services, key)
}
