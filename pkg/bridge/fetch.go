package bridge

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reaxar/internal/errors"
	"github.com/vango-dev/reaxar/pkg/rea"
	"github.com/vango-dev/reaxar/pkg/service"
)

// Phase is the progress of a fetch cycle.
type Phase int

const (
	PhaseIdle      Phase = iota // Not started
	PhaseLoading                // Method running
	PhaseSucceeded              // Method returned nil
	PhaseFailed                 // Resolution failed or method returned an error
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseLoading:
		return "Loading"
	case PhaseSucceeded:
		return "Succeeded"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// FetchState is what a component renders for a fetch.
type FetchState struct {
	Phase   Phase
	Loading bool
	Err     error
}

// Method is the service call a fetch runs.
type Method[S any] func(ctx context.Context, svc S) error

// ErrorMapper converts a fetch error before it is raised to the session's
// error boundary.
type ErrorMapper func(error) error

// FetchOption configures a fetch.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	mapper  ErrorMapper
	deps    any
	hasDeps bool
}

// WithErrorMapper raises mapper(err) to the session's error boundary
// whenever the fetch fails. Without a mapper, failures only reach the
// fetch state.
func WithErrorMapper(mapper ErrorMapper) FetchOption {
	return func(c *fetchConfig) {
		c.mapper = mapper
	}
}

// WithDeps declares the values the method closes over. Update re-runs the
// fetch only when deps differ from the previous ones by ==. Deps should be
// comparable; a slice or map is never equal and re-runs on every Update.
//
// Without WithDeps every Update given a method re-runs, since two closures
// cannot be told apart.
func WithDeps(deps any) FetchOption {
	return func(c *fetchConfig) {
		c.deps = deps
		c.hasDeps = true
	}
}

// Outcomes reported to the runtime observer.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// Fetch runs a service method for a session and tracks loading and error
// state.
type Fetch[S any] struct {
	session *Session
	state   *rea.Cell[FetchState]

	// guard is held across the liveness check and the state write in
	// settle, and across every fetch ID bump, so a result that lost the race
	// can never land after its cycle was superseded or stopped.
	guard settleGuard

	mu      sync.Mutex
	key     string
	method  Method[S]
	mapper  ErrorMapper
	deps    any
	hasDeps bool
	svc     any
	fetchID uint64
	cancel  context.CancelFunc

	// testHookSettle runs between the liveness check and the state write.
	testHookSettle func(FetchState)
}

// AttachFetch resolves the service registered under key and runs method
// against it. If the service cannot be resolved, the fetch fails with an
// error matching service.ErrNotFound.
func AttachFetch[S any](s *Session, key string, method Method[S], opts ...FetchOption) *Fetch[S] {
	cfg := fetchConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Fetch[S]{
		session: s,
		state:   rea.NewCell(FetchState{}, s.rt.CellOptions()...),
		key:     key,
		method:  method,
		mapper:  cfg.mapper,
		deps:    cfg.deps,
		hasDeps: cfg.hasDeps,
	}
	if s.Disposed() {
		return f
	}
	s.OnCleanup(f.stop)
	f.run()
	return f
}

// State returns the current fetch state.
func (f *Fetch[S]) State() FetchState {
	return f.state.Get()
}

// Loading reports whether the method is running.
func (f *Fetch[S]) Loading() bool {
	return f.state.Get().Loading
}

// Err returns the fetch error, or nil.
func (f *Fetch[S]) Err() error {
	return f.state.Get().Err
}

// States returns a stream of fetch states, starting with the current one.
func (f *Fetch[S]) States() rea.Stream[FetchState] {
	return f.state.Stream()
}

// Update re-runs the fetch when key or the service registered for key has
// changed, or when method is non-nil and its deps changed (see WithDeps).
// A nil method keeps the current one. The method and mapper given are used
// from the next cycle on even when nothing re-runs. Update reports whether a
// new cycle started.
func (f *Fetch[S]) Update(key string, method Method[S], opts ...FetchOption) bool {
	cfg := fetchConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	svc, _ := f.session.rt.Services().Peek(key)

	f.mu.Lock()
	changed := f.key != key || !sameIdentity(f.svc, svc)
	if method != nil {
		if cfg.hasDeps {
			changed = changed || !f.hasDeps || !sameIdentity(f.deps, cfg.deps)
		} else {
			changed = true
		}
		f.method = method
		f.deps, f.hasDeps = cfg.deps, cfg.hasDeps
	}
	f.key = key
	f.mapper = cfg.mapper
	f.mu.Unlock()

	if !changed || f.session.Disposed() {
		return false
	}
	f.run()
	return true
}

// Refetch starts a new cycle with the current inputs.
func (f *Fetch[S]) Refetch() {
	if f.session.Disposed() {
		return
	}
	f.run()
}

// run starts a fetch cycle. Any cycle still in flight is superseded.
func (f *Fetch[S]) run() {
	s := f.session
	f.mu.Lock()
	key := f.key
	f.mu.Unlock()
	svc, err := service.Resolve[S](s.rt.Services(), key)

	unlock := f.guard.lock()
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.fetchID++
	id := f.fetchID
	method, mapper := f.method, f.mapper
	ctx, cancel := context.WithCancel(s.ctx)
	f.cancel = cancel
	if err == nil {
		f.svc = svc
	} else {
		// A service of the wrong type is kept too, so Update does not
		// retry it on every call.
		f.svc, _ = s.rt.Services().Peek(key)
	}
	f.mu.Unlock()
	unlock()

	if err != nil {
		cancel()
		f.settle(id, FetchState{Phase: PhaseFailed, Err: err})
		f.observe(key, OutcomeNotFound, 0)
		if mapper != nil {
			s.raise(mapper(err))
		}
		return
	}

	f.settle(id, FetchState{Phase: PhaseLoading, Loading: true})

	ctx, span := s.rt.Tracer().Start(ctx, "reaxar.fetch",
		trace.WithAttributes(
			attribute.String("reaxar.service", key),
			attribute.String("reaxar.session", s.name),
		),
	)

	go func() {
		defer cancel()
		start := time.Now()

		callErr := invoke(ctx, method, svc)
		elapsed := time.Since(start)

		if callErr != nil {
			span.RecordError(callErr)
			span.SetStatus(codes.Error, callErr.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		if callErr != nil {
			if !f.settle(id, FetchState{Phase: PhaseFailed, Err: callErr}) {
				return
			}
			s.logger.Debug(errors.New(errors.CodeFetchFailed).WithKey(key).Wrap(callErr).Error(),
				"elapsed", elapsed,
			)
			f.observe(key, OutcomeError, elapsed)
			if mapper != nil {
				s.raise(mapper(callErr))
			}
			return
		}
		if f.settle(id, FetchState{Phase: PhaseSucceeded}) {
			f.observe(key, OutcomeSuccess, elapsed)
		}
	}()
}

// invoke calls method, converting a panic into an error.
func invoke[S any](ctx context.Context, method Method[S], svc S) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeFetchPanic).Wrap(errors.FromPanic(r))
		}
	}()
	return method(ctx, svc)
}

// settle publishes st if cycle id is still current and the session is live.
func (f *Fetch[S]) settle(id uint64, st FetchState) bool {
	unlock := f.guard.lock()
	defer unlock()

	f.mu.Lock()
	live := f.fetchID == id && !f.session.Disposed()
	f.mu.Unlock()
	if !live {
		return false
	}
	if f.testHookSettle != nil {
		f.testHookSettle(st)
	}
	f.state.Set(st)
	return true
}

// stop invalidates the cycle in flight. Its result will be discarded.
func (f *Fetch[S]) stop() {
	unlock := f.guard.lock()
	defer unlock()

	f.mu.Lock()
	f.fetchID++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.mu.Unlock()
}

func (f *Fetch[S]) observe(key, outcome string, elapsed time.Duration) {
	if obs := f.session.observer(); obs != nil {
		obs.FetchFinished(key, outcome, elapsed)
	}
}
