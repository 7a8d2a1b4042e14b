package bridge

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/reaxar"
	reaerrors "github.com/vango-dev/reaxar/internal/errors"
	"github.com/vango-dev/reaxar/internal/logtest"
	"github.com/vango-dev/reaxar/pkg/service"
)

// loader blocks until released, then returns err.
type loader struct {
	release chan struct{}
	err     error
	calls   atomic.Int32
}

func newLoader(err error) *loader {
	return &loader{release: make(chan struct{}), err: err}
}

func (l *loader) Load(ctx context.Context) error {
	l.calls.Add(1)
	select {
	case <-l.release:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func load(ctx context.Context, l *loader) error {
	return l.Load(ctx)
}

type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []string
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.mu.Lock()
	t.spans = append(t.spans, name)
	t.mu.Unlock()
	return t.Tracer.Start(ctx, name, opts...)
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func recv(t *testing.T, ch <-chan FetchState) FetchState {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch state")
		return FetchState{}
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestFetchSuccessStates(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ld := newLoader(nil)
	reaxar.RegisterService(rt, "svc", ld)

	sess := NewSession(rt)
	defer sess.Dispose()

	f := AttachFetch(sess, "svc", load)

	states := make(chan FetchState, 4)
	sub := f.States().Subscribe(func(st FetchState) { states <- st })
	defer sub.Unsubscribe()

	close(ld.release)

	first := recv(t, states)
	if !first.Loading || first.Err != nil || first.Phase != PhaseLoading {
		t.Errorf("expected {loading:true, err:nil}, got %+v", first)
	}
	second := recv(t, states)
	if second.Loading || second.Err != nil || second.Phase != PhaseSucceeded {
		t.Errorf("expected {loading:false, err:nil}, got %+v", second)
	}
}

func TestFetchFailureStates(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ld := newLoader(errors.New("boom"))
	reaxar.RegisterService(rt, "svc", ld)

	sess := NewSession(rt)
	defer sess.Dispose()

	f := AttachFetch(sess, "svc", load)
	states := make(chan FetchState, 4)
	f.States().Subscribe(func(st FetchState) { states <- st })
	close(ld.release)

	recv(t, states)
	final := recv(t, states)
	if final.Loading || final.Phase != PhaseFailed {
		t.Fatalf("expected failed, not loading; got %+v", final)
	}
	if final.Err == nil || final.Err.Error() != "boom" {
		t.Errorf("expected error boom, got %v", final.Err)
	}
	if f.Loading() || f.Err() == nil {
		t.Errorf("accessors disagree with state: loading=%v err=%v", f.Loading(), f.Err())
	}
}

func TestFetchErrorMapperRaises(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ld := newLoader(errors.New("boom"))
	reaxar.RegisterService(rt, "svc", ld)

	raised := make(chan error, 1)
	sess := NewSession(rt, WithErrorBoundary(func(err error) { raised <- err }))
	defer sess.Dispose()

	mapper := func(err error) error { return fmt.Errorf("ui: %w", err) }
	AttachFetch(sess, "svc", load, WithErrorMapper(mapper))
	close(ld.release)

	select {
	case err := <-raised:
		if err.Error() != "ui: boom" {
			t.Errorf("expected mapped error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mapped error never raised")
	}
}

func TestFetchServiceNotFound(t *testing.T) {
	rt, _ := newTestRuntime(t)

	var raised []error
	sess := NewSession(rt, WithErrorBoundary(func(err error) { raised = append(raised, err) }))
	defer sess.Dispose()

	f := AttachFetch(sess, "missing", load)
	st := f.State()
	if st.Phase != PhaseFailed || st.Loading {
		t.Fatalf("expected failed state, got %+v", st)
	}
	if !errors.Is(st.Err, service.ErrNotFound) || !strings.Contains(st.Err.Error(), "missing") {
		t.Errorf("expected NotFound carrying key, got %v", st.Err)
	}
	if len(raised) != 0 {
		t.Errorf("raised without a mapper: %v", raised)
	}

	AttachFetch(sess, "missing", load, WithErrorMapper(func(err error) error {
		return fmt.Errorf("mapped: %w", err)
	}))
	if len(raised) != 1 || !errors.Is(raised[0], service.ErrNotFound) {
		t.Errorf("expected one mapped NotFound, got %v", raised)
	}
}

func TestFetchUnhandledRaiseIsLogged(t *testing.T) {
	rt, logs := newTestRuntime(t)
	sess := NewSession(rt)
	defer sess.Dispose()

	AttachFetch(sess, "missing", load, WithErrorMapper(func(err error) error { return err }))
	if len(logs.Records()) != 1 || logs.Records()[0].Message != "unhandled fetch error" {
		t.Errorf("expected unhandled error log, got %+v", logs.Records())
	}
}

func TestFetchPanicBecomesError(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reaxar.RegisterService(rt, "svc", newLoader(nil))
	sess := NewSession(rt)
	defer sess.Dispose()

	f := AttachFetch(sess, "svc", func(context.Context, *loader) error {
		panic("kaboom")
	})

	eventually(t, func() bool { return f.State().Phase == PhaseFailed })

	var re *reaerrors.ReaError
	if !errors.As(f.Err(), &re) || re.Code != reaerrors.CodeFetchPanic {
		t.Fatalf("expected R021 error, got %v", f.Err())
	}
	if !strings.Contains(f.Err().Error(), "kaboom") {
		t.Errorf("panic value lost: %v", f.Err())
	}
	if f.Loading() {
		t.Error("loading not reset after panic")
	}
}

func TestFetchDiscardedAfterDispose(t *testing.T) {
	logger, _ := logtest.New()
	obs := newCountingObserver()
	rt := reaxar.New(reaxar.Config{Logger: logger, Observer: obs})
	ld := newLoader(nil)
	reaxar.RegisterService(rt, "svc", ld)

	sess := NewSession(rt)
	f := AttachFetch(sess, "svc", load)
	eventually(t, func() bool { return ld.calls.Load() == 1 })

	sess.Dispose()
	close(ld.release)
	time.Sleep(50 * time.Millisecond)

	if st := f.State(); st.Phase != PhaseLoading || !st.Loading {
		t.Errorf("state written after dispose: %+v", st)
	}
	if got := obs.snapshotOutcomes(); len(got) != 0 {
		t.Errorf("observer notified after dispose: %v", got)
	}
}

func TestFetchUpdateReRunsOnChange(t *testing.T) {
	rt, _ := newTestRuntime(t)
	a, b := newLoader(nil), newLoader(nil)
	close(a.release)
	close(b.release)
	reaxar.RegisterService(rt, "a", a)
	reaxar.RegisterService(rt, "b", b)

	sess := NewSession(rt)
	defer sess.Dispose()

	f := AttachFetch(sess, "a", load, WithDeps("v1"))
	eventually(t, func() bool { return f.State().Phase == PhaseSucceeded })

	if f.Update("a", load, WithDeps("v1")) {
		t.Error("unchanged inputs must not re-run")
	}
	if !f.Update("b", load, WithDeps("v1")) {
		t.Error("key change must re-run")
	}
	eventually(t, func() bool { return b.calls.Load() == 1 })

	replacement := newLoader(nil)
	close(replacement.release)
	reaxar.RegisterService(rt, "b", replacement)
	if !f.Update("b", load, WithDeps("v1")) {
		t.Error("service identity change must re-run")
	}
	eventually(t, func() bool { return replacement.calls.Load() == 1 })

	if !f.Update("b", load, WithDeps("v2")) {
		t.Error("deps change must re-run")
	}
	eventually(t, func() bool { return replacement.calls.Load() == 2 })

	if f.Update("b", load, WithDeps("v2"), WithErrorMapper(func(err error) error { return err })) {
		t.Error("mapper swap alone must not re-run")
	}
	if !f.Update("b", load) {
		t.Error("method without deps must re-run")
	}
	eventually(t, func() bool { return replacement.calls.Load() == 3 })

	if f.Update("b", nil) {
		t.Error("nil method with the same key must not re-run")
	}
	if a.calls.Load() != 1 {
		t.Errorf("expected service a called once, got %d", a.calls.Load())
	}
}

// userService records the ids it was asked to load.
type userService struct {
	mu     sync.Mutex
	loaded []int
}

func (u *userService) Load(_ context.Context, id int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.loaded = append(u.loaded, id)
	return nil
}

func (u *userService) ids() []int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]int(nil), u.loaded...)
}

// loadUser builds the same closure for every id; only the captured id differs.
func loadUser(id int) Method[*userService] {
	return func(ctx context.Context, u *userService) error {
		return u.Load(ctx, id)
	}
}

func TestFetchUpdateClosureOverDifferentIDs(t *testing.T) {
	rt, _ := newTestRuntime(t)
	users := &userService{}
	reaxar.RegisterService(rt, "users", users)

	sess := NewSession(rt)
	defer sess.Dispose()

	f := AttachFetch(sess, "users", loadUser(1), WithDeps(1))
	eventually(t, func() bool { return len(users.ids()) == 1 })

	if !f.Update("users", loadUser(2), WithDeps(2)) {
		t.Fatal("closure over a new id must re-run")
	}
	eventually(t, func() bool { return len(users.ids()) == 2 })

	if f.Update("users", loadUser(2), WithDeps(2)) {
		t.Error("fresh closure with the same deps must not re-run")
	}
	if !f.Update("users", loadUser(3)) {
		t.Error("closure without deps must re-run")
	}
	eventually(t, func() bool { return len(users.ids()) == 3 })

	expected := []int{1, 2, 3}
	if got := users.ids(); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected loads %v, got %v", expected, got)
	}
}

func TestFetchUpdateDoesNotReportMisses(t *testing.T) {
	logger, _ := logtest.New()
	obs := newCountingObserver()
	rt := reaxar.New(reaxar.Config{Logger: logger, Observer: obs})

	sess := NewSession(rt)
	defer sess.Dispose()

	f := AttachFetch(sess, "absent", load, WithDeps(1))
	for i := 0; i < 3; i++ {
		if f.Update("absent", load, WithDeps(1)) {
			t.Error("unchanged missing service must not re-run")
		}
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.missed != 1 {
		t.Errorf("expected one miss from the attach, got %d", obs.missed)
	}
}

func TestFetchSettleRacingRefetch(t *testing.T) {
	rt, _ := newTestRuntime(t)
	first := newLoader(errors.New("stale"))
	reaxar.RegisterService(rt, "svc", first)

	sess := NewSession(rt)
	defer sess.Dispose()

	f := AttachFetch(sess, "svc", load)
	eventually(t, func() bool { return first.calls.Load() == 1 })

	second := newLoader(nil)
	reaxar.RegisterService(rt, "svc", second)

	refetched := make(chan struct{})
	var once sync.Once
	f.testHookSettle = func(st FetchState) {
		if st.Phase != PhaseFailed {
			return
		}
		once.Do(func() {
			go func() {
				f.Refetch()
				close(refetched)
			}()
			// Leave the Refetch time to overtake the pending write.
			time.Sleep(20 * time.Millisecond)
		})
	}
	close(first.release)

	select {
	case <-refetched:
	case <-time.After(2 * time.Second):
		t.Fatal("refetch never completed")
	}
	eventually(t, func() bool { return second.calls.Load() == 1 })

	if st := f.State(); st.Phase != PhaseLoading || !st.Loading {
		t.Errorf("stale result overwrote the new cycle: %+v", st)
	}
}

func TestFetchSettleRacingDispose(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ld := newLoader(nil)
	reaxar.RegisterService(rt, "svc", ld)

	sess := NewSession(rt)
	f := AttachFetch(sess, "svc", load)
	eventually(t, func() bool { return ld.calls.Load() == 1 })

	disposed := make(chan struct{})
	var once sync.Once
	f.testHookSettle = func(st FetchState) {
		if st.Phase != PhaseSucceeded {
			return
		}
		once.Do(func() {
			go func() {
				sess.Dispose()
				close(disposed)
			}()
			time.Sleep(20 * time.Millisecond)
		})
	}

	var lateWrite atomic.Bool
	f.States().Subscribe(func(st FetchState) {
		if st.Phase != PhaseSucceeded {
			return
		}
		select {
		case <-disposed:
			lateWrite.Store(true)
		default:
		}
	})
	close(ld.release)

	select {
	case <-disposed:
	case <-time.After(2 * time.Second):
		t.Fatal("dispose never completed")
	}
	if lateWrite.Load() {
		t.Error("state written after Dispose returned")
	}
}

func TestFetchSupersededResultIgnored(t *testing.T) {
	rt, _ := newTestRuntime(t)
	slow := newLoader(errors.New("stale"))
	reaxar.RegisterService(rt, "svc", slow)

	sess := NewSession(rt)
	defer sess.Dispose()

	f := AttachFetch(sess, "svc", load)
	eventually(t, func() bool { return slow.calls.Load() == 1 })

	fast := newLoader(nil)
	close(fast.release)
	reaxar.RegisterService(rt, "svc", fast)
	f.Refetch()

	eventually(t, func() bool { return f.State().Phase == PhaseSucceeded })
	close(slow.release)
	time.Sleep(50 * time.Millisecond)

	if f.State().Phase != PhaseSucceeded {
		t.Errorf("superseded fetch overwrote state: %+v", f.State())
	}
}

func TestFetchTracingAndMetrics(t *testing.T) {
	logger, _ := logtest.New()
	tracer := &recordingTracer{}
	obs := newCountingObserver()
	rt := reaxar.New(reaxar.Config{
		Logger:         logger,
		Observer:       obs,
		TracerProvider: recordingProvider{tracer: tracer},
	})
	ld := newLoader(nil)
	close(ld.release)
	reaxar.RegisterService(rt, "svc", ld)

	sess := NewSession(rt)
	defer sess.Dispose()
	AttachFetch(sess, "svc", load)
	AttachFetch(sess, "nope", load)

	eventually(t, func() bool { return len(obs.snapshotOutcomes()) == 2 })

	outcomes := obs.snapshotOutcomes()
	if outcomes[0] != OutcomeNotFound && outcomes[1] != OutcomeNotFound {
		t.Errorf("expected a not_found outcome, got %v", outcomes)
	}
	tracer.mu.Lock()
	defer tracer.mu.Unlock()
	if len(tracer.spans) != 1 || tracer.spans[0] != "reaxar.fetch" {
		t.Errorf("expected one reaxar.fetch span, got %v", tracer.spans)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseLoading.String() != "Loading" || Phase(42).String() != "Unknown" {
		t.Error("unexpected phase names")
	}
}
