package registry

import (
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"github.com/vango-dev/reaxar/internal/logtest"
)

type event struct {
	op        string
	kind, key string
	overwrote bool
	cleared   int
}

type recordingObserver struct {
	mu     sync.Mutex
	events []event
}

func (o *recordingObserver) Added(kind, key string, overwrote bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event{op: "add", kind: kind, key: key, overwrote: overwrote})
}

func (o *recordingObserver) Missed(kind, key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event{op: "miss", kind: kind, key: key})
}

func (o *recordingObserver) Reset(kind string, cleared int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event{op: "reset", kind: kind, cleared: cleared})
}

func TestAddGetHas(t *testing.T) {
	r := New[int]("store")
	r.Add("a", 1)

	if !r.Has("a") {
		t.Error("expected Has(a)")
	}
	if v, ok := r.Get("a"); !ok || v != 1 {
		t.Errorf("expected (1, true), got (%d, %v)", v, ok)
	}
	if r.Kind() != "store" {
		t.Errorf("expected kind store, got %q", r.Kind())
	}
}

func TestGetMissingDoesNotFail(t *testing.T) {
	r := New[*int]("service")
	v, ok := r.Get("missing")
	if ok || v != nil {
		t.Errorf("expected (nil, false), got (%v, %v)", v, ok)
	}
	if r.Has("missing") {
		t.Error("Has(missing) should be false")
	}
}

func TestDuplicateOverwritesWithOneWarning(t *testing.T) {
	logger, logs := logtest.New()
	r := New[string]("service", WithLogger(logger))

	r.Add("svc", "first")
	if logs.Count(slog.LevelWarn) != 0 {
		t.Fatalf("unexpected warning on first add: %+v", logs.Records())
	}

	r.Add("svc", "second")
	if v, _ := r.Get("svc"); v != "second" {
		t.Errorf("expected second registration to win, got %q", v)
	}
	if n := logs.Count(slog.LevelWarn); n != 1 {
		t.Fatalf("expected exactly 1 warning, got %d", n)
	}
	rec := logs.Records()[0]
	if rec.Attrs["key"] != "svc" || rec.Attrs["kind"] != "service" {
		t.Errorf("warning missing key/kind attrs: %+v", rec.Attrs)
	}

	r.Add("svc", "third")
	if n := logs.Count(slog.LevelWarn); n != 2 {
		t.Errorf("expected one warning per duplicate add, got %d", n)
	}
}

func TestEmptyKeyWarns(t *testing.T) {
	logger, logs := logtest.New()
	r := New[int]("store", WithLogger(logger))
	r.Add("", 1)

	if logs.Count(slog.LevelWarn) != 1 {
		t.Errorf("expected empty-key warning, got %+v", logs.Records())
	}
	if !r.Has("") {
		t.Error("empty key should still be stored")
	}
}

func TestAllIsSnapshot(t *testing.T) {
	r := New[int]("store")
	r.Add("a", 1)
	r.Add("b", 2)

	all := r.All()
	all["c"] = 3
	delete(all, "a")

	if r.Len() != 2 || !r.Has("a") || r.Has("c") {
		t.Errorf("All() result aliased registry storage: keys=%v", r.Keys())
	}
}

func TestKeysSorted(t *testing.T) {
	r := New[int]("store")
	for _, k := range []string{"c", "a", "b"} {
		r.Add(k, 0)
	}
	if got := r.Keys(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("expected sorted keys, got %v", got)
	}
}

func TestResetKeepsResolvedReferences(t *testing.T) {
	type svc struct{ name string }
	r := New[*svc]("service")
	r.Add("s", &svc{name: "held"})

	held, _ := r.Get("s")
	r.Reset()

	if r.Len() != 0 || r.Has("s") {
		t.Error("expected registry to be empty after reset")
	}
	if held.name != "held" {
		t.Error("reset invalidated a held reference")
	}

	r.Add("s", &svc{name: "new"})
	if v, _ := r.Get("s"); v.name != "new" {
		t.Errorf("expected new registration after reset, got %q", v.name)
	}
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	r := New[int]("store", WithObserver(obs))

	r.Add("a", 1)
	r.Add("a", 2)
	r.Get("missing")
	r.Get("a")
	r.Reset()

	expected := []event{
		{op: "add", kind: "store", key: "a"},
		{op: "add", kind: "store", key: "a", overwrote: true},
		{op: "miss", kind: "store", key: "missing"},
		{op: "reset", kind: "store", cleared: 1},
	}
	if !reflect.DeepEqual(obs.events, expected) {
		t.Errorf("expected %+v, got %+v", expected, obs.events)
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New[int]("store")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			r.Add("k", n)
		}(i)
		go func() {
			defer wg.Done()
			r.Get("k")
			r.Keys()
		}()
	}
	wg.Wait()
	if !r.Has("k") {
		t.Error("expected key after concurrent adds")
	}
}

func TestPeekDoesNotReportMiss(t *testing.T) {
	obs := &recordingObserver{}
	r := New[int]("service", WithObserver(obs))
	r.Add("a", 1)

	if v, ok := r.Peek("a"); !ok || v != 1 {
		t.Errorf("expected (1, true), got (%d, %v)", v, ok)
	}
	for i := 0; i < 3; i++ {
		if _, ok := r.Peek("missing"); ok {
			t.Error("expected Peek(missing) to be false")
		}
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	for _, e := range obs.events {
		if e.op == "miss" {
			t.Errorf("expected no miss events, got %+v", obs.events)
			break
		}
	}
}
