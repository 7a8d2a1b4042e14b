package rea

import (
	"reflect"
	"strconv"
	"testing"
)

func TestDeriveIndexPerSubscriber(t *testing.T) {
	cell := NewCell(10)
	derived := Derive(cell, func(v, i int) string {
		return strconv.Itoa(i) + ":" + strconv.Itoa(v)
	})

	first := &recorder[string]{}
	derived.Subscribe(first.push)
	cell.Set(20)

	second := &recorder[string]{}
	derived.Subscribe(second.push)
	cell.Set(30)

	if got, want := first.got(), []string{"0:10", "1:20", "2:30"}; !reflect.DeepEqual(got, want) {
		t.Errorf("first: expected %v, got %v", want, got)
	}
	if got, want := second.got(), []string{"0:20", "1:30"}; !reflect.DeepEqual(got, want) {
		t.Errorf("second: expected %v, got %v", want, got)
	}
}

func TestDeriveIsLazy(t *testing.T) {
	cell := NewCell(1)
	calls := 0
	derived := Derive(cell, func(v, _ int) int {
		calls++
		return v * 2
	})

	cell.Set(2)
	if calls != 0 {
		t.Fatalf("expected no evaluation before subscribe, got %d", calls)
	}

	var last int
	sub := derived.Subscribe(func(v int) { last = v })
	if last != 4 || calls != 1 {
		t.Errorf("expected replayed 4 after 1 call, got %d after %d", last, calls)
	}

	sub.Unsubscribe()
	cell.Set(3)
	if calls != 1 {
		t.Errorf("released derived stream still evaluating: %d calls", calls)
	}
	if cell.Subscribers() != 0 {
		t.Errorf("upstream subscription leaked: %d", cell.Subscribers())
	}
}

func TestPipeOperators(t *testing.T) {
	cell := NewCell(0)
	evensDoubled := cell.Pipe(
		Filter(func(n int) bool { return n%2 == 0 }),
		Map(func(n int) int { return n * 2 }),
	)

	rec := &recorder[int]{}
	evensDoubled.Subscribe(rec.push)
	for i := 1; i <= 4; i++ {
		cell.Set(i)
	}

	if got, want := rec.got(), []int{0, 4, 8}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPipeWithoutOperatorsIsReadOnly(t *testing.T) {
	cell := NewCell("x")
	piped := Pipe[string](cell)
	if _, ok := piped.(*Cell[string]); ok {
		t.Fatal("Pipe must not return the cell itself")
	}
}

func TestMapChangesType(t *testing.T) {
	cell := NewCell(7)
	labels := Map(strconv.Itoa)(cell)

	var got string
	labels.Subscribe(func(s string) { got = s })
	if got != "7" {
		t.Errorf("expected \"7\", got %q", got)
	}
}

func TestCellComputed(t *testing.T) {
	cell := NewCell(3)
	rec := &recorder[int]{}
	cell.Computed(func(v, i int) int { return v + i }).Subscribe(rec.push)
	cell.Set(3)

	if got, want := rec.got(), []int{3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSubjectNoReplay(t *testing.T) {
	subj := NewSubject[int]()
	subj.Emit(1)

	rec := &recorder[int]{}
	sub := subj.Subscribe(rec.push)
	if len(rec.got()) != 0 {
		t.Fatalf("subject replayed: %v", rec.got())
	}

	subj.Emit(2)
	sub.Unsubscribe()
	subj.Emit(3)

	if got, want := rec.got(), []int{2}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if subj.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", subj.Subscribers())
	}
}

func TestOf(t *testing.T) {
	stream := Of(1, 2, 3)

	for i := 0; i < 2; i++ {
		rec := &recorder[int]{}
		sub := stream.Subscribe(rec.push)
		if got, want := rec.got(), []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
			t.Errorf("pass %d: expected %v, got %v", i, want, got)
		}
		sub.Unsubscribe()
		sub.Unsubscribe()
	}
}

func TestStreamIdentity(t *testing.T) {
	cell := NewCell(1)
	a := Derive(cell, func(v, _ int) int { return v })
	b := Derive(cell, func(v, _ int) int { return v })

	if a == b {
		t.Error("separate Derive calls must yield distinct streams")
	}
}

func TestStreamFuncAdapter(t *testing.T) {
	calls := 0
	var src Stream[int] = StreamFunc[int](func(fn func(int)) *Subscription {
		calls++
		fn(9)
		return nil
	})

	var got int
	Map(func(n int) int { return n + 1 })(src).Subscribe(func(n int) { got = n })
	if calls != 1 || got != 10 {
		t.Errorf("expected one upstream subscribe and 10, got %d and %d", calls, got)
	}
}
