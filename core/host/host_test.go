package host

import "testing"

func TestRegion(t *testing.T) {
	r := Region{Begin: 3, End: 10}
	if r.Len() != 7 {
		t.Errorf("Len() = %d, want 7", r.Len())
	}
	if r.Empty() {
		t.Error("Empty() = true for non-empty region")
	}
	if got := r.Shift(-3); got != (Region{Begin: 0, End: 7}) {
		t.Errorf("Shift(-3) = %+v", got)
	}
	if !(Region{Begin: 4, End: 4}).Empty() {
		t.Error("zero-width region should be empty")
	}
}

func TestEventString(t *testing.T) {
	want := map[Event]string{
		Loaded:    "loaded",
		PreSave:   "pre_save",
		PostSave:  "post_save",
		Modified:  "modified",
		Closed:    "closed",
		Event(42): "event(42)",
	}
	for e, s := range want {
		if e.String() != s {
			t.Errorf("%d.String() = %q, want %q", int(e), e.String(), s)
		}
	}
}

func TestBusDispatchOrder(t *testing.T) {
	bus := NewBus()
	var calls []string

	bus.Subscribe(PreSave, func(Document) { calls = append(calls, "first") })
	bus.Subscribe(PreSave, func(Document) { calls = append(calls, "second") })
	bus.Subscribe(PostSave, func(Document) { calls = append(calls, "post") })

	bus.Emit(PreSave, nil)
	bus.Emit(Closed, nil)
	bus.Emit(PostSave, nil)

	want := []string{"first", "second", "post"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestZeroBusSubscribe(t *testing.T) {
	var bus Bus
	fired := false
	bus.Subscribe(Loaded, func(Document) { fired = true })
	bus.Emit(Loaded, nil)
	if !fired {
		t.Error("handler on zero-value Bus did not fire")
	}
}
