package reactive

import "testing"

func TestComputedLazy(t *testing.T) {
	count := NewSignal(2)

	computations := 0
	double := NewComputed(func() int {
		computations++
		return count.Get() * 2
	}, count)

	if computations != 0 {
		t.Errorf("computation must be lazy, ran %d times", computations)
	}

	if double.Get() != 4 {
		t.Errorf("expected 4, got %d", double.Get())
	}
	if computations != 1 {
		t.Errorf("expected 1 computation, got %d", computations)
	}

	// Cached until a source changes.
	_ = double.Get()
	if computations != 1 {
		t.Errorf("expected cached value, got %d computations", computations)
	}

	count.Set(5)
	if double.Get() != 10 {
		t.Errorf("expected 10 after source change, got %d", double.Get())
	}
}

func TestComputedSubscribe(t *testing.T) {
	user := NewSignal("")
	signedIn := NewComputed(func() bool {
		return user.Get() != ""
	}, user)
	_ = signedIn.Get()

	var got []bool
	signedIn.Subscribe(func(v bool) { got = append(got, v) })

	user.Set("bob")
	user.Set("jane") // derived value unchanged, must not notify
	user.Set("")

	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("expected notifications [true false], got %v", got)
	}
}

func TestComputedDispose(t *testing.T) {
	count := NewSignal(0)
	derived := NewComputed(func() int { return count.Get() + 1 }, count)
	_ = derived.Get()

	notified := 0
	derived.Subscribe(func(int) { notified++ })

	derived.Dispose()
	count.Set(10)

	if notified != 0 {
		t.Errorf("disposed computed must not react, got %d notifications", notified)
	}
}

func TestComputedChain(t *testing.T) {
	count := NewSignal(1)
	double := NewComputed(func() int { return count.Get() * 2 }, count)
	quad := NewComputed(func() int { return double.Get() * 2 }, double)
	_ = quad.Get()

	count.Set(3)
	if quad.Get() != 12 {
		t.Errorf("expected chained computed 12, got %d", quad.Get())
	}
}
