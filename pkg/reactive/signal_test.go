package reactive

import (
	"sync"
	"testing"
)

func TestSignalBasic(t *testing.T) {
	count := NewSignal(0)

	if count.Get() != 0 {
		t.Errorf("expected initial value 0, got %d", count.Get())
	}

	count.Set(5)
	if count.Get() != 5 {
		t.Errorf("expected value 5, got %d", count.Get())
	}

	count.Update(func(n int) int { return n * 2 })
	if count.Get() != 10 {
		t.Errorf("expected value 10, got %d", count.Get())
	}
}

func TestSignalSubscribe(t *testing.T) {
	count := NewSignal(0)

	var got []int
	unsub := count.Subscribe(func(n int) {
		got = append(got, n)
	})

	count.Set(1)
	count.Set(1) // unchanged, must not notify
	count.Set(2)

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected notifications [1 2], got %v", got)
	}

	unsub()
	count.Set(3)
	if len(got) != 2 {
		t.Errorf("unsubscribed listener was notified, got %v", got)
	}

	// Unsubscribe is safe to call twice.
	unsub()
}

func TestSignalEqualityGating(t *testing.T) {
	// Slices compare via DeepEqual by default.
	posts := NewSignal([]string{"a"})

	notified := 0
	posts.Subscribe(func([]string) { notified++ })

	posts.Set([]string{"a"})
	if notified != 0 {
		t.Errorf("deep-equal value should not notify, got %d notifications", notified)
	}

	posts.Set([]string{"a", "b"})
	if notified != 1 {
		t.Errorf("expected 1 notification, got %d", notified)
	}
}

func TestSignalWithEquals(t *testing.T) {
	// Custom equality: compare only the integer part.
	val := NewSignal(1.2).WithEquals(func(a, b float64) bool {
		return int(a) == int(b)
	})

	notified := 0
	val.Subscribe(func(float64) { notified++ })

	val.Set(1.9)
	if notified != 0 {
		t.Errorf("custom-equal value should not notify, got %d", notified)
	}
	val.Set(2.1)
	if notified != 1 {
		t.Errorf("expected 1 notification, got %d", notified)
	}
}

func TestSignalMultipleSubscribers(t *testing.T) {
	count := NewSignal(0)

	var a, b int
	count.Subscribe(func(int) { a++ })
	count.Subscribe(func(int) { b++ })

	count.Set(1)
	if a != 1 || b != 1 {
		t.Errorf("expected both subscribers notified once, got a=%d b=%d", a, b)
	}
}

func TestSignalConcurrentReads(t *testing.T) {
	count := NewSignal(0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = count.Get()
			}
		}()
	}
	for i := 1; i <= 100; i++ {
		count.Set(i)
	}
	wg.Wait()

	if count.Get() != 100 {
		t.Errorf("expected final value 100, got %d", count.Get())
	}
}

func TestBatchCoalesces(t *testing.T) {
	first := NewSignal("")
	last := NewSignal("")

	firstNotified, lastNotified := 0, 0
	var firstSeen string
	first.Subscribe(func(v string) { firstNotified++; firstSeen = v })
	last.Subscribe(func(string) { lastNotified++ })

	Batch(func() {
		first.Set("a")
		first.Set("ab")
		last.Set("z")
	})

	if firstNotified != 1 {
		t.Errorf("expected 1 notification for first, got %d", firstNotified)
	}
	if firstSeen != "ab" {
		t.Errorf("expected batched notification to carry final value %q, got %q", "ab", firstSeen)
	}
	if lastNotified != 1 {
		t.Errorf("expected 1 notification for last, got %d", lastNotified)
	}
}

func TestBatchNested(t *testing.T) {
	count := NewSignal(0)

	notified := 0
	count.Subscribe(func(int) { notified++ })

	Batch(func() {
		count.Set(1)
		Batch(func() {
			count.Set(2)
		})
		if notified != 0 {
			t.Errorf("inner batch must not flush, got %d notifications", notified)
		}
	})

	if notified != 1 {
		t.Errorf("expected 1 notification after outermost batch, got %d", notified)
	}
	if count.Get() != 2 {
		t.Errorf("expected value 2, got %d", count.Get())
	}
}

func TestMapCopyOnWrite(t *testing.T) {
	pending := NewMap[string, bool]()

	pending.SetKey("post-1", true)
	before := pending.Get()

	pending.SetKey("post-2", true)
	if _, ok := before["post-2"]; ok {
		t.Error("SetKey mutated a previously published map")
	}

	if v, ok := pending.GetKey("post-1"); !ok || !v {
		t.Errorf("expected post-1 pending, got %v %v", v, ok)
	}

	pending.RemoveKey("post-1")
	if _, ok := pending.GetKey("post-1"); ok {
		t.Error("expected post-1 removed")
	}
	if pending.Len() != 1 {
		t.Errorf("expected 1 key, got %d", pending.Len())
	}

	notified := 0
	pending.Subscribe(func(map[string]bool) { notified++ })
	pending.RemoveKey("absent")
	if notified != 0 {
		t.Errorf("removing an absent key must not notify, got %d", notified)
	}
}
