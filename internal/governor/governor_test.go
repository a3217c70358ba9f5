package governor

import (
	"context"
	"sync"
	"testing"
	"time"
)

// --- Governor Tests ---

func TestNew_Defaults(t *testing.T) {
	g := New(Config{})

	if g.Delay() != 0 {
		t.Errorf("expected initial delay 0, got %v", g.Delay())
	}
	if time.Duration(g.incStep) != defaultStep {
		t.Errorf("expected increment step %v, got %v", defaultStep, time.Duration(g.incStep))
	}
	if time.Duration(g.ceiling) != defaultCeiling {
		t.Errorf("expected ceiling %v, got %v", defaultCeiling, time.Duration(g.ceiling))
	}
}

func TestNew_StartsAtFloor(t *testing.T) {
	g := New(Config{Floor: 2 * time.Second, Ceiling: 10 * time.Second})

	if g.Delay() != 2*time.Second {
		t.Errorf("expected delay to start at floor, got %v", g.Delay())
	}
}

func TestIncrement_StrictlyIncreasesUpToCeiling(t *testing.T) {
	g := New(Config{Ceiling: 3 * time.Second, IncrementStep: time.Second})

	prev := g.Delay()
	for i := 0; i < 3; i++ {
		next := g.Increment()
		if next <= prev {
			t.Fatalf("increment %d: expected %v > %v", i, next, prev)
		}
		prev = next
	}

	// Дальше — потолок
	if got := g.Increment(); got != 3*time.Second {
		t.Errorf("expected delay clamped at ceiling 3s, got %v", got)
	}
}

func TestDecrement_NeverBelowFloor(t *testing.T) {
	g := New(Config{
		Floor:         time.Second,
		Ceiling:       10 * time.Second,
		IncrementStep: 2 * time.Second,
		DecrementStep: 3 * time.Second,
	})

	g.Increment() // 3s
	g.Increment() // 5s

	if got := g.Decrement(); got != 2*time.Second {
		t.Errorf("expected 2s after decrement, got %v", got)
	}
	if got := g.Decrement(); got != time.Second {
		t.Errorf("expected floor 1s, got %v", got)
	}
	if got := g.Decrement(); got != time.Second {
		t.Errorf("expected to stay at floor, got %v", got)
	}
}

func TestDecrement_AfterIncrementStrictlyDecreases(t *testing.T) {
	g := New(Config{Ceiling: time.Minute})

	for i := 0; i < 5; i++ {
		g.Increment()
	}
	before := g.Delay()
	after := g.Decrement()

	if after >= before {
		t.Errorf("expected %v < %v", after, before)
	}
}

func TestOnChange(t *testing.T) {
	var got []time.Duration
	g := New(Config{
		Ceiling:  2 * time.Second,
		OnChange: func(d time.Duration) { got = append(got, d) },
	})

	g.Increment()
	g.Increment()
	g.Increment() // упёрлись в потолок — без вызова
	g.Decrement()

	want := []time.Duration{time.Second, 2 * time.Second, time.Second}
	if len(got) != len(want) {
		t.Fatalf("expected %d OnChange calls, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestConcurrentUpdatesStayClamped(t *testing.T) {
	g := New(Config{Floor: 0, Ceiling: 5 * time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); g.Increment() }()
		go func() { defer wg.Done(); g.Decrement() }()
	}
	wg.Wait()

	if d := g.Delay(); d < 0 || d > 5*time.Second {
		t.Errorf("delay out of bounds: %v", d)
	}
}

func TestSleep_ZeroDelayReturnsImmediately(t *testing.T) {
	g := New(Config{})

	start := time.Now()
	if err := g.Sleep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("zero delay should not block")
	}
}

func TestSleep_CancelledContext(t *testing.T) {
	g := New(Config{Floor: time.Hour, Ceiling: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := g.Sleep(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
