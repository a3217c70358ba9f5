package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor ждёт выполнения условия не дольше timeout.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// blockingJob работает до отмены context.
func blockingJob(started *atomic.Int32) JobFunc {
	return func(ctx context.Context) error {
		started.Add(1)
		<-ctx.Done()
		return nil
	}
}

// --- Gate Tests ---

func TestGate_InitialState(t *testing.T) {
	if !NewGate(true).Available() {
		t.Error("gate created available should be available")
	}
	if NewGate(false).Available() {
		t.Error("gate created unavailable should be unavailable")
	}
}

func TestGate_WaitBlocksUntilAvailable(t *testing.T) {
	g := NewGate(false)

	released := make(chan struct{})
	go func() {
		g.Wait(context.Background())
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("Wait should block while gate is closed")
	case <-time.After(30 * time.Millisecond):
	}

	g.SetAvailable()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Wait should return after SetAvailable")
	}
}

func TestGate_WaitRespectsContext(t *testing.T) {
	g := NewGate(false)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestGate_Toggle(t *testing.T) {
	g := NewGate(true)
	g.SetUnavailable()
	g.SetUnavailable()
	if g.Available() {
		t.Fatal("gate should be unavailable")
	}
	g.SetAvailable()
	g.SetAvailable()
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Worker Tests ---

func TestNew_Defaults(t *testing.T) {
	w := New(Config{Name: "test"})

	if w.checkInterval != defaultCheckInterval {
		t.Errorf("expected check interval %v, got %v", defaultCheckInterval, w.checkInterval)
	}
	if w.stopTimeout != defaultStopTimeout {
		t.Errorf("expected stop timeout %v, got %v", defaultStopTimeout, w.stopTimeout)
	}
	if w.State() != StateNotStarted {
		t.Errorf("expected not_started, got %s", w.State())
	}
}

func TestWorker_Lifecycle(t *testing.T) {
	var started atomic.Int32
	w := New(Config{
		Name: "test",
		Jobs: map[string]JobFunc{
			"a": blockingJob(&started),
			"b": blockingJob(&started),
		},
		CheckInterval: 10 * time.Millisecond,
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.State() != StateRunning {
		t.Errorf("expected running, got %s", w.State())
	}

	waitFor(t, time.Second, func() bool { return started.Load() == 2 })

	if err := w.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if w.State() != StateStopped {
		t.Errorf("expected stopped, got %s", w.State())
	}
	if alive := w.AliveJobs(); len(alive) != 0 {
		t.Errorf("expected no alive jobs, got %v", alive)
	}
}

func TestWorker_WaitsForGate(t *testing.T) {
	var started atomic.Int32
	gate := NewGate(false)
	w := New(Config{
		Name: "test",
		Jobs: map[string]JobFunc{"a": blockingJob(&started)},
		Gate: gate,
	})

	w.Start(context.Background())
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	if started.Load() != 0 {
		t.Fatal("jobs should not start while gate is closed")
	}

	gate.SetAvailable()
	waitFor(t, time.Second, func() bool { return started.Load() == 1 })
}

func TestWorker_RevivesDeadJob(t *testing.T) {
	var calls atomic.Int32
	var restarts atomic.Int32

	w := New(Config{
		Name: "test",
		Jobs: map[string]JobFunc{
			"flaky": func(ctx context.Context) error {
				if calls.Add(1) == 1 {
					return errors.New("boom")
				}
				<-ctx.Done()
				return nil
			},
		},
		CheckInterval: 10 * time.Millisecond,
		OnRestart:     func(worker, job string) { restarts.Add(1) },
	})

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, time.Second, func() bool { return calls.Load() == 2 })
	if restarts.Load() != 1 {
		t.Errorf("expected 1 restart, got %d", restarts.Load())
	}
}

func TestWorker_RevivesPanickedJob(t *testing.T) {
	var calls atomic.Int32

	w := New(Config{
		Name: "test",
		Jobs: map[string]JobFunc{
			"panicky": func(ctx context.Context) error {
				if calls.Add(1) == 1 {
					panic("unexpected")
				}
				<-ctx.Done()
				return nil
			},
		},
		CheckInterval: 10 * time.Millisecond,
	})

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, time.Second, func() bool { return calls.Load() == 2 })
}

func TestWorker_RestartJob(t *testing.T) {
	var started atomic.Int32
	w := New(Config{
		Name:          "test",
		Jobs:          map[string]JobFunc{"a": blockingJob(&started)},
		CheckInterval: time.Hour,
	})

	if _, err := w.RestartJob("a"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning before start, got %v", err)
	}

	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, time.Second, func() bool { return started.Load() == 1 })

	restarted, err := w.RestartJob("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restarted {
		t.Error("alive job should not be restarted")
	}

	if _, err := w.RestartJob("missing"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("expected ErrUnknownJob, got %v", err)
	}
}

func TestWorker_RestartJobBeforeGateOpens(t *testing.T) {
	var running, peak atomic.Int32
	job := func(ctx context.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-ctx.Done()
		running.Add(-1)
		return nil
	}

	gate := NewGate(false)
	w := New(Config{
		Name:          "test",
		Jobs:          map[string]JobFunc{"a": job},
		Gate:          gate,
		CheckInterval: 10 * time.Millisecond,
	})
	w.Start(context.Background())
	defer w.Stop()

	restarted, err := w.RestartJob("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restarted {
		t.Error("job must not start while gate is closed")
	}

	gate.SetAvailable()
	waitFor(t, time.Second, func() bool { return running.Load() == 1 })

	// Несколько циклов проверки живости не должны добавить копию.
	time.Sleep(50 * time.Millisecond)
	if got := peak.Load(); got != 1 {
		t.Errorf("expected exactly one instance of job, peak %d", got)
	}
	if alive := w.AliveJobs(); len(alive) != 1 {
		t.Errorf("expected one alive job, got %v", alive)
	}
}

func TestWorker_StopTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	w := New(Config{
		Name: "test",
		Jobs: map[string]JobFunc{
			// Игнорирует отмену
			"stuck": func(ctx context.Context) error {
				<-release
				return nil
			},
		},
		StopTimeout: 20 * time.Millisecond,
	})

	w.Start(context.Background())
	waitFor(t, time.Second, func() bool { return len(w.AliveJobs()) == 1 })

	if err := w.Stop(); !errors.Is(err, ErrStopTimeout) {
		t.Errorf("expected ErrStopTimeout, got %v", err)
	}
	if w.State() != StateStopped {
		t.Errorf("expected stopped, got %s", w.State())
	}
}

// --- Loop Tests ---

type countingPacer struct{ n atomic.Int32 }

func (p *countingPacer) Sleep(ctx context.Context) error {
	p.n.Add(1)
	return ctx.Err()
}

func TestLoop_PacesEveryIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pacer := &countingPacer{}
	var units int

	err := Loop(ctx, NewGate(true), pacer, func(context.Context) error {
		units++
		if units == 3 {
			cancel()
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units != 3 {
		t.Errorf("expected 3 units, got %d", units)
	}
	// Последняя пауза видит отменённый context и завершает цикл
	if pacer.n.Load() != 3 {
		t.Errorf("expected 3 pauses, got %d", pacer.n.Load())
	}
}

func TestLoop_UnitErrorEndsJob(t *testing.T) {
	boom := errors.New("boom")
	err := Loop(context.Background(), nil, nil, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}
