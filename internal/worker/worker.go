package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Default configuration values.
const (
	defaultCheckInterval = 15 * time.Second
	defaultStopTimeout   = 30 * time.Second
)

// State — состояние жизненного цикла воркера.
//
//	NotStarted → Running → Stopping → Stopped
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateStopping
	StateStopped
)

// String возвращает имя состояния.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// JobFunc — долгоживущая job стадии. Возвращается при отмене ctx;
// ошибка или паника означают, что job умерла и её надо перезапустить.
type JobFunc func(ctx context.Context) error

// Worker — супервизор стадии конвейера (BaseWorker).
//
// Worker:
//   - Дожидается доступности сервисов и запускает по горутине на job
//   - Раз в CheckInterval проверяет, живы ли jobs, и перезапускает умершие
//   - При Stop отменяет context и ждёт завершения jobs не дольше StopTimeout
type Worker struct {
	name          string
	jobs          map[string]JobFunc
	gate          *Gate
	checkInterval time.Duration
	stopTimeout   time.Duration
	onRestart     func(worker, job string)

	// Lifecycle
	logger     *slog.Logger
	mu         sync.Mutex
	state      State
	ctx        context.Context
	cancelFunc context.CancelFunc
	running    map[string]*jobHandle
	spawned    bool // jobs запущены супервизором после открытия Gate
	wg         sync.WaitGroup
}

type jobHandle struct {
	done chan struct{}
	err  error
}

func (h *jobHandle) dead() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Config — конфигурация Worker.
type Config struct {
	// Name — имя стадии (для логов и метрик).
	Name string

	// Jobs — именованные jobs стадии.
	Jobs map[string]JobFunc

	// Gate — доступность сервисов (опционально; nil — всегда доступны).
	Gate *Gate

	CheckInterval time.Duration // интервал проверки jobs (default: 15s)
	StopTimeout   time.Duration // ожидание jobs при Stop (default: 30s)

	// OnRestart вызывается при каждом перезапуске job (опционально).
	OnRestart func(worker, job string)

	// Logger
	Logger *slog.Logger
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	checkInterval := cfg.CheckInterval
	if checkInterval <= 0 {
		checkInterval = defaultCheckInterval
	}

	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gate := cfg.Gate
	if gate == nil {
		gate = NewGate(true)
	}

	jobs := make(map[string]JobFunc, len(cfg.Jobs))
	for name, fn := range cfg.Jobs {
		jobs[name] = fn
	}

	return &Worker{
		name:          cfg.Name,
		jobs:          jobs,
		gate:          gate,
		checkInterval: checkInterval,
		stopTimeout:   stopTimeout,
		onRestart:     cfg.OnRestart,
		logger:        logger.With("worker", cfg.Name),
		running:       make(map[string]*jobHandle),
	}
}

// Name возвращает имя воркера.
func (w *Worker) Name() string {
	return w.name
}

// State возвращает текущее состояние.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start запускает супервизор. Jobs стартуют, когда Gate открыт.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateNotStarted {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancelFunc = context.WithCancel(ctx)
	w.state = StateRunning

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.supervise(w.ctx)
	}()

	return nil
}

// Stop останавливает воркер: отменяет context, даёт текущим итерациям
// завершиться и ждёт jobs не дольше StopTimeout.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.state != StateRunning {
		w.mu.Unlock()
		return nil
	}
	w.state = StateStopping
	cancel := w.cancelFunc
	w.mu.Unlock()

	w.logger.Info("stopping worker...")
	cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(w.stopTimeout):
		err = fmt.Errorf("%w: %s after %s", ErrStopTimeout, w.name, w.stopTimeout)
		w.logger.Error("jobs did not finish in time", "timeout", w.stopTimeout)
	}

	w.mu.Lock()
	w.state = StateStopped
	w.mu.Unlock()

	w.logger.Info("worker stopped")
	return err
}

// RestartJob перезапускает job, если она умерла. Возвращает true,
// если job была перезапущена.
func (w *Worker) RestartJob(name string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.jobs[name]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if w.state != StateRunning {
		return false, ErrNotRunning
	}
	// До первого запуска jobs запускает только supervise.
	if !w.spawned {
		return false, nil
	}

	handle, started := w.running[name]
	if started && !handle.dead() {
		return false, nil
	}

	if started {
		w.logger.Warn("restarting job", "job", name, "error", handle.err)
		if w.onRestart != nil {
			w.onRestart(w.name, name)
		}
	}
	w.spawnLocked(name)
	return true, nil
}

// AliveJobs возвращает имена живых jobs (отсортированы).
func (w *Worker) AliveJobs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var alive []string
	for name, handle := range w.running {
		if !handle.dead() {
			alive = append(alive, name)
		}
	}
	sort.Strings(alive)
	return alive
}

// supervise ждёт доступности сервисов, запускает jobs и следит за ними.
func (w *Worker) supervise(ctx context.Context) {
	if err := w.gate.Wait(ctx); err != nil {
		return
	}

	w.logger.Info("starting worker", "jobs", len(w.jobs), "check_interval", w.checkInterval)

	w.mu.Lock()
	if w.state != StateRunning {
		w.mu.Unlock()
		return
	}
	for name := range w.jobs {
		if handle, ok := w.running[name]; ok && !handle.dead() {
			continue
		}
		w.spawnLocked(name)
	}
	w.spawned = true
	w.mu.Unlock()

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkAndReviveJobs(ctx)
		}
	}
}

// checkAndReviveJobs перезапускает умершие jobs.
func (w *Worker) checkAndReviveJobs(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for name := range w.jobs {
		if _, err := w.RestartJob(name); err != nil {
			w.logger.Debug("job not restarted", "job", name, "error", err)
		}
	}
}

// spawnLocked запускает job в горутине. Вызывается под w.mu.
func (w *Worker) spawnLocked(name string) {
	fn := w.jobs[name]
	handle := &jobHandle{done: make(chan struct{})}
	w.running[name] = handle

	ctx := w.ctx
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(handle.done)
		defer func() {
			if r := recover(); r != nil {
				handle.err = fmt.Errorf("%w: %v", ErrJobPanic, r)
				w.logger.Error("job panicked", "job", name, "panic", r)
			}
		}()

		handle.err = fn(ctx)
		if handle.err != nil && ctx.Err() == nil {
			w.logger.Error("job died", "job", name, "error", handle.err)
		}
	}()
}
