package bridge

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shaiso/dfsbridge/internal/telemetry"
	"github.com/shaiso/dfsbridge/internal/worker"
)

const (
	defaultHealthInterval = 10 * time.Second
	healthCheckTimeout    = 5 * time.Second
)

// Pinger — внешний сервис с проверкой доступности.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc адаптирует функцию к Pinger.
type PingFunc func(ctx context.Context) error

// Ping реализует Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Monitor периодически проверяет внешние сервисы и управляет Gate:
// любой отказ закрывает Gate, восстановление всех сервисов открывает.
type Monitor struct {
	gate     *worker.Gate
	checks   map[string]Pinger
	names    []string
	interval time.Duration
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// MonitorConfig — конфигурация Monitor.
type MonitorConfig struct {
	Gate     *worker.Gate
	Checks   map[string]Pinger
	Interval time.Duration // default: 10s
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

// NewMonitor создаёт Monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	names := make([]string, 0, len(cfg.Checks))
	for name := range cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Monitor{
		gate:     cfg.Gate,
		checks:   cfg.Checks,
		names:    names,
		interval: interval,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "health"),
	}
}

// CheckOnce опрашивает все сервисы и обновляет Gate. Возвращает
// итоговую доступность.
func (m *Monitor) CheckOnce(ctx context.Context) bool {
	healthy := true
	for _, name := range m.names {
		pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := m.checks[name].Ping(pingCtx)
		cancel()
		if err != nil {
			healthy = false
			m.logger.Warn("service not available", "service", name, "error", err)
		}
	}

	wasAvailable := m.gate.Available()
	if healthy {
		m.gate.SetAvailable()
		if !wasAvailable {
			m.logger.Info("all services available, resuming")
		}
	} else {
		m.gate.SetUnavailable()
	}

	if m.metrics != nil {
		if healthy {
			m.metrics.ServicesAvailable.Set(1)
		} else {
			m.metrics.ServicesAvailable.Set(0)
		}
	}
	return healthy
}

// Run проверяет сервисы сразу и затем каждые interval до отмены ctx.
func (m *Monitor) Run(ctx context.Context) error {
	m.CheckOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}
