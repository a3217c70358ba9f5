// Package governor реализует адаптивную паузу между запросами к
// внешним сервисам.
//
// Governor — общий для всех стадий счётчик time_between_requests:
// ответ 429 увеличивает паузу на шаг, каждый успешный цикл уменьшает.
// Значение ограничено снизу Floor и сверху Ceiling. Это рекомендация
// для темпа опроса, а не инвариант корректности, поэтому гонки между
// стадиями допустимы: значение меняется атомарно, порядок — любой.
package governor

import (
	"context"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	defaultStep    = time.Second
	defaultCeiling = 5 * time.Minute
)

// Config — конфигурация Governor.
type Config struct {
	Floor         time.Duration // нижняя граница (default: 0)
	Ceiling       time.Duration // верхняя граница (default: 5m)
	IncrementStep time.Duration // шаг при 429 (default: 1s)
	DecrementStep time.Duration // шаг после успеха (default: 1s)

	// OnChange вызывается после каждого изменения (для метрик).
	OnChange func(time.Duration)
}

// Governor — адаптивная пауза между запросами.
type Governor struct {
	floor    int64
	ceiling  int64
	incStep  int64
	decStep  int64
	value    atomic.Int64
	onChange func(time.Duration)
}

// New создаёт Governor; начальное значение — Floor.
func New(cfg Config) *Governor {
	if cfg.Floor < 0 {
		cfg.Floor = 0
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = defaultCeiling
	}
	if cfg.Ceiling < cfg.Floor {
		cfg.Ceiling = cfg.Floor
	}
	if cfg.IncrementStep <= 0 {
		cfg.IncrementStep = defaultStep
	}
	if cfg.DecrementStep <= 0 {
		cfg.DecrementStep = defaultStep
	}

	g := &Governor{
		floor:    int64(cfg.Floor),
		ceiling:  int64(cfg.Ceiling),
		incStep:  int64(cfg.IncrementStep),
		decStep:  int64(cfg.DecrementStep),
		onChange: cfg.OnChange,
	}
	g.value.Store(g.floor)
	return g
}

// Increment увеличивает паузу на шаг (реакция на 429), не выше Ceiling.
func (g *Governor) Increment() time.Duration {
	return g.update(func(v int64) int64 {
		return min(v+g.incStep, g.ceiling)
	})
}

// Decrement уменьшает паузу на шаг после успешного цикла, не ниже Floor.
func (g *Governor) Decrement() time.Duration {
	return g.update(func(v int64) int64 {
		return max(v-g.decStep, g.floor)
	})
}

// Delay возвращает текущую паузу.
func (g *Governor) Delay() time.Duration {
	return time.Duration(g.value.Load())
}

// Sleep ждёт текущую паузу с учётом context.
func (g *Governor) Sleep(ctx context.Context) error {
	delay := g.Delay()
	if delay <= 0 {
		// Уступаем планировщику, как gevent.sleep(0).
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Governor) update(fn func(int64) int64) time.Duration {
	for {
		old := g.value.Load()
		next := fn(old)
		if g.value.CompareAndSwap(old, next) {
			if g.onChange != nil && next != old {
				g.onChange(time.Duration(next))
			}
			return time.Duration(next)
		}
	}
}
