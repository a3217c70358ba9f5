// Package queue описывает очереди между стадиями бриджа.
//
// Семантика peek-then-get: Peek отдаёт голову очереди, не удаляя её
// (аренда), Get удаляет голову. Стадия подтверждает элемент только
// после обработки, поэтому временный сбой не теряет ID тендера:
// следующий цикл снова получит тот же элемент.
//
// Реализации: Memory (в процессе) и mq.LeaseQueue (RabbitMQ,
// basic.get с ручным ack).
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed — очередь закрыта.
var ErrClosed = errors.New("queue closed")

// Queue — FIFO-очередь с арендой головы.
type Queue[T any] interface {
	// Put добавляет элемент в хвост.
	Put(ctx context.Context, item T) error

	// Peek возвращает голову, не удаляя её. Блокируется, пока очередь
	// пуста или не отменён ctx.
	Peek(ctx context.Context) (T, error)

	// Get удаляет и возвращает голову (ту же, что вернул Peek).
	Get(ctx context.Context) (T, error)

	// Release возвращает арендованную голову без удаления.
	Release(ctx context.Context) error

	// Len возвращает число элементов.
	Len() int
}

// Memory — очередь в памяти процесса. Capacity > 0 ограничивает размер:
// Put блокируется, пока нет места.
type Memory[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	closed   bool
	changed  chan struct{} // закрывается при каждом изменении
}

// NewMemory создаёт очередь. capacity <= 0 — без ограничения.
func NewMemory[T any](capacity int) *Memory[T] {
	return &Memory[T]{
		capacity: capacity,
		changed:  make(chan struct{}),
	}
}

// Put добавляет элемент в хвост.
func (q *Memory[T]) Put(ctx context.Context, item T) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}
		if q.capacity <= 0 || len(q.items) < q.capacity {
			q.items = append(q.items, item)
			q.notifyLocked()
			q.mu.Unlock()
			return nil
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Peek возвращает голову, не удаляя её.
func (q *Memory[T]) Peek(ctx context.Context) (T, error) {
	return q.head(ctx, false)
}

// Get удаляет и возвращает голову.
func (q *Memory[T]) Get(ctx context.Context) (T, error) {
	return q.head(ctx, true)
}

// Release ничего не делает: голова остаётся на месте до Get.
func (q *Memory[T]) Release(context.Context) error {
	return nil
}

// Len возвращает число элементов.
func (q *Memory[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close закрывает очередь; ожидающие получают ErrClosed.
func (q *Memory[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notifyLocked()
}

// Items возвращает копию содержимого (для тестов и диагностики).
func (q *Memory[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Memory[T]) head(ctx context.Context, remove bool) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			if remove {
				q.items[0] = zero
				q.items = q.items[1:]
				q.notifyLocked()
			}
			q.mu.Unlock()
			return item, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (q *Memory[T]) notifyLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
