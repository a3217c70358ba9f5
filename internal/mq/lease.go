package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/dfsbridge/internal/queue"
)

const defaultPollInterval = 500 * time.Millisecond

// LeaseQueue — очередь бриджа поверх RabbitMQ.
//
// Peek забирает сообщение через basic.get без ack и держит его как
// аренду. Get подтверждает арендованное сообщение, Release возвращает
// его брокеру. При разрыве канала брокер сам возвращает сообщение в
// очередь, поэтому ID тендера не теряется.
type LeaseQueue[T any] struct {
	conn         *Connection
	publisher    *Publisher
	queue        Queue
	msgType      MessageType
	pollInterval time.Duration
	logger       *slog.Logger

	mu    sync.Mutex
	lease *lease[T]
}

type lease[T any] struct {
	channel  *amqp.Channel
	delivery amqp.Delivery
	value    T
}

var _ queue.Queue[string] = (*LeaseQueue[string])(nil)

// LeaseQueueConfig — конфигурация LeaseQueue.
type LeaseQueueConfig struct {
	Queue  Queue
	Type   MessageType
	Conn   *Connection
	Logger *slog.Logger

	// Publisher — для Put; если nil, создаётся из Conn.
	Publisher *Publisher

	// PollInterval — пауза между basic.get на пустой очереди
	// (default: 500ms).
	PollInterval time.Duration
}

// NewLeaseQueue создаёт LeaseQueue.
func NewLeaseQueue[T any](cfg LeaseQueueConfig) *LeaseQueue[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = NewPublisher(cfg.Conn, logger)
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	return &LeaseQueue[T]{
		conn:         cfg.Conn,
		publisher:    publisher,
		queue:        cfg.Queue,
		msgType:      cfg.Type,
		pollInterval: poll,
		logger:       logger.With("queue", string(cfg.Queue)),
	}
}

// Put публикует элемент.
func (q *LeaseQueue[T]) Put(ctx context.Context, item T) error {
	return q.publisher.PublishJSON(ctx, q.queue, q.msgType, item)
}

// Peek возвращает арендованную голову, при необходимости получая
// новое сообщение.
func (q *LeaseQueue[T]) Peek(ctx context.Context) (T, error) {
	var zero T

	q.mu.Lock()
	if q.lease != nil {
		if q.lease.channel == q.conn.Channel() {
			v := q.lease.value
			q.mu.Unlock()
			return v, nil
		}
		// Канал пересоздан: брокер уже вернул сообщение в очередь.
		q.logger.Warn("dropping lease from closed channel",
			"message_id", q.lease.delivery.MessageId)
		q.lease = nil
	}
	q.mu.Unlock()

	for {
		ch := q.conn.Channel()
		if ch == nil {
			return zero, ErrNoChannel
		}

		d, ok, err := ch.Get(string(q.queue), false)
		if err != nil {
			return zero, fmt.Errorf("get from %s: %w", q.queue, err)
		}
		if !ok {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(q.pollInterval):
			}
			continue
		}

		value, err := decode[T](d.Body)
		if err != nil {
			q.logger.Error("undecodable message sent to DLQ",
				"message_id", d.MessageId, "error", err)
			if nackErr := d.Nack(false, false); nackErr != nil {
				q.logger.Warn("nack undecodable message failed",
					"message_id", d.MessageId, "error", nackErr)
			}
			continue
		}

		q.mu.Lock()
		q.lease = &lease[T]{channel: ch, delivery: d, value: value}
		q.mu.Unlock()
		return value, nil
	}
}

// Get подтверждает арендованную голову и возвращает её.
func (q *LeaseQueue[T]) Get(ctx context.Context) (T, error) {
	var zero T

	q.mu.Lock()
	held := q.lease
	q.mu.Unlock()

	if held == nil {
		if _, err := q.Peek(ctx); err != nil {
			return zero, err
		}
		q.mu.Lock()
		held = q.lease
		q.mu.Unlock()
	}

	q.mu.Lock()
	q.lease = nil
	q.mu.Unlock()

	if err := held.delivery.Ack(false); err != nil {
		return zero, fmt.Errorf("%w: ack %s: %v", ErrLeaseLost, held.delivery.MessageId, err)
	}
	return held.value, nil
}

// Release возвращает аренду брокеру.
func (q *LeaseQueue[T]) Release(context.Context) error {
	q.mu.Lock()
	held := q.lease
	q.lease = nil
	q.mu.Unlock()

	if held == nil {
		return nil
	}
	if err := held.delivery.Nack(false, true); err != nil {
		return fmt.Errorf("%w: nack %s: %v", ErrLeaseLost, held.delivery.MessageId, err)
	}
	return nil
}

// Len — число сообщений в очереди брокера плюс арендованное.
func (q *LeaseQueue[T]) Len() int {
	q.mu.Lock()
	n := 0
	if q.lease != nil {
		n = 1
	}
	q.mu.Unlock()

	ch := q.conn.Channel()
	if ch == nil {
		return n
	}
	info, err := ch.QueueDeclarePassive(string(q.queue), true, false, false, false, nil)
	if err != nil {
		q.logger.Warn("inspect queue failed", "error", err)
		return n
	}
	return n + info.Messages
}

func decode[T any](body []byte) (T, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		var zero T
		return zero, fmt.Errorf("unmarshal message: %w", err)
	}
	return ParsePayload[T](&msg)
}
