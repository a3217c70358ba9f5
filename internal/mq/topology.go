package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeBridge Exchange = "dfs.bridge"
	ExchangeDLQ    Exchange = "dfs.bridge.dlq"
)

// Очереди между стадиями. Ключ маршрутизации совпадает с именем.
const (
	QueueFilteredTenderIDs Queue = "filtered_tender_ids"
	QueueEDRPOUCodes       Queue = "edrpou_codes"
	QueueReference         Queue = "reference"
	QueueDLQ               Queue = "dfs.bridge.dlq"
)

// RoutingKeyFor возвращает ключ маршрутизации очереди.
func RoutingKeyFor(q Queue) RoutingKey {
	return RoutingKey(q)
}

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeBridge, ExchangeDLQ} {
			if err := ch.ExchangeDeclare(string(ex), "direct", true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		// Битые сообщения (nack без requeue) уходят в DLQ.
		dlqArgs := amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(QueueDLQ),
		}

		bindings := []struct {
			queue    Queue
			exchange Exchange
			args     amqp.Table
		}{
			{QueueFilteredTenderIDs, ExchangeBridge, dlqArgs},
			{QueueEDRPOUCodes, ExchangeBridge, dlqArgs},
			{QueueReference, ExchangeBridge, dlqArgs},
			{QueueDLQ, ExchangeDLQ, nil},
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, b.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(RoutingKeyFor(b.queue)), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  DFS bridge topology:

    dfs.bridge (direct)
    ├── filtered_tender_ids   producer: tender scanner, consumer: FilterStage
    ├── edrpou_codes          producer: FilterStage, consumer: submission stage
    └── reference             producer: ReferenceStage, consumer: upload stage

    dfs.bridge.dlq (direct)
    └── dfs.bridge.dlq        undecodable messages
`
}
