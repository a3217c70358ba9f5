// Package mq — транспорт очередей бриджа на RabbitMQ.
//
// Структура:
//   - connection.go — соединение с переподключением
//   - topology.go   — обменники, очереди, привязки
//   - publisher.go  — JSON-конверт Message и публикация
//   - lease.go      — LeaseQueue: peek/get поверх basic.get с ручным ack
//
// Очереди (обменник dfs.bridge):
//   - filtered_tender_ids — ID тендеров для FilterStage
//   - edrpou_codes        — записи Data
//   - reference           — полученные справки
//
// Сообщения, которые не удалось разобрать, уходят в dfs.bridge.dlq.
package mq
