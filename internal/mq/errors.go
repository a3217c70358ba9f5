package mq

import "errors"

var (
	// ErrNoChannel — нет открытого AMQP-канала (идёт переподключение).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrLeaseLost — арендованное сообщение вернулось брокеру
	// (разрыв канала до ack).
	ErrLeaseLost = errors.New("amqp lease lost")
)
