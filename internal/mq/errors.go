package mq

import "errors"

// Ошибки RabbitMQ слоя.
var (
	// ErrNoChannel — канал не открыт (нет соединения).
	ErrNoChannel = errors.New("no channel available")

	// ErrConnectionClosed — соединение закрыто через Close.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrDiscard — обработчик отказался от сообщения, повтор бессмыслен.
	// Сообщение уходит в DLQ без requeue.
	ErrDiscard = errors.New("discard message")
)
