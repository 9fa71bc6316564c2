package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeRuns     Exchange = "adws.runs"
	ExchangeDispatch Exchange = "adws.dispatch"
	ExchangeDLQ      Exchange = "adws.dlq"
)

// Queues — имена очередей.
const (
	QueueRunsFinished     Queue = "runs.finished"
	QueueWorkflowDispatch Queue = "workflow.dispatch"
	QueueDLQDispatch      Queue = "dlq.dispatch"
)

// Routing keys.
const (
	RoutingKeyFinished    RoutingKey = "finished"
	RoutingKeyDispatch    RoutingKey = "dispatch"
	RoutingKeyDLQDispatch RoutingKey = "dispatch"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// topology — полное описание объектов брокера.
func topology() ([]exchangeDecl, []queueDecl, []bindingDecl) {
	exchanges := []exchangeDecl{
		{ExchangeRuns, amqp.ExchangeDirect},
		{ExchangeDispatch, amqp.ExchangeDirect},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQDispatch),
	}

	queues := []queueDecl{
		// runs.finished — события для внешних потребителей
		{QueueRunsFinished, nil},

		// workflow.dispatch — отклонённые сообщения уходят в DLQ
		{QueueWorkflowDispatch, dlqArgs},

		// dlq.dispatch — ручной разбор
		{QueueDLQDispatch, nil},
	}

	bindings := []bindingDecl{
		{QueueRunsFinished, RoutingKeyFinished, ExchangeRuns},
		{QueueWorkflowDispatch, RoutingKeyDispatch, ExchangeDispatch},
		{QueueDLQDispatch, RoutingKeyDLQDispatch, ExchangeDLQ},
	}

	return exchanges, queues, bindings
}

// SetupTopology объявляет exchanges, queues и bindings (идемпотентно).
func SetupTopology(ctx context.Context, conn *Connection) error {
	exchanges, queues, bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			err := ch.ExchangeDeclare(
				string(ex.name), // name
				ex.kind,         // type
				true,            // durable
				false,           // auto-deleted
				false,           // internal
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			_, err := ch.QueueDeclare(
				string(q.name), // name
				true,           // durable
				false,          // delete when unused
				false,          // exclusive
				false,          // no-wait
				q.args,         // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			err := ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(b.exchange),   // exchange
				false,                // no-wait
				nil,                  // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}
