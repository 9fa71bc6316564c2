package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/adws/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunFinished      MessageType = "run.finished"
	MessageTypeWorkflowDispatch MessageType = "workflow.dispatch"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// RunFinishedPayload — итог run.
type RunFinishedPayload struct {
	RunID          uuid.UUID        `json:"run_id"`
	Workflow       string           `json:"workflow"`
	Command        string           `json:"command,omitempty"`
	IssueID        string           `json:"issue_id,omitempty"`
	Status         domain.RunStatus `json:"status"`
	Attempt        int              `json:"attempt"`
	ErrorType      domain.ErrorType `json:"error_type,omitempty"`
	Step           string           `json:"step,omitempty"`
	Message        string           `json:"message,omitempty"`
	FailedSteps    []string         `json:"failed_steps,omitempty"`
	FinalizeAction string           `json:"finalize_action,omitempty"`
	DurationMs     int64            `json:"duration_ms"`
}

// NewRunFinishedPayload строит payload из завершённого run.
func NewRunFinishedPayload(run *domain.Run) RunFinishedPayload {
	p := RunFinishedPayload{
		RunID:          run.ID,
		Workflow:       run.Workflow,
		Command:        run.Command,
		IssueID:        run.IssueID,
		Status:         run.Status,
		Attempt:        run.Attempt,
		FinalizeAction: run.FinalizeAction,
		DurationMs:     run.Duration().Milliseconds(),
	}
	if run.Error != nil {
		p.ErrorType = run.Error.Kind()
		p.Step = run.Error.StepName
		p.Message = run.Error.Message
		for _, f := range run.Error.Failures() {
			p.FailedSteps = append(p.FailedSteps, f.StepName)
		}
	}
	return p
}

// DispatchPayload — запрос на выполнение команды.
type DispatchPayload struct {
	Command  string         `json:"command,omitempty"`
	Workflow string         `json:"workflow,omitempty"`
	IssueID  string         `json:"issue_id"`
	Inputs   map[string]any `json:"inputs,omitempty"`
	Attempt  int            `json:"attempt,omitempty"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	publishing, err := newPublishing(msg)
	if err != nil {
		return err
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.PublishWithContext(ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			publishing,
		); err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// newPublishing сериализует сообщение в persistent AMQP publishing.
func newPublishing(msg *Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	}, nil
}

// PublishRunFinished публикует событие о завершении run.
func (p *Publisher) PublishRunFinished(ctx context.Context, run *domain.Run) error {
	msg := NewMessage(MessageTypeRunFinished, NewRunFinishedPayload(run))
	return p.Publish(ctx, ExchangeRuns, RoutingKeyFinished, msg)
}

// PublishDispatch ставит команду в очередь диспетчеризации.
func (p *Publisher) PublishDispatch(ctx context.Context, payload DispatchPayload) error {
	msg := NewMessage(MessageTypeWorkflowDispatch, payload)
	return p.Publish(ctx, ExchangeDispatch, RoutingKeyDispatch, msg)
}
