package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

const (
	MessageTypePartitionReady     MessageType = "partition.ready"
	MessageTypePartitionCompleted MessageType = "partition.completed"
)

// Message — конверт сообщения.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// PartitionReadyPayload — партиция ждёт воркера.
type PartitionReadyPayload struct {
	PartitionID uuid.UUID `json:"partition_id"`
	DispatchID  uuid.UUID `json:"dispatch_id"`
}

// PartitionCompletedPayload — воркер закончил партицию.
type PartitionCompletedPayload struct {
	PartitionID uuid.UUID `json:"partition_id"`
	DispatchID  uuid.UUID `json:"dispatch_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
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
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
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

// PublishPartitionReady сообщает воркерам о новой партиции.
func (p *Publisher) PublishPartitionReady(ctx context.Context, partitionID, dispatchID uuid.UUID) error {
	return p.publish(ctx, RoutingKeyReady, MessageTypePartitionReady, PartitionReadyPayload{
		PartitionID: partitionID,
		DispatchID:  dispatchID,
	})
}

// PublishPartitionCompleted сообщает контроллеру о завершении партиции.
func (p *Publisher) PublishPartitionCompleted(ctx context.Context, payload PartitionCompletedPayload) error {
	return p.publish(ctx, RoutingKeyCompleted, MessageTypePartitionCompleted, payload)
}

func (p *Publisher) publish(ctx context.Context, key RoutingKey, typ MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, ExchangePartitions, key, msg)
}
