package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPermanent помечает ошибку обработчика, после которой сообщение
// уходит в DLQ без повторной доставки.
var ErrPermanent = errors.New("permanent failure")

var errDeliveriesClosed = errors.New("deliveries channel closed")

// Handler обрабатывает одно сообщение. nil подтверждает его.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — разобранный конверт плюс исходная доставка.
type Delivery struct {
	Message Message
	Raw     amqp.Delivery
}

// ConsumerConfig — параметры потребителя.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Prefetch — сколько сообщений держать неподтверждёнными (по умолчанию 1).
	Prefetch int
}

// Consumer читает одну очередь и переживает переподключения Connection.
//
// Сообщение, на котором обработчик упал повторно (Redelivered), не
// возвращается в очередь, а уходит в DLQ: партиция, роняющая воркер,
// не должна крутиться по кругу.
type Consumer struct {
	conn   *Connection
	logger *slog.Logger
	cfg    ConsumerConfig

	cancelFunc context.CancelFunc
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	return &Consumer{
		conn:   conn,
		logger: logger.With("queue", cfg.Queue),
		cfg:    cfg,
	}
}

// Start блокируется до отмены контекста или Stop.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consumer session ended, waiting for reconnect", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// Stop останавливает Start.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// session живёт, пока жив текущий канал.
func (c *Consumer) session(ctx context.Context) error {
	ch := c.conn.Channel()
	if ch == nil {
		return ErrNoChannel
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	// manual ack, не эксклюзивный
	deliveries, err := ch.Consume(string(c.cfg.Queue), "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.logger.Info("consumer started", "prefetch", c.cfg.Prefetch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.dispatch(ctx, raw)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("dropping malformed message", "error", err, "body", string(raw.Body))
		_ = raw.Nack(false, false)
		return
	}
	log := c.logger.With("message_id", msg.ID, "type", msg.Type)
	log.Debug("received message", "redelivered", raw.Redelivered)

	err := c.cfg.Handler(ctx, &Delivery{Message: msg, Raw: raw})
	if err == nil {
		_ = raw.Ack(false)
		return
	}

	requeue := !errors.Is(err, ErrPermanent) && !raw.Redelivered
	log.Error("handler failed", "requeue", requeue, "error", err)
	_ = raw.Nack(false, requeue)
}

// ParsePayload приводит Payload конверта к типу T.
// После json.Unmarshal это map[string]any, поэтому проходит через повторное кодирование.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
