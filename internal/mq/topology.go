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
	ExchangePartitions Exchange = "cyclone.partitions"
	ExchangeDLQ        Exchange = "cyclone.dlq"
)

const (
	QueuePartitionsReady     Queue = "partitions.ready"
	QueuePartitionsCompleted Queue = "partitions.completed"
	QueueDLQPartitions       Queue = "dlq.partitions"
)

const (
	RoutingKeyReady         RoutingKey = "ready"
	RoutingKeyCompleted     RoutingKey = "completed"
	RoutingKeyDLQPartitions RoutingKey = "partitions"
)

// binding — очередь вместе с обменником, к которому она привязана.
type binding struct {
	queue    Queue
	exchange Exchange
	key      RoutingKey
	args     amqp.Table
}

//	cyclone.partitions
//	├── partitions.ready      -> cyclone-worker, отказ уходит в dlq.partitions
//	└── partitions.completed  -> распределённый пул контроллера
//	cyclone.dlq
//	└── dlq.partitions        разбирается вручную
var topology = []binding{
	{
		queue:    QueuePartitionsReady,
		exchange: ExchangePartitions,
		key:      RoutingKeyReady,
		args: amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQPartitions),
		},
	},
	{queue: QueuePartitionsCompleted, exchange: ExchangePartitions, key: RoutingKeyCompleted},
	{queue: QueueDLQPartitions, exchange: ExchangeDLQ, key: RoutingKeyDLQPartitions},
}

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		declared := make(map[Exchange]bool)
		for _, b := range topology {
			if !declared[b.exchange] {
				if err := ch.ExchangeDeclare(string(b.exchange), "direct", true, false, false, false, nil); err != nil {
					return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
				}
				declared[b.exchange] = true
			}
			if err := declareBound(ch, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func declareBound(ch *amqp.Channel, b binding) error {
	// durable, не удаляется без потребителей, не эксклюзивная
	if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, b.args); err != nil {
		return fmt.Errorf("declare queue %s: %w", b.queue, err)
	}
	if err := ch.QueueBind(string(b.queue), string(b.key), string(b.exchange), false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
	}
	return nil
}
