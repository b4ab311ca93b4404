package pool

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/mq"
	"github.com/shaiso/Cyclone/internal/repo"
)

// OpenerConfig — параметры для открытия пулов по endpoint.
type OpenerConfig struct {
	Cycles   *cycle.Registry
	LogLevel slog.Leveler

	// DatabaseURL — Postgres для распределённого пула (DB_URL).
	DatabaseURL string

	// RemoteWorkers — число партиций на датасет для распределённого пула.
	RemoteWorkers int

	// RemoteTimeout — таймаут ожидания удалённых воркеров.
	RemoteTimeout time.Duration

	Logger *slog.Logger
}

// NewOpener возвращает Opener, который понимает схемы inproc:// и amqp(s)://.
func NewOpener(cfg OpenerConfig) Opener {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(ctx context.Context, endpoint string) (Pool, error) {
		n, ok, err := ParseInProcess(endpoint)
		if err != nil {
			return nil, err
		}
		if ok {
			return NewInProcess(InProcessConfig{
				Workers:  n,
				Cycles:   cfg.Cycles,
				LogLevel: cfg.LogLevel,
				Logger:   cfg.Logger,
			}), nil
		}

		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, endpoint)
		}
		return DialMQ(ctx, endpoint, cfg)
	}
}

// DialMQ подключается к RabbitMQ и Postgres и собирает распределённый пул.
// Соединения принадлежат пулу и закрываются его Close.
func DialMQ(ctx context.Context, endpoint string, cfg OpenerConfig) (*MQ, error) {
	logger := cfg.Logger.With("component", "pool")

	db, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := repo.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	conn, err := mq.NewConnection(endpoint, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("setup topology: %w", err)
	}

	completions := make(chan uuid.UUID, 64)
	consumerCtx, cancel := context.WithCancel(context.Background())
	consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
		Queue:    mq.QueuePartitionsCompleted,
		Prefetch: 16,
		Handler: func(ctx context.Context, d *mq.Delivery) error {
			payload, err := mq.ParsePayload[mq.PartitionCompletedPayload](&d.Message)
			if err != nil {
				return fmt.Errorf("%w: %v", mq.ErrPermanent, err)
			}
			select {
			case completions <- payload.DispatchID:
			default:
			}
			return nil
		},
	})
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && consumerCtx.Err() == nil {
			logger.Error("completion consumer stopped", "error", err)
		}
	}()

	logger.Info("distributed worker pool connected", "endpoint", redact(endpoint))

	return NewMQ(MQConfig{
		Store:       repo.NewPartitionRepo(db),
		Publisher:   mq.NewPublisher(conn, logger),
		Workers:     cfg.RemoteWorkers,
		Completions: completions,
		Timeout:     cfg.RemoteTimeout,
		Logger:      logger,
		Closer: func() error {
			cancel()
			var result *multierror.Error
			if err := conn.Close(); err != nil {
				result = multierror.Append(result, err)
			}
			db.Close()
			return result.ErrorOrNil()
		},
	}), nil
}

// redact убирает пароль из URL для логов.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return u.Redacted()
}
