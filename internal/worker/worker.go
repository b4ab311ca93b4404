package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 20
	defaultPrefetch     = 1
	finishTimeout       = 10 * time.Second
)

// PartitionStore — хранилище партиций (repo.PartitionRepo).
type PartitionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Partition, error)
	ListQueued(ctx context.Context, limit int) ([]*domain.Partition, error)
	Claim(ctx context.Context, p *domain.Partition) error
	Finish(ctx context.Context, p *domain.Partition) error
}

// CompletionPublisher публикует partition.completed (mq.Publisher).
type CompletionPublisher interface {
	PublishPartitionCompleted(ctx context.Context, payload mq.PartitionCompletedPayload) error
}

// Config — конфигурация Worker.
type Config struct {
	Store PartitionStore

	// Publisher и Conn опциональны: без них воркер работает только через polling.
	Publisher CompletionPublisher
	Conn      *mq.Connection

	// Cycles — реестр циклов, доступных воркеру.
	Cycles *cycle.Registry

	// LogLevel — уровень записей, попадающих в лог партиции (по умолчанию INFO).
	LogLevel slog.Leveler

	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // партиций за один poll (default: 20)
	Prefetch     int           // неподтверждённых сообщений (default: 1)

	Logger *slog.Logger
}

// Worker забирает партиции распределённых раздач и прогоняет их через runner.
// Партиции приходят из partitions.ready, а пропущенные подбирает polling.
type Worker struct {
	cfg Config

	store     PartitionStore
	publisher CompletionPublisher
	cycles    *cycle.Registry
	level     slog.Leveler
	logger    *slog.Logger

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    atomic.Bool
}

// New создаёт Worker, подставляя значения по умолчанию.
func New(cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}
	if cfg.LogLevel == nil {
		cfg.LogLevel = slog.LevelInfo
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Worker{
		cfg:       cfg,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		cycles:    cfg.Cycles,
		level:     cfg.LogLevel,
		logger:    cfg.Logger.With("component", "worker"),
	}
}

// Start запускает фоновые горутины и сразу возвращается.
func (w *Worker) Start(ctx context.Context) error {
	ctx, w.cancelFunc = context.WithCancel(ctx)

	w.logger.Info("starting worker",
		"poll_interval", w.cfg.PollInterval,
		"batch_size", w.cfg.BatchSize,
		"cycles", w.cycles.Names(),
	)

	if w.cfg.Conn != nil {
		consumer := mq.NewConsumer(w.cfg.Conn, w.logger, mq.ConsumerConfig{
			Queue:    mq.QueuePartitionsReady,
			Handler:  w.handlePartitionReady,
			Prefetch: w.cfg.Prefetch,
		})
		w.spawn(func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("partition consumer error", "error", err)
			}
		})
	} else {
		w.logger.Warn("no RabbitMQ connection, running in polling-only mode")
	}

	w.spawn(func() { w.pollLoop(ctx) })
	return nil
}

func (w *Worker) spawn(fn func()) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
}

// Stop отменяет контекст Start и ждёт текущую партицию.
func (w *Worker) Stop() {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}
	w.logger.Info("stopping worker")
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// IsStopped — был ли вызван Stop.
func (w *Worker) IsStopped() bool {
	return w.stopped.Load()
}

func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	// Первый poll сразу: подхватываем партиции, созданные пока воркер был выключен.
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	parts, err := w.store.ListQueued(ctx, w.cfg.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to list queued partitions", "error", err)
		}
		return
	}
	if len(parts) == 0 {
		return
	}

	w.logger.Debug("poll found queued partitions", "count", len(parts))

	for _, p := range parts {
		if ctx.Err() != nil {
			return
		}
		if err := w.processPartition(ctx, p.ID); err != nil && !isExpected(err) {
			w.logger.Error("failed to process partition from poll",
				"partition_id", p.ID,
				"error", err,
			)
		}
	}
}

func isExpected(err error) bool {
	return errors.Is(err, ErrPartitionNotFound) || errors.Is(err, ErrPartitionNotQueued)
}
