package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/telemetry"
)

// PartitionStore — хранилище партиций (repo.PartitionRepo).
type PartitionStore interface {
	CreateBatch(ctx context.Context, parts []*domain.Partition) error
	ListByDispatch(ctx context.Context, dispatchID uuid.UUID) ([]*domain.Partition, error)
	CountUnfinished(ctx context.Context, dispatchID uuid.UUID) (int, error)
	DeleteDispatch(ctx context.Context, dispatchID uuid.UUID) error
}

// ReadyPublisher сообщает воркерам о новых партициях (mq.Publisher).
type ReadyPublisher interface {
	PublishPartitionReady(ctx context.Context, partitionID, dispatchID uuid.UUID) error
}

// MQConfig — конфигурация распределённого пула.
type MQConfig struct {
	Store     PartitionStore
	Publisher ReadyPublisher

	// Workers — на сколько партиций делится датасет (по умолчанию 4).
	Workers int

	// Completions — идентификаторы раздач из событий partition.completed.
	// Может быть nil: тогда барьер работает только опросом.
	Completions <-chan uuid.UUID

	// Timeout — сколько ждать воркеров. Незавершённые к этому моменту
	// партиции считаются потерянными. 0 — ждать без ограничения.
	Timeout time.Duration

	// MaxPollInterval — верхняя граница интервала опроса (по умолчанию 5s).
	MaxPollInterval time.Duration

	// Closer освобождает ресурсы (соединения), которыми владеет пул.
	Closer func() error

	Logger *slog.Logger
}

// MQ раздаёт партиции удалённым воркерам.
//
// Партиции и их результаты хранятся в Postgres; через RabbitMQ идут только
// уведомления. Барьер ждёт, пока все партиции раздачи станут терминальными.
type MQ struct {
	store       PartitionStore
	publisher   ReadyPublisher
	workers     int
	timeout     time.Duration
	maxInterval time.Duration
	closer      func() error
	logger      *slog.Logger

	mu      sync.Mutex
	waiters map[uuid.UUID]chan struct{}
	closed  bool
	stop    chan struct{}
}

// NewMQ создаёт распределённый пул.
func NewMQ(cfg MQConfig) *MQ {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.MaxPollInterval <= 0 {
		cfg.MaxPollInterval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &MQ{
		store:       cfg.Store,
		publisher:   cfg.Publisher,
		workers:     cfg.Workers,
		timeout:     cfg.Timeout,
		maxInterval: cfg.MaxPollInterval,
		closer:      cfg.Closer,
		logger:      cfg.Logger,
		waiters:     make(map[uuid.UUID]chan struct{}),
		stop:        make(chan struct{}),
	}

	if cfg.Completions != nil {
		go p.listen(cfg.Completions)
	}
	return p
}

func (p *MQ) Workers() int { return p.workers }

// Dispatch сохраняет партиции, публикует partition.ready и ждёт барьер.
func (p *MQ) Dispatch(ctx context.Context, job Job) ([]Result, error) {
	dispatchID := uuid.New()
	wake := p.register(dispatchID)
	defer p.unregister(dispatchID)

	ranges := Split(job.First, job.Count, p.workers)
	parts := make([]*domain.Partition, len(ranges))
	now := time.Now()
	for i, r := range ranges {
		parts[i] = &domain.Partition{
			ID:           uuid.New(),
			DispatchID:   dispatchID,
			Worker:       r.Worker,
			Cycle:        *job.Config,
			DatasetIndex: job.DatasetIndex,
			First:        r.First,
			Count:        r.Count,
			Status:       domain.PartitionQueued,
			CreatedAt:    now,
		}
	}

	if err := p.store.CreateBatch(ctx, parts); err != nil {
		return nil, fmt.Errorf("store partitions: %w", err)
	}

	logger := p.logger.With("dispatch_id", dispatchID, "dataset", job.Dataset().Key())
	for _, part := range parts {
		// не удалось опубликовать: воркеры подберут партицию опросом
		if err := p.publisher.PublishPartitionReady(ctx, part.ID, dispatchID); err != nil {
			logger.Warn("failed to publish partition", "partition_id", part.ID, "error", err)
		}
	}
	logger.Info("partitions dispatched", "partitions", len(parts), "records", job.Count)

	if err := p.wait(ctx, dispatchID, wake); err != nil && !errors.Is(err, errWorkerTimeout) {
		return nil, domain.WrapFault(domain.StopExecution, err, "wait for workers")
	}

	// результаты читаем без отменённого контекста ожидания
	loadCtx := context.WithoutCancel(ctx)
	stored, err := p.store.ListByDispatch(loadCtx, dispatchID)
	if err != nil {
		return nil, fmt.Errorf("load partitions: %w", err)
	}

	results := collect(ranges, stored)
	for _, r := range results {
		status := domain.PartitionSucceeded
		if r.Err != nil {
			status = domain.PartitionFailed
		}
		telemetry.PartitionsTotal.WithLabelValues(string(status)).Inc()
	}

	if err := p.store.DeleteDispatch(loadCtx, dispatchID); err != nil {
		logger.Warn("failed to clean up partitions", "error", err)
	}
	return results, nil
}

// errWorkerTimeout — истёк таймаут пула; результаты собираются как есть.
var errWorkerTimeout = errors.New("worker timeout")

// wait — барьер раздачи.
func (p *MQ) wait(ctx context.Context, dispatchID uuid.UUID, wake <-chan struct{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = p.maxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	var deadline <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		n, err := p.store.CountUnfinished(ctx, dispatchID)
		if err != nil {
			p.logger.Warn("failed to poll partitions", "dispatch_id", dispatchID, "error", err)
		} else if n == 0 {
			return nil
		}

		timer := time.NewTimer(bo.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-deadline:
			timer.Stop()
			p.logger.Warn("worker timeout, unfinished partitions are lost", "dispatch_id", dispatchID, "unfinished", n)
			return errWorkerTimeout
		case <-wake:
			timer.Stop()
			bo.Reset()
		case <-timer.C:
		}
	}
}

// collect сопоставляет сохранённые партиции с диапазонами раздачи.
func collect(ranges []Range, stored []*domain.Partition) []Result {
	byWorker := make(map[int]*domain.Partition, len(stored))
	for _, part := range stored {
		byWorker[part.Worker] = part
	}

	results := make([]Result, len(ranges))
	for i, r := range ranges {
		res := Result{Range: r}
		part, ok := byWorker[r.Worker]
		switch {
		case !ok || !part.Status.IsTerminal():
			res.Err = fmt.Errorf("%w: worker %d", ErrPartitionLost, r.Worker)
		case part.Status == domain.PartitionFailed:
			res.Log = part.Log
			res.Err = &domain.Fault{
				Severity: part.Severity,
				Message:  fmt.Sprintf("worker %d", r.Worker),
				Err:      errors.New(part.Error),
			}
		default:
			res.Log = part.Log
			b, err := merge.DecodeBundle(part.Bundle)
			if err != nil {
				res.Err = fmt.Errorf("worker %d: decode bundle: %w", r.Worker, err)
			} else {
				res.Bundle = b
			}
		}
		results[i] = res
	}
	return results
}

func (p *MQ) listen(completions <-chan uuid.UUID) {
	for {
		select {
		case <-p.stop:
			return
		case id, ok := <-completions:
			if !ok {
				return
			}
			p.mu.Lock()
			ch := p.waiters[id]
			p.mu.Unlock()
			if ch == nil {
				continue
			}
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

func (p *MQ) register(id uuid.UUID) <-chan struct{} {
	ch := make(chan struct{}, 1)
	p.mu.Lock()
	p.waiters[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *MQ) unregister(id uuid.UUID) {
	p.mu.Lock()
	delete(p.waiters, id)
	p.mu.Unlock()
}

// Close останавливает слушателя событий и освобождает ресурсы пула.
func (p *MQ) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)
	p.mu.Unlock()

	if p.closer != nil {
		return p.closer()
	}
	return nil
}
