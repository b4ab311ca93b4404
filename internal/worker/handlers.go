package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/mq"
	"github.com/shaiso/Cyclone/internal/pool"
	"github.com/shaiso/Cyclone/internal/repo"
	"github.com/shaiso/Cyclone/internal/telemetry"
)

// handlePartitionReady обрабатывает событие partition.ready.
func (w *Worker) handlePartitionReady(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.PartitionReadyPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse partition.ready payload", "error", err)
		return fmt.Errorf("%w: %w", mq.ErrPermanent, err)
	}

	w.logger.Debug("received partition.ready event",
		"partition_id", payload.PartitionID,
		"dispatch_id", payload.DispatchID,
	)

	if err := w.processPartition(ctx, payload.PartitionID); err != nil {
		// Ожидаемые ситуации — подтверждаем сообщение.
		if isExpected(err) {
			w.logger.Debug("partition not processed", "partition_id", payload.PartitionID, "reason", err)
			return nil
		}
		return err
	}
	return nil
}

// processPartition захватывает партицию, выполняет её и сохраняет результат.
func (w *Worker) processPartition(ctx context.Context, id uuid.UUID) error {
	p, err := w.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrPartitionNotFound, id)
		}
		return fmt.Errorf("get partition: %w", err)
	}
	if p.Status != domain.PartitionQueued {
		return ErrPartitionNotQueued
	}

	if err := w.store.Claim(ctx, p); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrPartitionNotQueued
		}
		return fmt.Errorf("claim partition: %w", err)
	}

	w.logger.Info("partition started",
		"partition_id", p.ID,
		"dispatch_id", p.DispatchID,
		"cycle", p.Cycle.Name,
		"worker", p.Worker,
		"first", p.First,
		"count", p.Count,
	)
	start := time.Now()

	w.execute(ctx, p)

	// Результат сохраняется и после отмены ctx: контроллер ждёт терминальный статус.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if err := w.store.Finish(finishCtx, p); err != nil {
		return fmt.Errorf("finish partition: %w", err)
	}
	telemetry.PartitionsTotal.WithLabelValues(string(p.Status)).Inc()

	if p.Status == domain.PartitionFailed {
		w.logger.Warn("partition failed",
			"partition_id", p.ID,
			"severity", p.Severity,
			"error", p.Error,
			"duration", time.Since(start),
		)
	} else {
		w.logger.Info("partition succeeded",
			"partition_id", p.ID,
			"bundle_bytes", len(p.Bundle),
			"duration", time.Since(start),
		)
	}

	w.publishCompletion(finishCtx, p)
	return nil
}

// execute прогоняет цикл по диапазону партиции и переводит её в терминальный статус.
func (w *Worker) execute(ctx context.Context, p *domain.Partition) {
	if p.DatasetIndex < 0 || p.DatasetIndex >= len(p.Cycle.Datasets) {
		p.MarkFailed(domain.WrapFault(domain.SkipDataset, ErrBadDatasetIndex,
			fmt.Sprintf("index %d", p.DatasetIndex)), "")
		return
	}

	job := pool.Job{
		Config:       &p.Cycle,
		DatasetIndex: p.DatasetIndex,
		First:        p.First,
		Count:        p.Count,
	}
	r := pool.Range{Worker: p.Worker, First: p.First, Count: p.Count}

	res := pool.RunRange(ctx, w.cycles, job, r, w.logger, w.level)
	if res.Err != nil {
		p.MarkFailed(res.Err, res.Log)
		return
	}

	data, err := merge.EncodeBundle(res.Bundle)
	if err != nil {
		p.MarkFailed(domain.WrapFault(domain.SkipDataset, err, "encode bundle"), res.Log)
		return
	}
	p.MarkSucceeded(data, res.Log)
}

// publishCompletion публикует partition.completed.
// Ошибка публикации не фатальна: контроллер увидит статус через polling.
func (w *Worker) publishCompletion(ctx context.Context, p *domain.Partition) {
	if w.publisher == nil {
		return
	}

	payload := mq.PartitionCompletedPayload{
		PartitionID: p.ID,
		DispatchID:  p.DispatchID,
		Status:      string(p.Status),
		Error:       p.Error,
	}
	if err := w.publisher.PublishPartitionCompleted(ctx, payload); err != nil {
		w.logger.Warn("failed to publish partition.completed",
			"partition_id", p.ID,
			"error", err,
		)
	}
}
