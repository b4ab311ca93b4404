package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/pool"
	"github.com/shaiso/Cyclone/internal/runner"
	"github.com/shaiso/Cyclone/internal/telemetry"
)

// Outcome — результат обработки датасета до записи в файл.
type Outcome struct {
	Bundle   *merge.Bundle
	Expected int64
	Missing  int64
	Rejected []merge.Rejection
	Workers  []WorkerLog
}

// Executor обрабатывает один датасет цикла.
type Executor interface {
	Execute(ctx context.Context, c cycle.Cycle, cfg *domain.CycleConfig, dsIndex int) (*Outcome, error)
}

// LocalExecutor выполняет датасет в текущем процессе экземпляром
// цикла контроллера.
type LocalExecutor struct {
	engine *merge.Engine
	logger *slog.Logger
}

// NewLocalExecutor создаёт LocalExecutor.
func NewLocalExecutor(engine *merge.Engine, logger *slog.Logger) *LocalExecutor {
	return &LocalExecutor{engine: engine, logger: logger}
}

func (e *LocalExecutor) Execute(ctx context.Context, c cycle.Cycle, cfg *domain.CycleConfig, dsIndex int) (*Outcome, error) {
	first, count := cfg.Datasets[dsIndex].RecordRange()

	b, err := runner.Run(ctx, runner.Request{
		Cycle:        c,
		Config:       cfg,
		DatasetIndex: dsIndex,
		First:        first,
		Count:        count,
		Logger:       e.logger,
	})
	if err != nil {
		return nil, err
	}

	// тот же путь слияния, что и в распределённом режиме
	merged, rejected := e.engine.MergeBundles([]*merge.Bundle{b})
	return &Outcome{Bundle: merged, Expected: count, Rejected: rejected}, nil
}

// DistributedExecutor раздаёт датасет воркерам пула и сливает их бандлы.
type DistributedExecutor struct {
	pool   pool.Pool
	engine *merge.Engine
	logger *slog.Logger
}

// NewDistributedExecutor создаёт DistributedExecutor.
func NewDistributedExecutor(p pool.Pool, engine *merge.Engine, logger *slog.Logger) *DistributedExecutor {
	return &DistributedExecutor{pool: p, engine: engine, logger: logger}
}

// Execute ждёт все партиции, сливает успешные бандлы в порядке воркеров
// и публикует логи воркеров. Упавшие партиции учитываются как потерянные
// записи. Если не вернулся ни один бандл, датасет пропускается.
func (e *DistributedExecutor) Execute(ctx context.Context, _ cycle.Cycle, cfg *domain.CycleConfig, dsIndex int) (*Outcome, error) {
	first, count := cfg.Datasets[dsIndex].RecordRange()
	if count == 0 {
		e.logger.Info("no records in range, nothing to dispatch")
		return &Outcome{Bundle: emptyBundle()}, nil
	}

	results, err := e.pool.Dispatch(ctx, pool.Job{
		Config:       cfg,
		DatasetIndex: dsIndex,
		First:        first,
		Count:        count,
	})
	if err != nil {
		if domain.SeverityOf(err, domain.SeverityNone) == domain.SeverityNone {
			err = domain.WrapFault(domain.SkipDataset, err, "dispatch")
		}
		return nil, err
	}

	out := &Outcome{Expected: count}
	var bundles []*merge.Bundle
	var failures *multierror.Error
	worst := domain.SeverityNone

	for _, r := range results {
		out.Workers = append(out.Workers, WorkerLog{Worker: r.Worker, Log: r.Log, Err: r.Err})
		if r.Err != nil {
			out.Missing += r.Count
			failures = multierror.Append(failures,
				fmt.Errorf("worker %d [%d, %d): %w", r.Worker, r.First, r.First+r.Count, r.Err))
			if sev := domain.SeverityOf(r.Err, domain.SkipDataset); sev > worst {
				worst = sev
			}
			continue
		}
		bundles = append(bundles, r.Bundle)
	}

	if len(bundles) > 0 {
		out.Bundle, out.Rejected = e.engine.MergeBundles(bundles)
	}
	e.surfaceLogs(out.Workers)

	switch {
	case worst >= domain.SkipCycle:
		return nil, domain.WrapFault(worst, failures.ErrorOrNil(), "workers")
	case len(bundles) == 0:
		return nil, domain.WrapFault(domain.SkipDataset, failures.ErrorOrNil(), "all workers failed")
	}

	if out.Missing > 0 {
		e.logger.Warn("records missing after distributed processing",
			"missing", out.Missing,
			"expected", count,
			"failed_workers", failures.Len(),
			"error", failures.ErrorOrNil(),
		)
		telemetry.RecordsMissing.WithLabelValues(cfg.Name).Add(float64(out.Missing))
	}
	return out, nil
}

// surfaceLogs выводит логи воркеров после слияния.
func (e *DistributedExecutor) surfaceLogs(workers []WorkerLog) {
	for _, w := range workers {
		if w.Log == "" {
			continue
		}
		if w.Err != nil {
			e.logger.Warn("worker log", "worker", w.Worker, "error", w.Err, "log", w.Log)
			continue
		}
		e.logger.Debug("worker log", "worker", w.Worker, "log", w.Log)
	}
}

func emptyBundle() *merge.Bundle {
	b := merge.NewBundle()
	_ = b.Put(merge.Artifact{Name: merge.StatisticsName, Value: &merge.Statistics{}})
	return b
}
