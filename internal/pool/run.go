package pool

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/runner"
	"github.com/shaiso/Cyclone/internal/telemetry"
)

// RunRange выполняет одну партицию: свежий экземпляр цикла из реестра,
// настройка свойств и runner.Run над диапазоном r.
//
// Лог воркера перехватывается с уровня level и возвращается в Result.Log
// (и при ошибке тоже). BeginCycle/EndCycle здесь не вызываются.
func RunRange(ctx context.Context, cycles *cycle.Registry, job Job, r Range, base *slog.Logger, level slog.Leveler) (res Result) {
	res.Range = r
	start := time.Now()

	capture := telemetry.NewCapture(base.Handler(), level)
	logger := telemetry.WithWorker(capture.Logger(), r.Worker)
	defer func() { res.Log = capture.String() }()

	c, err := cycles.New(job.Config.Name)
	if err != nil {
		res.Err = domain.WrapFault(domain.StopExecution, err, "create cycle")
		return res
	}
	if err := cycle.Setup(c, job.Config, logger); err != nil {
		res.Err = domain.WrapFault(domain.SkipCycle, err, "setup cycle")
		return res
	}

	bundle, err := runner.Run(ctx, runner.Request{
		Cycle:        c,
		Config:       job.Config,
		DatasetIndex: job.DatasetIndex,
		First:        r.First,
		Count:        r.Count,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("partition failed", "error", err)
		res.Err = err
		return res
	}

	logger.Debug("partition done", "duration", time.Since(start))
	res.Bundle = bundle
	return res
}
