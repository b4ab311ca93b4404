package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/dataset"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/engine"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/output"
	"github.com/shaiso/Cyclone/internal/pool"
	"github.com/shaiso/Cyclone/internal/runner"
	"github.com/shaiso/Cyclone/internal/telemetry"
)

// Recorder сохраняет историю циклов (repo.CycleRunRepo).
type Recorder interface {
	Start(ctx context.Context, run *domain.CycleRun) error
	Finish(ctx context.Context, run *domain.CycleRun) error
}

// Config — конфигурация контроллера.
type Config struct {
	Job    *domain.JobConfig
	Cycles *cycle.Registry

	// Engine — движок слияния. По умолчанию с merge.DefaultRegistry.
	Engine *merge.Engine

	// Pools открывает пул воркеров для DISTRIBUTED циклов.
	Pools pool.Opener

	// Validator — проверка файлов датасетов. По умолчанию создаётся
	// на каждый цикл с кешем из CycleConfig.CacheFile.
	Validator *dataset.Validator

	// Recorder — история запусков (может быть nil).
	Recorder Recorder

	Logger *slog.Logger
}

// Controller выполняет циклы задания.
//
// Не предназначен для параллельных вызовов ExecuteNext; State
// можно читать из любой горутины.
type Controller struct {
	job       *domain.JobConfig
	cycles    *cycle.Registry
	engine    *merge.Engine
	writer    *output.Writer
	opener    pool.Opener
	validator *dataset.Validator
	recorder  Recorder
	logger    *slog.Logger

	mu     sync.RWMutex
	state  domain.ControllerState
	cursor int

	pools map[string]pool.Pool
}

// New создаёт контроллер в состоянии IDLE.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Engine == nil {
		cfg.Engine = merge.New(merge.Config{
			Registry: merge.DefaultRegistry(),
			Logger:   cfg.Logger,
			OnReject: func(kind string) {
				telemetry.MergeRejected.WithLabelValues(kind).Inc()
			},
		})
	}

	return &Controller{
		job:       cfg.Job,
		cycles:    cfg.Cycles,
		engine:    cfg.Engine,
		writer:    output.NewWriter(cfg.Engine, cfg.Logger),
		opener:    cfg.Pools,
		validator: cfg.Validator,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger.With("component", "controller"),
		state:     domain.ControllerIdle,
		pools:     make(map[string]pool.Pool),
	}
}

// State возвращает текущее состояние.
func (c *Controller) State() domain.ControllerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(s domain.ControllerState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Initialize валидирует задание и упорядочивает датасеты циклов.
// Ошибка валидации переводит контроллер в FAILED.
func (c *Controller) Initialize() error {
	if c.State() != domain.ControllerIdle {
		return ErrAlreadyInitialized
	}

	if err := engine.Validate(c.job, c.cycles); err != nil {
		c.setState(domain.ControllerFailed)
		c.logger.Error("job validation failed", "error", err)
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for i := range c.job.Cycles {
		cfg := &c.job.Cycles[i]
		arranged, moves := dataset.Arrange(cfg.Datasets)
		for _, m := range moves {
			c.logger.Warn("dataset moved to keep types together",
				"cycle", cfg.Name,
				"dataset", m.Dataset,
				"from", m.From,
				"to", m.To,
			)
		}
		cfg.Datasets = arranged
	}

	c.setState(domain.ControllerInitialized)
	c.logger.Info("controller initialized", "job", c.job.Name, "cycles", len(c.job.Cycles))
	return nil
}

// ExecuteAll выполняет все оставшиеся циклы по порядку.
// Возвращает отчёты выполненных циклов; ошибка — только фатальная.
func (c *Controller) ExecuteAll(ctx context.Context) ([]*CycleReport, error) {
	var reports []*CycleReport
	for {
		rep, err := c.ExecuteNext(ctx)
		if errors.Is(err, ErrNoMoreCycles) {
			return reports, nil
		}
		if rep != nil {
			reports = append(reports, rep)
		}
		if err != nil {
			return reports, err
		}
	}
}

// ExecuteNext выполняет следующий ещё не выполненный цикл.
//
// Пропущенный цикл (SkipCycle) не считается ошибкой: отчёт
// возвращается со статусом SKIPPED, курсор сдвигается. Фатальная
// ошибка переводит контроллер в FAILED.
func (c *Controller) ExecuteNext(ctx context.Context) (*CycleReport, error) {
	c.mu.Lock()
	switch c.state {
	case domain.ControllerIdle:
		c.mu.Unlock()
		return nil, ErrNotInitialized
	case domain.ControllerFailed:
		c.mu.Unlock()
		return nil, ErrFailed
	case domain.ControllerCompleted:
		c.mu.Unlock()
		return nil, ErrNoMoreCycles
	}
	if c.cursor >= len(c.job.Cycles) {
		c.state = domain.ControllerCompleted
		c.mu.Unlock()
		return nil, ErrNoMoreCycles
	}
	index := c.cursor
	c.state = domain.ControllerRunning
	c.mu.Unlock()

	rep, err := c.runCycle(ctx, index)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = index + 1
	if err != nil {
		c.state = domain.ControllerFailed
		return rep, err
	}
	if c.cursor >= len(c.job.Cycles) {
		c.state = domain.ControllerCompleted
	}
	return rep, nil
}

// runCycle выполняет цикл index. Возвращает ошибку только для StopExecution.
func (c *Controller) runCycle(ctx context.Context, index int) (*CycleReport, error) {
	cfg := c.job.Cycles[index]
	logger := telemetry.WithCycle(c.logger, cfg.Name).With("cycle_index", index)

	rep := &CycleReport{Run: domain.CycleRun{
		ID:        uuid.New(),
		Job:       c.job.Name,
		Cycle:     cfg.Name,
		Index:     index,
		Status:    domain.CycleRunRunning,
		StartedAt: time.Now(),
	}}
	c.recordStart(ctx, &rep.Run, logger)

	logger.Info("cycle started", "mode", cfg.Mode, "datasets", len(cfg.Datasets))

	err := c.executeCycle(ctx, &cfg, rep, logger)
	sev := domain.SeverityOf(err, domain.SkipCycle)

	switch {
	case err == nil:
		rep.Run.Finish(domain.CycleRunSucceeded, nil)
	case sev < domain.StopExecution:
		logger.Error("cycle skipped", "severity", sev.String(), "error", err)
		rep.Run.Finish(domain.CycleRunSkipped, err)
		err = nil
	default:
		logger.Error("execution stopped", "severity", sev.String(), "error", err)
		rep.Run.Finish(domain.CycleRunFailed, err)
	}

	telemetry.RecordsProcessed.WithLabelValues(cfg.Name).Add(float64(rep.Run.Processed))
	telemetry.RecordsSkipped.WithLabelValues(cfg.Name).Add(float64(rep.Run.Skipped))

	logger.Info("cycle finished",
		"status", rep.Run.Status,
		"processed", rep.Run.Processed,
		"skipped", rep.Run.Skipped,
		"expected", rep.Run.Expected,
		"duration", rep.Run.Duration(),
		"rate_hz", rep.Run.Rate(),
	)
	c.recordFinish(ctx, &rep.Run, logger)

	if err != nil {
		return rep, fmt.Errorf("cycle %s: %w", cfg.Name, err)
	}
	return rep, nil
}

// executeCycle проходит жизненный цикл. Ошибка несёт тяжесть SkipCycle
// или StopExecution; датасетные ошибки поглощаются здесь.
func (c *Controller) executeCycle(ctx context.Context, cfg *domain.CycleConfig, rep *CycleReport, logger *slog.Logger) error {
	inst, err := c.cycles.New(cfg.Name)
	if err != nil {
		return domain.WrapFault(domain.StopExecution, err, "create cycle")
	}

	validator, closeValidator := c.cycleValidator(cfg, logger)
	defer closeValidator()

	// датасеты без единого файла исключаются и из нормировки
	validated := make([]domain.InputDataset, 0, len(cfg.Datasets))
	for _, ds := range cfg.Datasets {
		v, _, err := validator.Validate(ds)
		if err != nil && !errors.Is(err, dataset.ErrNoInputStreams) {
			logger.Error("dataset skipped", "dataset", ds.Key(), "severity", domain.SkipDataset.String(), "error", err)
			rep.Datasets = append(rep.Datasets, DatasetReport{Dataset: ds.Key(), Status: DatasetSkipped, Err: err})
			continue
		}
		validated = append(validated, v)
	}
	cfg.Datasets = validated

	if err := cycle.Setup(inst, cfg, logger); err != nil {
		return domain.WrapFault(domain.SkipCycle, err, "configure cycle")
	}
	if err := runner.BeginCycle(inst); err != nil {
		return err
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return domain.WrapFault(domain.SkipCycle, err, "create output directory")
		}
	}

	exec, err := c.executor(ctx, cfg, logger)
	if err != nil {
		return err
	}

	written := make(map[string]bool)
	for i := range cfg.Datasets {
		d, err := c.executeDataset(ctx, exec, inst, cfg, i, written)
		rep.add(d)
		if err == nil {
			continue
		}
		if sev := domain.SeverityOf(err, domain.SkipDataset); sev >= domain.SkipCycle {
			return err
		}
	}

	return runner.EndCycle(inst)
}

// executeDataset обрабатывает датасет i и пишет результат в файл.
// Возвращаемая ошибка уже залогирована.
func (c *Controller) executeDataset(ctx context.Context, exec Executor, inst cycle.Cycle,
	cfg *domain.CycleConfig, i int, written map[string]bool) (DatasetReport, error) {
	ds := &cfg.Datasets[i]
	logger := telemetry.WithDataset(c.logger, ds.Key()).With("cycle", cfg.Name)
	rep := DatasetReport{Dataset: ds.Key(), Status: DatasetSkipped}

	if len(ds.StreamsWith(domain.RoleInput)) == 0 && len(ds.StreamsWith(domain.RolePersistent)) == 0 {
		logger.Warn("no input streams defined, skipping dataset")
		return rep, nil
	}

	start := time.Now()
	out, err := exec.Execute(ctx, inst, cfg, i)
	telemetry.DatasetDuration.WithLabelValues(cfg.Name, string(cfg.Mode)).Observe(time.Since(start).Seconds())
	if out != nil {
		rep.Workers = out.Workers
	}
	if err != nil {
		sev := domain.SeverityOf(err, domain.SkipDataset)
		rep.Err = err
		if sev < domain.SkipCycle {
			logger.Error("dataset skipped", "severity", sev.String(), "error", err)
		}
		return rep, err
	}

	path := output.FileName(cfg, ds)
	if err := c.writer.WriteBundle(path, written[path], out.Bundle); err != nil {
		rep.Err = domain.WrapFault(domain.SkipDataset, err, "write output")
		logger.Error("dataset skipped", "severity", domain.SkipDataset.String(), "error", err)
		return rep, rep.Err
	}
	written[path] = true

	stats := out.Bundle.Statistics()
	rep.Status = DatasetProcessed
	rep.Output = path
	rep.Processed = stats.Processed
	rep.Skipped = stats.Skipped
	rep.Expected = out.Expected
	rep.Missing = out.Missing
	rep.Rejected = len(out.Rejected)

	if stats.Processed+out.Missing != out.Expected {
		logger.Warn("record accounting mismatch",
			"processed", stats.Processed,
			"missing", out.Missing,
			"expected", out.Expected,
		)
	}

	logger.Info("dataset processed",
		"output", path,
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"missing", out.Missing,
		"duration", time.Since(start),
	)
	return rep, nil
}

// executor выбирает исполнителя по режиму цикла.
func (c *Controller) executor(ctx context.Context, cfg *domain.CycleConfig, logger *slog.Logger) (Executor, error) {
	if cfg.Mode != domain.RunModeDistributed {
		return NewLocalExecutor(c.engine, logger), nil
	}

	p, err := c.pool(ctx, cfg.Endpoint)
	if err != nil {
		return nil, domain.WrapFault(domain.SkipCycle, err, "open worker pool")
	}
	return NewDistributedExecutor(p, c.engine, logger), nil
}

// pool открывает пул по endpoint или возвращает уже открытый.
func (c *Controller) pool(ctx context.Context, endpoint string) (pool.Pool, error) {
	if p, ok := c.pools[endpoint]; ok {
		return p, nil
	}
	if c.opener == nil {
		return nil, ErrNoPoolOpener
	}
	p, err := c.opener(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	c.pools[endpoint] = p
	c.logger.Info("worker pool opened", "workers", p.Workers())
	return p, nil
}

// cycleValidator возвращает валидатор датасетов цикла и функцию закрытия кеша.
func (c *Controller) cycleValidator(cfg *domain.CycleConfig, logger *slog.Logger) (*dataset.Validator, func()) {
	if c.validator != nil {
		return c.validator, func() {}
	}

	var cache *dataset.Cache
	if cfg.CacheFile != "" {
		var err error
		cache, err = dataset.OpenCache(cfg.CacheFile)
		if err != nil {
			logger.Warn("validation cache unavailable", "file", cfg.CacheFile, "error", err)
		}
	}

	v := dataset.NewValidator(dataset.Config{Cache: cache, Logger: logger})
	return v, func() {
		if cache != nil {
			if err := cache.Close(); err != nil {
				logger.Warn("failed to close validation cache", "error", err)
			}
		}
	}
}

func (c *Controller) recordStart(ctx context.Context, run *domain.CycleRun, logger *slog.Logger) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Start(ctx, run); err != nil {
		logger.Warn("failed to record cycle start", "error", err)
	}
}

func (c *Controller) recordFinish(ctx context.Context, run *domain.CycleRun, logger *slog.Logger) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Finish(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record cycle finish", "error", err)
	}
}

// Close закрывает открытые пулы воркеров.
func (c *Controller) Close() error {
	var result *multierror.Error
	for endpoint, p := range c.pools {
		if err := p.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close pool: %w", err))
		}
		delete(c.pools, endpoint)
	}
	return result.ErrorOrNil()
}
