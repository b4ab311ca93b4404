package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job — периодически запускаемая работа (обычно полный прогон задания).
type Job func(ctx context.Context) error

// Config — конфигурация Scheduler.
type Config struct {
	// CronExpr — расписание (например "0 3 * * *" или "@every 6h").
	CronExpr string

	// Timezone — часовой пояс расписания (по умолчанию UTC).
	Timezone string

	Job Job

	// RunImmediately — запустить Job сразу, не дожидаясь первого тика.
	RunImmediately bool

	// TickInterval — как часто проверять расписание (по умолчанию 1s).
	TickInterval time.Duration

	Logger *slog.Logger
}

// Scheduler запускает Job по cron-расписанию.
// Тик, пришедшийся на ещё идущий запуск, пропускается.
type Scheduler struct {
	expr     string
	timezone string
	job      Job
	now      bool
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	nextDue time.Time
	running bool
	wg      sync.WaitGroup
}

// New создаёт Scheduler. Выражение должно быть проверено ValidateCronExpr.
func New(cfg Config) *Scheduler {
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		expr:     cfg.CronExpr,
		timezone: cfg.Timezone,
		job:      cfg.Job,
		now:      cfg.RunImmediately,
		interval: cfg.TickInterval,
		logger:   cfg.Logger.With("component", "scheduler"),
	}
}

// Run крутит тики до отмены контекста и дожидается идущего запуска.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := ValidateCronExpr(s.expr); err != nil {
		return err
	}

	start := time.Now()
	if s.now {
		s.mu.Lock()
		s.nextDue = start
		s.mu.Unlock()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx, start)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick запускает Job, если подошло время. Возвращает true, если запуск начат.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextDue.IsZero() {
		if !s.advance(now) {
			return false
		}
	}
	if now.Before(s.nextDue) {
		return false
	}

	due := s.nextDue
	if !s.advance(now) {
		return false
	}

	if s.running {
		s.logger.Warn("previous run still in progress, skipping tick", "due", due, "next_due", s.nextDue)
		return false
	}

	s.running = true
	s.wg.Add(1)
	go s.execute(ctx, due)
	return true
}

// advance вычисляет следующее время запуска. Вызывается под mu.
func (s *Scheduler) advance(now time.Time) bool {
	next, err := CalculateNext(s.expr, s.timezone, now)
	if err != nil {
		s.logger.Error("failed to calculate next due", "error", err)
		return false
	}
	s.nextDue = next
	return true
}

func (s *Scheduler) execute(ctx context.Context, due time.Time) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Info("scheduled run started", "due", due)
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled run completed", "duration", time.Since(start))
}

// NextDue возвращает время следующего запуска (нулевое до первого тика).
func (s *Scheduler) NextDue() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextDue
}

// Wait дожидается завершения идущего запуска.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
