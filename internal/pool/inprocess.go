package pool

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/telemetry"
)

// InProcessConfig — конфигурация пула горутин.
type InProcessConfig struct {
	// Workers — число воркеров (по умолчанию 1).
	Workers int

	// Cycles — реестр, из которого каждый воркер создаёт свой экземпляр цикла.
	Cycles *cycle.Registry

	// LogLevel — уровень записей, попадающих в лог воркера.
	LogLevel slog.Leveler

	Logger *slog.Logger
}

// InProcess выполняет партиции в горутинах текущего процесса.
// Воркеры не делят состояние: у каждого свой экземпляр цикла.
type InProcess struct {
	workers int
	cycles  *cycle.Registry
	level   slog.Leveler
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewInProcess создаёт пул горутин.
func NewInProcess(cfg InProcessConfig) *InProcess {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.LogLevel == nil {
		cfg.LogLevel = slog.LevelInfo
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &InProcess{
		workers: cfg.Workers,
		cycles:  cfg.Cycles,
		level:   cfg.LogLevel,
		logger:  cfg.Logger,
	}
}

func (p *InProcess) Workers() int { return p.workers }

// Dispatch запускает по горутине на партицию и ждёт их всех.
func (p *InProcess) Dispatch(ctx context.Context, job Job) ([]Result, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	ranges := Split(job.First, job.Count, p.workers)
	results := make([]Result, len(ranges))

	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.run(ctx, job, r)
		}()
	}
	wg.Wait()

	return results, nil
}

func (p *InProcess) run(ctx context.Context, job Job, r Range) Result {
	res := RunRange(ctx, p.cycles, job, r, p.logger, p.level)

	status := domain.PartitionSucceeded
	if res.Err != nil {
		status = domain.PartitionFailed
	}
	telemetry.PartitionsTotal.WithLabelValues(string(status)).Inc()
	return res
}

// Close помечает пул закрытым. Идущие раздачи доработают.
func (p *InProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
