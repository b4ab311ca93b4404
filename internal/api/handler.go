package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Cyclone/internal/domain"
)

// PartitionReader — чтение партиций (repo.PartitionRepo).
type PartitionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Partition, error)
	ListByDispatch(ctx context.Context, dispatchID uuid.UUID) ([]*domain.Partition, error)
}

// RunLister — история циклов (repo.CycleRunRepo).
type RunLister interface {
	ListRecent(ctx context.Context, job string, limit int) ([]domain.CycleRun, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	partitions PartitionReader
	runs       RunLister
	healthy    func() bool
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Partitions PartitionReader
	Runs       RunLister

	// Healthy сообщает, жив ли процесс. nil — всегда жив.
	Healthy func() bool

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Healthy == nil {
		cfg.Healthy = func() bool { return true }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		partitions: cfg.Partitions,
		runs:       cfg.Runs,
		healthy:    cfg.Healthy,
		logger:     cfg.Logger,
	}
}
