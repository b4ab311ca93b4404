package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Cyclone/internal/domain"
)

// CycleRunRepo — история выполнения циклов.
type CycleRunRepo struct {
	pool *pgxpool.Pool
}

// NewCycleRunRepo создаёт новый CycleRunRepo.
func NewCycleRunRepo(pool *pgxpool.Pool) *CycleRunRepo {
	return &CycleRunRepo{pool: pool}
}

// Start сохраняет запись о начале цикла.
func (r *CycleRunRepo) Start(ctx context.Context, run *domain.CycleRun) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cycle_runs (id, job, cycle, cycle_index, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.Job, run.Cycle, run.Index, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert cycle run: %w", err)
	}
	return nil
}

// Finish сохраняет итог цикла.
func (r *CycleRunRepo) Finish(ctx context.Context, run *domain.CycleRun) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cycle_runs
		SET status = $2, processed = $3, skipped = $4, expected = $5,
		    error = $6, finished_at = $7
		WHERE id = $1
	`, run.ID, run.Status, run.Processed, run.Skipped, run.Expected,
		nullString(run.Error), run.FinishedAt)
	if err != nil {
		return fmt.Errorf("update cycle run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecent возвращает последние запуски задания, новые первыми.
func (r *CycleRunRepo) ListRecent(ctx context.Context, job string, limit int) ([]domain.CycleRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job, cycle, cycle_index, status, processed, skipped, expected,
		       error, started_at, finished_at
		FROM cycle_runs
		WHERE job = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, job, limit)
	if err != nil {
		return nil, fmt.Errorf("list cycle runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.CycleRun
	for rows.Next() {
		var run domain.CycleRun
		var errText *string
		if err := rows.Scan(
			&run.ID, &run.Job, &run.Cycle, &run.Index, &run.Status,
			&run.Processed, &run.Skipped, &run.Expected,
			&errText, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cycle run: %w", err)
		}
		if errText != nil {
			run.Error = *errText
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
