package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Cyclone/internal/domain"
)

const partitionColumns = `
	id, dispatch_id, worker, cycle, dataset_index, first_record, record_count,
	status, bundle, log, error, severity, started_at, finished_at, created_at`

// PartitionRepo — репозиторий партиций распределённой раздачи.
type PartitionRepo struct {
	pool *pgxpool.Pool
}

// NewPartitionRepo создаёт новый PartitionRepo.
func NewPartitionRepo(pool *pgxpool.Pool) *PartitionRepo {
	return &PartitionRepo{pool: pool}
}

// CreateBatch сохраняет все партиции раздачи в одной транзакции.
func (r *PartitionRepo) CreateBatch(ctx context.Context, parts []*domain.Partition) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO partitions (id, dispatch_id, worker, cycle, dataset_index,
		                        first_record, record_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, p := range parts {
		cycleJSON, err := json.Marshal(p.Cycle)
		if err != nil {
			return fmt.Errorf("marshal cycle: %w", err)
		}
		_, err = tx.Exec(ctx, query,
			p.ID,
			p.DispatchID,
			p.Worker,
			cycleJSON,
			p.DatasetIndex,
			p.First,
			p.Count,
			p.Status,
			p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert partition: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID возвращает партицию по ID.
func (r *PartitionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Partition, error) {
	query := `SELECT ` + partitionColumns + ` FROM partitions WHERE id = $1`
	return scanPartition(r.pool.QueryRow(ctx, query, id))
}

// ListByDispatch возвращает партиции раздачи в порядке воркеров.
func (r *PartitionRepo) ListByDispatch(ctx context.Context, dispatchID uuid.UUID) ([]*domain.Partition, error) {
	query := `SELECT ` + partitionColumns + ` FROM partitions WHERE dispatch_id = $1 ORDER BY worker ASC`
	return r.list(ctx, query, dispatchID)
}

// ListQueued возвращает партиции в статусе QUEUED, старые первыми.
func (r *PartitionRepo) ListQueued(ctx context.Context, limit int) ([]*domain.Partition, error) {
	query := `SELECT ` + partitionColumns + ` FROM partitions WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	return r.list(ctx, query, limit)
}

// CountUnfinished возвращает число партиций раздачи, ещё не дошедших до терминального статуса.
func (r *PartitionRepo) CountUnfinished(ctx context.Context, dispatchID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM partitions
		WHERE dispatch_id = $1 AND status IN ('QUEUED', 'RUNNING')
	`, dispatchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unfinished partitions: %w", err)
	}
	return n, nil
}

// Claim атомарно переводит партицию из QUEUED в RUNNING.
// Возвращает ErrInvalidState, если партицию уже забрал другой воркер.
func (r *PartitionRepo) Claim(ctx context.Context, p *domain.Partition) error {
	p.MarkRunning()
	tag, err := r.pool.Exec(ctx, `
		UPDATE partitions SET status = $2, started_at = $3
		WHERE id = $1 AND status = 'QUEUED'
	`, p.ID, p.Status, p.StartedAt)
	if err != nil {
		return fmt.Errorf("claim partition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// Finish сохраняет терминальный статус, бандл и лог воркера.
func (r *PartitionRepo) Finish(ctx context.Context, p *domain.Partition) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE partitions
		SET status = $2, bundle = $3, log = $4, error = $5, severity = $6, finished_at = $7
		WHERE id = $1
	`, p.ID, p.Status, p.Bundle, nullString(p.Log), nullString(p.Error), int32(p.Severity), p.FinishedAt)
	if err != nil {
		return fmt.Errorf("finish partition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDispatch удаляет партиции раздачи после слияния.
func (r *PartitionRepo) DeleteDispatch(ctx context.Context, dispatchID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM partitions WHERE dispatch_id = $1`, dispatchID); err != nil {
		return fmt.Errorf("delete partitions: %w", err)
	}
	return nil
}

func (r *PartitionRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Partition, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	defer rows.Close()

	var parts []*domain.Partition
	for rows.Next() {
		p, err := scanPartition(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func scanPartition(row pgx.Row) (*domain.Partition, error) {
	var p domain.Partition
	var cycleJSON []byte
	var logText, errText *string
	var severity int32

	err := row.Scan(
		&p.ID,
		&p.DispatchID,
		&p.Worker,
		&cycleJSON,
		&p.DatasetIndex,
		&p.First,
		&p.Count,
		&p.Status,
		&p.Bundle,
		&logText,
		&errText,
		&severity,
		&p.StartedAt,
		&p.FinishedAt,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan partition: %w", err)
	}

	if err := json.Unmarshal(cycleJSON, &p.Cycle); err != nil {
		return nil, fmt.Errorf("unmarshal cycle: %w", err)
	}
	p.Severity = domain.Severity(severity)
	if logText != nil {
		p.Log = *logText
	}
	if errText != nil {
		p.Error = *errText
	}

	return &p, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
