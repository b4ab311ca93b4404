package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS partitions (
	id            UUID PRIMARY KEY,
	dispatch_id   UUID        NOT NULL,
	worker        INTEGER     NOT NULL,
	cycle         JSONB       NOT NULL,
	dataset_index INTEGER     NOT NULL,
	first_record  BIGINT      NOT NULL,
	record_count  BIGINT      NOT NULL,
	status        TEXT        NOT NULL,
	bundle        BYTEA,
	log           TEXT,
	error         TEXT,
	severity      INTEGER     NOT NULL DEFAULT 0,
	started_at    TIMESTAMPTZ,
	finished_at   TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS partitions_dispatch_idx ON partitions (dispatch_id);
CREATE INDEX IF NOT EXISTS partitions_status_idx ON partitions (status, created_at);

CREATE TABLE IF NOT EXISTS cycle_runs (
	id          UUID PRIMARY KEY,
	job         TEXT        NOT NULL,
	cycle       TEXT        NOT NULL,
	cycle_index INTEGER     NOT NULL,
	status      TEXT        NOT NULL,
	processed   BIGINT      NOT NULL DEFAULT 0,
	skipped     BIGINT      NOT NULL DEFAULT 0,
	expected    BIGINT      NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);
`

// EnsureSchema создаёт таблицы, если их ещё нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
