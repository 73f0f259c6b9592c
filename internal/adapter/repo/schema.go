package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements create the tables on first boot. Image payloads live in
// bytea columns on the job row itself, so a job and its slots commit together.
var schemaStatements = []string{
	`
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	`
CREATE TABLE IF NOT EXISTS jobs (
    id            UUID PRIMARY KEY,
    user_id       UUID NOT NULL REFERENCES users(id),
    batch_id      UUID,
    pipeline      TEXT NOT NULL,
    breed         TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    original      BYTEA,
    stage1        BYTEA,
    stage2        BYTEA,
    final         BYTEA,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_user_created ON jobs (user_id, created_at);`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("repo: ensure schema: %w", err)
		}
	}
	return nil
}
