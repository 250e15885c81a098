package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS clones (
	id             TEXT PRIMARY KEY,
	url            TEXT NOT NULL,
	status         TEXT NOT NULL,
	generated_code TEXT NOT NULL DEFAULT '',
	preview_url    TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	tokens_in      BIGINT NOT NULL DEFAULT 0,
	tokens_out     BIGINT NOT NULL DEFAULT 0,
	cost           DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS clone_events (
	clone_id TEXT NOT NULL,
	seq      BIGINT NOT NULL,
	event    JSONB NOT NULL,
	PRIMARY KEY (clone_id, seq)
);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
