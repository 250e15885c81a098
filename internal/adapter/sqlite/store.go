// Package sqlite is an embedded alternative to the postgres adapter for
// single-node deployments and the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

const schema = `
	CREATE TABLE IF NOT EXISTS clones (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		generated_code TEXT NOT NULL DEFAULT '',
		preview_url TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		tokens_in INTEGER NOT NULL DEFAULT 0,
		tokens_out INTEGER NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clone_events (
		clone_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		event TEXT NOT NULL,
		PRIMARY KEY (clone_id, seq)
	);`

// Store keeps clone records and their event logs in one SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and runs the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serialises writers; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, rec *entity.CloneRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clones (id, url, status, generated_code, preview_url, error, tokens_in, tokens_out, cost, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			status = excluded.status,
			generated_code = excluded.generated_code,
			preview_url = excluded.preview_url,
			error = excluded.error,
			tokens_in = excluded.tokens_in,
			tokens_out = excluded.tokens_out,
			cost = excluded.cost,
			updated_at = excluded.updated_at`,
		rec.ID, rec.URL, string(rec.Status), rec.GeneratedCode, rec.PreviewURL, rec.Error,
		rec.TokensIn, rec.TokensOut, rec.Cost, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	return err
}

func (s *Store) Update(ctx context.Context, id string, upd entity.CloneUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanClone(tx.QueryRowContext(ctx, selectClone+` WHERE id = ?`, id))
	if err != nil {
		return err
	}
	upd.Apply(rec)

	_, err = tx.ExecContext(ctx,
		`UPDATE clones SET status = ?, generated_code = ?, preview_url = ?, error = ?,
			tokens_in = ?, tokens_out = ?, cost = ?, updated_at = ?
		 WHERE id = ?`,
		string(rec.Status), rec.GeneratedCode, rec.PreviewURL, rec.Error,
		rec.TokensIn, rec.TokensOut, rec.Cost, formatTime(time.Now()), id,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) FindByID(ctx context.Context, id string) (*entity.CloneRecord, error) {
	return scanClone(s.db.QueryRowContext(ctx, selectClone+` WHERE id = ?`, id))
}

func (s *Store) Append(ctx context.Context, cloneID string, ev entity.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clone_events (clone_id, seq, event) VALUES (?, ?, ?)
		 ON CONFLICT(clone_id, seq) DO NOTHING`,
		cloneID, ev.Seq, string(data),
	)
	return err
}

func (s *Store) Range(ctx context.Context, cloneID string, fromSeq int64) ([]entity.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event FROM clone_events WHERE clone_id = ? AND seq >= ? ORDER BY seq`,
		cloneID, fromSeq,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []entity.Event
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev entity.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

const selectClone = `SELECT id, url, status, generated_code, preview_url, error, tokens_in, tokens_out, cost, created_at, updated_at FROM clones`

func scanClone(row *sql.Row) (*entity.CloneRecord, error) {
	var rec entity.CloneRecord
	var status, created, updated string
	err := row.Scan(&rec.ID, &rec.URL, &status, &rec.GeneratedCode, &rec.PreviewURL, &rec.Error,
		&rec.TokensIn, &rec.TokensOut, &rec.Cost, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Status = entity.CloneStatus(status)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
