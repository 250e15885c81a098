package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

// CloneRepoImpl provides a concrete implementation for the CloneRepository interface using PostgreSQL.
type CloneRepoImpl struct {
	db *pgxpool.Pool
}

// NewCloneRepo creates a new instance of CloneRepoImpl.
func NewCloneRepo(db *pgxpool.Pool) *CloneRepoImpl {
	return &CloneRepoImpl{db: db}
}

// Insert stores a new record. Re-inserting an id overwrites it.
func (r *CloneRepoImpl) Insert(ctx context.Context, rec *entity.CloneRecord) error {
	query := `
		INSERT INTO clones (id, url, status, generated_code, preview_url, error, tokens_in, tokens_out, cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			status = EXCLUDED.status,
			generated_code = EXCLUDED.generated_code,
			preview_url = EXCLUDED.preview_url,
			error = EXCLUDED.error,
			tokens_in = EXCLUDED.tokens_in,
			tokens_out = EXCLUDED.tokens_out,
			cost = EXCLUDED.cost,
			updated_at = EXCLUDED.updated_at;
	`
	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.URL,
		string(rec.Status),
		rec.GeneratedCode,
		rec.PreviewURL,
		rec.Error,
		rec.TokensIn,
		rec.TokensOut,
		rec.Cost,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

// Update applies the partial update inside a transaction so concurrent
// status changes do not lose fields.
func (r *CloneRepoImpl) Update(ctx context.Context, id string, upd entity.CloneUpdate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := scanClone(tx.QueryRow(ctx, selectClone+` WHERE id = $1 FOR UPDATE;`, id))
	if err != nil {
		return err
	}
	upd.Apply(rec)
	rec.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE clones SET status = $2, generated_code = $3, preview_url = $4, error = $5,
			tokens_in = $6, tokens_out = $7, cost = $8, updated_at = $9
		WHERE id = $1;
	`
	if _, err := tx.Exec(ctx, query, id, string(rec.Status), rec.GeneratedCode, rec.PreviewURL, rec.Error,
		rec.TokensIn, rec.TokensOut, rec.Cost, rec.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FindByID retrieves a record, or repository.ErrNotFound.
func (r *CloneRepoImpl) FindByID(ctx context.Context, id string) (*entity.CloneRecord, error) {
	return scanClone(r.db.QueryRow(ctx, selectClone+` WHERE id = $1;`, id))
}

const selectClone = `
	SELECT id, url, status, generated_code, preview_url, error, tokens_in, tokens_out, cost, created_at, updated_at
	FROM clones`

func scanClone(row pgx.Row) (*entity.CloneRecord, error) {
	var rec entity.CloneRecord
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.URL,
		&status,
		&rec.GeneratedCode,
		&rec.PreviewURL,
		&rec.Error,
		&rec.TokensIn,
		&rec.TokensOut,
		&rec.Cost,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Status = entity.CloneStatus(status)
	return &rec, nil
}
