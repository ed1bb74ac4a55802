// Package upload implements the import-job repository using PostgreSQL.
// It doubles as the pipeline's progress tracker: every status or counter
// mutation is one durable UPDATE, visible to status pollers as soon as the
// call returns. Status transitions are guarded in SQL so that terminal
// states (completed, failed) can never be left.
package upload

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/printshop/catalog-backend/internal/adapter/postgres"
	"github.com/printshop/catalog-backend/internal/domain"
)

// Repo provides upload-job persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new upload repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// psql builds squirrel queries with $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const uploadColumns = `id, original_filename, filepath, status, total_rows, processed_rows, error_message, created_at, updated_at`

// ---------------------------------------------------------------------------
// Create / read operations
// ---------------------------------------------------------------------------

// Create inserts a new upload row and returns it as stored.
func (r *Repo) Create(ctx context.Context, u *domain.Upload) (*domain.Upload, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx,
		`INSERT INTO uploads (id, original_filename, filepath, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+uploadColumns,
		u.ID, u.OriginalFilename, u.Filepath, string(u.Status), u.CreatedAt, u.UpdatedAt,
	)

	created, err := scanUpload(row)
	if err != nil {
		return nil, mapError(err, "upload", u.ID)
	}
	return created, nil
}

// GetByID returns an upload by primary key.
// Returns domain.ErrNotFound if the upload does not exist.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Upload, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id)

	u, err := scanUpload(row)
	if err != nil {
		return nil, mapError(err, "upload", id)
	}
	return u, nil
}

// List returns uploads newest first, optionally filtered by status.
func (r *Repo) List(ctx context.Context, f Filter) ([]domain.Upload, error) {
	f.normalize()

	builder := psql.
		Select(uploadColumns).
		From("uploads").
		OrderBy("created_at DESC, id DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))

	if f.Status != nil {
		builder = builder.Where(sq.Eq{"status": string(*f.Status)})
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []domain.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		uploads = append(uploads, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	return uploads, nil
}

// ---------------------------------------------------------------------------
// Progress tracker operations
// ---------------------------------------------------------------------------

// MarkProcessing transitions pending → processing.
// Returns domain.ErrConflict if the upload exists but is not pending.
func (r *Repo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.guardedExec(ctx, id,
		`UPDATE uploads SET status = 'processing', updated_at = now()
		 WHERE id = $1 AND status = 'pending'`)
}

// SetTotalRows records the data-row count discovered by the count pass.
func (r *Repo) SetTotalRows(ctx context.Context, id uuid.UUID, total int) error {
	return r.guardedExec(ctx, id,
		`UPDATE uploads SET total_rows = $2, updated_at = now()
		 WHERE id = $1 AND status = 'processing'`, total)
}

// IncrementProcessed adds delta to processed_rows. The addition happens in
// SQL, so the counter is monotonically non-decreasing regardless of what the
// caller last read.
func (r *Repo) IncrementProcessed(ctx context.Context, id uuid.UUID, delta int) error {
	if delta < 0 {
		return fmt.Errorf("upload %s: negative delta %d: %w", id, delta, domain.ErrValidation)
	}
	if delta == 0 {
		return nil
	}
	return r.guardedExec(ctx, id,
		`UPDATE uploads SET processed_rows = processed_rows + $2, updated_at = now()
		 WHERE id = $1 AND status = 'processing'`, delta)
}

// MarkCompleted transitions processing → completed.
func (r *Repo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.guardedExec(ctx, id,
		`UPDATE uploads SET status = 'completed', updated_at = now()
		 WHERE id = $1 AND status = 'processing'`)
}

// MarkFailed transitions a non-terminal upload to failed and records the
// error message. The caller is responsible for truncating msg to the column
// bound (see domain.TruncateErrorMessage).
func (r *Repo) MarkFailed(ctx context.Context, id uuid.UUID, msg string) error {
	return r.guardedExec(ctx, id,
		`UPDATE uploads SET status = 'failed', error_message = $2, updated_at = now()
		 WHERE id = $1 AND status IN ('pending', 'processing')`, msg)
}

// guardedExec runs a status-guarded UPDATE with id as $1. Zero rows affected
// means either the upload is missing (ErrNotFound) or its current status
// fails the guard (ErrConflict); a follow-up SELECT disambiguates.
func (r *Repo) guardedExec(ctx context.Context, id uuid.UUID, sql string, args ...any) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return mapError(err, "upload", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var status string
	err = q.QueryRow(ctx, `SELECT status FROM uploads WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return mapError(err, "upload", id)
	}
	return fmt.Errorf("upload %s: status %s: %w", id, status, domain.ErrConflict)
}

// ---------------------------------------------------------------------------
// Row scanning / error mapping
// ---------------------------------------------------------------------------

func scanUpload(row pgx.Row) (*domain.Upload, error) {
	var (
		u      domain.Upload
		status string
	)
	err := row.Scan(
		&u.ID, &u.OriginalFilename, &u.Filepath, &status,
		&u.TotalRows, &u.ProcessedRows, &u.ErrorMessage,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Status = domain.UploadStatus(status)
	return &u, nil
}

// mapError converts pgx/pgconn errors into domain errors.
func mapError(err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}

	// context errors pass through as-is
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	// pgx.ErrNoRows -> domain.ErrNotFound
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrAlreadyExists)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
