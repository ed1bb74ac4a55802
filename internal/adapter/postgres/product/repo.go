// Package product implements the catalog repository using PostgreSQL.
// BulkUpsert is the write path of the import pipeline: each batch becomes one
// transaction, so a batch either lands whole or not at all.
package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/printshop/catalog-backend/internal/adapter/postgres"
	"github.com/printshop/catalog-backend/internal/domain"
)

// Repo provides product persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	txm  *postgres.TxManager
}

// New creates a new product repository.
func New(pool *pgxpool.Pool, txm *postgres.TxManager) *Repo {
	return &Repo{pool: pool, txm: txm}
}

const upsertSQL = `
	INSERT INTO products (id, unique_key, product_title, product_description, style,
	                      sanmar_mainframe_color, size, color_name, piece_price, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	ON CONFLICT (unique_key) DO UPDATE SET
		product_title          = EXCLUDED.product_title,
		product_description    = EXCLUDED.product_description,
		style                  = EXCLUDED.style,
		sanmar_mainframe_color = EXCLUDED.sanmar_mainframe_color,
		size                   = EXCLUDED.size,
		color_name             = EXCLUDED.color_name,
		piece_price            = EXCLUDED.piece_price,
		updated_at             = now()`

// BulkUpsert inserts or updates products keyed by unique_key, all inside a
// single transaction. Existing rows keep their id and created_at. Returns the
// number of products written on success.
//
// The input is expected to be deduplicated by unique_key; if two elements
// share a key, the later one wins.
func (r *Repo) BulkUpsert(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		id := p.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(upsertSQL,
			id, p.UniqueKey, p.ProductTitle, p.ProductDescription, p.Style,
			p.SanmarMainframeColor, p.Size, p.ColorName, p.PiecePrice,
		)
	}

	err := r.txm.RunInTx(ctx, func(ctx context.Context) error {
		_, err := r.sendBatchExec(ctx, batch)
		return err
	})
	if err != nil {
		return 0, err
	}

	return len(products), nil
}

// GetByUniqueKey returns a product by its business key.
// Returns domain.ErrNotFound if no product has the key.
func (r *Repo) GetByUniqueKey(ctx context.Context, uniqueKey string) (*domain.Product, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var p domain.Product
	err := q.QueryRow(ctx,
		`SELECT id, unique_key, product_title, product_description, style,
		        sanmar_mainframe_color, size, color_name, piece_price, created_at, updated_at
		 FROM products WHERE unique_key = $1`,
		uniqueKey,
	).Scan(
		&p.ID, &p.UniqueKey, &p.ProductTitle, &p.ProductDescription, &p.Style,
		&p.SanmarMainframeColor, &p.Size, &p.ColorName, &p.PiecePrice,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, "product", uniqueKey)
	}

	return &p, nil
}

// Count returns the total number of products.
func (r *Repo) Count(ctx context.Context) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var n int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// sendBatchExec sends a pgx.Batch and counts affected rows from Exec results.
func (r *Repo) sendBatchExec(ctx context.Context, batch *pgx.Batch) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	results := q.SendBatch(ctx, batch)
	defer results.Close()

	var written int
	for range batch.Len() {
		tag, err := results.Exec()
		if err != nil {
			return written, fmt.Errorf("batch exec: %w", err)
		}
		written += int(tag.RowsAffected())
	}

	return written, nil
}

// mapError converts pgx/pgconn errors into domain errors.
func mapError(err error, entity string, key string) error {
	if err == nil {
		return nil
	}

	// context errors pass through as-is
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, key, err)
	}

	// pgx.ErrNoRows -> domain.ErrNotFound
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, key, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrAlreadyExists)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, key, err)
}
