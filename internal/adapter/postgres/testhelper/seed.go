package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printshop/catalog-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUpload creates an upload row with the given status. total_rows and
// processed_rows stay at their zero defaults. Returns a filled domain.Upload.
func SeedUpload(t *testing.T, pool *pgxpool.Pool, status domain.UploadStatus) domain.Upload {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	upload := domain.Upload{
		ID:               uuid.New(),
		OriginalFilename: "products-" + suffix + ".csv",
		Filepath:         "/tmp/uploads/" + suffix + ".csv",
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO uploads (id, original_filename, filepath, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		upload.ID, upload.OriginalFilename, upload.Filepath, string(upload.Status), upload.CreatedAt, upload.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUpload insert: %v", err)
	}

	return upload
}

// SeedProduct creates a product row with a unique key derived from suffix.
// All descriptive fields are filled. Returns a filled domain.Product.
func SeedProduct(t *testing.T, pool *pgxpool.Pool) domain.Product {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)

	title := "Test Product " + suffix
	desc := "Description " + suffix
	style := "ST-" + suffix
	mainframeColor := "NAVY"
	size := "XL"
	colorName := "Navy Blue"
	price := 12.5

	p := domain.Product{
		ID:                   uuid.New(),
		UniqueKey:            "key-" + suffix,
		ProductTitle:         &title,
		ProductDescription:   &desc,
		Style:                &style,
		SanmarMainframeColor: &mainframeColor,
		Size:                 &size,
		ColorName:            &colorName,
		PiecePrice:           &price,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO products (id, unique_key, product_title, product_description, style,
		                       sanmar_mainframe_color, size, color_name, piece_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.UniqueKey, p.ProductTitle, p.ProductDescription, p.Style,
		p.SanmarMainframeColor, p.Size, p.ColorName, p.PiecePrice, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedProduct insert: %v", err)
	}

	return p
}

// CountProducts returns the number of rows in products.
func CountProducts(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()

	var n int
	err := pool.QueryRow(context.Background(), `SELECT count(*) FROM products`).Scan(&n)
	if err != nil {
		t.Fatalf("testhelper: CountProducts: %v", err)
	}
	return n
}
