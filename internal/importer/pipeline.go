package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/printshop/catalog-backend/internal/domain"
)

// Result holds the outcome of a single import run.
type Result struct {
	Total     int
	Processed int
	Rejected  int
	Batches   int
	Duration  time.Duration

	// Err is the ingestion failure recorded on the upload, nil when the
	// run completed.
	Err error
}

// Pipeline executes import runs: count pass, then map/batch/flush until EOF.
type Pipeline struct {
	log      *slog.Logger
	uploads  UploadTracker
	products ProductBulkWriter
	files    BlobOpener
	cfg      Config
}

// NewPipeline creates a new Pipeline.
func NewPipeline(log *slog.Logger, uploads UploadTracker, products ProductBulkWriter, files BlobOpener, cfg Config) *Pipeline {
	cfg.normalize()
	return &Pipeline{
		log:      log,
		uploads:  uploads,
		products: products,
		files:    files,
		cfg:      cfg,
	}
}

// Run imports the upload with the given ID. Ingestion failures (missing
// file, malformed CSV, storage errors) are recorded on the upload as status
// failed and do NOT surface as a returned error; they appear in Result.Err.
// A non-nil error means the run could not start or its outcome could not be
// recorded.
func (p *Pipeline) Run(ctx context.Context, uploadID uuid.UUID) (Result, error) {
	start := time.Now()

	u, err := p.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return Result{}, fmt.Errorf("load upload: %w", err)
	}

	if err := p.uploads.MarkProcessing(ctx, uploadID); err != nil {
		return Result{}, fmt.Errorf("mark processing: %w", err)
	}

	p.log.Info("import started",
		slog.String("upload_id", uploadID.String()),
		slog.String("filename", u.OriginalFilename),
	)

	res, runErr := p.process(ctx, u)
	res.Duration = time.Since(start)

	if runErr != nil {
		res.Err = runErr
		msg := domain.TruncateErrorMessage(runErr.Error(), p.cfg.MaxErrorLength)
		if failErr := p.uploads.MarkFailed(ctx, uploadID, msg); failErr != nil {
			return res, fmt.Errorf("mark failed: %w (cause: %v)", failErr, runErr)
		}
		p.log.Warn("import failed",
			slog.String("upload_id", uploadID.String()),
			slog.String("error", runErr.Error()),
			slog.Duration("duration", res.Duration),
		)
		return res, nil
	}

	if err := p.uploads.MarkCompleted(ctx, uploadID); err != nil {
		return res, fmt.Errorf("mark completed: %w", err)
	}

	p.log.Info("import completed",
		slog.String("upload_id", uploadID.String()),
		slog.Int("total", res.Total),
		slog.Int("processed", res.Processed),
		slog.Int("rejected", res.Rejected),
		slog.Int("batches", res.Batches),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// process runs the two passes over the file. Any returned error fails the
// job; batches committed before the error stay applied.
func (p *Pipeline) process(ctx context.Context, u *domain.Upload) (Result, error) {
	var res Result

	// Pass 1: count data rows so pollers see progress against a known total.
	f, err := p.files.Open(ctx, u.Filepath)
	if err != nil {
		return res, err
	}
	total, err := CountRows(f)
	f.Close()
	if err != nil {
		return res, err
	}
	res.Total = total

	if err := p.uploads.SetTotalRows(ctx, u.ID, total); err != nil {
		return res, err
	}

	// Pass 2: map, batch, flush.
	f, err = p.files.Open(ctx, u.Filepath)
	if err != nil {
		return res, err
	}
	defer f.Close()

	rr, err := NewRecordReader(f)
	if err != nil {
		return res, err
	}

	batch := newBatchBuffer(p.cfg.BatchSize)
	window := 0 // rows consumed since the last progress write

	flush := func() error {
		if batch.len() > 0 {
			if _, err := p.products.BulkUpsert(ctx, batch.products()); err != nil {
				return fmt.Errorf("bulk upsert: %v: %w", err, domain.ErrStorage)
			}
			res.Batches++
			batch.reset()
		}
		if window > 0 {
			if err := p.uploads.IncrementProcessed(ctx, u.ID, window); err != nil {
				return err
			}
			res.Processed += window
			window = 0
		}
		return nil
	}

	for {
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		window++

		prod, err := MapRecord(rec)
		if err != nil {
			res.Rejected++
			p.log.Warn("row rejected",
				slog.String("upload_id", u.ID.String()),
				slog.Int("row", res.Processed+window),
				slog.String("reason", err.Error()),
			)
			continue
		}

		batch.add(prod)
		if batch.len() >= p.cfg.BatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}

	return res, flush()
}

// batchBuffer accumulates products for one flush, collapsing duplicate keys
// to the last occurrence. PostgreSQL rejects a single INSERT ... ON CONFLICT
// statement that touches the same key twice.
type batchBuffer struct {
	items []domain.Product
	index map[string]int
}

func newBatchBuffer(capacity int) *batchBuffer {
	return &batchBuffer{
		items: make([]domain.Product, 0, capacity),
		index: make(map[string]int, capacity),
	}
}

func (b *batchBuffer) add(p domain.Product) {
	if i, ok := b.index[p.UniqueKey]; ok {
		b.items[i] = p
		return
	}
	b.index[p.UniqueKey] = len(b.items)
	b.items = append(b.items, p)
}

func (b *batchBuffer) len() int { return len(b.items) }

func (b *batchBuffer) products() []domain.Product { return b.items }

func (b *batchBuffer) reset() {
	b.items = b.items[:0]
	clear(b.index)
}
