package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/printshop/catalog-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type trackerMock struct {
	upload *domain.Upload

	getErr            error
	markProcessingErr error
	markFailedErr     error
	incrementErr      error

	processing bool
	completed  bool
	total      *int
	increments []int
	failedMsg  *string
}

func (m *trackerMock) GetByID(_ context.Context, id uuid.UUID) (*domain.Upload, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.upload == nil || m.upload.ID != id {
		return nil, domain.ErrNotFound
	}
	u := *m.upload
	return &u, nil
}

func (m *trackerMock) MarkProcessing(context.Context, uuid.UUID) error {
	if m.markProcessingErr != nil {
		return m.markProcessingErr
	}
	m.processing = true
	return nil
}

func (m *trackerMock) MarkCompleted(context.Context, uuid.UUID) error {
	m.completed = true
	return nil
}

func (m *trackerMock) MarkFailed(_ context.Context, _ uuid.UUID, msg string) error {
	if m.markFailedErr != nil {
		return m.markFailedErr
	}
	m.failedMsg = &msg
	return nil
}

func (m *trackerMock) SetTotalRows(_ context.Context, _ uuid.UUID, total int) error {
	m.total = &total
	return nil
}

func (m *trackerMock) IncrementProcessed(_ context.Context, _ uuid.UUID, delta int) error {
	if m.incrementErr != nil {
		return m.incrementErr
	}
	m.increments = append(m.increments, delta)
	return nil
}

type writerMock struct {
	err     error
	batches [][]domain.Product
}

func (w *writerMock) BulkUpsert(_ context.Context, products []domain.Product) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	cp := append([]domain.Product(nil), products...)
	w.batches = append(w.batches, cp)
	return len(products), nil
}

type openerMock struct {
	files map[string]string
}

func (o *openerMock) Open(_ context.Context, path string) (io.ReadCloser, error) {
	content, ok := o.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, domain.ErrFileAccess)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingUpload(filepath string) *domain.Upload {
	return domain.NewUpload("feed.csv", filepath)
}

const csvHeader = "UNIQUE_KEY,PRODUCT_TITLE,PIECE_PRICE"

func csvFile(rows ...string) string {
	return csvHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPipeline_Run_BatchesAndProgress(t *testing.T) {
	t.Parallel()

	u := pendingUpload("feed.csv")
	tracker := &trackerMock{upload: u}
	writer := &writerMock{}
	opener := &openerMock{files: map[string]string{
		"feed.csv": csvFile(
			"k1,Tee,1.00",
			"k2,Tee,2.00",
			"k3,Tee,3.00",
			"k4,Tee,4.00",
			"k5,Tee,5.00",
		),
	}}

	p := NewPipeline(discardLogger(), tracker, writer, opener, Config{BatchSize: 2})

	res, err := p.Run(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Err != nil {
		t.Fatalf("Result.Err = %v", res.Err)
	}

	if res.Total != 5 || res.Processed != 5 || res.Rejected != 0 || res.Batches != 3 {
		t.Errorf("Result = %+v, want Total 5 Processed 5 Rejected 0 Batches 3", res)
	}
	if tracker.total == nil || *tracker.total != 5 {
		t.Errorf("SetTotalRows = %v, want 5", tracker.total)
	}

	wantSizes := []int{2, 2, 1}
	if len(writer.batches) != len(wantSizes) {
		t.Fatalf("got %d batches, want %d", len(writer.batches), len(wantSizes))
	}
	for i, want := range wantSizes {
		if len(writer.batches[i]) != want {
			t.Errorf("batch[%d] size = %d, want %d", i, len(writer.batches[i]), want)
		}
	}

	wantDeltas := []int{2, 2, 1}
	if len(tracker.increments) != len(wantDeltas) {
		t.Fatalf("got increments %v, want %v", tracker.increments, wantDeltas)
	}
	for i, want := range wantDeltas {
		if tracker.increments[i] != want {
			t.Errorf("increment[%d] = %d, want %d", i, tracker.increments[i], want)
		}
	}

	if !tracker.completed {
		t.Error("upload not marked completed")
	}
	if tracker.failedMsg != nil {
		t.Errorf("upload marked failed: %q", *tracker.failedMsg)
	}
}

func TestPipeline_Run_InvalidRowsSkipped(t *testing.T) {
	t.Parallel()

	u := pendingUpload("feed.csv")
	tracker := &trackerMock{upload: u}
	writer := &writerMock{}
	opener := &openerMock{files: map[string]string{
		"feed.csv": csvFile(
			",No Key,1.00",
			"k2,Bad Price,abc",
			"k3,Good,3.00",
		),
	}}

	p := NewPipeline(discardLogger(), tracker, writer, opener, Config{BatchSize: 100})

	res, err := p.Run(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Total != 3 || res.Processed != 3 || res.Rejected != 2 || res.Batches != 1 {
		t.Errorf("Result = %+v, want Total 3 Processed 3 Rejected 2 Batches 1", res)
	}
	if len(writer.batches) != 1 || len(writer.batches[0]) != 1 {
		t.Fatalf("batches = %v, want one batch of one product", writer.batches)
	}
	if writer.batches[0][0].UniqueKey != "k3" {
		t.Errorf("kept key = %q, want k3", writer.batches[0][0].UniqueKey)
	}
	if !tracker.completed {
		t.Error("upload not marked completed")
	}
}

func TestPipeline_Run_MissingFile(t *testing.T) {
	t.Parallel()

	u := pendingUpload("gone.csv")
	tracker := &trackerMock{upload: u}
	writer := &writerMock{}
	opener := &openerMock{files: map[string]string{}}

	p := NewPipeline(discardLogger(), tracker, writer, opener, Config{})

	res, err := p.Run(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(res.Err, domain.ErrFileAccess) {
		t.Fatalf("Result.Err = %v, want ErrFileAccess", res.Err)
	}

	if tracker.failedMsg == nil {
		t.Fatal("upload not marked failed")
	}
	if tracker.completed {
		t.Error("upload marked completed after failure")
	}
	if len(writer.batches) != 0 {
		t.Errorf("products written despite missing file: %v", writer.batches)
	}
}

func TestPipeline_Run_MalformedCSV(t *testing.T) {
	t.Parallel()

	u := pendingUpload("feed.csv")
	tracker := &trackerMock{upload: u}
	writer := &writerMock{}
	opener := &openerMock{files: map[string]string{
		"feed.csv": csvHeader + "\nk1,Tee,1.00\nk2,short\n",
	}}

	p := NewPipeline(discardLogger(), tracker, writer, opener, Config{})

	res, err := p.Run(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(res.Err, domain.ErrParse) {
		t.Fatalf("Result.Err = %v, want ErrParse", res.Err)
	}
	if tracker.failedMsg == nil {
		t.Fatal("upload not marked failed")
	}
	// The count pass hits the malformed row before any batch is written.
	if len(writer.batches) != 0 {
		t.Errorf("products written despite parse failure: %v", writer.batches)
	}
}

func TestPipeline_Run_UpsertFailure(t *testing.T) {
	t.Parallel()

	u := pendingUpload("feed.csv")
	tracker := &trackerMock{upload: u}
	writer := &writerMock{err: errors.New("connection reset")}
	opener := &openerMock{files: map[string]string{
		"feed.csv": csvFile("k1,Tee,1.00"),
	}}

	p := NewPipeline(discardLogger(), tracker, writer, opener, Config{})

	res, err := p.Run(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(res.Err, domain.ErrStorage) {
		t.Fatalf("Result.Err = %v, want ErrStorage", res.Err)
	}
	if tracker.failedMsg == nil {
		t.Fatal("upload not marked failed")
	}
}

func TestPipeline_Run_FailureMessageTruncated(t *testing.T) {
	t.Parallel()

	u := pendingUpload("feed.csv")
	tracker := &trackerMock{upload: u}
	writer := &writerMock{err: errors.New(strings.Repeat("x", 1000))}
	opener := &openerMock{files: map[string]string{
		"feed.csv": csvFile("k1,Tee,1.00"),
	}}

	p := NewPipeline(discardLogger(), tracker, writer, opener, Config{MaxErrorLength: 40})

	if _, err := p.Run(context.Background(), u.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tracker.failedMsg == nil {
		t.Fatal("upload not marked failed")
	}
	if n := utf8.RuneCountInString(*tracker.failedMsg); n > 40 {
		t.Errorf("failure message length = %d runes, want <= 40", n)
	}
}

func TestPipeline_Run_DuplicateKeysCollapse(t *testing.T) {
	t.Parallel()

	u := pendingUpload("feed.csv")
	tracker := &trackerMock{upload: u}
	writer := &writerMock{}
	opener := &openerMock{files: map[string]string{
		"feed.csv": csvFile(
			"k1,First,1.00",
			"k1,Second,2.00",
		),
	}}

	p := NewPipeline(discardLogger(), tracker, writer, opener, Config{BatchSize: 10})

	res, err := p.Run(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Processed != 2 {
		t.Errorf("Processed = %d, want 2 (both rows consumed)", res.Processed)
	}
	if len(writer.batches) != 1 || len(writer.batches[0]) != 1 {
		t.Fatalf("batches = %v, want one batch of one product", writer.batches)
	}
	got := writer.batches[0][0]
	if got.ProductTitle == nil || *got.ProductTitle != "Second" {
		t.Errorf("kept title = %v, want later occurrence to win", got.ProductTitle)
	}
}

func TestPipeline_Run_HeaderOnlyFile(t *testing.T) {
	t.Parallel()

	u := pendingUpload("feed.csv")
	tracker := &trackerMock{upload: u}
	writer := &writerMock{}
	opener := &openerMock{files: map[string]string{"feed.csv": csvHeader + "\n"}}

	p := NewPipeline(discardLogger(), tracker, writer, opener, Config{})

	res, err := p.Run(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Total != 0 || res.Processed != 0 || res.Batches != 0 {
		t.Errorf("Result = %+v, want empty run", res)
	}
	if tracker.total == nil || *tracker.total != 0 {
		t.Errorf("SetTotalRows = %v, want 0", tracker.total)
	}
	if !tracker.completed {
		t.Error("upload not marked completed")
	}
}

func TestPipeline_Run_TransitionConflict(t *testing.T) {
	t.Parallel()

	u := pendingUpload("feed.csv")
	u.Status = domain.UploadStatusCompleted
	tracker := &trackerMock{upload: u, markProcessingErr: domain.ErrConflict}
	writer := &writerMock{}
	opener := &openerMock{files: map[string]string{}}

	p := NewPipeline(discardLogger(), tracker, writer, opener, Config{})

	_, err := p.Run(context.Background(), u.ID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if tracker.failedMsg != nil {
		t.Error("terminal upload must not be marked failed")
	}
}

func TestPipeline_Run_UnknownUpload(t *testing.T) {
	t.Parallel()

	tracker := &trackerMock{}
	p := NewPipeline(discardLogger(), tracker, &writerMock{}, &openerMock{}, Config{})

	_, err := p.Run(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPipeline_Run_MarkFailedError(t *testing.T) {
	t.Parallel()

	u := pendingUpload("gone.csv")
	tracker := &trackerMock{upload: u, markFailedErr: errors.New("db down")}
	p := NewPipeline(discardLogger(), tracker, &writerMock{}, &openerMock{}, Config{})

	if _, err := p.Run(context.Background(), u.ID); err == nil {
		t.Fatal("expected error when the failure could not be recorded")
	}
}
