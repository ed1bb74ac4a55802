package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/printshop/catalog-backend/internal/adapter/postgres/upload"
	"github.com/printshop/catalog-backend/internal/domain"
)

// uploadStore defines the minimal repository interface needed by UploadHandler.
type uploadStore interface {
	Create(ctx context.Context, u *domain.Upload) (*domain.Upload, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Upload, error)
	List(ctx context.Context, f upload.Filter) ([]domain.Upload, error)
}

// blobSaver stores the raw uploaded file.
type blobSaver interface {
	Save(ctx context.Context, originalFilename string, r io.Reader) (string, error)
}

// enqueuer hands a created upload to the background workers.
type enqueuer interface {
	Enqueue(uploadID uuid.UUID) bool
}

// UploadHandler serves the upload REST endpoints.
type UploadHandler struct {
	uploads       uploadStore
	files         blobSaver
	queue         enqueuer
	maxUploadSize int64
	log           *slog.Logger
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(uploads uploadStore, files blobSaver, queue enqueuer, maxUploadSize int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		uploads:       uploads,
		files:         files,
		queue:         queue,
		maxUploadSize: maxUploadSize,
		log:           logger.With("handler", "uploads"),
	}
}

type createUploadResponse struct {
	Message  string `json:"message"`
	UploadID string `json:"upload_id"`
	Status   string `json:"status"`
}

type uploadResponse struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	Status           string    `json:"status"`
	TotalRows        *int      `json:"total_rows"`
	ProcessedRows    int       `json:"processed_rows"`
	Progress         float64   `json:"progress"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type listUploadsResponse struct {
	Uploads []uploadResponse `json:"uploads"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// Create handles POST /uploads: accepts a multipart CSV file, stores it,
// creates a pending upload, and enqueues the import job.
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !allowedExtension(header.Filename) {
		writeError(w, http.StatusBadRequest, "only .csv and .txt files are accepted")
		return
	}

	path, err := h.files.Save(r.Context(), header.Filename, file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.handleError(w, r, err)
		return
	}

	created, err := h.uploads.Create(r.Context(), domain.NewUpload(header.Filename, path))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if !h.queue.Enqueue(created.ID) {
		// The upload stays pending; it is re-enqueued on restart.
		h.log.Warn("import queue full", slog.String("upload_id", created.ID.String()))
		writeError(w, http.StatusServiceUnavailable, "import queue is full, try again later")
		return
	}

	writeJSON(w, http.StatusCreated, createUploadResponse{
		Message:  "File uploaded successfully. Processing started.",
		UploadID: created.ID.String(),
		Status:   created.Status.String(),
	})
}

// List handles GET /uploads with optional status, limit, and offset query
// parameters. Results are ordered newest first.
func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	var f upload.Filter

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.UploadStatus(s)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		f.Status = &status
	}

	var err error
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	uploads, err := h.uploads.List(r.Context(), f)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := listUploadsResponse{
		Uploads: make([]uploadResponse, 0, len(uploads)),
		Limit:   f.Limit,
		Offset:  f.Offset,
	}
	for i := range uploads {
		resp.Uploads = append(resp.Uploads, toUploadResponse(&uploads[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /uploads/{id}.
func (h *UploadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload id")
		return
	}

	u, err := h.uploads.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUploadResponse(u))
}

// handleError maps domain errors to HTTP status codes.
func (h *UploadHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	default:
		h.log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func toUploadResponse(u *domain.Upload) uploadResponse {
	return uploadResponse{
		ID:               u.ID.String(),
		OriginalFilename: u.OriginalFilename,
		Status:           u.Status.String(),
		TotalRows:        u.TotalRows,
		ProcessedRows:    u.ProcessedRows,
		Progress:         u.Progress(),
		ErrorMessage:     u.ErrorMessage,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func allowedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return true
	}
	return false
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
