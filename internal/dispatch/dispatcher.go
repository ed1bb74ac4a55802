// Package dispatch runs import jobs in the background. Jobs are queued by ID
// only; workers re-read all state from the database, so a job enqueued twice
// or re-enqueued after a restart is handled by the upload state machine, not
// by the queue.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/printshop/catalog-backend/internal/domain"
	"github.com/printshop/catalog-backend/internal/importer"
)

// Runner executes one import job. Implemented by importer.Pipeline.
type Runner interface {
	Run(ctx context.Context, uploadID uuid.UUID) (importer.Result, error)
}

// Dispatcher owns a bounded job queue and a fixed pool of workers.
type Dispatcher struct {
	log     *slog.Logger
	runner  Runner
	queue   chan uuid.UUID
	workers int

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// New creates a Dispatcher with the given worker count and queue capacity.
func New(log *slog.Logger, runner Runner, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		log:     log,
		runner:  runner,
		queue:   make(chan uuid.UUID, queueSize),
		workers: workers,
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled or the
// queue is closed by Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Enqueue adds a job without blocking. It returns false when the queue is
// full or the dispatcher is stopped; the upload stays pending and can be
// re-enqueued later.
func (d *Dispatcher) Enqueue(uploadID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- uploadID:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for workers to drain it.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, n int) {
	defer d.wg.Done()

	log := d.log.With(slog.Int("worker", n))
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-d.queue:
			if !ok {
				return
			}
			if _, err := d.runner.Run(ctx, id); err != nil {
				// Conflicts mean another worker or an earlier run
				// already owns the job.
				if errors.Is(err, domain.ErrConflict) {
					log.Debug("job already taken", slog.String("upload_id", id.String()))
					continue
				}
				log.Error("job run failed",
					slog.String("upload_id", id.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
