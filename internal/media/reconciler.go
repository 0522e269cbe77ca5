package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mediashare/backend/internal/storage"
)

// ReconcilerConfig controls the concurrency and retry characteristics of the
// orphan reconciler.
type ReconcilerConfig struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Reconciler retries deletion of blobs orphaned by partial media deletions.
// It is the in-process half of the out-of-band remedy for OutcomePartial:
// the relational rows are already gone, so the only correct direction is
// forward, deleting the blob until the object store agrees.
type Reconciler struct {
	objects ObjectRemover
	logger  *slog.Logger

	maxAttempts int
	retryDelay  time.Duration

	jobs   chan orphanJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	// mu and enqueuers quiesce in-flight Enqueue calls before Shutdown
	// closes the jobs channel.
	mu        sync.Mutex
	closed    bool
	enqueuers sync.WaitGroup
}

type orphanJob struct {
	key string
}

var errReconcilerClosed = errors.New("orphan reconciler closed")

// NewReconciler constructs a background worker pool that sweeps orphaned blobs.
func NewReconciler(objects ObjectRemover, cfg ReconcilerConfig, logger *slog.Logger) *Reconciler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Reconciler{
		objects:     objects,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		jobs:        make(chan orphanJob, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	return r
}

// Enqueue schedules an orphaned blob key for background deletion.
func (r *Reconciler) Enqueue(ctx context.Context, key string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errReconcilerClosed
	}
	r.enqueuers.Add(1)
	r.mu.Unlock()
	defer r.enqueuers.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return errReconcilerClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return errReconcilerClosed
	case r.jobs <- orphanJob{key: key}:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs. The jobs
// channel is closed only after every in-flight Enqueue has returned, so a
// caller racing Shutdown gets errReconcilerClosed instead of a send on a
// closed channel.
func (r *Reconciler) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		r.cancel()
		r.enqueuers.Wait()
		close(r.jobs)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Reconciler) worker() {
	defer r.wg.Done()

	for job := range r.jobs {
		r.handleJob(job)
	}
}

func (r *Reconciler) handleJob(job orphanJob) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := r.objects.Delete(ctx, job.key)
		cancel()

		if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
			r.logger.Info("orphaned blob reconciled", "key", job.key, "attempt", attempt)
			return
		}

		r.logger.Warn("orphaned blob delete failed", "key", job.key, "attempt", attempt, "error", err)

		if attempt == r.maxAttempts {
			break
		}

		select {
		case <-r.ctx.Done():
			// Shutting down; remaining attempts are abandoned but logged below.
		case <-time.After(r.retryDelay):
			continue
		}
		break
	}

	r.logger.Error("giving up on orphaned blob; manual cleanup required", "key", job.key)
}

var _ OrphanQueue = (*Reconciler)(nil)
