package media

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mediashare/backend/internal/storage"
)

type countingRemover struct {
	mu       sync.Mutex
	deletes  map[string]int
	failches map[string]int
}

func newCountingRemover() *countingRemover {
	return &countingRemover{deletes: make(map[string]int), failches: make(map[string]int)}
}

// failTimes makes the first n deletes of key fail before succeeding.
func (r *countingRemover) failTimes(key string, n int) {
	r.mu.Lock()
	r.failches[key] = n
	r.mu.Unlock()
}

func (r *countingRemover) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes[key]++
	if r.failches[key] > 0 {
		r.failches[key]--
		return errors.New("object store unavailable")
	}
	return nil
}

func (r *countingRemover) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deletes[key]
}

func TestReconcilerDeletesQueuedKeys(t *testing.T) {
	remover := newCountingRemover()
	rec := NewReconciler(remover, ReconcilerConfig{Workers: 2}, nil)

	for _, key := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if err := rec.Enqueue(context.Background(), key); err != nil {
			t.Fatalf("enqueue %s: %v", key, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	for _, key := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if got := remover.count(key); got != 1 {
			t.Fatalf("expected one delete of %s, got %d", key, got)
		}
	}
}

func TestReconcilerRetriesUntilSuccess(t *testing.T) {
	remover := newCountingRemover()
	remover.failTimes("flaky.jpg", 2)
	rec := NewReconciler(remover, ReconcilerConfig{MaxAttempts: 3, RetryDelay: time.Millisecond}, nil)

	if err := rec.Enqueue(context.Background(), "flaky.jpg"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := remover.count("flaky.jpg"); got != 3 {
		t.Fatalf("expected three attempts, got %d", got)
	}
}

func TestReconcilerGivesUpAfterMaxAttempts(t *testing.T) {
	remover := newCountingRemover()
	remover.failTimes("doomed.jpg", 100)
	rec := NewReconciler(remover, ReconcilerConfig{MaxAttempts: 2, RetryDelay: time.Millisecond}, nil)

	if err := rec.Enqueue(context.Background(), "doomed.jpg"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := remover.count("doomed.jpg"); got != 2 {
		t.Fatalf("expected two attempts, got %d", got)
	}
}

type notFoundRemover struct {
	mu    sync.Mutex
	calls int
}

func (r *notFoundRemover) Delete(_ context.Context, _ string) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return storage.ErrObjectNotFound
}

func TestReconcilerTreatsMissingBlobAsDone(t *testing.T) {
	remover := &notFoundRemover{}
	rec := NewReconciler(remover, ReconcilerConfig{MaxAttempts: 3, RetryDelay: time.Millisecond}, nil)

	if err := rec.Enqueue(context.Background(), "gone.jpg"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	remover.mu.Lock()
	calls := remover.calls
	remover.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected a single attempt for an already-absent blob, got %d", calls)
	}
}

func TestReconcilerRejectsEnqueueAfterShutdown(t *testing.T) {
	rec := NewReconciler(newCountingRemover(), ReconcilerConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := rec.Enqueue(context.Background(), "late.jpg"); err == nil {
		t.Fatal("expected enqueue after shutdown to fail")
	}
}

func TestReconcilerEnqueueRacingShutdown(t *testing.T) {
	rec := NewReconciler(newCountingRemover(), ReconcilerConfig{Workers: 2, QueueSize: 4}, nil)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				err := rec.Enqueue(context.Background(), "orphan.jpg")
				if err == nil {
					continue
				}
				if !errors.Is(err, errReconcilerClosed) {
					t.Errorf("unexpected enqueue error: %v", err)
				}
				return
			}
		}()
	}

	close(start)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	wg.Wait()
}

func TestReconcilerEnqueueHonorsCallerContext(t *testing.T) {
	rec := NewReconciler(newCountingRemover(), ReconcilerConfig{}, nil)
	defer rec.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rec.Enqueue(ctx, "x.jpg"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
