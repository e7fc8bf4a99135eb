package exec

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmrzaf/cqlstress/internal/operation"
	"github.com/mmrzaf/cqlstress/internal/validation"
)

// countingFactory hands out operations that stop at max and fail every
// failEvery-th id with alternating error kinds.
type countingFactory struct {
	max       uint64
	failEvery uint64
	executed  atomic.Int64
	mu        sync.Mutex
	seen      map[uint64]bool
	dupes     atomic.Int64
	created   int
	createErr error
}

func (f *countingFactory) Create() (operation.Operation, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	return &countingOp{f: f}, nil
}

type countingOp struct{ f *countingFactory }

func (o *countingOp) Execute(ctx context.Context, oc operation.OperationContext) (operation.ControlFlow, error) {
	f := o.f
	if f.max > 0 && oc.OperationID >= f.max {
		return operation.Stop, nil
	}
	f.executed.Add(1)
	f.mu.Lock()
	if f.seen[oc.OperationID] {
		f.dupes.Add(1)
	}
	f.seen[oc.OperationID] = true
	f.mu.Unlock()

	if f.failEvery > 0 && oc.OperationID%f.failEvery == 0 {
		if (oc.OperationID/f.failEvery)%2 == 0 {
			return operation.Continue, &operation.ExecutionError{Op: "write", PartitionKey: []byte("k"), Err: errors.New("timeout")}
		}
		return operation.Continue, &validation.RowValidationError{PartitionKey: []byte("k"), Column: -1, Reason: "row not found"}
	}
	return operation.Continue, nil
}

func newCounting(max, failEvery uint64) *countingFactory {
	return &countingFactory{max: max, failEvery: failEvery, seen: map[uint64]bool{}}
}

func TestExecute_ExactAttempts(t *testing.T) {
	f := newCounting(1000, 0)
	var progress atomic.Int64
	stats, err := NewExecutor(nil).Execute(context.Background(), f, Config{
		Concurrency: 8,
		Progress:    func(done int64) { progress.Store(done) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.created != 8 {
		t.Fatalf("expected one operation per worker, got %d", f.created)
	}
	if stats.Operations != 1000 || f.executed.Load() != 1000 || stats.Successes != 1000 {
		t.Fatalf("expected exactly 1000 attempts, got %+v (executed %d)", stats, f.executed.Load())
	}
	if f.dupes.Load() != 0 {
		t.Fatalf("expected unique ids, got %d duplicates", f.dupes.Load())
	}
	if progress.Load() != 1000 {
		t.Fatalf("expected progress to reach 1000, got %d", progress.Load())
	}
	for id := uint64(0); id < 1000; id++ {
		if !f.seen[id] {
			t.Fatalf("id %d never handed out", id)
		}
	}
}

func TestExecute_ClassifiesFailures(t *testing.T) {
	f := newCounting(100, 10)
	stats, err := NewExecutor(nil).Execute(context.Background(), f, Config{Concurrency: 3})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failures != 10 || stats.ExecutionErrors != 5 || stats.ValidationErrors != 5 || stats.Successes != 90 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.LatencyMaxMS < stats.LatencyP50MS {
		t.Fatalf("expected max >= p50, got %+v", stats)
	}
}

func TestExecute_DurationBoundsUnlimitedRun(t *testing.T) {
	f := newCounting(0, 0)
	start := time.Now()
	stats, err := NewExecutor(nil).Execute(context.Background(), f, Config{
		Concurrency: 2,
		Duration:    50 * time.Millisecond,
		Rate:        1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("expected run to stop near its duration")
	}
	if stats.Operations == 0 || stats.Operations > 200 {
		t.Fatalf("expected paced attempts, got %d", stats.Operations)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExecutor(nil).Execute(ctx, newCounting(0, 0), Config{Concurrency: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExecute_FactoryError(t *testing.T) {
	f := newCounting(10, 0)
	f.createErr = errors.New("boom")
	if _, err := NewExecutor(nil).Execute(context.Background(), f, Config{Concurrency: 1}); err == nil {
		t.Fatal("expected factory error")
	}
}
