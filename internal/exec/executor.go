// Package exec drives operations: one Operation per worker goroutine, attempt
// ids from a single shared counter, optional pacing and a run deadline.
package exec

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/logging"
	"github.com/mmrzaf/cqlstress/internal/operation"
	"github.com/mmrzaf/cqlstress/internal/validation"
	"golang.org/x/time/rate"
)

const (
	// Latencies are recorded in microseconds, up to one minute.
	minLatencyMicros = 1
	maxLatencyMicros = int64(time.Minute / time.Microsecond)
	sigFigs          = 3
)

type Config struct {
	// Concurrency is the number of workers; 0 means GOMAXPROCS.
	Concurrency int
	// Duration stops the run after the given time; 0 means until every
	// worker is told to stop.
	Duration time.Duration
	// Rate caps attempts per second across all workers; 0 means unpaced.
	Rate float64
	// Progress is called after every recorded attempt with the running total.
	Progress func(done int64)
}

type Executor struct {
	logger *logging.Logger
}

func NewExecutor(logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{logger: logger.WithComponent("executor")}
}

type workerStats struct {
	attempts         int64
	successes        int64
	validationErrors int64
	executionErrors  int64
	otherErrors      int64
	latency          *hdrhistogram.Histogram
}

func newWorkerStats() *workerStats {
	return &workerStats{latency: hdrhistogram.New(minLatencyMicros, maxLatencyMicros, sigFigs)}
}

func (s *workerStats) record(d time.Duration, err error) {
	s.attempts++
	us := d.Microseconds()
	if us < minLatencyMicros {
		us = minLatencyMicros
	}
	if us > maxLatencyMicros {
		us = maxLatencyMicros
	}
	_ = s.latency.RecordValue(us)

	if err == nil {
		s.successes++
		return
	}
	var rve *validation.RowValidationError
	var ee *operation.ExecutionError
	switch {
	case errors.As(err, &rve):
		s.validationErrors++
	case errors.As(err, &ee):
		s.executionErrors++
	default:
		s.otherErrors++
	}
}

// Execute builds one operation per worker and runs them until every worker
// sees Stop, the duration elapses, or ctx is cancelled. Cancellation of ctx is
// returned as an error along with the stats gathered so far.
func (e *Executor) Execute(ctx context.Context, factory operation.Factory, cfg Config) (*domain.RunStats, error) {
	workers := cfg.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ops := make([]operation.Operation, workers)
	for i := range ops {
		op, err := factory.Create()
		if err != nil {
			return nil, fmt.Errorf("failed to create operation for worker %d: %w", i, err)
		}
		ops[i] = op
	}

	runCtx := ctx
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		burst := int(cfg.Rate / 10)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	e.logger.Infow("run started", map[string]any{
		"workers":  workers,
		"duration": cfg.Duration.String(),
		"rate":     cfg.Rate,
	})

	var (
		nextID uint64
		done   atomic.Int64
		wg     sync.WaitGroup
	)
	stats := make([]*workerStats, workers)
	start := time.Now()

	for i, op := range ops {
		ws := newWorkerStats()
		stats[i] = ws
		wg.Add(1)
		go func(op operation.Operation) {
			defer wg.Done()
			for {
				if runCtx.Err() != nil {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(runCtx); err != nil {
						return
					}
				}

				id := atomic.AddUint64(&nextID, 1) - 1
				opStart := time.Now()
				flow, err := op.Execute(runCtx, operation.OperationContext{OperationID: id})
				if flow == operation.Stop {
					return
				}
				// Attempts cut short by the deadline or cancellation are not
				// failures of the cluster.
				if err != nil && runCtx.Err() != nil {
					return
				}
				ws.record(time.Since(opStart), err)

				n := done.Add(1)
				if cfg.Progress != nil {
					cfg.Progress(n)
				}
			}
		}(op)
	}
	wg.Wait()

	result := aggregate(stats, time.Since(start))
	e.logger.Infow("run finished", map[string]any{
		"operations":        result.Operations,
		"failures":          result.Failures,
		"validation_errors": result.ValidationErrors,
		"execution_errors":  result.ExecutionErrors,
		"ops_per_second":    result.OpsPerSecond,
	})

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func aggregate(stats []*workerStats, elapsed time.Duration) *domain.RunStats {
	merged := hdrhistogram.New(minLatencyMicros, maxLatencyMicros, sigFigs)
	out := &domain.RunStats{DurationSeconds: elapsed.Seconds()}
	for _, s := range stats {
		out.Operations += s.attempts
		out.Successes += s.successes
		out.ValidationErrors += s.validationErrors
		out.ExecutionErrors += s.executionErrors
		out.Failures += s.validationErrors + s.executionErrors + s.otherErrors
		merged.Merge(s.latency)
	}
	if elapsed > 0 {
		out.OpsPerSecond = float64(out.Operations) / elapsed.Seconds()
	}
	if merged.TotalCount() > 0 {
		out.LatencyMeanMS = merged.Mean() / 1000
		out.LatencyP50MS = float64(merged.ValueAtQuantile(50)) / 1000
		out.LatencyP95MS = float64(merged.ValueAtQuantile(95)) / 1000
		out.LatencyP99MS = float64(merged.ValueAtQuantile(99)) / 1000
		out.LatencyMaxMS = float64(merged.Max()) / 1000
	}
	return out
}
