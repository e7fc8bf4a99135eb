package operation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mmrzaf/cqlstress/internal/distribution"
	"github.com/mmrzaf/cqlstress/internal/hashing"
	"github.com/mmrzaf/cqlstress/internal/logging"
	"github.com/mmrzaf/cqlstress/internal/rowgen"
	"github.com/mmrzaf/cqlstress/internal/validation"
)

func rowFactory(t *testing.T, pop distribution.Distribution) *rowgen.Factory {
	t.Helper()
	f, err := rowgen.NewFactory(pop, rowgen.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func seq(t *testing.T, start, end int64) distribution.Distribution {
	t.Helper()
	d, err := distribution.NewSequential(start, end)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func bound(n uint64) *uint64 { return &n }

func baseConfig() Config {
	return Config{Keyspace: "keyspace1", Table: "standard1", Consistency: "LOCAL_ONE", SerialConsistency: "SERIAL"}
}

// drive runs ops from one factory on several workers sharing an id counter,
// the way the executor does.
func drive(t *testing.T, f Factory, workers int) (attempts int64, failures int64) {
	t.Helper()
	var (
		next uint64
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		op, err := f.Create()
		if err != nil {
			t.Fatal(err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				id := atomic.AddUint64(&next, 1) - 1
				flow, err := op.Execute(context.Background(), OperationContext{OperationID: id})
				if flow == Stop {
					return
				}
				atomic.AddInt64(&attempts, 1)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}
	wg.Wait()
	return attempts, failures
}

func TestWriteThenReadValidates(t *testing.T) {
	ctx := context.Background()
	s := newMemSession()

	wcfg := baseConfig()
	wcfg.MaxOperations = bound(100)
	wf, err := NewWriteFactory(ctx, s, rowFactory(t, seq(t, 1, 100)), wcfg)
	if err != nil {
		t.Fatal(err)
	}
	if n, fails := drive(t, wf, 4); n != 100 || fails != 0 {
		t.Fatalf("expected 100 clean writes, got %d (%d failures)", n, fails)
	}
	if len(s.rows) != 100 {
		t.Fatalf("expected 100 distinct partitions, got %d", len(s.rows))
	}

	uni, err := distribution.NewUniform(1, 100)
	if err != nil {
		t.Fatal(err)
	}
	rcfg := baseConfig()
	rcfg.MaxOperations = bound(300)
	rf, err := NewReadFactory(ctx, s, rowFactory(t, uni), rcfg)
	if err != nil {
		t.Fatal(err)
	}
	if n, fails := drive(t, rf, 6); n != 300 || fails != 0 {
		t.Fatalf("expected 300 clean reads, got %d (%d failures)", n, fails)
	}
}

func TestBoundIsExactAcrossWorkers(t *testing.T) {
	for _, workers := range []int{1, 3, 16} {
		s := newMemSession()
		cfg := baseConfig()
		cfg.MaxOperations = bound(37)
		wf, err := NewWriteFactory(context.Background(), s, rowFactory(t, seq(t, 1, 1000)), cfg)
		if err != nil {
			t.Fatal(err)
		}
		n, _ := drive(t, wf, workers)
		if n != 37 || s.execs != 37 {
			t.Fatalf("%d workers: expected 37 attempts, got %d (%d statements)", workers, n, s.execs)
		}
	}
}

func TestExhaustedOperationExecutesNothing(t *testing.T) {
	s := newMemSession()
	cfg := baseConfig()
	cfg.MaxOperations = bound(5)
	rf, err := NewReadFactory(context.Background(), s, rowFactory(t, seq(t, 1, 10)), cfg)
	if err != nil {
		t.Fatal(err)
	}
	op, err := rf.Create()
	if err != nil {
		t.Fatal(err)
	}
	flow, err := op.Execute(context.Background(), OperationContext{OperationID: 5})
	if flow != Stop || err != nil {
		t.Fatalf("expected stop without error, got %v %v", flow, err)
	}
	if s.queries != 0 {
		t.Fatalf("expected no statement, got %d", s.queries)
	}
}

func TestReadReportsCorruptedColumn(t *testing.T) {
	ctx := context.Background()
	s := newMemSession()

	wcfg := baseConfig()
	wcfg.MaxOperations = bound(100)
	wf, err := NewWriteFactory(ctx, s, rowFactory(t, seq(t, 1, 100)), wcfg)
	if err != nil {
		t.Fatal(err)
	}
	drive(t, wf, 2)

	g, err := rowFactory(t, distribution.NewFixed(5)).Create()
	if err != nil {
		t.Fatal(err)
	}
	key := string(g.GenerateRow().Key())
	s.get(key)[3][0] ^= 0xff

	var logs bytes.Buffer
	rcfg := baseConfig()
	rcfg.Logger = logging.NewLoggerWithWriter("info", &logs)
	rf, err := NewReadFactory(ctx, s, rowFactory(t, distribution.NewFixed(5)), rcfg)
	if err != nil {
		t.Fatal(err)
	}
	op, err := rf.Create()
	if err != nil {
		t.Fatal(err)
	}

	flow, err := op.Execute(ctx, OperationContext{OperationID: 0})
	if flow != Continue {
		t.Fatalf("expected continue, got %v", flow)
	}
	var rve *validation.RowValidationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected RowValidationError, got %v", err)
	}
	if rve.Column != 3 {
		t.Fatalf("expected column 3, got %d", rve.Column)
	}
	if !strings.HasPrefix(err.Error(), "row with partition_key "+key+" could not be validated: ") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
	out := logs.String()
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, `"msg":"read validation error"`) || !strings.Contains(out, `"partition_key":"`+key+`"`) {
		t.Fatalf("expected one structured validation log entry, got %s", out)
	}
}

func TestReadReportsDriverError(t *testing.T) {
	ctx := context.Background()
	s := newMemSession()
	s.failErr = errors.New("no hosts available")

	var logs bytes.Buffer
	cfg := baseConfig()
	cfg.Logger = logging.NewLoggerWithWriter("info", &logs)
	rf, err := NewReadFactory(ctx, s, rowFactory(t, distribution.NewFixed(1)), cfg)
	if err != nil {
		t.Fatal(err)
	}
	op, err := rf.Create()
	if err != nil {
		t.Fatal(err)
	}

	flow, err := op.Execute(ctx, OperationContext{})
	if flow != Continue {
		t.Fatalf("expected continue, got %v", flow)
	}
	var ee *ExecutionError
	if !errors.As(err, &ee) || ee.Op != "read" || len(ee.PartitionKey) == 0 {
		t.Fatalf("expected read ExecutionError, got %v", err)
	}
	if !errors.Is(err, s.failErr) {
		t.Fatal("expected driver error to be unwrapped")
	}
	if s.queries != 1 {
		t.Fatalf("expected exactly one attempt, no retry, got %d", s.queries)
	}
	if !strings.Contains(logs.String(), `"msg":"read error"`) || !strings.Contains(logs.String(), `"error":"no hosts available"`) {
		t.Fatalf("expected read error log entry, got %s", logs.String())
	}
}

func TestMissingRowFailsValidation(t *testing.T) {
	rf, err := NewReadFactory(context.Background(), newMemSession(), rowFactory(t, distribution.NewFixed(1)), baseConfig())
	if err != nil {
		t.Fatal(err)
	}
	op, err := rf.Create()
	if err != nil {
		t.Fatal(err)
	}
	_, err = op.Execute(context.Background(), OperationContext{})
	var rve *validation.RowValidationError
	if !errors.As(err, &rve) || rve.Column != -1 {
		t.Fatalf("expected whole-row validation error, got %v", err)
	}
}

func TestFingerprintMatchesAcrossWriteAndRead(t *testing.T) {
	ctx := context.Background()
	s := newMemSession()

	wfp := hashing.NewFingerprint()
	wcfg := baseConfig()
	wcfg.MaxOperations = bound(50)
	wcfg.Fingerprint = wfp
	wf, err := NewWriteFactory(ctx, s, rowFactory(t, seq(t, 1, 50)), wcfg)
	if err != nil {
		t.Fatal(err)
	}
	drive(t, wf, 5)

	rfp := hashing.NewFingerprint()
	rcfg := baseConfig()
	rcfg.MaxOperations = bound(50)
	rcfg.Fingerprint = rfp
	rf, err := NewReadFactory(ctx, s, rowFactory(t, seq(t, 1, 50)), rcfg)
	if err != nil {
		t.Fatal(err)
	}
	drive(t, rf, 3)

	if wfp.Sum() != rfp.Sum() || wfp.Count() != 50 {
		t.Fatalf("expected matching fingerprints, got %s and %s", wfp.Hex(), rfp.Hex())
	}
}
