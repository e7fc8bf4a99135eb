package distribution

import (
	"errors"
	"sort"
	"sync"
	"testing"
)

func TestFixedAlwaysReturnsValue(t *testing.T) {
	d := NewFixed(34)
	for i := 0; i < 10; i++ {
		if got := d.Next(); got != 34 {
			t.Fatalf("expected 34, got %d", got)
		}
	}
	if !d.Deterministic() {
		t.Fatal("expected FIXED to be deterministic")
	}
	if d.String() != "FIXED(34)" {
		t.Fatalf("unexpected description %q", d.String())
	}
}

func TestSequentialCyclesInclusiveRange(t *testing.T) {
	d, err := NewSequential(3, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{3, 4, 5, 3, 4, 5, 3}
	for i, w := range want {
		if got := d.Next(); got != w {
			t.Fatalf("draw %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestSequentialRejectsEmptyRange(t *testing.T) {
	_, err := NewSequential(10, 1)
	if !errors.Is(err, ErrEmptyRange) {
		t.Fatalf("expected ErrEmptyRange, got %v", err)
	}
}

func TestSequentialSingleValue(t *testing.T) {
	d, err := NewSequential(7, 7)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if got := d.Next(); got != 7 {
			t.Fatalf("expected 7, got %d", got)
		}
	}
}

func TestSequentialConcurrentMultiset(t *testing.T) {
	const (
		workers   = 8
		perWorker = 250
	)
	d, err := NewSequential(1, 100)
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu  sync.Mutex
		got []int64
		wg  sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, d.Next())
			}
			mu.Lock()
			got = append(got, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	counts := make(map[int64]int)
	for _, v := range got {
		counts[v]++
	}
	// 2000 draws over 100 values: every value exactly 20 times.
	if len(counts) != 100 {
		t.Fatalf("expected 100 distinct values, got %d", len(counts))
	}
	for v, c := range counts {
		if c != 20 {
			t.Fatalf("value %d drawn %d times, expected 20", v, c)
		}
	}
}

func TestSequentialNegativeBounds(t *testing.T) {
	d, err := NewSequential(-2, 1)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]int64, 0, 4)
	for i := 0; i < 4; i++ {
		got = append(got, d.Next())
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []int64{-2, -1, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestUniformStaysInRange(t *testing.T) {
	d, err := NewUniformWithSeed(10, 20, 1)
	if err != nil {
		t.Fatal(err)
	}
	if d.Deterministic() {
		t.Fatal("expected UNIFORM to be non-deterministic")
	}
	seen := make(map[int64]bool)
	for i := 0; i < 5000; i++ {
		v := d.Next()
		if v < 10 || v > 20 {
			t.Fatalf("value %d out of range", v)
		}
		seen[v] = true
	}
	if len(seen) != 11 {
		t.Fatalf("expected all 11 values to be drawn, got %d", len(seen))
	}
}

func TestUniformSetSeedRestartsSequence(t *testing.T) {
	d, err := NewUniformWithSeed(1, 1000, 99)
	if err != nil {
		t.Fatal(err)
	}
	d.SetSeed(42)
	a := []int64{d.Next(), d.Next(), d.Next()}
	d.SetSeed(42)
	b := []int64{d.Next(), d.Next(), d.Next()}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical sequences after reseed, got %v and %v", a, b)
		}
	}
}

func TestGaussianClampsToRange(t *testing.T) {
	d, err := NewGaussianWithSeed(30, 70, 50, 100, 7)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5000; i++ {
		v := d.Next()
		if v < 30 || v > 70 {
			t.Fatalf("value %d out of range", v)
		}
	}
}

func TestGaussianRangeCentersMean(t *testing.T) {
	d, err := NewGaussianRange(0, 100, DefaultStdvRange)
	if err != nil {
		t.Fatal(err)
	}
	if d.mean != 50 {
		t.Fatalf("expected mean 50, got %v", d.mean)
	}
	if d.stdDev < 16.66 || d.stdDev > 16.67 {
		t.Fatalf("expected stdev 50/3, got %v", d.stdDev)
	}
	if _, err := NewGaussianRange(0, 100, 0); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam for zero stdvrng, got %v", err)
	}
}
