package distribution

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

const DefaultStdvRange = 3.0

// Gaussian draws normally distributed values, rounded and clamped to
// [min, max].
type Gaussian struct {
	min    int64
	max    int64
	mean   float64
	stdDev float64
	mu     struct {
		sync.Mutex
		r *rand.Rand
	}
}

// NewGaussianRange centers the bell on the middle of [min, max] with
// stdev = (mean-min)/stdvRange.
func NewGaussianRange(min, max int64, stdvRange float64) (*Gaussian, error) {
	if stdvRange <= 0 {
		return nil, fmt.Errorf("%w: stdvrng must be > 0, got %v", ErrInvalidParam, stdvRange)
	}
	mean := (float64(min) + float64(max)) / 2
	return NewGaussian(min, max, mean, (mean-float64(min))/stdvRange)
}

func NewGaussian(min, max int64, mean, stdDev float64) (*Gaussian, error) {
	return NewGaussianWithSeed(min, max, mean, stdDev, time.Now().UnixNano())
}

func NewGaussianWithSeed(min, max int64, mean, stdDev float64, seed int64) (*Gaussian, error) {
	if min > max {
		return nil, fmt.Errorf("%w: GAUSSIAN(%d..%d)", ErrEmptyRange, min, max)
	}
	if stdDev < 0 || math.IsNaN(stdDev) || math.IsInf(stdDev, 0) {
		return nil, fmt.Errorf("%w: stdev must be a finite non-negative number, got %v", ErrInvalidParam, stdDev)
	}
	d := &Gaussian{min: min, max: max, mean: mean, stdDev: stdDev}
	d.mu.r = rand.New(rand.NewSource(seed))
	return d, nil
}

func (d *Gaussian) Next() int64 {
	d.mu.Lock()
	sample := d.mu.r.NormFloat64()*d.stdDev + d.mean
	d.mu.Unlock()

	v := math.Round(sample)
	if v <= float64(d.min) {
		return d.min
	}
	if v >= float64(d.max) {
		return d.max
	}
	return int64(v)
}

func (d *Gaussian) SetSeed(seed int64) {
	d.mu.Lock()
	d.mu.r.Seed(seed)
	d.mu.Unlock()
}

func (d *Gaussian) String() string {
	return fmt.Sprintf("GAUSSIAN(%d..%d,%g,%g)", d.min, d.max, d.mean, d.stdDev)
}

func (d *Gaussian) Deterministic() bool { return false }

func (d *Gaussian) Min() int64 { return d.min }

func (d *Gaussian) Max() int64 { return d.max }
