package distribution

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Uniform draws from [min, max] inclusive. The generator is seeded from the
// wall clock, so two runs produce different sequences.
type Uniform struct {
	min   int64
	width int64
	mu    struct {
		sync.Mutex
		r *rand.Rand
	}
}

func NewUniform(min, max int64) (*Uniform, error) {
	return NewUniformWithSeed(min, max, time.Now().UnixNano())
}

func NewUniformWithSeed(min, max, seed int64) (*Uniform, error) {
	if min > max {
		return nil, fmt.Errorf("%w: UNIFORM(%d..%d)", ErrEmptyRange, min, max)
	}
	width := max - min + 1
	if width <= 0 {
		return nil, fmt.Errorf("%w: UNIFORM(%d..%d) range too wide", ErrInvalidParam, min, max)
	}
	d := &Uniform{min: min, width: width}
	d.mu.r = rand.New(rand.NewSource(seed))
	return d, nil
}

func (d *Uniform) Next() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.min + d.mu.r.Int63n(d.width)
}

func (d *Uniform) SetSeed(seed int64) {
	d.mu.Lock()
	d.mu.r.Seed(seed)
	d.mu.Unlock()
}

func (d *Uniform) String() string {
	return fmt.Sprintf("UNIFORM(%d..%d)", d.min, d.min+d.width-1)
}

func (d *Uniform) Deterministic() bool { return false }

func (d *Uniform) Min() int64 { return d.min }

func (d *Uniform) Max() int64 { return d.min + d.width - 1 }
