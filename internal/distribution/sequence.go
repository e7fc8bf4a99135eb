package distribution

import (
	"fmt"
	"sync/atomic"
)

// Sequential cycles through [start, end] inclusive. The position is a single
// atomic counter: concurrent callers each get a distinct slot, so N calls
// always yield the same multiset no matter how they interleave.
type Sequential struct {
	start int64
	end   int64
	width uint64
	next  atomic.Uint64
}

func NewSequential(start, end int64) (*Sequential, error) {
	if start > end {
		return nil, fmt.Errorf("%w: SEQ(%d..%d)", ErrEmptyRange, start, end)
	}
	// width wraps to 0 only for the full int64 range.
	width := uint64(end) - uint64(start) + 1
	return &Sequential{start: start, end: end, width: width}, nil
}

func (d *Sequential) Next() int64 {
	slot := d.next.Add(1) - 1
	if d.width != 0 {
		slot %= d.width
	}
	return int64(uint64(d.start) + slot)
}

func (d *Sequential) String() string { return fmt.Sprintf("SEQ(%d..%d)", d.start, d.end) }

func (d *Sequential) Deterministic() bool { return true }

func (d *Sequential) Min() int64 { return d.start }

func (d *Sequential) Max() int64 { return d.end }
