package distribution

import "fmt"

type Fixed struct {
	value int64
}

func NewFixed(value int64) *Fixed {
	return &Fixed{value: value}
}

func (d *Fixed) Next() int64 { return d.value }

func (d *Fixed) String() string { return fmt.Sprintf("FIXED(%d)", d.value) }

func (d *Fixed) Deterministic() bool { return true }

func (d *Fixed) Min() int64 { return d.value }

func (d *Fixed) Max() int64 { return d.value }
