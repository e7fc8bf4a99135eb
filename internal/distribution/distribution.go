// Package distribution provides the int64 samplers used to pick partition key
// seeds and to size generated values.
//
// A distribution is deterministic when independent runs constructed with the
// same parameters produce the same multiset of values. Only FIXED and SEQ are
// deterministic. Write workloads must sample partition key seeds from a
// deterministic distribution, otherwise a later read pass cannot regenerate
// the rows it wrote.
package distribution

import "errors"

// Distribution is shared by every worker of a run, so Next must be safe for
// concurrent use.
type Distribution interface {
	Next() int64
	// String describes the distribution using the same syntax the parser accepts.
	String() string
	Deterministic() bool
}

// Seedable is implemented by distributions whose sequence can be restarted
// from a seed. Value generators reseed their size distribution with the value
// seed so that lengths vary deterministically.
type Seedable interface {
	SetSeed(seed int64)
}

// Bounded reports the closed range a distribution samples from.
type Bounded interface {
	Min() int64
	Max() int64
}

var (
	ErrEmptyRange   = errors.New("distribution range is empty")
	ErrInvalidParam = errors.New("invalid distribution parameter")
)
