// Package operation holds the per-worker read and write attempts the executor
// drives. Each worker owns one Operation; the population distribution inside
// the row factory is the only state workers share.
package operation

import (
	"context"
	"fmt"

	"github.com/mmrzaf/cqlstress/internal/hashing"
	"github.com/mmrzaf/cqlstress/internal/logging"
)

type ControlFlow int

const (
	Continue ControlFlow = iota
	Stop
)

func (c ControlFlow) String() string {
	if c == Stop {
		return "stop"
	}
	return "continue"
}

// OperationContext carries the attempt id handed out by the executor. Ids
// start at 0 and are unique across workers.
type OperationContext struct {
	OperationID uint64
}

// Operation is a single worker's attempt loop body. A failed attempt returns
// Continue together with the error; Stop means the worker is done.
type Operation interface {
	Execute(ctx context.Context, oc OperationContext) (ControlFlow, error)
}

type Factory interface {
	Create() (Operation, error)
}

// ExecutionError is a statement that failed in the driver.
type ExecutionError struct {
	Op           string
	PartitionKey []byte
	Err          error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s of partition_key %s failed: %v", e.Op, e.PartitionKey, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Config is shared by the read and write factories.
type Config struct {
	Keyspace          string
	Table             string
	Consistency       string
	SerialConsistency string
	// MaxOperations bounds the number of attempts across all workers. Nil
	// means unbounded.
	MaxOperations *uint64
	// Fingerprint, when set, accumulates every row written or validated.
	Fingerprint *hashing.Fingerprint
	Logger      *logging.Logger
}

func (c Config) exhausted(oc OperationContext) bool {
	return c.MaxOperations != nil && oc.OperationID >= *c.MaxOperations
}

func (c Config) logger() *logging.Logger {
	if c.Logger == nil {
		return logging.NewNop()
	}
	return c.Logger
}
