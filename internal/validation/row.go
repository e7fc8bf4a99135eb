package validation

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/mmrzaf/cqlstress/internal/rowgen"
)

// RowValidationError reports the first difference between a regenerated row
// and the row read back. Column is -1 when the row as a whole is wrong (no
// row, several rows, wrong width).
type RowValidationError struct {
	PartitionKey []byte
	Column       int
	ColumnName   string
	Reason       string
	Expected     []byte
	Actual       []byte
}

func (e *RowValidationError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("partition_key %s: %s", e.PartitionKey, e.Reason)
	}
	msg := fmt.Sprintf("partition_key %s: column %d (%s): %s", e.PartitionKey, e.Column, e.ColumnName, e.Reason)
	if e.Expected != nil || e.Actual != nil {
		msg += fmt.Sprintf(": expected 0x%s, got 0x%s", hex.EncodeToString(e.Expected), hex.EncodeToString(e.Actual))
	}
	return msg
}

// ValidateRow compares expected, a regenerated row, with the rows the read
// returned. Comparison is strict and positional: exactly one row with the same
// number of columns, each byte-equal to the expected value.
func ValidateRow(expected rowgen.Row, actual [][][]byte) error {
	key := expected.Key()
	if len(actual) == 0 {
		return &RowValidationError{PartitionKey: key, Column: -1, Reason: "row not found"}
	}
	if len(actual) > 1 {
		return &RowValidationError{PartitionKey: key, Column: -1, Reason: fmt.Sprintf("expected exactly one row, got %d", len(actual))}
	}

	row := actual[0]
	if len(row) != len(expected) {
		return &RowValidationError{
			PartitionKey: key,
			Column:       -1,
			Reason:       fmt.Sprintf("expected %d columns, got %d", len(expected), len(row)),
		}
	}

	for i, want := range expected {
		got := row[i]
		if got == nil {
			return &RowValidationError{PartitionKey: key, Column: i, ColumnName: columnName(i), Reason: "value is null"}
		}
		if !bytes.Equal(want, got) {
			return &RowValidationError{
				PartitionKey: key,
				Column:       i,
				ColumnName:   columnName(i),
				Reason:       "value mismatch",
				Expected:     want,
				Actual:       got,
			}
		}
	}
	return nil
}

func columnName(i int) string {
	if i == 0 {
		return "key"
	}
	return rowgen.ColumnName(i - 1)
}
