// Package session is the contract between operations and a database driver.
// Operations prepare statements once per worker and bind a row per attempt;
// retries, pooling and host selection are the driver's business.
package session

import (
	"context"
	"fmt"
	"strings"
)

type Statement struct {
	Text              string
	Consistency       string
	SerialConsistency string
	Idempotent        bool
}

type Session interface {
	Prepare(ctx context.Context, stmt Statement) (Prepared, error)
	// EnsureSchema creates the keyspace and table when missing.
	EnsureSchema(ctx context.Context, schema Schema) error
	// TableRef returns the name statements should use for a table.
	TableRef(keyspace, table string) string
	Close() error
}

type Prepared interface {
	Exec(ctx context.Context, args ...interface{}) error
	// Query returns every row of the result, each as its column values in
	// select order. NULL values are nil.
	Query(ctx context.Context, args ...interface{}) ([][][]byte, error)
}

// Schema is the standard table: a blob partition key named "key" followed by
// blob columns.
type Schema struct {
	Keyspace          string
	Table             string
	Columns           []string
	ReplicationFactor int
}

// KeyColumn is the partition key column of the standard table.
const KeyColumn = "key"

func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quotedColumns(columns []string) string {
	parts := make([]string, 0, len(columns)+1)
	parts = append(parts, Quote(KeyColumn))
	for _, c := range columns {
		parts = append(parts, Quote(c))
	}
	return strings.Join(parts, ", ")
}

// SelectByKey reads one partition. Columns are listed explicitly so the result
// order is the declared order even past ten columns, where SELECT * would sort
// C10 before C2.
func SelectByKey(tableRef string, columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", quotedColumns(columns), tableRef, Quote(KeyColumn))
}

func InsertRow(tableRef string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)+1), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableRef, quotedColumns(columns), placeholders)
}

// TableDefinition renders the column list of the standard table.
func TableDefinition(columns []string) string {
	parts := make([]string, 0, len(columns)+1)
	parts = append(parts, Quote(KeyColumn)+" blob PRIMARY KEY")
	for _, c := range columns {
		parts = append(parts, Quote(c)+" blob")
	}
	return strings.Join(parts, ", ")
}
