package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/cqlstress/internal/session"
)

// Session runs the standard workload against a SQLite file. It exists for
// local dry runs and tests; keyspaces and consistency levels are ignored.
type Session struct {
	path string
	db   *sql.DB
}

func Open(ctx context.Context, path string) (*Session, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection: ":memory:" databases are per connection and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Session{path: path, db: db}, nil
}

func (s *Session) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Session) TableRef(_, table string) string {
	return table
}

func (s *Session) EnsureSchema(ctx context.Context, schema session.Schema) error {
	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		s.TableRef(schema.Keyspace, schema.Table), session.TableDefinition(schema.Columns))
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", schema.Table, err)
	}
	return nil
}

func (s *Session) Prepare(ctx context.Context, stmt session.Statement) (session.Prepared, error) {
	text := stmt.Text
	// CQL inserts are upserts.
	if strings.HasPrefix(text, "INSERT INTO ") {
		text = "INSERT OR REPLACE INTO " + strings.TrimPrefix(text, "INSERT INTO ")
	}
	st, err := s.db.PrepareContext(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("prepare %q: %w", text, err)
	}
	return &prepared{stmt: st}, nil
}

type prepared struct {
	stmt *sql.Stmt
}

func (p *prepared) Exec(ctx context.Context, args ...interface{}) error {
	_, err := p.stmt.ExecContext(ctx, args...)
	return err
}

func (p *prepared) Query(ctx context.Context, args ...interface{}) ([][][]byte, error) {
	rows, err := p.stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][][]byte
	for rows.Next() {
		vals := make([][]byte, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}
