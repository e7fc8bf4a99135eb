package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/mmrzaf/cqlstress/internal/session"
)

// Session runs the standard workload against PostgreSQL. The keyspace maps to
// a schema and blob columns to bytea. Consistency levels are ignored.
type Session struct {
	dsn string
	db  *sql.DB
}

func Open(ctx context.Context, dsn string) (*Session, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(64)
	db.SetMaxIdleConns(64)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Session{dsn: dsn, db: db}, nil
}

func (s *Session) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Session) TableRef(keyspace, table string) string {
	if keyspace == "" {
		return table
	}
	return keyspace + "." + table
}

func (s *Session) EnsureSchema(ctx context.Context, schema session.Schema) error {
	ns := schema.Keyspace
	if ns == "" {
		ns = "public"
	}

	var exists bool
	query := `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	)`
	if err := s.db.QueryRowContext(ctx, query, ns, schema.Table).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+ns); err != nil {
		return fmt.Errorf("create schema %s: %w", ns, err)
	}
	def := strings.ReplaceAll(session.TableDefinition(schema.Columns), " blob", " bytea")
	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.TableRef(ns, schema.Table), def)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", schema.Table, err)
	}
	return nil
}

func (s *Session) Prepare(ctx context.Context, stmt session.Statement) (session.Prepared, error) {
	text := translate(stmt.Text)
	st, err := s.db.PrepareContext(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("prepare %q: %w", text, err)
	}
	return &prepared{stmt: st}, nil
}

// translate numbers the placeholders and turns inserts into upserts on the
// partition key.
func translate(text string) string {
	var b strings.Builder
	n := 0
	for _, r := range text {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if !strings.HasPrefix(out, "INSERT INTO ") {
		return out
	}

	open, end := strings.Index(out, "("), strings.Index(out, ")")
	if open < 0 || end < open {
		return out
	}
	key := session.Quote(session.KeyColumn)
	var sets []string
	for _, col := range strings.Split(out[open+1:end], ",") {
		col = strings.TrimSpace(col)
		if col == key {
			continue
		}
		sets = append(sets, col+" = EXCLUDED."+col)
	}
	if len(sets) == 0 {
		return out + " ON CONFLICT (" + key + ") DO NOTHING"
	}
	return out + " ON CONFLICT (" + key + ") DO UPDATE SET " + strings.Join(sets, ", ")
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
