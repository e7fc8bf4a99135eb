package operation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mmrzaf/cqlstress/internal/session"
)

// memSession keeps rows by partition key and understands only the two
// statements operations prepare.
type memSession struct {
	mu      sync.Mutex
	rows    map[string][][]byte
	execs   int
	queries int
	failErr error
}

func newMemSession() *memSession {
	return &memSession{rows: map[string][][]byte{}}
}

func (s *memSession) Prepare(_ context.Context, stmt session.Statement) (session.Prepared, error) {
	if !stmt.Idempotent {
		return nil, errors.New("expected idempotent statement")
	}
	return &memPrepared{s: s, insert: strings.HasPrefix(stmt.Text, "INSERT")}, nil
}

func (s *memSession) EnsureSchema(context.Context, session.Schema) error { return nil }

func (s *memSession) TableRef(keyspace, table string) string { return keyspace + "." + table }

func (s *memSession) Close() error { return nil }

func (s *memSession) get(key string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[key]
}

type memPrepared struct {
	s      *memSession
	insert bool
}

func (p *memPrepared) Exec(_ context.Context, args ...interface{}) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.execs++
	if p.s.failErr != nil {
		return p.s.failErr
	}
	row := make([][]byte, len(args))
	for i, a := range args {
		row[i] = append([]byte(nil), a.([]byte)...)
	}
	p.s.rows[string(row[0])] = row
	return nil
}

func (p *memPrepared) Query(_ context.Context, args ...interface{}) ([][][]byte, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.queries++
	if p.s.failErr != nil {
		return nil, p.s.failErr
	}
	row, ok := p.s.rows[string(args[0].([]byte))]
	if !ok {
		return nil, nil
	}
	cp := make([][]byte, len(row))
	for i, v := range row {
		cp[i] = append([]byte(nil), v...)
	}
	return [][][]byte{cp}, nil
}
