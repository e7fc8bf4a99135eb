package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/mmrzaf/cqlstress/internal/session"
)

func TestTranslateSelect(t *testing.T) {
	got := translate(session.SelectByKey("keyspace1.standard1", []string{"C0", "C1"}))
	want := `SELECT "key", "C0", "C1" FROM keyspace1.standard1 WHERE "key" = $1`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestTranslateInsertIsUpsert(t *testing.T) {
	got := translate(session.InsertRow("keyspace1.standard1", []string{"C0", "C1"}))
	want := `INSERT INTO keyspace1.standard1 ("key", "C0", "C1") VALUES ($1, $2, $3)` +
		` ON CONFLICT ("key") DO UPDATE SET "C0" = EXCLUDED."C0", "C1" = EXCLUDED."C1"`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

// Runs only when CQLSTRESS_TEST_POSTGRES_DSN points at a scratch database.
func TestSession_WriteThenRead(t *testing.T) {
	dsn := os.Getenv("CQLSTRESS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CQLSTRESS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	cols := []string{"C0"}
	schema := session.Schema{Keyspace: "cqlstress_test", Table: "standard1", Columns: cols}
	if err := s.EnsureSchema(ctx, schema); err != nil {
		t.Fatal(err)
	}
	ref := s.TableRef(schema.Keyspace, schema.Table)
	ins, err := s.Prepare(ctx, session.Statement{Text: session.InsertRow(ref, cols)})
	if err != nil {
		t.Fatal(err)
	}
	sel, err := s.Prepare(ctx, session.Statement{Text: session.SelectByKey(ref, cols)})
	if err != nil {
		t.Fatal(err)
	}
	key := []byte("00ff")
	if err := ins.Exec(ctx, key, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := ins.Exec(ctx, key, []byte{2}); err != nil {
		t.Fatal(err)
	}
	rows, err := sel.Query(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || string(rows[0][1]) != "\x02" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
