package session

import "testing"

func TestStatements(t *testing.T) {
	cols := []string{"C0", "C1"}

	if got := SelectByKey("keyspace1.standard1", cols); got != `SELECT "key", "C0", "C1" FROM keyspace1.standard1 WHERE "key" = ?` {
		t.Fatalf("unexpected select: %s", got)
	}
	if got := InsertRow("standard1", cols); got != `INSERT INTO standard1 ("key", "C0", "C1") VALUES (?, ?, ?)` {
		t.Fatalf("unexpected insert: %s", got)
	}
	if got := TableDefinition(cols); got != `"key" blob PRIMARY KEY, "C0" blob, "C1" blob` {
		t.Fatalf("unexpected table definition: %s", got)
	}
}

func TestQuoteEscapes(t *testing.T) {
	if got := Quote(`a"b`); got != `"a""b"` {
		t.Fatalf("unexpected quoting: %s", got)
	}
}
