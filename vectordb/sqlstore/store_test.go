package sqlstore

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/viant/docrag/vectordb"
	"github.com/viant/docrag/vectordb/meta"
)

func TestResolveDialect(t *testing.T) {
	testCases := map[string]Dialect{
		"mysql":    DialectMySQL,
		"MariaDB":  DialectMySQL,
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
		"sqlite":   DialectSQLite,
		"":         DialectSQLite,
	}
	for driver, expect := range testCases {
		if got := ResolveDialect(driver); got != expect {
			t.Fatalf("driver %q: expected %s, got %s", driver, expect, got)
		}
	}
}

func TestDialect_Rebind(t *testing.T) {
	query := "SELECT * FROM t WHERE a = ? AND b = ?"
	if got := DialectPostgres.Rebind(query); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("unexpected postgres query: %s", got)
	}
	if got := DialectMySQL.Rebind(query); got != query {
		t.Fatalf("expected mysql query unchanged, got %s", got)
	}
}

func TestStore_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, "sqlite", t.TempDir()+"/chunks.db", WithDataset("hr"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	batch := &vectordb.Batch{
		IDs:       []string{"a", "b"},
		Vectors:   [][]float32{{1, 0}, {0, 1}},
		Documents: []string{"leave policy", "payroll"},
		Metadatas: []map[string]any{
			{meta.Filename: "leave.txt", meta.Category: "hr", meta.ChunkIndex: 0, meta.DocumentKey: "hr/leave.txt"},
			{meta.Filename: "pay.txt", meta.Category: "hr", meta.ChunkIndex: 1, meta.DocumentKey: "hr/pay.txt"},
		},
	}
	if err := store.Upsert(ctx, batch); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, batch); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	count, err := store.Count(ctx)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 records after re-upsert, got %d (%v)", count, err)
	}
	result, err := store.Query(ctx, []float32{0.1, 0.9}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Len() != 1 || result.Documents[0] != "payroll" {
		t.Fatalf("unexpected result: %v", result.Documents)
	}
	if got := meta.GetInt(result.Metadatas[0], meta.ChunkIndex); got != 1 {
		t.Fatalf("expected chunkIndex 1, got %d", got)
	}
}
