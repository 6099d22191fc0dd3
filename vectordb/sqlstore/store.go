// Package sqlstore keeps chunk vectors in a plain SQL table and ranks them in process.
// It serves databases without the sqlite-vec module such as MySQL and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/viant/sqlite-vec/vector"

	"github.com/viant/docrag/embeddings"
	"github.com/viant/docrag/vectordb"
	"github.com/viant/docrag/vectordb/meta"
)

const defaultTable = "docrag_chunks"

// Store is a vectordb.Index over a database/sql connection.
type Store struct {
	db           *sql.DB
	dialect      Dialect
	table        string
	dataset      string
	ensureSchema bool
}

// Option configures Store.
type Option func(*Store)

// WithTable overrides the table name.
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// WithDataset scopes records to a dataset id.
func WithDataset(dataset string) Option {
	return func(s *Store) { s.dataset = dataset }
}

// WithEnsureSchema controls table creation on New.
func WithEnsureSchema(enabled bool) Option {
	return func(s *Store) { s.ensureSchema = enabled }
}

// New wraps db; driver selects the SQL dialect.
func New(ctx context.Context, db *sql.DB, driver string, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: db required")
	}
	s := &Store{db: db, dialect: ResolveDialect(driver), table: defaultTable, dataset: "default", ensureSchema: true}
	for _, opt := range opts {
		opt(s)
	}
	if s.ensureSchema {
		if _, err := db.ExecContext(ctx, s.dialect.createTable(s.table)); err != nil {
			return nil, fmt.Errorf("sqlstore: create %s: %w", s.table, err)
		}
	}
	return s, nil
}

// Open opens a database with the given driver and wraps it.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", driver, err)
	}
	return New(ctx, db, driver, opts...)
}

// Dialect returns the resolved dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the underlying DB.
func (s *Store) Close() error { return s.db.Close() }

// Upsert writes the batch in one transaction.
func (s *Store) Upsert(ctx context.Context, batch *vectordb.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, s.dialect.upsert(s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, id := range batch.IDs {
		metadata := batch.Metadatas[i]
		if metadata == nil {
			metadata = map[string]any{}
		}
		metaJSON, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("sqlstore: encode meta %s: %w", id, err)
		}
		blob, err := vector.EncodeEmbedding(batch.Vectors[i])
		if err != nil {
			return fmt.Errorf("sqlstore: encode embedding %s: %w", id, err)
		}
		key := meta.GetString(metadata, meta.DocumentKey)
		if key == "" {
			key = id
		}
		if _, err := stmt.ExecContext(ctx, s.dataset, id, key, batch.Documents[i], string(metaJSON), blob, meta.GetString(metadata, meta.EmbeddingModel)); err != nil {
			return fmt.Errorf("sqlstore: upsert %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Query scans the dataset and returns the k records with the highest cosine similarity.
func (s *Store) Query(ctx context.Context, queryVector []float32, k int) (*vectordb.QueryResult, error) {
	if k <= 0 {
		k = 10
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(fmt.Sprintf(`SELECT content, meta, embedding FROM %s WHERE dataset_id = ?`, s.table)), s.dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []hit
	for rows.Next() {
		var content, metaJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&content, &metaJSON, &blob); err != nil {
			return nil, err
		}
		vec, err := vector.DecodeEmbedding(blob)
		if err != nil || len(vec) == 0 {
			continue
		}
		hits = append(hits, hit{score: embeddings.Cosine(queryVector, vec), content: content.String, meta: metaJSON.String})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topK(hits, k)
}

// Count returns the number of records in the dataset.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE dataset_id = ?`, s.table)), s.dataset).Scan(&n)
	return n, err
}

type hit struct {
	score   float32
	content string
	meta    string
}

func topK(hits []hit, k int) (*vectordb.QueryResult, error) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k {
		hits = hits[:k]
	}
	result := &vectordb.QueryResult{}
	for _, h := range hits {
		metadata := map[string]any{}
		if h.meta != "" {
			if err := json.Unmarshal([]byte(h.meta), &metadata); err != nil {
				return nil, err
			}
		}
		result.Documents = append(result.Documents, h.content)
		result.Metadatas = append(result.Metadatas, metadata)
		result.Scores = append(result.Scores, h.score)
	}
	return result, nil
}
