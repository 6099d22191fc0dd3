package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vec"
	"github.com/viant/sqlite-vec/vector"

	"github.com/viant/docrag/db/sqliteutil"
	"github.com/viant/docrag/embeddings"
	"github.com/viant/docrag/vectordb"
	"github.com/viant/docrag/vectordb/meta"
)

const (
	defaultDataset = "default"
	defaultVTable  = "emb_docs"
)

// Store is a sqlite-vec backed vectordb.Index.
type Store struct {
	db            *sql.DB
	dsn           string
	vtable        string
	shadow        string
	dataset       string
	ensureSchema  bool
	bruteForce    bool
	pragmas       *sqliteutil.Pragmas
	openedLocally bool
	logf          func(format string, args ...any)
}

// Option configures the sqlite-vec store.
type Option func(*Store)

// WithDB sets an existing *sql.DB to use.
func WithDB(db *sql.DB) Option {
	return func(s *Store) { s.db = db }
}

// WithDSN sets the SQLite DSN to open (e.g. /path/to/db.sqlite).
func WithDSN(dsn string) Option {
	return func(s *Store) { s.dsn = dsn }
}

// WithVTable sets the vec virtual table name (default: emb_docs).
func WithVTable(name string) Option {
	return func(s *Store) { s.vtable = name }
}

// WithDataset scopes all reads and writes to one dataset id.
func WithDataset(dataset string) Option {
	return func(s *Store) { s.dataset = dataset }
}

// WithEnsureSchema controls whether schema and indexes are created automatically.
func WithEnsureSchema(enabled bool) Option {
	return func(s *Store) { s.ensureSchema = enabled }
}

// WithBruteForce ranks by an in-process cosine scan instead of the vec MATCH operator.
func WithBruteForce(enabled bool) Option {
	return func(s *Store) { s.bruteForce = enabled }
}

// WithPragmas applies SQLite pragmas to the DSN before opening it.
func WithPragmas(pragmas sqliteutil.Pragmas) Option {
	return func(s *Store) { s.pragmas = &pragmas }
}

// WithLogf sets the logger.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(s *Store) { s.logf = fn }
}

// NewStore opens/initializes a sqlite-vec Store.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		vtable:       defaultVTable,
		dataset:      defaultDataset,
		ensureSchema: true,
		logf:         log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.vtable == "" {
		s.vtable = defaultVTable
	}
	if s.dataset == "" {
		s.dataset = defaultDataset
	}
	s.shadow = "_vec_" + s.vtable

	if s.db == nil {
		if s.dsn == "" {
			return nil, fmt.Errorf("sqlitevec: dsn required")
		}
		dsn := s.dsn
		if s.pragmas != nil {
			dsn = s.pragmas.Apply(dsn)
		}
		db, err := engine.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlitevec: open %s: %w", s.dsn, err)
		}
		s.db = db
		s.db.SetMaxOpenConns(4)
		s.db.SetMaxIdleConns(4)
		s.openedLocally = true
	}
	if err := vec.Register(s.db); err != nil {
		return nil, fmt.Errorf("sqlitevec: register vec module: %w", err)
	}
	if s.ensureSchema {
		if err := s.ensureSchemaDDL(context.Background()); err != nil {
			return nil, fmt.Errorf("sqlitevec: ensure schema: %w", err)
		}
	}
	return s, nil
}

// Close closes the underlying DB if Store opened it.
func (s *Store) Close() error {
	if s.openedLocally && s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Upsert writes the batch in one transaction, overwriting rows with the same id.
// Every row of the batch is stamped with a fresh write sequence number.
func (s *Store) Upsert(ctx context.Context, batch *vectordb.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	scn, err := nextSCN(ctx, tx, s.dataset)
	if err != nil {
		return fmt.Errorf("sqlitevec: allocate scn: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(dataset_id, id, asset_id, content, meta, embedding, embedding_model, scn, archived)
VALUES(?,?,?,?,?,?,?,?,0)
ON CONFLICT(dataset_id, id) DO UPDATE SET
	asset_id=excluded.asset_id,
	content=excluded.content,
	meta=excluded.meta,
	embedding=excluded.embedding,
	embedding_model=excluded.embedding_model,
	scn=excluded.scn,
	archived=0`, s.shadow))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, id := range batch.IDs {
		metaJSON, err := encodeMeta(batch.Metadatas[i])
		if err != nil {
			return fmt.Errorf("sqlitevec: encode meta %s: %w", id, err)
		}
		blob, err := vector.EncodeEmbedding(batch.Vectors[i])
		if err != nil {
			return fmt.Errorf("sqlitevec: encode embedding %s: %w", id, err)
		}
		assetID := meta.GetString(batch.Metadatas[i], meta.DocumentKey)
		if assetID == "" {
			assetID = id
		}
		model := meta.GetString(batch.Metadatas[i], meta.EmbeddingModel)
		if _, err := stmt.ExecContext(ctx, s.dataset, id, assetID, batch.Documents[i], metaJSON, blob, model, scn); err != nil {
			return fmt.Errorf("sqlitevec: upsert %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Query returns the k nearest records. It falls back to a cosine scan when the vec
// module or virtual table is unavailable on the connection.
func (s *Store) Query(ctx context.Context, queryVector []float32, k int) (*vectordb.QueryResult, error) {
	if k <= 0 {
		k = 10
	}
	if s.bruteForce {
		return s.scan(ctx, queryVector, k)
	}
	blob, err := vector.EncodeEmbedding(queryVector)
	if err != nil {
		return nil, err
	}
	result, err := s.match(ctx, blob, k)
	if err != nil && isVecUnavailable(err) {
		s.logf("sqlitevec: match unavailable, using cosine scan err=%v", err)
		return s.scan(ctx, queryVector, k)
	}
	return result, err
}

func (s *Store) match(ctx context.Context, blob []byte, k int) (*vectordb.QueryResult, error) {
	query := fmt.Sprintf(`SELECT d.content, d.meta, v.match_score
FROM %s v
JOIN %s d ON d.dataset_id = v.dataset_id AND d.id = v.doc_id
WHERE v.dataset_id = ?
  AND v.doc_id MATCH ?
  AND d.archived = 0
ORDER BY v.match_score DESC
LIMIT ?`, s.vtable, s.shadow)

	rows, err := s.db.QueryContext(ctx, query, s.dataset, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &vectordb.QueryResult{}
	for rows.Next() {
		var content, metaJSON string
		var score float64
		if err := rows.Scan(&content, &metaJSON, &score); err != nil {
			return nil, err
		}
		metaMap, err := decodeMeta(metaJSON)
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, content)
		result.Metadatas = append(result.Metadatas, metaMap)
		result.Scores = append(result.Scores, float32(score))
	}
	return result, rows.Err()
}

func (s *Store) scan(ctx context.Context, queryVector []float32, k int) (*vectordb.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT content, meta, embedding FROM %s WHERE dataset_id = ? AND archived = 0`, s.shadow), s.dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	type hit struct {
		score   float32
		content string
		meta    string
	}
	var hits []hit
	for rows.Next() {
		var content, metaJSON string
		var emb []byte
		if err := rows.Scan(&content, &metaJSON, &emb); err != nil {
			return nil, err
		}
		vec, err := vector.DecodeEmbedding(emb)
		if err != nil {
			continue
		}
		hits = append(hits, hit{score: embeddings.Cosine(queryVector, vec), content: content, meta: metaJSON})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k {
		hits = hits[:k]
	}
	result := &vectordb.QueryResult{}
	for _, h := range hits {
		metaMap, err := decodeMeta(h.meta)
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, h.content)
		result.Metadatas = append(result.Metadatas, metaMap)
		result.Scores = append(result.Scores, h.score)
	}
	return result, nil
}

// Count returns the number of live records in the dataset.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE dataset_id = ? AND archived = 0`, s.shadow), s.dataset).Scan(&n)
	return n, err
}

// CountDocument returns the number of live records stored for one document key.
func (s *Store) CountDocument(ctx context.Context, key string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE dataset_id = ? AND asset_id = ? AND archived = 0`, s.shadow), s.dataset, key).Scan(&n)
	return n, err
}

// StaleChunks lists ids of a document written before the document's latest write sequence.
// Chunks left behind by ingestion with different chunk parameters show up here.
func (s *Store) StaleChunks(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s
WHERE dataset_id = ? AND asset_id = ? AND archived = 0
  AND scn < (SELECT MAX(scn) FROM %s WHERE dataset_id = ? AND asset_id = ?)
ORDER BY id`, s.shadow, s.shadow), s.dataset, key, s.dataset, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ensureSchemaDDL(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vec_dataset_scn (
			dataset_id TEXT PRIMARY KEY,
			next_scn   INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS vector_storage (
			shadow_table_name TEXT NOT NULL,
			dataset_id        TEXT NOT NULL DEFAULT '',
			"index"           BLOB,
			PRIMARY KEY (shadow_table_name, dataset_id)
		);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			dataset_id       TEXT NOT NULL,
			id               TEXT NOT NULL,
			asset_id         TEXT NOT NULL,
			content          TEXT,
			meta             TEXT,
			embedding        BLOB,
			embedding_model  TEXT,
			scn              INTEGER NOT NULL,
			archived         INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset_id, id)
		);`, s.shadow),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec(doc_id);`, s.vtable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_asset ON %s(dataset_id, asset_id);`, s.vtable, s.shadow),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_scn ON %s(dataset_id, scn);`, s.vtable, s.shadow),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if s.bruteForce && strings.Contains(stmt, "VIRTUAL TABLE") && isVecUnavailable(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func nextSCN(ctx context.Context, tx *sql.Tx, dataset string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO vec_dataset_scn(dataset_id, next_scn) VALUES(?, 0)`, dataset); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE vec_dataset_scn SET next_scn = next_scn + 1 WHERE dataset_id = ?`, dataset); err != nil {
		return 0, err
	}
	var scn int64
	err := tx.QueryRowContext(ctx, `SELECT next_scn FROM vec_dataset_scn WHERE dataset_id = ?`, dataset).Scan(&scn)
	return scn, err
}

func isVecUnavailable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such module: vec") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "unable to use function MATCH")
}

func encodeMeta(metaIn map[string]any) (string, error) {
	if metaIn == nil {
		metaIn = map[string]any{}
	}
	data, err := json.Marshal(metaIn)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMeta(metaJSON string) (map[string]any, error) {
	metaMap := map[string]any{}
	if metaJSON == "" {
		return metaMap, nil
	}
	if err := json.Unmarshal([]byte(metaJSON), &metaMap); err != nil {
		return nil, err
	}
	return metaMap, nil
}
