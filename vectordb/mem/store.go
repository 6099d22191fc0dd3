// Package mem provides an in-process vector index with an optional binary snapshot file.
package mem

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/viant/bintly"

	"github.com/viant/docrag/embeddings"
	"github.com/viant/docrag/vectordb"
)

// Store keeps records in memory keyed by id.
type Store struct {
	records  map[string]*record
	scn      int64
	snapshot string
	logf     func(format string, args ...any)
	sync.RWMutex
}

// Option configures Store.
type Option func(*Store)

// WithSnapshot persists the store to path after every upsert and loads it on New.
func WithSnapshot(path string) Option {
	return func(s *Store) { s.snapshot = path }
}

// WithLogf sets the logger.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(s *Store) { s.logf = fn }
}

// New creates a store, loading the snapshot when one exists.
func New(opts ...Option) (*Store, error) {
	ret := &Store{records: map[string]*record{}, logf: log.Printf}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.snapshot != "" {
		if err := ret.load(); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Upsert replaces records by id. A failed snapshot write leaves the store unchanged.
func (s *Store) Upsert(ctx context.Context, batch *vectordb.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	s.scn++
	previous := make(map[string]*record, len(batch.IDs))
	for i, id := range batch.IDs {
		if _, seen := previous[id]; !seen {
			previous[id] = s.records[id]
		}
		metadata := make(map[string]any, len(batch.Metadatas[i]))
		for k, v := range batch.Metadatas[i] {
			metadata[k] = v
		}
		s.records[id] = &record{
			id:       id,
			scn:      s.scn,
			document: batch.Documents[i],
			vector:   append([]float32(nil), batch.Vectors[i]...),
			metadata: metadata,
		}
	}
	if s.snapshot == "" {
		return nil
	}
	if err := s.persist(); err != nil {
		s.scn--
		for id, rec := range previous {
			if rec == nil {
				delete(s.records, id)
				continue
			}
			s.records[id] = rec
		}
		return err
	}
	return nil
}

// Query ranks all records by cosine similarity.
func (s *Store) Query(ctx context.Context, vector []float32, k int) (*vectordb.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 10
	}
	type hit struct {
		rec   *record
		score float32
	}
	s.RLock()
	hits := make([]hit, 0, len(s.records))
	for _, rec := range s.records {
		hits = append(hits, hit{rec: rec, score: embeddings.Cosine(vector, rec.vector)})
	}
	s.RUnlock()
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score == hits[j].score {
			return hits[i].rec.id < hits[j].rec.id
		}
		return hits[i].score > hits[j].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	result := &vectordb.QueryResult{}
	for _, h := range hits {
		metadata := make(map[string]any, len(h.rec.metadata))
		for key, v := range h.rec.metadata {
			metadata[key] = v
		}
		result.Documents = append(result.Documents, h.rec.document)
		result.Metadatas = append(result.Metadatas, metadata)
		result.Scores = append(result.Scores, h.score)
	}
	return result, nil
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.RLock()
	defer s.RUnlock()
	return len(s.records), nil
}

// StaleChunks lists ids of the document key written before that document's latest upsert.
func (s *Store) StaleChunks(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.RLock()
	defer s.RUnlock()
	var latest int64
	var owned []*record
	for _, rec := range s.records {
		if rec.key() != key {
			continue
		}
		owned = append(owned, rec)
		latest = max(latest, rec.scn)
	}
	var ids []string
	for _, rec := range owned {
		if rec.scn < latest {
			ids = append(ids, rec.id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Persist writes the snapshot atomically while holding an exclusive file lock.
func (s *Store) Persist() error {
	if s.snapshot == "" {
		return nil
	}
	s.RLock()
	defer s.RUnlock()
	return s.persist()
}

// persist expects s to be locked.
func (s *Store) persist() error {
	data, err := s.encode()
	if err != nil {
		return err
	}
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	tmp := s.snapshot + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.snapshot)
}

// encode expects s to be locked.
func (s *Store) encode() ([]byte, error) {
	writers := bintly.NewWriters()
	writer := writers.Get()
	defer writers.Put(writer)
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	writer.Int(snapshotVersion)
	writer.Int(len(ids))
	for _, id := range ids {
		if err := s.records[id].EncodeBinary(writer); err != nil {
			return nil, err
		}
	}
	return append([]byte(nil), writer.Bytes()...), nil
}

func (s *Store) load() error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	data, err := os.ReadFile(s.snapshot)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	readers := bintly.NewReaders()
	reader := readers.Get()
	defer readers.Put(reader)
	if err := reader.FromBytes(data); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	var version, count int
	reader.Int(&version)
	if version != snapshotVersion && version != snapshotVersionNoSCN {
		return fmt.Errorf("%w: version %d", ErrSnapshotCorrupt, version)
	}
	reader.Int(&count)
	if count < 0 {
		return ErrSnapshotCorrupt
	}
	records := make(map[string]*record, count)
	var scn int64
	for i := 0; i < count; i++ {
		rec := &record{}
		if err := rec.decode(reader, version); err != nil {
			return err
		}
		records[rec.id] = rec
		scn = max(scn, rec.scn)
	}
	s.Lock()
	s.records = records
	s.scn = scn
	s.Unlock()
	s.logf("mem: loaded snapshot path=%s records=%d", s.snapshot, count)
	return nil
}

func (s *Store) lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.snapshot), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.snapshot+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := lockExclusive(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = unlockFile(f)
		_ = f.Close()
	}, nil
}
