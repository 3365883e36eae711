// SQLite persistence through ncruces/go-sqlite3, which provides a
// database/sql interface. The sqlite-vec extension supplies the vec0
// virtual table used for embedding KNN.
package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the SQLite-backed data store.
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	dim int
}

// schema defines the plain tables.
const schema = `
-- Documents
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    text TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Sessions
-- terms and ticked are JSON arrays; scheme and scheme_arg restore the
-- weighting scheme through the registry on load
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    raw_query TEXT NOT NULL DEFAULT '',
    terms TEXT NOT NULL DEFAULT '[]',
    ticked TEXT NOT NULL DEFAULT '[]',
    default_op TEXT NOT NULL DEFAULT 'or',
    page INTEGER NOT NULL DEFAULT 0,
    scheme TEXT NOT NULL DEFAULT '',
    scheme_arg TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL
);
`

// vecSchema is created separately because the embedding dimension is
// only known at runtime. rowid doubles as the docid.
const vecSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS embeddings USING vec0(
    embedding FLOAT[%d] distance_metric=cosine
);
`

// NewSQLiteStore creates a new in-memory SQLite store. dim is the
// embedding dimension; 0 disables the embeddings table.
func NewSQLiteStore(dim int) (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:", dim)
}

// NewSQLiteStoreWithDSN creates a store with a specific data source
// name. Use ":memory:" for in-memory or a file path for persistent
// storage. The embedding dimension is fixed when the vec0 table is
// first created.
func NewSQLiteStoreWithDSN(dsn string, dim int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if dim > 0 {
		if _, err := db.Exec(fmt.Sprintf(vecSchema, dim)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create embeddings table: %w", err)
		}
	}

	return &SQLiteStore{db: db, dim: dim}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Documents
// =============================================================================

// PutDocument inserts or replaces a document.
func (s *SQLiteStore) PutDocument(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO documents (id, text, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			updated_at = excluded.updated_at
	`, int64(doc.ID), doc.Text, doc.CreatedAt, doc.UpdatedAt)

	return err
}

// GetDocument retrieves a document by ID.
func (s *SQLiteStore) GetDocument(id uint32) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc Document
	var docID int64

	err := s.db.QueryRow(`
		SELECT id, text, created_at, updated_at FROM documents WHERE id = ?
	`, int64(id)).Scan(&docID, &doc.Text, &doc.CreatedAt, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	doc.ID = uint32(docID)
	return &doc, nil
}

// DeleteDocument removes a document by ID. The embedding, if any, is a
// separate row; callers that want both gone delete both.
func (s *SQLiteStore) DeleteDocument(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM documents WHERE id = ?", int64(id))
	return err
}

// ListDocuments returns all documents in id order.
func (s *SQLiteStore) ListDocuments() ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, text, created_at, updated_at FROM documents ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var doc Document
		var docID int64
		if err := rows.Scan(&docID, &doc.Text, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		doc.ID = uint32(docID)
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStore) CountDocuments() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count)
	return count, err
}

// =============================================================================
// Sessions
// =============================================================================

// PutSession inserts or replaces a session.
func (s *SQLiteStore) PutSession(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	termsJSON, err := json.Marshal(sess.Terms)
	if err != nil {
		return fmt.Errorf("failed to marshal terms: %w", err)
	}
	tickedJSON, err := json.Marshal(sess.Ticked)
	if err != nil {
		return fmt.Errorf("failed to marshal ticks: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, raw_query, terms, ticked, default_op, page,
			scheme, scheme_arg, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			raw_query = excluded.raw_query,
			terms = excluded.terms,
			ticked = excluded.ticked,
			default_op = excluded.default_op,
			page = excluded.page,
			scheme = excluded.scheme,
			scheme_arg = excluded.scheme_arg,
			updated_at = excluded.updated_at
	`, sess.ID, sess.RawQuery, string(termsJSON), string(tickedJSON),
		sess.DefaultOp, sess.Page, sess.Scheme, sess.SchemeArg, sess.UpdatedAt)

	return err
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess Session
	var termsJSON, tickedJSON string

	err := s.db.QueryRow(`
		SELECT id, raw_query, terms, ticked, default_op, page,
			scheme, scheme_arg, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(
		&sess.ID, &sess.RawQuery, &termsJSON, &tickedJSON, &sess.DefaultOp,
		&sess.Page, &sess.Scheme, &sess.SchemeArg, &sess.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(termsJSON), &sess.Terms); err != nil {
		sess.Terms = nil
	}
	if err := json.Unmarshal([]byte(tickedJSON), &sess.Ticked); err != nil {
		sess.Ticked = nil
	}

	return &sess, nil
}

// DeleteSession removes a session by ID.
func (s *SQLiteStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}

// =============================================================================
// Embeddings
// =============================================================================

// PutEmbedding inserts or replaces the embedding for a document.
// Vectors are bound as JSON, which vec0 accepts for float columns.
func (s *SQLiteStore) PutEmbedding(docID uint32, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		return fmt.Errorf("embeddings disabled: store opened with dim 0")
	}
	if len(vec) != s.dim {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dim, len(vec))
	}

	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal vector: %w", err)
	}

	// vec0 tables have no upsert, so replace in two steps.
	if _, err := s.db.Exec("DELETE FROM embeddings WHERE rowid = ?", int64(docID)); err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO embeddings (rowid, embedding) VALUES (?, ?)
	`, int64(docID), string(vecJSON))

	return err
}

// GetEmbedding retrieves the embedding for a document.
func (s *SQLiteStore) GetEmbedding(docID uint32) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim == 0 {
		return nil, nil
	}

	var blob []byte
	err := s.db.QueryRow(`
		SELECT embedding FROM embeddings WHERE rowid = ?
	`, int64(docID)).Scan(&blob)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return decodeVector(blob)
}

// DeleteEmbedding removes the embedding for a document.
func (s *SQLiteStore) DeleteEmbedding(docID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		return nil
	}

	_, err := s.db.Exec("DELETE FROM embeddings WHERE rowid = ?", int64(docID))
	return err
}

// NearestEmbeddings returns the k documents nearest to vec by cosine
// distance, nearest first.
func (s *SQLiteStore) NearestEmbeddings(vec []float32, k int) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim == 0 || k <= 0 {
		return nil, nil
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dim, len(vec))
	}

	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vector: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT rowid FROM embeddings
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, string(vecJSON), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint32
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint32(id))
	}

	return ids, rows.Err()
}

// decodeVector unpacks the little-endian float32 blob vec0 stores.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
