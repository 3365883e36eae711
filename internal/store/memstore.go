package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/willwinworld/xapian/pkg/vector"
)

// MemStore is an in-memory implementation of Storer. Nearest-neighbour
// queries are a linear cosine scan, which is fine at test scale.
type MemStore struct {
	mu         sync.RWMutex
	dim        int
	documents  map[uint32]*Document
	sessions   map[string]*Session
	embeddings map[uint32][]float32
}

// NewMemStore creates a new in-memory store. dim is the embedding
// dimension; 0 disables embeddings.
func NewMemStore(dim int) *MemStore {
	return &MemStore{
		dim:        dim,
		documents:  make(map[uint32]*Document),
		sessions:   make(map[string]*Session),
		embeddings: make(map[uint32][]float32),
	}
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error {
	return nil
}

// =============================================================================
// Documents
// =============================================================================

func (s *MemStore) PutDocument(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Deep copy to avoid mutation issues
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *MemStore) GetDocument(id uint32) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if doc, ok := s.documents[id]; ok {
		cp := *doc
		return &cp, nil
	}
	return nil, nil
}

func (s *MemStore) DeleteDocument(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, id)
	return nil
}

func (s *MemStore) ListDocuments() ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		cp := *doc
		docs = append(docs, &cp)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *MemStore) CountDocuments() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.documents), nil
}

// =============================================================================
// Sessions
// =============================================================================

func (s *MemStore) PutSession(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *MemStore) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[id]; ok {
		return copySession(sess), nil
	}
	return nil, nil
}

func (s *MemStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func copySession(sess *Session) *Session {
	cp := *sess
	cp.Terms = append([]string(nil), sess.Terms...)
	cp.Ticked = append([]uint32(nil), sess.Ticked...)
	return &cp
}

// =============================================================================
// Embeddings
// =============================================================================

func (s *MemStore) PutEmbedding(docID uint32, vec []float32) error {
	if s.dim == 0 {
		return fmt.Errorf("embeddings disabled: store opened with dim 0")
	}
	if len(vec) != s.dim {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dim, len(vec))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.embeddings[docID] = append([]float32(nil), vec...)
	return nil
}

func (s *MemStore) GetEmbedding(docID uint32) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if vec, ok := s.embeddings[docID]; ok {
		return append([]float32(nil), vec...), nil
	}
	return nil, nil
}

func (s *MemStore) DeleteEmbedding(docID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.embeddings, docID)
	return nil
}

func (s *MemStore) NearestEmbeddings(vec []float32, k int) ([]uint32, error) {
	if s.dim == 0 || k <= 0 {
		return nil, nil
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dim, len(vec))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		id  uint32
		sim float64
	}
	hits := make([]scored, 0, len(s.embeddings))
	for id, emb := range s.embeddings {
		hits = append(hits, scored{id: id, sim: vector.Cosine(vec, emb)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].sim == hits[j].sim {
			return hits[i].id < hits[j].id
		}
		return hits[i].sim > hits[j].sim
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	ids := make([]uint32, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids, nil
}

// Compile-time interface check
var _ Storer = (*MemStore)(nil)
