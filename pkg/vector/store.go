// Package vector provides approximate nearest-neighbour search over
// document embeddings, used to blend semantic similarity into ranked
// text results.
package vector

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sync"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	"github.com/hack-pad/hackpadfs"
	kvector "github.com/kshard/vector"
)

// Store manages the HNSW index, the raw vectors behind it, and
// persistence.
type Store struct {
	Index *hnsw.HNSW[vector.VF32]
	FS    hackpadfs.FS
	Path  string

	mu   sync.RWMutex
	vecs map[uint32][]float32
}

// snapshot is the persisted form: the graph nodes plus the id->vector
// mapping needed to rescore by cosine after reload.
type snapshot struct {
	Nodes hnsw.Nodes[vector.VF32]
	Vecs  map[uint32][]float32
}

// NewStore creates a vector store backed by fs. If a valid index exists
// at path it is loaded, otherwise a fresh one is initialized.
func NewStore(fs hackpadfs.FS, path string) (*Store, error) {
	s := &Store{
		FS:   fs,
		Path: path,
		vecs: make(map[uint32][]float32),
	}

	if err := s.Load(); err != nil {
		// No usable index on disk, start clean with a cosine surface.
		s.Index = hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine()))
		s.vecs = make(map[uint32][]float32)
	}

	return s, nil
}

// Add inserts a vector under id. The dimension must match whatever the
// index already holds.
func (s *Store) Add(id uint32, vec []float32) error {
	if s.Index == nil {
		return fmt.Errorf("index not initialized")
	}

	if s.Index.Size() > 0 {
		dim := len(s.Index.Head().Vec)
		if len(vec) != dim {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(vec))
		}
	}

	s.Index.Insert(vector.VF32{
		Key: id,
		Vec: vec,
	})

	s.mu.Lock()
	s.vecs[id] = vec
	s.mu.Unlock()
	return nil
}

// Search returns the nearest k ids to vec.
func (s *Store) Search(vec []float32, k int) ([]uint32, error) {
	if s.Index == nil {
		return nil, fmt.Errorf("index not initialized")
	}

	ef := k * 2
	if ef < 100 {
		ef = 100
	}

	if s.Index.Size() > 0 {
		dim := len(s.Index.Head().Vec)
		if len(vec) != dim {
			return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(vec))
		}
	}

	results := s.Index.Search(vector.VF32{Vec: vec}, k, ef)

	ids := make([]uint32, len(results))
	for i, r := range results {
		ids[i] = r.Key
	}
	return ids, nil
}

// Vector returns the stored embedding for id.
func (s *Store) Vector(id uint32) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.vecs[id]
	return vec, ok
}

// Len reports how many vectors are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vecs)
}

// Save persists the index to the store's FS.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Index == nil {
		return nil
	}

	snap := snapshot{
		Nodes: s.Index.Nodes(),
		Vecs:  s.vecs,
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	if err := hackpadfs.WriteFullFile(s.FS, s.Path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	return nil
}

// Load reads the index back from the store's FS.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := hackpadfs.ReadFile(s.FS, s.Path)
	if err != nil {
		return err
	}

	var snap snapshot
	dec := gob.NewDecoder(bytes.NewReader(content))
	if err := dec.Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}

	s.Index = hnsw.FromNodes[vector.VF32](
		vector.SurfaceVF32(kvector.Cosine()),
		snap.Nodes,
	)
	s.vecs = snap.Vecs
	if s.vecs == nil {
		s.vecs = make(map[uint32][]float32)
	}

	return nil
}

// Cosine calculates the cosine similarity between two vectors. Returns
// 0.0 if dimensions mismatch or either vector is zero-length.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	dotProduct := 0.0
	normA := 0.0
	normB := 0.0

	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales v in place to unit length.
func Normalize(v []float32) {
	sumSq := 0.0
	for _, x := range v {
		sumSq += float64(x * x)
	}

	if sumSq == 0 {
		return
	}

	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
}
