// Package store provides persistence for the search engine: documents,
// interactive search sessions, and document embeddings.
package store

// Document is one stored text, the unit the index and matcher work on.
type Document struct {
	ID        uint32 `json:"id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Session is the persisted form of an interactive search session.
// Terms and Ticked live in JSON columns; Scheme names a registered
// weighting scheme and SchemeArg carries its serialized parameters, so
// a reloaded session ranks exactly as it did before.
type Session struct {
	ID        string   `json:"id"`
	RawQuery  string   `json:"rawQuery"`
	Terms     []string `json:"terms"`
	Ticked    []uint32 `json:"ticked"`
	DefaultOp string   `json:"defaultOp"`
	Page      int      `json:"page"`
	Scheme    string   `json:"scheme"`
	SchemeArg string   `json:"schemeArg"`
	UpdatedAt int64    `json:"updatedAt"`
}

// Storer defines the interface for data persistence.
// This allows swapping between MemStore (testing, ephemeral runs) and
// SQLiteStore (durable).
type Storer interface {
	// Documents
	PutDocument(doc *Document) error
	GetDocument(id uint32) (*Document, error)
	DeleteDocument(id uint32) error
	ListDocuments() ([]*Document, error)
	CountDocuments() (int, error)

	// Sessions
	PutSession(sess *Session) error
	GetSession(id string) (*Session, error)
	DeleteSession(id string) error

	// Embeddings
	PutEmbedding(docID uint32, vec []float32) error
	GetEmbedding(docID uint32) ([]float32, error)
	DeleteEmbedding(docID uint32) error
	NearestEmbeddings(vec []float32, k int) ([]uint32, error)

	// Lifecycle
	Close() error
}
