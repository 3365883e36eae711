package weight

import "fmt"

// Registry maps scheme names to prototypes so serialized schemes can be
// reconstructed by name.
type Registry struct {
	schemes map[string]Scheme
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemes: make(map[string]Scheme)}
}

// DefaultRegistry returns a registry with the stock schemes registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(DLH{})
	r.Register(DefaultBM25())
	r.Register(Bool{})
	return r
}

// Register adds or replaces the prototype under its own name.
func (r *Registry) Register(s Scheme) {
	r.schemes[s.Name()] = s
}

// Get returns the prototype registered under name.
func (r *Registry) Get(name string) (Scheme, bool) {
	s, ok := r.schemes[name]
	return s, ok
}

// Unserialize reconstructs a scheme from its name and parameter blob.
func (r *Registry) Unserialize(name, data string) (Scheme, error) {
	proto, ok := r.schemes[name]
	if !ok {
		return nil, fmt.Errorf("weight: unknown scheme %q: %w", name, ErrSerialization)
	}
	s, err := proto.Unserialize(data)
	if err != nil {
		return nil, fmt.Errorf("weight: unserialize %q: %w", name, err)
	}
	return s, nil
}
