package provider

import (
	"fmt"
	"sync"

	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// EmbeddingFactory creates an EmbeddingProvider from configuration.
type EmbeddingFactory func(config EmbeddingConfig) (EmbeddingProvider, error)

// Registry holds factories for embedding providers.
type Registry struct {
	mu sync.RWMutex

	embeddingFactories map[string]EmbeddingFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		embeddingFactories: make(map[string]EmbeddingFactory),
	}
}

// RegisterEmbedding registers an embedding provider factory.
func (r *Registry) RegisterEmbedding(name string, factory EmbeddingFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddingFactories[name] = factory
}

// CreateEmbedding creates an embedding provider by name.
func (r *Registry) CreateEmbedding(name string, config EmbeddingConfig) (EmbeddingProvider, error) {
	r.mu.RLock()
	factory, ok := r.embeddingFactories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", types.ErrProviderNotAvailable, name, r.ListEmbeddings())
	}
	return factory(config)
}

// ListEmbeddings returns all registered embedding provider names.
func (r *Registry) ListEmbeddings() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.embeddingFactories))
	for name := range r.embeddingFactories {
		names = append(names, name)
	}
	return names
}

// HasEmbedding checks if an embedding provider is registered.
func (r *Registry) HasEmbedding(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.embeddingFactories[name]
	return ok
}

// DefaultRegistry is the global default registry.
var DefaultRegistry = NewRegistry()

// RegisterEmbedding registers an embedding provider in the default registry.
func RegisterEmbedding(name string, factory EmbeddingFactory) {
	DefaultRegistry.RegisterEmbedding(name, factory)
}
