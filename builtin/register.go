// Package builtin registers all built-in providers with the default registry.
package builtin

import (
	ollamaEmbed "github.com/donbr/graphiti-qdrant/builtin/embedding/ollama"
	openaiEmbed "github.com/donbr/graphiti-qdrant/builtin/embedding/openai"
	"github.com/donbr/graphiti-qdrant/pkg/provider"
)

func init() {
	// Register embedding providers
	provider.RegisterEmbedding("ollama", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return ollamaEmbed.New(ollamaEmbed.Config{
			Endpoint:   cfg.Endpoint,
			Model:      cfg.Model,
			BatchSize:  cfg.BatchSize,
			Dimensions: cfg.Dimensions,
		}), nil
	})

	provider.RegisterEmbedding("openai", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return openaiEmbed.New(openaiEmbed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.Endpoint,
			Model:      cfg.Model,
			BatchSize:  cfg.BatchSize,
			Dimensions: cfg.Dimensions,
		}), nil
	})
}
