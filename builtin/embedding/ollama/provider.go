// Package ollama implements EmbeddingProvider using Ollama's API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/donbr/graphiti-qdrant/pkg/provider"
)

// Default values
const (
	DefaultModel      = "nomic-embed-text"
	DefaultEndpoint   = "http://localhost:11434"
	DefaultBatchSize  = 32
	DefaultDimensions = 768  // nomic-embed-text default
	maxPromptChars    = 8000 // Safe limit for most embedding models
)

// Config contains Ollama provider configuration.
type Config struct {
	Model      string
	Endpoint   string
	BatchSize  int
	Dimensions int // Set to 0 to auto-detect from first embedding
}

// Provider implements the EmbeddingProvider interface for Ollama.
type Provider struct {
	config     Config
	client     *http.Client
	dimensions int
	mu         sync.RWMutex
}

// New creates a new Ollama embedding provider.
func New(cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &Provider{
		config: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		dimensions: cfg.Dimensions,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "ollama"
}

// Embed generates embeddings for the given texts.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))

	// Ollama doesn't support batch embedding in a single call
	for i, text := range texts {
		embedding, err := p.embedSingle(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = embedding

		// Auto-detect dimensions from first embedding
		if p.dimensions == 0 && len(embedding) > 0 {
			p.mu.Lock()
			p.dimensions = len(embedding)
			p.mu.Unlock()
		}
	}

	return results, nil
}

// embedSingle embeds a single text.
func (p *Provider) embedSingle(ctx context.Context, text string) ([]float32, error) {
	// Truncate text if too long to avoid context length errors
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	reqBody := map[string]any{
		"model":  p.config.Model,
		"prompt": text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/api/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Convert float64 to float32
	embedding := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		embedding[i] = float32(v)
	}

	return embedding, nil
}

// Dimensions returns the embedding dimensions.
func (p *Provider) Dimensions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.dimensions > 0 {
		return p.dimensions
	}
	return DefaultDimensions
}

// MaxBatchSize returns the maximum batch size.
func (p *Provider) MaxBatchSize() int {
	return p.config.BatchSize
}

// Warmup pre-loads the model into Ollama's memory.
func (p *Provider) Warmup(ctx context.Context) error {
	_, err := p.embedSingle(ctx, "warmup")
	return err
}

// Close releases resources.
func (p *Provider) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// Available checks if Ollama is running and the model is available.
func (p *Provider) Available(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.config.Endpoint+"/api/version", nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available at %s: %w", p.config.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	return p.checkModel(ctx)
}

// checkModel verifies the model exists.
func (p *Provider) checkModel(ctx context.Context) error {
	reqBody := map[string]any{
		"name": p.config.Model,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/api/show", bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("model %s not found, run: ollama pull %s", p.config.Model, p.config.Model)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama show failed: %s", string(body))
	}

	return nil
}

// Ensure Provider implements EmbeddingProvider interface
var _ provider.EmbeddingProvider = (*Provider)(nil)
