// Package search implements semantic search over the documentation
// collection.
package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/donbr/graphiti-qdrant/pkg/provider"
	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// Limit bounds applied to every request.
const (
	MinLimit            = 1
	MaxLimit            = 20
	DefaultLimit        = 5
	DefaultPreviewChars = 1000
)

// Engine handles search operations.
type Engine struct {
	store        provider.VectorStore
	embedding    provider.EmbeddingProvider
	defaultLimit int
	maxLimit     int
	previewChars int
}

// Config contains search engine configuration.
type Config struct {
	Store        provider.VectorStore
	Embedding    provider.EmbeddingProvider
	DefaultLimit int // 0 = DefaultLimit
	MaxLimit     int // 0 = MaxLimit
	PreviewChars int // 0 = DefaultPreviewChars
}

// New creates a new search engine.
func New(cfg Config) *Engine {
	e := &Engine{
		store:        cfg.Store,
		embedding:    cfg.Embedding,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		previewChars: cfg.PreviewChars,
	}
	if e.defaultLimit <= 0 {
		e.defaultLimit = DefaultLimit
	}
	if e.maxLimit <= 0 {
		e.maxLimit = MaxLimit
	}
	if e.previewChars <= 0 {
		e.previewChars = DefaultPreviewChars
	}
	return e
}

// Search embeds the query and returns the closest documents. The limit is
// clamped into [MinLimit, maxLimit]; zero means the default.
func (e *Engine) Search(ctx context.Context, req *types.SearchRequest) ([]*types.SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	limit := req.Limit
	if limit == 0 {
		limit = e.defaultLimit
	}
	limit = clamp(limit, MinLimit, e.maxLimit)

	embeddings, err := e.embedding.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrEmbeddingFailed, err)
	}

	results, err := e.store.Query(ctx, embeddings[0], limit, req.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSearchFailed, err)
	}
	return results, nil
}

// Preview truncates content to the engine's preview length, counting runes
// so multi-byte text is never cut mid-character.
func (e *Engine) Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= e.previewChars {
		return content
	}
	return string(runes[:e.previewChars]) + "..."
}

// FormatResults renders results as readable text for tool output.
func (e *Engine) FormatResults(query string, results []*types.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %s", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for: %s\n", len(results), query)

	for i, res := range results {
		doc := res.Document
		fmt.Fprintf(&sb, "\n--- Result %d (score: %.4f) ---\n", i+1, res.Score)
		fmt.Fprintf(&sb, "Title: %s\n", doc.Title)
		fmt.Fprintf(&sb, "Source: %s (page %d of %d)\n", doc.SourceName, doc.PageNumber, doc.TotalPages)
		if doc.SourceURL != "" {
			fmt.Fprintf(&sb, "URL: %s\n", doc.SourceURL)
		}
		fmt.Fprintf(&sb, "Doc ID: %s\n", doc.DocID)
		fmt.Fprintf(&sb, "\n%s\n", e.Preview(doc.Content))
		if total := utf8.RuneCountInString(doc.Content); total > e.previewChars {
			fmt.Fprintf(&sb, "[Truncated. Full content: %d chars]\n", total)
		}
	}
	return sb.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
