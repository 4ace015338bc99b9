// Package mcp implements the MCP server exposing documentation search.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/donbr/graphiti-qdrant/internal/config"
	"github.com/donbr/graphiti-qdrant/internal/search"
	"github.com/donbr/graphiti-qdrant/pkg/provider"
	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// Server implements the MCP server.
type Server struct {
	mcpServer *server.MCPServer
	config    *config.Config
	store     provider.VectorStore
	embedding provider.EmbeddingProvider
	search    *search.Engine
	version   string
}

// Config contains server configuration.
type Config struct {
	Config    *config.Config
	Store     provider.VectorStore
	Embedding provider.EmbeddingProvider
	Version   string
}

// New creates a new MCP server.
func New(cfg Config) (*Server, error) {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		config:    cfg.Config,
		store:     cfg.Store,
		embedding: cfg.Embedding,
		version:   version,
	}

	s.search = search.New(search.Config{
		Store:        cfg.Store,
		Embedding:    cfg.Embedding,
		DefaultLimit: cfg.Config.Search.DefaultLimit,
		MaxLimit:     cfg.Config.Search.MaxLimit,
		PreviewChars: cfg.Config.Search.PreviewChars,
	})

	mcpServer := server.NewMCPServer(
		"graphiti-qdrant",
		version,
		server.WithLogging(),
	)

	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s, nil
}

// registerTools registers all MCP tools.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	// search_docs - Semantic documentation search
	mcpServer.AddTool(mcp.NewTool("search_docs",
		mcp.WithDescription("Search vendor documentation using semantic similarity"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum results, 1-20 (default 5)")),
		mcp.WithString("source", mcp.Description("Filter by source name, e.g. LangChain, Anthropic")),
	), s.handleSearchDocs)

	// list_sources - List indexed documentation sources
	mcpServer.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List available documentation sources with page counts"),
	), s.handleListSources)

	// get_status - Collection status
	mcpServer.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Get vector collection status and statistics"),
	), s.handleGetStatus)
}

// handleSearchDocs handles the search_docs tool.
func (s *Server) handleSearchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	limit := req.GetInt("limit", 0)
	source := req.GetString("source", "")

	results, err := s.search.Search(ctx, &types.SearchRequest{
		Query:  query,
		Limit:  limit,
		Source: source,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(s.search.FormatResults(query, results)), nil
}

// sourceEntry is one row of the list_sources response.
type sourceEntry struct {
	Name      string `json:"name"`
	PageCount uint64 `json:"page_count"`
	Indexed   bool   `json:"indexed"`
}

// handleListSources handles the list_sources tool. Counts come from the
// live collection, so sources that were downloaded but never uploaded show
// as not indexed.
func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := make([]string, 0, len(s.config.Sources))
	for _, src := range s.config.Sources {
		names = append(names, src.Name)
	}

	counts, err := s.store.SourceCounts(ctx, names)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to count sources: %v", err)), nil
	}

	entries := make([]sourceEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, sourceEntry{
			Name:      name,
			PageCount: counts[name],
			Indexed:   counts[name] > 0,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	jsonResult, err := json.MarshalIndent(map[string]any{
		"sources": entries,
		"total":   len(entries),
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonResult)), nil
}

// handleGetStatus handles the get_status tool.
func (s *Server) handleGetStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.store.Info(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get collection info: %v", err)), nil
	}

	names := make([]string, 0, len(s.config.Sources))
	for _, src := range s.config.Sources {
		names = append(names, src.Name)
	}
	if counts, err := s.store.SourceCounts(ctx, names); err == nil {
		status.Sources = counts
	}

	jsonResult, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonResult)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
