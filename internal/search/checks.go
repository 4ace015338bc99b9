package search

import (
	"context"
	"fmt"

	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// SampleCheck is one verification query run against a populated collection.
type SampleCheck struct {
	Description     string
	Query           string
	Source          string   // optional source filter
	ExpectedSources []string // pass when any result comes from one of these
	Limit           int
}

// CheckResult reports the outcome of one sample check.
type CheckResult struct {
	Check   SampleCheck
	Results []*types.SearchResult
	Passed  bool
	Reason  string
}

// DefaultSampleChecks covers the major sources with both plain and
// source-filtered queries.
func DefaultSampleChecks() []SampleCheck {
	return []SampleCheck{
		{
			Description:     "RAG agent docs",
			Query:           "How do I build a RAG agent with LangChain?",
			ExpectedSources: []string{"LangChain"},
			Limit:           3,
		},
		{
			Description:     "Claude API docs",
			Query:           "What are Claude's API features and capabilities?",
			ExpectedSources: []string{"Anthropic"},
			Limit:           3,
		},
		{
			Description:     "workflow orchestration docs",
			Query:           "How does Prefect handle workflow orchestration?",
			ExpectedSources: []string{"Prefect"},
			Limit:           3,
		},
		{
			Description:     "MCP server docs",
			Query:           "Explain MCP server implementation",
			ExpectedSources: []string{"FastMCP", "McpProtocol", "Anthropic"},
			Limit:           3,
		},
		{
			Description: "filtered to Anthropic",
			Query:       "API authentication",
			Source:      "Anthropic",
			Limit:       3,
		},
		{
			Description: "filtered to Zep",
			Query:       "graph memory",
			Source:      "Zep",
			Limit:       3,
		},
	}
}

// RunChecks executes each sample check through the engine. A check passes
// when it returns results, every result honors the source filter, and at
// least one result comes from an expected source.
func (e *Engine) RunChecks(ctx context.Context, checks []SampleCheck) []CheckResult {
	out := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		out = append(out, e.runCheck(ctx, check))
	}
	return out
}

func (e *Engine) runCheck(ctx context.Context, check SampleCheck) CheckResult {
	res := CheckResult{Check: check}

	results, err := e.Search(ctx, &types.SearchRequest{
		Query:  check.Query,
		Limit:  check.Limit,
		Source: check.Source,
	})
	if err != nil {
		res.Reason = fmt.Sprintf("search failed: %v", err)
		return res
	}
	res.Results = results

	if len(results) == 0 {
		res.Reason = "no results returned"
		return res
	}

	if check.Source != "" {
		for _, r := range results {
			if r.Document.SourceName != check.Source {
				res.Reason = fmt.Sprintf("result from %s leaked past %s filter", r.Document.SourceName, check.Source)
				return res
			}
		}
	}

	if len(check.ExpectedSources) > 0 && !anySourceIn(results, check.ExpectedSources) {
		res.Reason = fmt.Sprintf("expected sources %v not in top %d results", check.ExpectedSources, len(results))
		return res
	}

	res.Passed = true
	return res
}

func anySourceIn(results []*types.SearchResult, sources []string) bool {
	for _, r := range results {
		for _, s := range sources {
			if r.Document.SourceName == s {
				return true
			}
		}
	}
	return false
}
