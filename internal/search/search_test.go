package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/donbr/graphiti-qdrant/pkg/types"
)

type stubEmbedder struct{}

func (stubEmbedder) Name() string      { return "stub" }
func (stubEmbedder) Dimensions() int   { return 4 }
func (stubEmbedder) MaxBatchSize() int { return 10 }
func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}
func (stubEmbedder) Available(ctx context.Context) error { return nil }
func (stubEmbedder) Warmup(ctx context.Context) error    { return nil }
func (stubEmbedder) Close() error                        { return nil }

type failingEmbedder struct{ stubEmbedder }

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("model unreachable")
}

type stubStore struct {
	lastLimit  int
	lastSource string
	results    []*types.SearchResult
	queryErr   error
}

func (s *stubStore) EnsureCollection(ctx context.Context) error  { return nil }
func (s *stubStore) EnsureSourceIndex(ctx context.Context) error { return nil }
func (s *stubStore) Upsert(ctx context.Context, docs []*types.Document, vectors [][]float32) error {
	return nil
}
func (s *stubStore) Query(ctx context.Context, vector []float32, limit int, source string) ([]*types.SearchResult, error) {
	s.lastLimit = limit
	s.lastSource = source
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.results, nil
}
func (s *stubStore) Count(ctx context.Context, source string) (uint64, error) { return 0, nil }
func (s *stubStore) SourceCounts(ctx context.Context, sources []string) (map[string]uint64, error) {
	return nil, nil
}
func (s *stubStore) Info(ctx context.Context) (*types.CollectionStatus, error) { return nil, nil }
func (s *stubStore) Close() error                                              { return nil }

func TestSearchClampsLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"zero uses default", 0, 5},
		{"negative clamps to min", -3, 1},
		{"in range passes through", 7, 7},
		{"above max clamps", 100, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{}
			e := New(Config{Store: store, Embedding: stubEmbedder{}})

			_, err := e.Search(context.Background(), &types.SearchRequest{Query: "q", Limit: tt.limit})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if store.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", store.lastLimit, tt.wantLimit)
			}
		})
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	e := New(Config{Store: &stubStore{}, Embedding: stubEmbedder{}})
	if _, err := e.Search(context.Background(), &types.SearchRequest{Query: "   "}); err == nil {
		t.Error("expected error for blank query")
	}
}

func TestSearchPassesSourceFilter(t *testing.T) {
	store := &stubStore{}
	e := New(Config{Store: store, Embedding: stubEmbedder{}})

	_, err := e.Search(context.Background(), &types.SearchRequest{Query: "q", Source: "LangChain"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if store.lastSource != "LangChain" {
		t.Errorf("source = %q, want LangChain", store.lastSource)
	}
}

func TestPreview(t *testing.T) {
	e := New(Config{Store: &stubStore{}, Embedding: stubEmbedder{}, PreviewChars: 10})

	if got := e.Preview("short"); got != "short" {
		t.Errorf("Preview(short) = %q", got)
	}

	long := strings.Repeat("ébédé", 4) // 20 runes, 2 bytes each
	got := e.Preview(long)
	if len([]rune(got)) != 13 { // 10 runes + "..."
		t.Errorf("preview rune length = %d, want 13", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("preview = %q, want ... suffix", got)
	}
}

func TestFormatResults(t *testing.T) {
	e := New(Config{Store: &stubStore{}, Embedding: stubEmbedder{}})

	out := e.FormatResults("tools", []*types.SearchResult{
		{
			Score: 0.91,
			Document: types.Document{
				DocID:      "Anthropic_0003",
				Title:      "Tool use",
				SourceName: "Anthropic",
				SourceURL:  "https://docs.anthropic.com/tool-use",
				PageNumber: 3,
				TotalPages: 120,
				Content:    "How to use tools.",
			},
		},
	})

	for _, want := range []string{"Found 1 results", "Tool use", "Anthropic", "page 3 of 120", "https://docs.anthropic.com/tool-use", "Doc ID: Anthropic_0003"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[Truncated.") {
		t.Errorf("short content should not carry a truncation note:\n%s", out)
	}

	empty := e.FormatResults("nothing", nil)
	if !strings.Contains(empty, "No results found") {
		t.Errorf("empty output = %q", empty)
	}
}

func TestFormatResultsTruncationNote(t *testing.T) {
	e := New(Config{Store: &stubStore{}, Embedding: stubEmbedder{}, PreviewChars: 10})

	out := e.FormatResults("q", []*types.SearchResult{
		{Document: types.Document{
			DocID:   "Zep_0001",
			Content: strings.Repeat("ébédé", 4), // 20 runes
		}},
	})

	if !strings.Contains(out, "[Truncated. Full content: 20 chars]") {
		t.Errorf("output missing truncation note:\n%s", out)
	}
}

func TestSearchErrorSentinels(t *testing.T) {
	e := New(Config{Store: &stubStore{}, Embedding: failingEmbedder{}})
	_, err := e.Search(context.Background(), &types.SearchRequest{Query: "q"})
	if !errors.Is(err, types.ErrEmbeddingFailed) {
		t.Errorf("embed error = %v, want ErrEmbeddingFailed", err)
	}

	e = New(Config{Store: &stubStore{queryErr: errors.New("down")}, Embedding: stubEmbedder{}})
	_, err = e.Search(context.Background(), &types.SearchRequest{Query: "q"})
	if !errors.Is(err, types.ErrSearchFailed) {
		t.Errorf("query error = %v, want ErrSearchFailed", err)
	}
}

func TestRunChecks(t *testing.T) {
	anthropic := &types.SearchResult{Document: types.Document{SourceName: "Anthropic"}}
	zep := &types.SearchResult{Document: types.Document{SourceName: "Zep"}}

	tests := []struct {
		name       string
		results    []*types.SearchResult
		check      SampleCheck
		wantPassed bool
		wantReason string
	}{
		{
			name:       "expected source found",
			results:    []*types.SearchResult{zep, anthropic},
			check:      SampleCheck{Query: "q", ExpectedSources: []string{"Anthropic"}, Limit: 3},
			wantPassed: true,
		},
		{
			name:       "expected source missing",
			results:    []*types.SearchResult{zep},
			check:      SampleCheck{Query: "q", ExpectedSources: []string{"Anthropic"}, Limit: 3},
			wantReason: "expected sources",
		},
		{
			name:       "no results",
			results:    nil,
			check:      SampleCheck{Query: "q", Limit: 3},
			wantReason: "no results",
		},
		{
			name:       "filter leak",
			results:    []*types.SearchResult{anthropic, zep},
			check:      SampleCheck{Query: "q", Source: "Anthropic", Limit: 3},
			wantReason: "leaked past",
		},
		{
			name:       "filter honored",
			results:    []*types.SearchResult{anthropic},
			check:      SampleCheck{Query: "q", Source: "Anthropic", Limit: 3},
			wantPassed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Config{Store: &stubStore{results: tt.results}, Embedding: stubEmbedder{}})

			out := e.RunChecks(context.Background(), []SampleCheck{tt.check})
			if len(out) != 1 {
				t.Fatalf("got %d results, want 1", len(out))
			}
			if out[0].Passed != tt.wantPassed {
				t.Errorf("Passed = %v (reason %q), want %v", out[0].Passed, out[0].Reason, tt.wantPassed)
			}
			if tt.wantReason != "" && !strings.Contains(out[0].Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to mention %q", out[0].Reason, tt.wantReason)
			}
		})
	}
}
