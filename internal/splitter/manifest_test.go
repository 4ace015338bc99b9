package splitter

import (
	"testing"

	"github.com/donbr/graphiti-qdrant/pkg/types"
)

func TestPageFileName(t *testing.T) {
	tests := []struct {
		name  string
		index int
		title string
		want  string
	}{
		{"simple", 0, "Intro", "0000_Intro.json"},
		{"spaces", 12, "Getting Started Guide", "0012_Getting_Started_Guide.json"},
		{"punctuation stripped", 3, "What's new? (v2.1)", "0003_Whats_new_v21.json"},
		{"empty title", 7, "", "0007_.json"},
		{"non-ascii letters kept", 2, "Héading für Español", "0002_Héading_für_Español.json"},
		{"cjk kept", 8, "入門ガイド (v2)", "0008_入門ガイド_v2.json"},
		{"long title truncated", 1, "aaaaaaaaaabbbbbbbbbbccccccccccddddddddddeeeeeeeeeeffff", "0001_aaaaaaaaaabbbbbbbbbbccccccccccddddddddddeeeeeeeeee.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageFileName(tt.index, tt.title); got != tt.want {
				t.Errorf("PageFileName(%d, %q) = %q, want %q", tt.index, tt.title, got, tt.want)
			}
		})
	}
}

func TestPageFileNameDisambiguatesDuplicates(t *testing.T) {
	a := PageFileName(4, "Overview")
	b := PageFileName(5, "Overview")
	if a == b {
		t.Errorf("duplicate titles collided: %q", a)
	}
}

func TestBuildManifest(t *testing.T) {
	pages := []types.Page{
		{Title: "A", SourceURL: "https://example.com/a", Content: "12345", ContentLength: 5},
		{Title: "B", Content: "123", ContentLength: 3},
	}

	m := BuildManifest("LangChain", "data/raw/LangChain/llms-full.txt", StrategyWithURL, pages)

	if m.Source != "LangChain" || m.PatternType != "with-url" {
		t.Errorf("manifest header = %+v", m)
	}
	if m.PageCount != 2 || m.TotalContentChars != 8 {
		t.Errorf("counts = %d pages, %d chars", m.PageCount, m.TotalContentChars)
	}
	if m.AvgPageSize != 4 {
		t.Errorf("AvgPageSize = %v, want 4", m.AvgPageSize)
	}
	if m.Pages[1].Index != 1 || m.Pages[1].Title != "B" {
		t.Errorf("page summary = %+v", m.Pages[1])
	}
}

func TestBuildManifestEmpty(t *testing.T) {
	m := BuildManifest("Zep", "in.txt", StrategyHeaderOnly, nil)
	if m.PageCount != 0 || m.AvgPageSize != 0 {
		t.Errorf("empty manifest = %+v", m)
	}
}
