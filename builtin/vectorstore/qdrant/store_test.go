package qdrant

import (
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"

	"github.com/donbr/graphiti-qdrant/pkg/types"
)

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("LangChain_1")
	b := PointID("LangChain_1")
	if a != b {
		t.Errorf("PointID not deterministic: %s != %s", a, b)
	}

	c := PointID("LangChain_2")
	if a == c {
		t.Errorf("distinct doc IDs produced the same point ID: %s", a)
	}
}

func TestDocumentFromPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"doc_id":             "Anthropic_3",
		"page_number":        int64(3),
		"source_name":        "Anthropic",
		"title":              "Tool use",
		"source_url":         "https://docs.anthropic.com/tool-use",
		"content":            "Some page content",
		"content_length":     int64(17),
		"total_pages":        int64(120),
		"avg_content_length": 2500.5,
	})

	doc := documentFromPayload(payload)

	want := &types.Document{
		DocID:            "Anthropic_3",
		PageNumber:       3,
		SourceName:       "Anthropic",
		Title:            "Tool use",
		SourceURL:        "https://docs.anthropic.com/tool-use",
		Content:          "Some page content",
		ContentLength:    17,
		TotalPages:       120,
		AvgContentLength: 2500.5,
	}

	if *doc != *want {
		t.Errorf("documentFromPayload() = %+v, want %+v", doc, want)
	}
}

func TestDocumentFromPayloadMissingFields(t *testing.T) {
	// Points written before source_url was added have sparse payloads.
	payload := qdrant.NewValueMap(map[string]any{
		"doc_id":      "Zep_1",
		"source_name": "Zep",
	})

	doc := documentFromPayload(payload)
	if doc.DocID != "Zep_1" || doc.SourceName != "Zep" {
		t.Errorf("unexpected doc: %+v", doc)
	}
	if doc.SourceURL != "" || doc.PageNumber != 0 {
		t.Errorf("missing fields should zero out, got %+v", doc)
	}
}

func TestIsIndexRequired(t *testing.T) {
	indexErr := errors.New("rpc error: code = InvalidArgument desc = Index required but not found for \"source_name\" of one of the following types: [keyword]")
	if !isIndexRequired(indexErr) {
		t.Errorf("isIndexRequired(%v) = false, want true", indexErr)
	}
	if isIndexRequired(errors.New("connection refused")) {
		t.Error("unrelated error treated as missing index")
	}
	if isIndexRequired(nil) {
		t.Error("nil error treated as missing index")
	}
}

func TestFilterBySource(t *testing.T) {
	mk := func(source string, score float32) *types.SearchResult {
		return &types.SearchResult{
			Score:    score,
			Document: types.Document{SourceName: source},
		}
	}
	results := []*types.SearchResult{
		mk("Zep", 0.9),
		mk("Anthropic", 0.8),
		mk("Zep", 0.7),
		mk("Zep", 0.6),
		mk("Zep", 0.5),
	}

	got := filterBySource(results, "Zep", 3)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	for i, want := range []float32{0.9, 0.7, 0.6} {
		if got[i].Score != want {
			t.Errorf("result %d score = %v, want %v", i, got[i].Score, want)
		}
		if got[i].Document.SourceName != "Zep" {
			t.Errorf("result %d from wrong source: %s", i, got[i].Document.SourceName)
		}
	}

	if got := filterBySource(results, "Cursor", 3); len(got) != 0 {
		t.Errorf("expected no matches for absent source, got %d", len(got))
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Collection: "c"}); err == nil {
		t.Error("expected error for missing host")
	}
	if _, err := New(Config{Host: "localhost"}); err == nil {
		t.Error("expected error for missing collection")
	}
}
