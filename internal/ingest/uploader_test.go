package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/donbr/graphiti-qdrant/pkg/types"
)

type fakeEmbedder struct {
	dims  int
	calls int
	mu    sync.Mutex
}

func (f *fakeEmbedder) Name() string      { return "fake" }
func (f *fakeEmbedder) Dimensions() int   { return f.dims }
func (f *fakeEmbedder) MaxBatchSize() int { return 100 }
func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEmbedder) Available(ctx context.Context) error { return nil }
func (f *fakeEmbedder) Warmup(ctx context.Context) error    { return nil }
func (f *fakeEmbedder) Close() error                        { return nil }

type fakeStore struct {
	mu       sync.Mutex
	upserted int
	failOn   int // 1-based upsert call that fails, 0 = never
	calls    int
}

func (f *fakeStore) EnsureCollection(ctx context.Context) error  { return nil }
func (f *fakeStore) EnsureSourceIndex(ctx context.Context) error { return nil }
func (f *fakeStore) Upsert(ctx context.Context, docs []*types.Document, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return fmt.Errorf("simulated upsert failure")
	}
	if len(docs) != len(vectors) {
		return fmt.Errorf("length mismatch")
	}
	f.upserted += len(docs)
	return nil
}
func (f *fakeStore) Query(ctx context.Context, vector []float32, limit int, source string) ([]*types.SearchResult, error) {
	return nil, nil
}
func (f *fakeStore) Count(ctx context.Context, source string) (uint64, error) { return 0, nil }
func (f *fakeStore) SourceCounts(ctx context.Context, sources []string) (map[string]uint64, error) {
	return nil, nil
}
func (f *fakeStore) Info(ctx context.Context) (*types.CollectionStatus, error) { return nil, nil }
func (f *fakeStore) Close() error                                              { return nil }

func makeDocs(n int) []*types.Document {
	docs := make([]*types.Document, n)
	for i := range docs {
		docs[i] = &types.Document{
			DocID:      fmt.Sprintf("Example_%04d", i),
			PageNumber: i,
			SourceName: "Example",
			Content:    fmt.Sprintf("page %d", i),
		}
	}
	return docs
}

func TestUploaderRun(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{dims: 8}
	u := NewUploader(store, embedder, 10, 3)

	var progressCalls int
	var mu sync.Mutex
	u.OnProgress(func(p types.UploadProgress) {
		mu.Lock()
		progressCalls++
		mu.Unlock()
	})

	manifest, err := u.Run(context.Background(), makeDocs(25), "test-collection")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if manifest.DocumentsUploaded != 25 {
		t.Errorf("uploaded = %d, want 25", manifest.DocumentsUploaded)
	}
	if manifest.DocumentsTotal != 25 {
		t.Errorf("total = %d, want 25", manifest.DocumentsTotal)
	}
	if manifest.FailedBatches != 0 {
		t.Errorf("failed batches = %d, want 0", manifest.FailedBatches)
	}
	if store.upserted != 25 {
		t.Errorf("store received %d docs, want 25", store.upserted)
	}
	if store.calls != 3 { // 25 docs / batch size 10
		t.Errorf("upsert calls = %d, want 3", store.calls)
	}
	if manifest.EmbeddingModel != "fake" || manifest.EmbeddingDimension != 8 {
		t.Errorf("embedding metadata = %s/%d", manifest.EmbeddingModel, manifest.EmbeddingDimension)
	}
	if len(manifest.Sources) != 1 || manifest.Sources[0] != "Example" {
		t.Errorf("sources = %v", manifest.Sources)
	}
	if progressCalls != 3 {
		t.Errorf("progress calls = %d, want 3", progressCalls)
	}
}

func TestUploaderFailedBatchDoesNotAbort(t *testing.T) {
	store := &fakeStore{failOn: 1}
	u := NewUploader(store, &fakeEmbedder{dims: 4}, 10, 1)

	manifest, err := u.Run(context.Background(), makeDocs(25), "test-collection")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if manifest.FailedBatches != 1 {
		t.Errorf("failed batches = %d, want 1", manifest.FailedBatches)
	}
	if manifest.DocumentsUploaded != 15 {
		t.Errorf("uploaded = %d, want 15", manifest.DocumentsUploaded)
	}
}

func TestUploaderEmptyInput(t *testing.T) {
	u := NewUploader(&fakeStore{}, &fakeEmbedder{dims: 4}, 10, 2)
	manifest, err := u.Run(context.Background(), nil, "test-collection")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if manifest.DocumentsUploaded != 0 || manifest.DocumentsTotal != 0 {
		t.Errorf("manifest = %+v", manifest)
	}
}
