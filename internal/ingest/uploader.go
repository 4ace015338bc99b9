package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/donbr/graphiti-qdrant/pkg/provider"
	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// UploadManifestName is the file recording the last upload run.
const UploadManifestName = "upload_manifest.json"

// ProgressFunc receives progress updates during an upload run.
type ProgressFunc func(types.UploadProgress)

// Uploader embeds documents and upserts them into the vector store in
// parallel batches.
type Uploader struct {
	store     provider.VectorStore
	embedder  provider.EmbeddingProvider
	batchSize int
	workers   int
	progress  ProgressFunc
}

// NewUploader creates an Uploader. batchSize and workers fall back to
// sensible defaults when zero.
func NewUploader(store provider.VectorStore, embedder provider.EmbeddingProvider, batchSize, workers int) *Uploader {
	if batchSize <= 0 {
		batchSize = 100
	}
	if workers <= 0 {
		workers = 4
	}
	return &Uploader{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		workers:   workers,
	}
}

// OnProgress registers a progress callback. Callbacks run on worker
// goroutines and must be fast.
func (u *Uploader) OnProgress(fn ProgressFunc) {
	u.progress = fn
}

type batchResult struct {
	count int
	err   error
}

// Run embeds and uploads all documents. The collection is created first if
// needed. A batch that fails is logged and counted but does not stop the
// other batches.
func (u *Uploader) Run(ctx context.Context, docs []*types.Document, collection string) (*types.UploadManifest, error) {
	if err := u.store.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	if err := u.store.EnsureSourceIndex(ctx); err != nil {
		slog.Warn("Could not create source payload index", "error", err)
	}

	batches := u.batch(docs)
	slog.Info("Starting upload",
		"documents", len(docs),
		"batches", len(batches),
		"batch_size", u.batchSize,
		"workers", u.workers)

	batchCh := make(chan []*types.Document)
	resultCh := make(chan batchResult, len(batches))

	var wg sync.WaitGroup
	for range u.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchCh {
				resultCh <- u.uploadBatch(ctx, batch)
			}
		}()
	}

	go func() {
		defer close(batchCh)
		for _, b := range batches {
			select {
			case batchCh <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	uploaded := 0
	failed := 0
	done := 0
	for res := range resultCh {
		done++
		if res.err != nil {
			failed++
			slog.Error("Batch upload failed", "error", res.err)
		} else {
			uploaded += res.count
		}
		if u.progress != nil {
			u.progress(types.UploadProgress{
				Phase:         "uploading",
				TotalDocs:     len(docs),
				ProcessedDocs: uploaded,
				TotalBatches:  len(batches),
				UploadedBatch: done,
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest := &types.UploadManifest{
		UploadTimestamp:    time.Now().UTC(),
		CollectionName:     collection,
		DocumentsUploaded:  uploaded,
		DocumentsTotal:     len(docs),
		FailedBatches:      failed,
		Sources:            sourceNames(docs),
		EmbeddingModel:     u.embedder.Name(),
		EmbeddingDimension: u.embedder.Dimensions(),
	}

	slog.Info("Upload complete",
		"uploaded", uploaded,
		"total", len(docs),
		"failed_batches", failed)
	return manifest, nil
}

// uploadBatch embeds one batch and upserts it.
func (u *Uploader) uploadBatch(ctx context.Context, batch []*types.Document) batchResult {
	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = doc.Content
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return batchResult{err: fmt.Errorf("embedding batch of %d: %w", len(batch), err)}
	}

	if err := u.store.Upsert(ctx, batch, vectors); err != nil {
		return batchResult{err: err}
	}
	return batchResult{count: len(batch)}
}

// batch splits docs into batchSize-sized slices.
func (u *Uploader) batch(docs []*types.Document) [][]*types.Document {
	var batches [][]*types.Document
	for i := 0; i < len(docs); i += u.batchSize {
		end := i + u.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, docs[i:end])
	}
	return batches
}

// sourceNames returns the distinct source names present in docs, sorted.
func sourceNames(docs []*types.Document) []string {
	seen := map[string]bool{}
	for _, d := range docs {
		seen[d.SourceName] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveUploadManifest writes the upload manifest under processedDir.
func SaveUploadManifest(processedDir string, m *types.UploadManifest) error {
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return fmt.Errorf("failed to create processed dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal upload manifest: %w", err)
	}
	path := filepath.Join(processedDir, UploadManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write upload manifest: %w", err)
	}
	return nil
}
