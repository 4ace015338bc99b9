// Package fetch downloads llms.txt and llms-full.txt files from
// documentation sources into the local raw data directory.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/donbr/graphiti-qdrant/internal/config"
	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// File names written under rawDir/<Source>/.
const (
	IndexFileName = "llms.txt"
	FullFileName  = "llms-full.txt"
	ManifestName  = "manifest.json"
)

// DefaultConcurrency bounds the number of sources fetched in parallel.
const DefaultConcurrency = 4

// Downloader fetches documentation files over HTTP.
type Downloader struct {
	client      *http.Client
	rawDir      string
	concurrency int
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithConcurrency bounds parallel source downloads.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// New creates a Downloader writing under rawDir.
func New(rawDir string, opts ...Option) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		rawDir:      rawDir,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadAll fetches llms.txt and llms-full.txt for every source and
// writes a manifest summarizing the run. Individual failures are recorded
// in the manifest rather than aborting the run.
func (d *Downloader) DownloadAll(ctx context.Context, sources []config.SourceConfig) (*types.DownloadManifest, error) {
	if err := os.MkdirAll(d.rawDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create raw dir: %w", err)
	}

	start := time.Now()

	var mu sync.Mutex
	results := make(map[string]types.SourceDownload, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, src := range sources {
		g.Go(func() error {
			res := d.downloadSource(gctx, src)
			mu.Lock()
			results[src.Name] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	manifest := &types.DownloadManifest{
		CreatedAt:       time.Now().UTC(),
		DurationSeconds: time.Since(start).Seconds(),
		Sources:         results,
		Summary:         summarize(results),
	}

	if err := d.saveManifest(manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// downloadSource fetches both files for one source into rawDir/<Name>/.
func (d *Downloader) downloadSource(ctx context.Context, src config.SourceConfig) types.SourceDownload {
	dir := filepath.Join(d.rawDir, src.Name)

	return types.SourceDownload{
		Index: d.downloadFile(ctx, src.LlmsURL, filepath.Join(dir, IndexFileName)),
		Full:  d.downloadFile(ctx, src.LlmsFullURL, filepath.Join(dir, FullFileName)),
	}
}

// downloadFile fetches a single URL to disk, reporting the outcome instead
// of returning an error so one bad source does not stop the others.
func (d *Downloader) downloadFile(ctx context.Context, url, path string) types.DownloadResult {
	if url == "" {
		return types.DownloadResult{Status: "failed", Error: "no URL configured"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.DownloadResult{Status: "failed", Error: err.Error(), URL: url}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		slog.Warn("Download failed", "url", url, "error", err)
		return types.DownloadResult{Status: "failed", Error: err.Error(), URL: url}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Download failed", "url", url, "status", resp.StatusCode)
		return types.DownloadResult{
			Status: "failed",
			Error:  fmt.Sprintf("HTTP %d", resp.StatusCode),
			URL:    url,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.DownloadResult{Status: "failed", Error: err.Error(), URL: url}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.DownloadResult{Status: "failed", Error: err.Error(), URL: url}
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return types.DownloadResult{Status: "failed", Error: err.Error(), URL: url}
	}

	slog.Debug("Downloaded", "url", url, "bytes", len(body))
	return types.DownloadResult{
		Status:    "success",
		SizeBytes: len(body),
		URL:       url,
	}
}

// saveManifest writes the run manifest to rawDir/manifest.json.
func (d *Downloader) saveManifest(m *types.DownloadManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal download manifest: %w", err)
	}
	path := filepath.Join(d.rawDir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write download manifest: %w", err)
	}
	return nil
}

// summarize aggregates per-file success and failure counts.
func summarize(results map[string]types.SourceDownload) types.DownloadSummary {
	s := types.DownloadSummary{TotalSources: len(results)}
	for _, r := range results {
		if r.Index.Status == "success" {
			s.Index.Success++
		} else {
			s.Index.Failed++
		}
		if r.Full.Status == "success" {
			s.Full.Success++
		} else {
			s.Full.Failed++
		}
	}
	return s
}

// RawFilePath returns the path of the llms-full.txt file for a source.
func RawFilePath(rawDir, sourceName string) string {
	return filepath.Join(rawDir, sourceName, FullFileName)
}
