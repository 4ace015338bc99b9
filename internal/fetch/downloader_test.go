package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/donbr/graphiti-qdrant/internal/config"
)

func TestDownloadAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good/llms.txt":
			w.Write([]byte("# Index\n"))
		case "/good/llms-full.txt":
			w.Write([]byte("# Page One\nSource: https://example.com/one\n\nContent here.\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rawDir := t.TempDir()
	d := New(rawDir, WithConcurrency(2))

	sources := []config.SourceConfig{
		{Name: "Good", LlmsURL: srv.URL + "/good/llms.txt", LlmsFullURL: srv.URL + "/good/llms-full.txt"},
		{Name: "Missing", LlmsURL: srv.URL + "/missing/llms.txt", LlmsFullURL: srv.URL + "/missing/llms-full.txt"},
	}

	manifest, err := d.DownloadAll(context.Background(), sources)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	if manifest.Summary.TotalSources != 2 {
		t.Errorf("total sources = %d, want 2", manifest.Summary.TotalSources)
	}
	if manifest.Summary.Full.Success != 1 || manifest.Summary.Full.Failed != 1 {
		t.Errorf("llms-full summary = %+v", manifest.Summary.Full)
	}

	good := manifest.Sources["Good"]
	if good.Full.Status != "success" {
		t.Errorf("Good llms-full status = %q", good.Full.Status)
	}
	if good.Full.SizeBytes == 0 {
		t.Error("expected non-zero size for successful download")
	}

	missing := manifest.Sources["Missing"]
	if missing.Full.Status != "failed" || missing.Full.Error != "HTTP 404" {
		t.Errorf("Missing llms-full = %+v", missing.Full)
	}

	// Files land under rawDir/<Source>/
	data, err := os.ReadFile(RawFilePath(rawDir, "Good"))
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if len(data) == 0 {
		t.Error("downloaded file is empty")
	}

	// Manifest written alongside
	if _, err := os.Stat(filepath.Join(rawDir, ManifestName)); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestDownloadFileNoURL(t *testing.T) {
	d := New(t.TempDir())
	res := d.downloadFile(context.Background(), "", "out.txt")
	if res.Status != "failed" {
		t.Errorf("status = %q, want failed", res.Status)
	}
}
