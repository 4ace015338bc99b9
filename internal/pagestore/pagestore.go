// Package pagestore persists split pages and their manifests on disk and
// loads them back as documents ready for embedding.
package pagestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/donbr/graphiti-qdrant/internal/splitter"
	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// ManifestName is the manifest file written per source and at the top level.
const ManifestName = "manifest.json"

// Store reads and writes page files under a pages directory. Layout is one
// subdirectory per source holding numbered page JSON files plus a manifest.
type Store struct {
	pagesDir string
}

// New creates a Store rooted at pagesDir.
func New(pagesDir string) *Store {
	return &Store{pagesDir: pagesDir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.pagesDir
}

// SourceDir returns the directory holding one source's pages.
func (s *Store) SourceDir(source string) string {
	return filepath.Join(s.pagesDir, source)
}

// WriteSource writes all pages of a source plus its manifest.
func (s *Store) WriteSource(source string, pages []types.Page, manifest *types.SourceManifest) error {
	dir := s.SourceDir(source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create pages dir for %s: %w", source, err)
	}

	for i, page := range pages {
		data, err := json.MarshalIndent(page, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal page %d of %s: %w", i, source, err)
		}
		path := filepath.Join(dir, splitter.PageFileName(i, page.Title))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write page file: %w", err)
		}
	}

	return writeJSON(filepath.Join(dir, ManifestName), manifest)
}

// WriteTopManifest writes the manifest summarizing a split run over all
// sources.
func (s *Store) WriteTopManifest(m *types.SplitManifest) error {
	if err := os.MkdirAll(s.pagesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create pages dir: %w", err)
	}
	return writeJSON(filepath.Join(s.pagesDir, ManifestName), m)
}

// LoadTopManifest reads the split-run manifest back.
func (s *Store) LoadTopManifest() (*types.SplitManifest, error) {
	var m types.SplitManifest
	if err := readJSON(filepath.Join(s.pagesDir, ManifestName), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadDocuments loads every stored page and merges it with its source-level
// manifest metadata. Sources listed in the top manifest that did not split
// successfully are skipped.
func (s *Store) LoadDocuments() ([]*types.Document, error) {
	top, err := s.LoadTopManifest()
	if err != nil {
		return nil, fmt.Errorf("failed to load split manifest: %w", err)
	}

	// Deterministic source order.
	sources := make([]string, 0, len(top.Results))
	for name, report := range top.Results {
		if report.Status == "success" {
			sources = append(sources, name)
		}
	}
	sort.Strings(sources)

	var docs []*types.Document
	for _, source := range sources {
		report := top.Results[source]
		sourceDocs, err := s.loadSource(source, report)
		if err != nil {
			return nil, err
		}
		docs = append(docs, sourceDocs...)
	}
	return docs, nil
}

// loadSource loads one source's page files.
func (s *Store) loadSource(source string, report types.SplitReport) ([]*types.Document, error) {
	dir := s.SourceDir(source)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages dir for %s: %w", source, err)
	}

	var docs []*types.Document
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == ManifestName || !strings.HasSuffix(name, ".json") {
			continue
		}

		// Page number is the zero-padded filename prefix (0042_Title.json).
		prefix, _, ok := strings.Cut(strings.TrimSuffix(name, ".json"), "_")
		pageNum, perr := strconv.Atoi(prefix)
		if !ok || perr != nil {
			continue
		}

		var page types.Page
		if err := readJSON(filepath.Join(dir, name), &page); err != nil {
			return nil, fmt.Errorf("failed to read page %s: %w", name, err)
		}

		docs = append(docs, &types.Document{
			DocID:            fmt.Sprintf("%s_%s", source, prefix),
			PageNumber:       pageNum,
			SourceName:       source,
			Title:            page.Title,
			SourceURL:        page.SourceURL,
			Content:          page.Content,
			ContentLength:    page.ContentLength,
			TotalPages:       report.PageCount,
			AvgContentLength: report.AvgSize,
		})
	}
	return docs, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
