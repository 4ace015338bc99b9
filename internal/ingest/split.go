// Package ingest orchestrates the pipeline stages that move raw
// documentation files into the vector collection: splitting raw blobs into
// pages, embedding, and batch upload.
package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/donbr/graphiti-qdrant/internal/config"
	"github.com/donbr/graphiti-qdrant/internal/fetch"
	"github.com/donbr/graphiti-qdrant/internal/pagestore"
	"github.com/donbr/graphiti-qdrant/internal/splitter"
	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// Splitter turns downloaded llms-full.txt files into page records on disk.
type Splitter struct {
	rawDir string
	store  *pagestore.Store
}

// NewSplitter creates a Splitter reading from rawDir and writing through
// store.
func NewSplitter(rawDir string, store *pagestore.Store) *Splitter {
	return &Splitter{rawDir: rawDir, store: store}
}

// SplitAll processes every source that has a strategy assigned and writes
// the per-source pages plus the run manifest. Sources whose raw file is
// missing are reported as skipped; sources whose pattern matches nothing
// are reported as failed. Neither aborts the run.
func (s *Splitter) SplitAll(sources []config.SourceConfig) (*types.SplitManifest, error) {
	manifest := &types.SplitManifest{
		Results: make(map[string]types.SplitReport, len(sources)),
	}

	for _, src := range sources {
		report := s.splitSource(src)
		manifest.Results[src.Name] = report
		if report.Status == "success" {
			manifest.SourcesProcessed++
			manifest.TotalPages += report.PageCount
		}

		switch report.Status {
		case "success":
			slog.Info("Split source",
				"source", src.Name,
				"pages", report.PageCount,
				"avg_chars", int(report.AvgSize))
		case "skipped":
			slog.Warn("Skipped source", "source", src.Name, "reason", report.Error)
		default:
			slog.Error("Failed to split source", "source", src.Name, "error", report.Error)
		}
	}

	if err := s.store.WriteTopManifest(manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// SplitSource re-splits a single source, leaving the rest of the run
// manifest intact. Used by the watcher when a raw file changes.
func (s *Splitter) SplitSource(src config.SourceConfig) (types.SplitReport, error) {
	report := s.splitSource(src)

	manifest, err := s.store.LoadTopManifest()
	if err != nil {
		if !os.IsNotExist(err) {
			return report, err
		}
		manifest = &types.SplitManifest{Results: map[string]types.SplitReport{}}
	}

	prev, existed := manifest.Results[src.Name]
	manifest.Results[src.Name] = report

	if existed && prev.Status == "success" {
		manifest.SourcesProcessed--
		manifest.TotalPages -= prev.PageCount
	}
	if report.Status == "success" {
		manifest.SourcesProcessed++
		manifest.TotalPages += report.PageCount
	}

	if err := s.store.WriteTopManifest(manifest); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Splitter) splitSource(src config.SourceConfig) types.SplitReport {
	report := types.SplitReport{Source: src.Name}

	strategy, err := splitter.ParseStrategy(src.Strategy)
	if err != nil {
		report.Status = "failed"
		report.Error = err.Error()
		return report
	}

	inputPath := fetch.RawFilePath(s.rawDir, src.Name)
	data, err := os.ReadFile(inputPath)
	if err != nil {
		report.Status = "skipped"
		report.Error = fmt.Sprintf("file not found: %s", inputPath)
		return report
	}

	pages, err := splitter.Split(string(data), strategy)
	if err != nil {
		report.Status = "failed"
		if errors.Is(err, types.ErrNoPages) {
			report.Error = "no pages found - check splitting pattern"
		} else {
			report.Error = err.Error()
		}
		return report
	}

	manifest := splitter.BuildManifest(src.Name, inputPath, strategy, pages)
	if err := s.store.WriteSource(src.Name, pages, manifest); err != nil {
		report.Status = "failed"
		report.Error = err.Error()
		return report
	}

	report.Status = "success"
	report.PageCount = len(pages)
	report.AvgSize = manifest.AvgPageSize
	report.OutputDir = s.store.SourceDir(src.Name)
	return report
}
