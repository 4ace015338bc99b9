// Package types contains shared data types used across the pipeline.
package types

import (
	"sort"
	"time"
)

// Page represents one logical documentation page extracted from a
// llms-full.txt blob. Pages are immutable once constructed.
type Page struct {
	Title         string `json:"title"`
	SourceURL     string `json:"source_url,omitempty"` // always empty for header-only sources
	Content       string `json:"content"`
	ContentLength int    `json:"content_length"` // character count of Content
}

// PageSummary is the per-page entry stored in a source manifest.
type PageSummary struct {
	Index         int    `json:"index"`
	Title         string `json:"title"`
	SourceURL     string `json:"source_url,omitempty"`
	ContentLength int    `json:"content_length"`
}

// SourceManifest aggregates metadata over all pages split from one source.
// Written once after splitting completes, read by the upload stage.
type SourceManifest struct {
	Source            string        `json:"source"`
	InputFile         string        `json:"input_file"`
	PatternType       string        `json:"pattern_type"` // with-url or header-only
	PageCount         int           `json:"page_count"`
	TotalContentChars int           `json:"total_content_chars"`
	AvgPageSize       float64       `json:"avg_page_size"`
	Pages             []PageSummary `json:"pages"`
}

// SplitReport summarizes the outcome of splitting one source.
type SplitReport struct {
	Source    string  `json:"source"`
	Status    string  `json:"status"` // success, failed, skipped
	Error     string  `json:"error,omitempty"`
	PageCount int     `json:"page_count"`
	AvgSize   float64 `json:"avg_size_chars,omitempty"`
	OutputDir string  `json:"output_dir,omitempty"`
}

// SplitManifest is the top-level manifest over all split sources.
type SplitManifest struct {
	SourcesProcessed int                    `json:"sources_processed"`
	TotalPages       int                    `json:"total_pages"`
	Results          map[string]SplitReport `json:"results"`
}

// FailedSources returns the names of sources whose split failed, sorted.
// Skipped sources are not failures.
func (m *SplitManifest) FailedSources() []string {
	var failed []string
	for name, report := range m.Results {
		if report.Status == "failed" {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

// DownloadResult records the outcome of fetching a single file.
type DownloadResult struct {
	Status    string `json:"status"` // success or failed
	Error     string `json:"error,omitempty"`
	SizeBytes int    `json:"size_bytes"`
	URL       string `json:"url"`
}

// SourceDownload holds the results for both files of one source.
type SourceDownload struct {
	Index DownloadResult `json:"llms.txt"`
	Full  DownloadResult `json:"llms-full.txt"`
}

// DownloadManifest summarizes a download run across all sources.
type DownloadManifest struct {
	CreatedAt       time.Time                 `json:"created_at"`
	DurationSeconds float64                   `json:"duration_seconds"`
	Sources         map[string]SourceDownload `json:"sources"`
	Summary         DownloadSummary           `json:"summary"`
}

// DownloadSummary holds aggregate success/failure counts.
type DownloadSummary struct {
	TotalSources int         `json:"total_sources"`
	Index        FileSummary `json:"llms_txt"`
	Full         FileSummary `json:"llms_full_txt"`
}

// FileSummary counts outcomes for one file kind across sources.
type FileSummary struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Document is a page record merged with its source-level metadata,
// ready for embedding and upload.
type Document struct {
	DocID            string  `json:"doc_id"` // <Source>_<page_num>
	PageNumber       int     `json:"page_number"`
	SourceName       string  `json:"source_name"`
	Title            string  `json:"title"`
	SourceURL        string  `json:"source_url,omitempty"`
	Content          string  `json:"content"`
	ContentLength    int     `json:"content_length"`
	TotalPages       int     `json:"total_pages"`
	AvgContentLength float64 `json:"avg_content_length"`
}

// UploadManifest records the outcome of an upload run.
type UploadManifest struct {
	UploadTimestamp    time.Time `json:"upload_timestamp"`
	CollectionName     string    `json:"collection_name"`
	DocumentsUploaded  int       `json:"documents_uploaded"`
	DocumentsTotal     int       `json:"documents_total"`
	FailedBatches      int       `json:"failed_batches,omitempty"`
	Sources            []string  `json:"sources"`
	EmbeddingModel     string    `json:"embedding_model"`
	EmbeddingDimension int       `json:"embedding_dimension"`
}

// UploadProgress reports upload pipeline progress.
type UploadProgress struct {
	Phase         string // loading, embedding, uploading
	TotalDocs     int
	ProcessedDocs int
	TotalBatches  int
	UploadedBatch int
	CurrentSource string
}

// SearchRequest describes a semantic search over the collection.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Source string `json:"source,omitempty"` // filter by source_name
}

// SearchResult is a single scored document.
type SearchResult struct {
	Score    float32  `json:"score"`
	Document Document `json:"document"`
}

// CollectionStatus describes the state of the vector collection.
type CollectionStatus struct {
	Collection  string            `json:"collection"`
	Status      string            `json:"status"`
	PointsCount uint64            `json:"points_count"`
	Dimensions  uint64            `json:"dimensions"`
	Distance    string            `json:"distance"`
	Sources     map[string]uint64 `json:"sources,omitempty"`
}
