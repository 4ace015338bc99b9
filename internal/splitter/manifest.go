package splitter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/donbr/graphiti-qdrant/pkg/types"
)

var (
	// Unicode letters and digits stay in filenames, so non-ASCII titles
	// keep their text.
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// PageFileName builds the on-disk name for a page record. The zero-padded
// running index keeps names unique even when titles collide.
func PageFileName(index int, title string) string {
	safe := unsafeChars.ReplaceAllString(title, "")
	if r := []rune(safe); len(r) > 50 {
		safe = string(r[:50])
	}
	safe = strings.TrimSpace(safe)
	safe = whitespace.ReplaceAllString(safe, "_")
	return fmt.Sprintf("%04d_%s.json", index, safe)
}

// BuildManifest aggregates split results for one source.
func BuildManifest(source, inputFile string, strategy Strategy, pages []types.Page) *types.SourceManifest {
	m := &types.SourceManifest{
		Source:      source,
		InputFile:   inputFile,
		PatternType: string(strategy),
		PageCount:   len(pages),
		Pages:       make([]types.PageSummary, len(pages)),
	}

	total := 0
	for i, p := range pages {
		total += p.ContentLength
		m.Pages[i] = types.PageSummary{
			Index:         i,
			Title:         p.Title,
			SourceURL:     p.SourceURL,
			ContentLength: p.ContentLength,
		}
	}
	m.TotalContentChars = total
	if len(pages) > 0 {
		m.AvgPageSize = float64(total) / float64(len(pages))
	}
	return m
}
