// Package splitter turns a raw llms-full.txt blob into discrete page records.
//
// Two delimiter conventions exist in the wild: most vendors emit a
// "# Title" line immediately followed by a "Source: <url>" line per page,
// while a few emit bare "# Title" headers only. The strategy is configured
// per source, never auto-detected.
package splitter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// Strategy selects the boundary-recognition convention for a source.
type Strategy string

const (
	// StrategyWithURL recognizes a boundary only where a "# Title" line is
	// immediately followed by a "Source: http(s)://..." line.
	StrategyWithURL Strategy = "with-url"

	// StrategyHeaderOnly recognizes any "# Title" line as a boundary,
	// after neutralizing header-like lines inside fenced code blocks.
	StrategyHeaderOnly Strategy = "header-only"
)

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyWithURL, StrategyHeaderOnly:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown split strategy: %q (valid: with-url, header-only)", s)
}

var (
	// # Title followed by Source: URL on the very next line.
	pageWithURL = regexp.MustCompile(`(?m)^# (.+)$\nSource: (https?://[^\n]+)`)

	// # Title at start of line.
	pageHeaderOnly = regexp.MustCompile(`(?m)^# (.+)$`)

	// A fenced code block, opening fence to the next closing fence,
	// non-greedy, spanning lines.
	fencedBlock = regexp.MustCompile("(?s)```.*?```")

	// A header-like line inside a fenced block.
	blockHeader = regexp.MustCompile(`(?m)^# `)
)

// Split converts raw text into an ordered sequence of page records.
//
// If the strategy's pattern matches zero times the result is
// types.ErrNoPages, never a single page containing the whole input.
func Split(text string, strategy Strategy) ([]types.Page, error) {
	switch strategy {
	case StrategyWithURL:
		return splitWithURL(text)
	case StrategyHeaderOnly:
		return splitHeaderOnly(text)
	}
	return nil, fmt.Errorf("unknown split strategy: %q", strategy)
}

// splitWithURL splits on "# Title\nSource: URL" boundaries. A bare header
// with no Source line on the next line produces no boundary.
func splitWithURL(text string) ([]types.Page, error) {
	matches := pageWithURL.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, types.ErrNoPages
	}

	pages := make([]types.Page, 0, len(matches))
	for i, m := range matches {
		contentStart := m[1]
		contentEnd := len(text)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}
		content := strings.TrimSpace(text[contentStart:contentEnd])

		pages = append(pages, types.Page{
			Title:         strings.TrimSpace(text[m[2]:m[3]]),
			SourceURL:     strings.TrimSpace(text[m[4]:m[5]]),
			Content:       content,
			ContentLength: utf8.RuneCountInString(content),
		})
	}
	return pages, nil
}

// splitHeaderOnly splits on bare "# Title" boundaries. Fenced code blocks
// are rewritten first so that comment syntax or nested markdown inside
// them never produces a boundary. Content is extracted from the rewritten
// text: the rewrite preserves line count and boundary offsets, but stored
// page content shows "### " where a block originally had "# ". Splitting
// correctness wins over preserving in-block comment markers.
func splitHeaderOnly(text string) ([]types.Page, error) {
	neutral := neutralizeCodeBlocks(text)

	matches := pageHeaderOnly.FindAllStringSubmatchIndex(neutral, -1)
	if len(matches) == 0 {
		return nil, types.ErrNoPages
	}

	pages := make([]types.Page, 0, len(matches))
	for i, m := range matches {
		contentStart := m[1]
		contentEnd := len(neutral)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}
		content := strings.TrimSpace(neutral[contentStart:contentEnd])

		pages = append(pages, types.Page{
			Title:         strings.TrimSpace(neutral[m[2]:m[3]]),
			Content:       content,
			ContentLength: utf8.RuneCountInString(content),
		})
	}
	return pages, nil
}

// neutralizeCodeBlocks demotes "# " to "### " at line start inside every
// fenced code block, leaving everything outside the fences untouched.
// The rewrite keeps the line count identical.
func neutralizeCodeBlocks(text string) string {
	return fencedBlock.ReplaceAllStringFunc(text, func(block string) string {
		return blockHeader.ReplaceAllString(block, "### ")
	})
}
