package synthesis

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/models"
	"github.com/noggin-kb/noggin/internal/regex"
)

const entrySeparator = "---"

type entryDocument struct {
	Entry []models.KnowledgeEntry `toml:"entry"`
}

// ParseResponse extracts candidate entries from one backend's raw text.
// It accepts, in order of preference, a TOML document of [[entry]] tables,
// blocks of single-entry TOML separated by "---" lines, or the whole text as
// one entry. Markdown code fences around the TOML are ignored.
func ParseResponse(backend, text string) ([]models.KnowledgeEntry, error) {
	trimmed := strings.TrimSpace(regex.CodeFence.ReplaceAllString(text, ""))
	if trimmed == "" {
		return nil, parseFailed(backend, "empty response")
	}

	if entries := parseDocument(trimmed); len(entries) > 0 {
		return entries, nil
	}

	blocks := splitBlocks(trimmed)
	var entries []models.KnowledgeEntry
	for _, block := range blocks {
		if entry, ok := parseSingle(block); ok {
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return nil, parseFailed(backend,
			fmt.Sprintf("no valid entries in %d blocks (%d chars) of output", len(blocks), len(trimmed)))
	}
	return entries, nil
}

func parseFailed(backend, detail string) error {
	return appErrors.ErrParseFailed.
		WithContext("backend", backend).
		WithContext("detail", fmt.Sprintf("%s: %s", backend, detail))
}

func parseDocument(text string) []models.KnowledgeEntry {
	var doc entryDocument
	if _, err := toml.Decode(text, &doc); err != nil {
		return nil
	}

	var entries []models.KnowledgeEntry
	for _, e := range doc.Entry {
		if valid(e) {
			entries = append(entries, e)
		}
	}
	return entries
}

func parseSingle(text string) (models.KnowledgeEntry, bool) {
	var entry models.KnowledgeEntry
	if _, err := toml.Decode(text, &entry); err != nil {
		return models.KnowledgeEntry{}, false
	}
	return entry, valid(entry)
}

// splitBlocks cuts text on separator lines. Text without a separator is a
// single block.
func splitBlocks(text string) []string {
	var (
		blocks  []string
		current []string
	)
	flush := func() {
		if block := strings.TrimSpace(strings.Join(current, "\n")); block != "" {
			blocks = append(blocks, block)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == entrySeparator {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return blocks
}

func valid(e models.KnowledgeEntry) bool {
	return strings.TrimSpace(e.What) != ""
}
