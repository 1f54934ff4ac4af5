package models

import "fmt"

// EntryContext is the Context section of a knowledge record.
type EntryContext struct {
	Files        []string          `toml:"files"`
	Commits      []string          `toml:"commits"`
	Dependencies []string          `toml:"dependencies"`
	Outcome      map[string]string `toml:"outcome"`
}

// KnowledgeEntry is one What/Why/How/Context record.
type KnowledgeEntry struct {
	What    string       `toml:"what"`
	Why     string       `toml:"why"`
	How     string       `toml:"how"`
	Context EntryContext `toml:"context"`
}

// RawResponse is one backend's unparsed answer.
type RawResponse struct {
	Backend string
	Text    string
}

// ModelOutput holds the candidates parsed from one backend's response.
type ModelOutput struct {
	Backend string
	Entries []KnowledgeEntry
}

// EntryCategory is the topic family a record is filed under. The order of
// the constants is the order categories are checked and clustered in.
type EntryCategory int

const (
	EntryMigration EntryCategory = iota
	EntryBug
	EntryPattern
	EntryDecision
	EntryFact
)

// EntryCategories lists every category in priority order.
var EntryCategories = []EntryCategory{EntryMigration, EntryBug, EntryPattern, EntryDecision, EntryFact}

func (c EntryCategory) String() string {
	switch c {
	case EntryMigration:
		return "migration"
	case EntryBug:
		return "bug"
	case EntryPattern:
		return "pattern"
	case EntryDecision:
		return "decision"
	case EntryFact:
		return "fact"
	default:
		panic(fmt.Sprintf("unknown entry category %d", int(c)))
	}
}

// Dir is the storage directory name for records of this category.
func (c EntryCategory) Dir() string {
	return c.String() + "s"
}
