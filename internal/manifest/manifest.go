package manifest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	appErrors "github.com/noggin-kb/noggin/internal/errors"
)

// CommitCategory is the coarse kind of a processed commit, inferred from
// its message.
type CommitCategory string

const (
	CommitDecision  CommitCategory = "decision"
	CommitMigration CommitCategory = "migration"
	CommitBug       CommitCategory = "bug"
)

// InferCommitCategory classifies a commit message.
func InferCommitCategory(message string) CommitCategory {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "migrat") || strings.Contains(msg, "schema") || strings.Contains(msg, "upgrade"):
		return CommitMigration
	case strings.Contains(msg, "fix") || strings.Contains(msg, "bug") || strings.Contains(msg, "patch"):
		return CommitBug
	default:
		return CommitDecision
	}
}

type FileEntry struct {
	Hash        string    `toml:"hash"`
	LastScanned time.Time `toml:"last_scanned"`
	PatternIDs  []string  `toml:"pattern_ids"`
}

type CommitEntry struct {
	ProcessedAt time.Time      `toml:"processed_at"`
	Category    CommitCategory `toml:"category"`
	RecordPath  string         `toml:"record_path,omitempty"`
}

type PatternEntry struct {
	Name              string    `toml:"name"`
	ContributingFiles []string  `toml:"contributing_files"`
	LastUpdated       time.Time `toml:"last_updated"`
}

// Manifest is the incremental state of one repository: scanned files,
// processed commits and extracted patterns. The file and pattern tables
// reference each other; only link and unlink change those references.
type Manifest struct {
	Files    map[string]*FileEntry    `toml:"files"`
	Commits  map[string]*CommitEntry  `toml:"commits"`
	Patterns map[string]*PatternEntry `toml:"patterns"`

	now func() time.Time
}

type Stats struct {
	Files       int
	Commits     int
	Patterns    int
	LastUpdated time.Time
}

func New() *Manifest {
	return &Manifest{
		Files:    make(map[string]*FileEntry),
		Commits:  make(map[string]*CommitEntry),
		Patterns: make(map[string]*PatternEntry),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// IsChanged reports whether path is untracked or was recorded with a
// different hash.
func (m *Manifest) IsChanged(path, hash string) bool {
	entry, ok := m.Files[path]
	return !ok || entry.Hash != hash
}

// RecordFile upserts a file entry and links it to patternIDs. Existing
// links are kept.
func (m *Manifest) RecordFile(path, hash string, patternIDs ...string) error {
	for _, id := range patternIDs {
		if _, ok := m.Patterns[id]; !ok {
			return appErrors.ErrPatternNotFound.WithContext("pattern", id)
		}
	}

	entry, ok := m.Files[path]
	if !ok {
		entry = &FileEntry{}
		m.Files[path] = entry
	}
	entry.Hash = hash
	entry.LastScanned = m.now()

	for _, id := range patternIDs {
		m.link(id, path)
	}
	return nil
}

// RemoveFile drops the tracking entry only. Patterns keep listing the
// path until the caller unlinks it.
func (m *Manifest) RemoveFile(path string) {
	delete(m.Files, path)
}

func (m *Manifest) IsCommitProcessed(sha string) bool {
	_, ok := m.Commits[sha]
	return ok
}

// RecordCommit appends a commit to the processed ledger. Recording a sha
// twice keeps the first entry.
func (m *Manifest) RecordCommit(sha string, category CommitCategory, recordPath string) {
	if _, ok := m.Commits[sha]; ok {
		return
	}
	m.Commits[sha] = &CommitEntry{
		ProcessedAt: m.now(),
		Category:    category,
		RecordPath:  recordPath,
	}
}

// UpsertPattern creates or renames a pattern and links every tracked file
// in files to it. Untracked files are returned and left unlinked.
func (m *Manifest) UpsertPattern(id, name string, files []string) (untracked []string) {
	p, ok := m.Patterns[id]
	if !ok {
		p = &PatternEntry{}
		m.Patterns[id] = p
	}
	p.Name = name
	p.LastUpdated = m.now()

	for _, f := range files {
		if _, tracked := m.Files[f]; !tracked {
			untracked = append(untracked, f)
			continue
		}
		m.link(id, f)
	}
	return untracked
}

// LinkPattern adds the file to the pattern and the pattern to the file.
// Both must exist; nothing is changed otherwise.
func (m *Manifest) LinkPattern(patternID, path string) error {
	if _, ok := m.Patterns[patternID]; !ok {
		return appErrors.ErrPatternNotFound.WithContext("pattern", patternID)
	}
	if _, ok := m.Files[path]; !ok {
		return appErrors.ErrFileNotTracked.WithContext("path", path)
	}
	m.link(patternID, path)
	return nil
}

// UnlinkPattern removes the link from whichever sides still exist.
func (m *Manifest) UnlinkPattern(patternID, path string) {
	if p, ok := m.Patterns[patternID]; ok {
		p.ContributingFiles = remove(p.ContributingFiles, path)
	}
	if f, ok := m.Files[path]; ok {
		f.PatternIDs = remove(f.PatternIDs, patternID)
	}
}

func (m *Manifest) link(patternID, path string) {
	p := m.Patterns[patternID]
	f := m.Files[path]
	p.ContributingFiles = insertSorted(p.ContributingFiles, path)
	f.PatternIDs = insertSorted(f.PatternIDs, patternID)
}

// reindex rebuilds the pattern ids of every file from the pattern table,
// which is the persisted source of links. Untracked contributing files
// stay listed on their pattern until they are unlinked.
func (m *Manifest) reindex() {
	for _, f := range m.Files {
		f.PatternIDs = nil
	}

	ids := make([]string, 0, len(m.Patterns))
	for id := range m.Patterns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := m.Patterns[id]
		p.ContributingFiles = sortedUnique(p.ContributingFiles)
		for _, path := range p.ContributingFiles {
			if f, ok := m.Files[path]; ok {
				f.PatternIDs = append(f.PatternIDs, id)
			}
		}
	}
}

// PatternsForFile returns the ids linked to path, or nil.
func (m *Manifest) PatternsForFile(path string) []string {
	entry, ok := m.Files[path]
	if !ok || len(entry.PatternIDs) == 0 {
		return nil
	}
	out := make([]string, len(entry.PatternIDs))
	copy(out, entry.PatternIDs)
	return out
}

// InvalidatePattern marks a pattern stale by bumping its timestamp.
func (m *Manifest) InvalidatePattern(patternID string) {
	if p, ok := m.Patterns[patternID]; ok {
		p.LastUpdated = m.now()
	}
}

// FindInvalidatedPatterns returns the sorted, distinct patterns linked to
// any changed or deleted path.
func (m *Manifest) FindInvalidatedPatterns(changed, deleted []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, paths := range [][]string{changed, deleted} {
		for _, path := range paths {
			for _, id := range m.PatternsForFile(path) {
				if !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

func (m *Manifest) Stats() Stats {
	s := Stats{
		Files:    len(m.Files),
		Commits:  len(m.Commits),
		Patterns: len(m.Patterns),
	}
	for _, f := range m.Files {
		if f.LastScanned.After(s.LastUpdated) {
			s.LastUpdated = f.LastScanned
		}
	}
	for _, c := range m.Commits {
		if c.ProcessedAt.After(s.LastUpdated) {
			s.LastUpdated = c.ProcessedAt
		}
	}
	for _, p := range m.Patterns {
		if p.LastUpdated.After(s.LastUpdated) {
			s.LastUpdated = p.LastUpdated
		}
	}
	return s
}

func (m *Manifest) validate() *appErrors.AppError {
	for path, f := range m.Files {
		if f == nil || f.Hash == "" {
			return appErrors.ErrManifestMissingField.WithContext("detail", fmt.Sprintf("files.%q.hash", path))
		}
	}
	for sha, c := range m.Commits {
		if c == nil || c.Category == "" {
			return appErrors.ErrManifestMissingField.WithContext("detail", fmt.Sprintf("commits.%q.category", sha))
		}
	}
	for id, p := range m.Patterns {
		if p == nil || p.Name == "" {
			return appErrors.ErrManifestMissingField.WithContext("detail", fmt.Sprintf("patterns.%q.name", id))
		}
	}
	return nil
}

func insertSorted(list []string, v string) []string {
	i := sort.SearchStrings(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
