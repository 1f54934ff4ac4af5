package models

type WalkOptions struct {
	SkipMerges bool
	// Since resumes a walk: only commits after it are returned.
	Since string
	Limit int
	// Paths keeps only commits touching one of these path prefixes.
	Paths []string
}

type WalkResult struct {
	Commits []CommitMetadata
	// Continuation is set when Limit cut the walk short; pass it as Since
	// to get the next page.
	Continuation string
}

// ScannedFile is a working tree file that needs analysis.
type ScannedFile struct {
	Path      string
	Hash      string
	Size      int64
	IsNew     bool
	IsChanged bool
}

type ScanResult struct {
	Files []ScannedFile
	// Deleted lists tracked paths no longer present, sorted.
	Deleted   []string
	Unchanged int
	Total     int
}

// Paths returns the paths of every file to analyze.
func (r *ScanResult) Paths() []string {
	paths := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

type WriteResult struct {
	Written int
	Updated int
	Skipped int
	// Paths holds the repo-relative record path of each entry, in input order.
	Paths []string
	// PatternIDs holds the manifest pattern id of each entry, in input order.
	PatternIDs []string
}
