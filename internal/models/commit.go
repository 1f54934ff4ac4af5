package models

// FileChange is the per-file line count of one commit's diff.
type FileChange struct {
	Path      string
	Additions int
	Deletions int
}

// CommitMetadata is an immutable snapshot of one commit with its diff
// statistics against the first parent.
type CommitMetadata struct {
	Hash         string
	ShortHash    string
	Author       string
	Timestamp    int64
	Message      string
	Summary      string
	FilesChanged int
	Insertions   int
	Deletions    int
	ParentHashes []string
	Files        []FileChange
}

func (c CommitMetadata) IsMerge() bool {
	return len(c.ParentHashes) > 1
}

func (c CommitMetadata) TotalLines() int {
	return c.Insertions + c.Deletions
}

// Paths returns the changed file paths in diff order.
func (c CommitMetadata) Paths() []string {
	paths := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		paths = append(paths, f.Path)
	}
	return paths
}
