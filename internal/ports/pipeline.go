package ports

import (
	"context"

	"github.com/noggin-kb/noggin/internal/manifest"
	"github.com/noggin-kb/noggin/internal/models"
)

// HistoryWalker lists commits in chronological order.
type HistoryWalker interface {
	Walk(ctx context.Context, repoPath string, opts models.WalkOptions) (*models.WalkResult, error)
}

// FileScanner finds files that need analysis.
type FileScanner interface {
	Scan(ctx context.Context, root string, m *manifest.Manifest, full bool) (*models.ScanResult, error)
}

// RecordWriter persists knowledge records.
type RecordWriter interface {
	Write(ctx context.Context, entries []models.KnowledgeEntry) (*models.WriteResult, error)
}
