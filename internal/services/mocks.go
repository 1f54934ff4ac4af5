package services

import (
	"context"

	"github.com/noggin-kb/noggin/internal/manifest"
	"github.com/noggin-kb/noggin/internal/models"
	"github.com/stretchr/testify/mock"
)

type (
	MockHistoryWalker struct {
		mock.Mock
	}

	MockFileScanner struct {
		mock.Mock
	}

	MockRecordWriter struct {
		mock.Mock
	}

	MockBackend struct {
		mock.Mock
		BackendName string
	}
)

func (m *MockHistoryWalker) Walk(ctx context.Context, repoPath string, opts models.WalkOptions) (*models.WalkResult, error) {
	args := m.Called(ctx, repoPath, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalkResult), args.Error(1)
}

func (m *MockFileScanner) Scan(ctx context.Context, root string, mf *manifest.Manifest, full bool) (*models.ScanResult, error) {
	args := m.Called(ctx, root, mf, full)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScanResult), args.Error(1)
}

func (m *MockRecordWriter) Write(ctx context.Context, entries []models.KnowledgeEntry) (*models.WriteResult, error) {
	args := m.Called(ctx, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WriteResult), args.Error(1)
}

func (m *MockBackend) Name() string {
	return m.BackendName
}

func (m *MockBackend) Query(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
