package scanner

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/manifest"
	"github.com/noggin-kb/noggin/internal/models"
)

const binarySniffLen = 512

var skipDirs = map[string]bool{
	".git":         true,
	config.DirName: true,
}

// Scanner walks a working tree and compares content hashes against the
// manifest.
type Scanner struct{}

func New() *Scanner {
	return &Scanner{}
}

// Scan finds new and changed text files under root, honoring .gitignore.
// In full mode every file is returned as changed.
func (s *Scanner) Scan(ctx context.Context, root string, m *manifest.Manifest, full bool) (*models.ScanResult, error) {
	fs := osfs.New(root)

	patterns, err := gitignore.ReadPatterns(fs, nil)
	if err != nil {
		return nil, appErrors.ErrScanFiles.WithError(err)
	}
	matcher := gitignore.NewMatcher(patterns)

	res := &models.ScanResult{}
	seen := make(map[string]bool)

	walkErr := util.Walk(fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == "." {
			return nil
		}

		rel := filepath.ToSlash(path)
		parts := strings.Split(rel, "/")

		if info.IsDir() {
			if skipDirs[info.Name()] || matcher.Match(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || matcher.Match(parts, false) {
			return nil
		}

		binary, err := isBinary(fs, path)
		if err != nil {
			return err
		}
		if binary {
			logger.Debug(ctx, "skipping binary file", "path", rel)
			return nil
		}

		res.Total++
		seen[rel] = true

		hash, err := manifest.HashFile(filepath.Join(root, path))
		if err != nil {
			return err
		}

		_, tracked := m.Files[rel]
		switch {
		case full:
			res.Files = append(res.Files, models.ScannedFile{Path: rel, Hash: hash, Size: info.Size(), IsNew: !tracked, IsChanged: true})
		case m.IsChanged(rel, hash):
			res.Files = append(res.Files, models.ScannedFile{Path: rel, Hash: hash, Size: info.Size(), IsNew: !tracked, IsChanged: tracked})
		default:
			res.Unchanged++
		}
		return nil
	})
	if walkErr != nil {
		return nil, appErrors.ErrScanFiles.WithError(walkErr).WithContext("root", root)
	}

	for path := range m.Files {
		if !seen[path] {
			res.Deleted = append(res.Deleted, path)
		}
	}
	sort.Strings(res.Deleted)
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })

	logger.Info(ctx, "scan finished",
		"total", res.Total,
		"files", len(res.Files),
		"unchanged", res.Unchanged,
		"deleted", len(res.Deleted))

	return res, nil
}

// isBinary reports whether the first bytes of the file contain a NUL.
func isBinary(fs billy.Filesystem, path string) (bool, error) {
	f, err := fs.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, binarySniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}
