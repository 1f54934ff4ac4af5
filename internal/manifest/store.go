package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
)

// Load reads a manifest from disk. A missing file is a first run and
// yields an empty manifest; anything unreadable is fatal.
func Load(path string) (*Manifest, error) {
	m := New()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, appErrors.ErrManifestCorrupted.WithError(err).WithContext("path", path)
	}

	if _, err := toml.Decode(string(data), m); err != nil {
		return nil, appErrors.ErrManifestCorrupted.WithError(err).WithContext("path", path)
	}

	if m.Files == nil {
		m.Files = make(map[string]*FileEntry)
	}
	if m.Commits == nil {
		m.Commits = make(map[string]*CommitEntry)
	}
	if m.Patterns == nil {
		m.Patterns = make(map[string]*PatternEntry)
	}

	if err := m.validate(); err != nil {
		return nil, err.WithContext("path", path)
	}

	m.reindex()

	return m, nil
}

// Save writes the manifest next to path and renames it into place, so a
// crash never leaves a half-written manifest behind.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return appErrors.ErrManifestWrite.WithError(err).WithContext("path", path)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return appErrors.ErrManifestWrite.WithError(err).WithContext("path", tmp)
	}

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return appErrors.ErrManifestWrite.WithError(err).WithContext("path", tmp)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return appErrors.ErrManifestWrite.WithError(err).WithContext("path", tmp)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return appErrors.ErrManifestWrite.WithError(err).WithContext("path", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return appErrors.ErrManifestWrite.WithError(err).WithContext("path", path)
	}
	return nil
}

// HashFile returns the hex SHA-256 of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sortedUnique(list []string) []string {
	if len(list) == 0 {
		return list
	}
	sort.Strings(list)
	out := list[:1]
	for _, s := range list[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
