package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/models"
	"github.com/noggin-kb/noggin/internal/synthesis"
)

const (
	recordExt    = ".arf"
	maxSlugLen   = 50
	fallbackSlug = "untitled"
)

// Writer stores knowledge records under <root>/.noggin/<category>/.
type Writer struct {
	root string
}

func New(root string) *Writer {
	return &Writer{root: root}
}

// RecordPath returns the slash-separated path of an entry's record,
// relative to the repository root.
func RecordPath(e models.KnowledgeEntry) string {
	return recordPath(e, Slug(e.What))
}

func recordPath(e models.KnowledgeEntry, slug string) string {
	return path.Join(config.DirName, synthesis.Categorize(e).Dir(), slug+recordExt)
}

// patternID is the manifest pattern id of an entry: <category>/<slug>.
func patternID(e models.KnowledgeEntry, slug string) string {
	return path.Join(synthesis.Categorize(e).String(), slug)
}

// Write stores each entry in its own record. Distinct entries of one batch
// that share a slug get numbered suffixes in input order; an exact
// duplicate reuses the first entry's record.
func (w *Writer) Write(ctx context.Context, entries []models.KnowledgeEntry) (*models.WriteResult, error) {
	res := &models.WriteResult{
		Paths:      make([]string, 0, len(entries)),
		PatternIDs: make([]string, 0, len(entries)),
	}
	claimed := make(map[string][]byte)

	for _, e := range entries {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(e); err != nil {
			return res, appErrors.ErrWriteRecord.WithError(err).WithContext("what", e.What)
		}

		base := Slug(e.What)
		slug := base
		duplicate := false
		for n := 2; ; n++ {
			prev, taken := claimed[recordPath(e, slug)]
			if !taken {
				break
			}
			if bytes.Equal(prev, buf.Bytes()) {
				duplicate = true
				break
			}
			slug = fmt.Sprintf("%s-%d", base, n)
		}

		rel := recordPath(e, slug)
		res.Paths = append(res.Paths, rel)
		res.PatternIDs = append(res.PatternIDs, patternID(e, slug))
		if duplicate {
			res.Skipped++
			logger.Debug(ctx, "duplicate entry in batch", "path", rel)
			continue
		}
		claimed[rel] = buf.Bytes()
		if slug != base {
			logger.Debug(ctx, "slug taken in batch, numbered", "path", rel)
		}

		abs := filepath.Join(w.root, filepath.FromSlash(rel))
		existing, err := os.ReadFile(abs)
		exists := err == nil
		switch {
		case err == nil && bytes.Equal(existing, buf.Bytes()):
			res.Skipped++
			logger.Debug(ctx, "record unchanged", "path", rel)
			continue
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return res, appErrors.ErrWriteRecord.WithError(err).WithContext("path", rel)
		}

		if err := writeAtomic(abs, buf.Bytes()); err != nil {
			return res, appErrors.ErrWriteRecord.WithError(err).WithContext("path", rel)
		}
		if exists {
			res.Updated++
			logger.Debug(ctx, "record updated", "path", rel)
		} else {
			res.Written++
			logger.Debug(ctx, "record written", "path", rel)
		}
	}

	logger.Info(ctx, "records persisted",
		"written", res.Written,
		"updated", res.Updated,
		"skipped", res.Skipped)

	return res, nil
}

func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".record-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Slug turns text into a lowercase file name: runs of anything that is not
// a letter or digit become one hyphen, and long slugs are cut at the last
// hyphen within the first 50 characters.
func Slug(text string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	runes := []rune(b.String())
	if len(runes) > maxSlugLen {
		cut := string(runes[:maxSlugLen])
		if i := strings.LastIndexByte(cut, '-'); i > 0 {
			cut = cut[:i]
		}
		return cut
	}
	if len(runes) == 0 {
		return fallbackSlug
	}
	return string(runes)
}
