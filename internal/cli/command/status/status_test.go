package status

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/i18n"
	"github.com/noggin-kb/noggin/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func init() {
	color.NoColor = true
}

func runStatus(t *testing.T, root string, cfg *config.Config) (string, error) {
	t.Helper()
	translations, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	app := &cli.Command{
		Name:     "noggin",
		Writer:   &buf,
		Commands: []*cli.Command{NewStatusCommandFactory(root).CreateCommand(translations, cfg)},
	}
	err = app.Run(context.Background(), []string{"noggin", "status"})
	return buf.String(), err
}

func TestStatusCommand(t *testing.T) {
	t.Run("fresh repository", func(t *testing.T) {
		out, err := runStatus(t, t.TempDir(), config.Default())

		require.NoError(t, err)
		assert.Contains(t, out, "No knowledge base yet")
		assert.Contains(t, out, "Backends:")
	})

	t.Run("tracked knowledge", func(t *testing.T) {
		root := t.TempDir()
		m := manifest.New()
		require.NoError(t, m.RecordFile("src/db.go", "h1"))
		require.NoError(t, m.RecordFile("src/api.go", "h2"))
		m.RecordCommit("abc123", manifest.InferCommitCategory("fix: leak"), "")
		m.UpsertPattern("patterns/pooling", "Pooling", []string{"src/db.go"})
		require.NoError(t, m.Save(config.ManifestPath(root)))

		out, err := runStatus(t, root, config.Default())

		require.NoError(t, err)
		assert.Contains(t, out, "2 files tracked")
		assert.Contains(t, out, "1 commit processed")
		assert.Contains(t, out, "1 pattern")
		assert.Contains(t, out, "Last updated: "+time.Now().Format("2006-01-02"))
	})

	t.Run("lists enabled and disabled backends", func(t *testing.T) {
		cfg := config.Default()
		cfg.Backends = []config.BackendConfig{
			{Name: "claude", Kind: "claude", Model: "claude-sonnet", Enabled: true},
			{Name: "codex", Kind: "openai", Model: "gpt-5", Enabled: false},
		}

		out, err := runStatus(t, t.TempDir(), cfg)

		require.NoError(t, err)
		assert.Contains(t, out, "claude (claude, claude-sonnet) enabled")
		assert.Contains(t, out, "codex (openai, gpt-5) disabled")
	})

	t.Run("corrupted manifest", func(t *testing.T) {
		root := t.TempDir()
		path := config.ManifestPath(root)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("[files\nbroken"), 0644))

		_, err := runStatus(t, root, config.Default())

		assert.ErrorIs(t, err, appErrors.ErrManifestCorrupted)
	})
}
