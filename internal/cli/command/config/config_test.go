package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/noggin-kb/noggin/internal/config"
	"github.com/noggin-kb/noggin/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func init() {
	color.NoColor = true
}

func runConfig(t *testing.T, root string, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	translations, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	app := &cli.Command{
		Name:     "noggin",
		Writer:   &buf,
		Commands: []*cli.Command{NewConfigCommandFactory(root).CreateCommand(translations, cfg)},
	}
	err = app.Run(context.Background(), append([]string{"noggin", "config"}, args...))
	return buf.String(), err
}

func TestInitCommand(t *testing.T) {
	t.Run("creates state dir and default config", func(t *testing.T) {
		root := t.TempDir()

		out, err := runConfig(t, root, config.Default(), "init")

		require.NoError(t, err)
		assert.Contains(t, out, "Configuration written to")
		assert.FileExists(t, config.ConfigPath(root))

		ignore, err := os.ReadFile(filepath.Join(config.Dir(root), ".gitignore"))
		require.NoError(t, err)
		assert.Equal(t, "cache/\n", string(ignore))

		loaded, err := config.LoadConfig(root)
		require.NoError(t, err)
		assert.Equal(t, config.Default().Scoring.MinCategory, loaded.Scoring.MinCategory)
	})

	t.Run("keeps an existing config", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(config.Dir(root), 0755))
		require.NoError(t, os.WriteFile(config.ConfigPath(root), []byte("language = \"es\"\n"), 0644))

		out, err := runConfig(t, root, config.Default(), "init")

		require.NoError(t, err)
		assert.Contains(t, out, "Configuration already exists")
		data, err := os.ReadFile(config.ConfigPath(root))
		require.NoError(t, err)
		assert.Equal(t, "language = \"es\"\n", string(data))
	})

	t.Run("force overwrites", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(config.Dir(root), 0755))
		require.NoError(t, os.WriteFile(config.ConfigPath(root), []byte("language = \"es\"\n"), 0644))

		_, err := runConfig(t, root, config.Default(), "init", "--force")

		require.NoError(t, err)
		loaded, err := config.LoadConfig(root)
		require.NoError(t, err)
		assert.Equal(t, "en", loaded.Language)
	})

	t.Run("existing gitignore is left alone", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(config.Dir(root), 0755))
		ignore := filepath.Join(config.Dir(root), ".gitignore")
		require.NoError(t, os.WriteFile(ignore, []byte("*\n"), 0644))

		_, err := runConfig(t, root, config.Default(), "init")

		require.NoError(t, err)
		data, err := os.ReadFile(ignore)
		require.NoError(t, err)
		assert.Equal(t, "*\n", string(data))
	})
}

func TestShowCommand(t *testing.T) {
	t.Run("prints the config as toml with keys masked", func(t *testing.T) {
		cfg := config.Default()
		cfg.PathFile = "/repo/.noggin/config.toml"
		cfg.Backends = []config.BackendConfig{
			{Name: "claude", Kind: "claude", APIKey: "sk-secret", Enabled: true},
			{Name: "gemini", Kind: "gemini", APIKeyEnv: "GEMINI_API_KEY"},
		}

		out, err := runConfig(t, t.TempDir(), cfg, "show")

		require.NoError(t, err)
		assert.Contains(t, out, "Current configuration (/repo/.noggin/config.toml)")
		assert.NotContains(t, out, "sk-secret")
		assert.Contains(t, out, maskedKey)
		assert.Contains(t, out, "GEMINI_API_KEY")
		assert.Equal(t, "sk-secret", cfg.Backends[0].APIKey)
	})

	t.Run("output decodes back", func(t *testing.T) {
		cfg := config.Default()

		out, err := runConfig(t, t.TempDir(), cfg, "show")
		require.NoError(t, err)

		body := out[bytes.Index([]byte(out), []byte("language")):]
		var decoded config.Config
		_, err = toml.Decode(body, &decoded)
		require.NoError(t, err)
		assert.Equal(t, cfg.Language, decoded.Language)
		assert.Equal(t, cfg.Synthesis.ClusterDistance, decoded.Synthesis.ClusterDistance)
	})
}
