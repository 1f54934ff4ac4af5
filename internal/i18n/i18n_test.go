package i18n

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFile(t *testing.T, dir, filename, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644))
}

func TestNewTranslations(t *testing.T) {
	t.Run("built-in messages need no locale dir", func(t *testing.T) {
		trans, err := NewTranslations("en", "")

		require.NoError(t, err)
		assert.Equal(t, "Configuration written to .noggin/config.toml",
			trans.GetMessage("config_initialized", 0, map[string]interface{}{"Path": ".noggin/config.toml"}))
	})

	t.Run("spanish is built in", func(t *testing.T) {
		trans, err := NewTranslations("es", t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, "3 archivos registrados", trans.GetMessage("status_files", 3, map[string]interface{}{"Count": 3}))
	})

	t.Run("empty language fails", func(t *testing.T) {
		trans, err := NewTranslations("", t.TempDir())

		assert.Error(t, err)
		assert.Nil(t, trans)
	})

	t.Run("locale files override and extend", func(t *testing.T) {
		dir := t.TempDir()
		createTestFile(t, dir, "active.es.toml", `
[HelloName]
other = "¡Hola {{.Name}}!"

[learn_nothing_to_do]
other = "Nada nuevo"`)

		trans, err := NewTranslations("es", dir)

		require.NoError(t, err)
		assert.Equal(t, "¡Hola Juan!", trans.GetMessage("HelloName", 0, map[string]interface{}{"Name": "Juan"}))
		assert.Equal(t, "Nada nuevo", trans.GetMessage("learn_nothing_to_do", 0, nil))
	})

	t.Run("invalid locale file fails", func(t *testing.T) {
		dir := t.TempDir()
		createTestFile(t, dir, "active.es.toml", `
[InvalidSection
this is not valid TOML`)

		trans, err := NewTranslations("es", dir)

		require.Error(t, err)
		assert.Nil(t, trans)
		assert.True(t, strings.HasPrefix(err.Error(), "error loading locale file"), err.Error())
	})
}

func TestSetLanguage(t *testing.T) {
	trans, err := NewTranslations("en", "")
	require.NoError(t, err)

	require.NoError(t, trans.SetLanguage("es"))
	assert.Equal(t, "Sugerencia", trans.GetMessage("suggestion_label", 0, nil))

	assert.Error(t, trans.SetLanguage("fr"))
}

func TestGetMessage(t *testing.T) {
	trans, err := NewTranslations("en", "")
	require.NoError(t, err)

	t.Run("plural forms", func(t *testing.T) {
		assert.Equal(t, "1 entry synthesized", trans.GetMessage("learn_entries", 1, map[string]interface{}{"Count": 1}))
		assert.Equal(t, "4 entries synthesized", trans.GetMessage("learn_entries", 4, map[string]interface{}{"Count": 4}))
	})

	t.Run("missing message", func(t *testing.T) {
		assert.Equal(t, "Translation missing: NonExistent", trans.GetMessage("NonExistent", 1, nil))
	})
}
