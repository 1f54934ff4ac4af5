package di

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/infrastructure/ai/registry"
	"github.com/noggin-kb/noggin/internal/infrastructure/writer"
	"github.com/noggin-kb/noggin/internal/ports"
	"github.com/noggin-kb/noggin/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cannedResponse = `[[entry]]
what = "Use connection pooling pattern"
why = "Reduces database overhead"
how = "Configure PgBouncer"

[entry.context]
files = ["db/pool.go"]
`

type cannedBackend struct {
	name  string
	calls *atomic.Int32
}

func (b *cannedBackend) Name() string { return b.name }

func (b *cannedBackend) Query(context.Context, string) (string, error) {
	b.calls.Add(1)
	return cannedResponse, nil
}

func newTestContainer(t *testing.T, root string, cacheEnabled bool, calls *atomic.Int32) *Container {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Enabled = cacheEnabled
	cfg.Backends = []config.BackendConfig{
		{Name: "claude", Kind: "canned", APIKey: "k", Timeout: config.Duration{Duration: 5 * time.Second}, MaxAttempts: 1, Enabled: true},
		{Name: "codex", Kind: "canned", APIKey: "k", Timeout: config.Duration{Duration: 5 * time.Second}, MaxAttempts: 1, Enabled: true},
	}

	c := NewContainer(root, cfg)
	require.NoError(t, c.RegisterBackend("canned", registry.FactoryFunc(
		func(_ context.Context, bc config.BackendConfig, _ string) (ports.Backend, error) {
			return &cannedBackend{name: bc.Name, calls: calls}, nil
		})))
	return c
}

func writeSource(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "db"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "db", "pool.go"), []byte("package db\n"), 0644))
}

func TestContainer_GetLearnService(t *testing.T) {
	ctx := context.Background()

	t.Run("service is built once", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestContainer(t, t.TempDir(), false, &calls)

		first, err := c.GetLearnService(ctx)
		require.NoError(t, err)
		second, err := c.GetLearnService(ctx)
		require.NoError(t, err)

		assert.Same(t, first, second)
	})

	t.Run("missing api key fails lazily", func(t *testing.T) {
		cfg := config.Default()
		cfg.Backends = []config.BackendConfig{{Name: "claude", Kind: "claude", APIKeyEnv: "NOGGIN_DI_UNSET_KEY", Enabled: true}}
		t.Setenv("NOGGIN_DI_UNSET_KEY", "")
		c := NewContainer(t.TempDir(), cfg)

		_, err := c.GetLearnService(ctx)

		assert.ErrorIs(t, err, appErrors.ErrAPIKeyMissing)
	})

	t.Run("default config runs with a single key", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "test-key")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		c := NewContainer(t.TempDir(), config.Default())

		svc, err := c.GetLearnService(ctx)

		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("learn pass over a plain directory", func(t *testing.T) {
		root := t.TempDir()
		writeSource(t, root)
		var calls atomic.Int32
		c := newTestContainer(t, root, true, &calls)

		service, err := c.GetLearnService(ctx)
		require.NoError(t, err)
		report, err := service.Learn(ctx, services.LearnOptions{})

		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
		require.Len(t, report.Entries, 1)
		require.NotNil(t, report.Records)
		assert.Equal(t, 1, report.Records.Written)
		assert.FileExists(t, filepath.Join(root, writer.RecordPath(report.Entries[0])))
		assert.DirExists(t, config.CacheDir(root))
	})

	t.Run("cache answers a repeated verify run", func(t *testing.T) {
		root := t.TempDir()
		writeSource(t, root)
		var calls atomic.Int32
		c := newTestContainer(t, root, true, &calls)
		service, err := c.GetLearnService(ctx)
		require.NoError(t, err)

		_, err = service.Learn(ctx, services.LearnOptions{Verify: true})
		require.NoError(t, err)
		report, err := service.Learn(ctx, services.LearnOptions{Verify: true})

		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
		assert.Len(t, report.Entries, 1)
		assert.Nil(t, report.Records)
	})

	t.Run("unusable cache dir runs without cache", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(config.Dir(root), 0755))
		require.NoError(t, os.WriteFile(config.CacheDir(root), []byte("not a dir"), 0644))
		var calls atomic.Int32
		c := newTestContainer(t, root, true, &calls)

		service, err := c.GetLearnService(ctx)

		require.NoError(t, err)
		assert.NotNil(t, service)
	})
}

func TestContainer_RegisterBackend(t *testing.T) {
	c := NewContainer(t.TempDir(), config.Default())

	err := c.RegisterBackend("claude", registry.FactoryFunc(
		func(context.Context, config.BackendConfig, string) (ports.Backend, error) { return nil, nil }))

	assert.Error(t, err)
	assert.True(t, c.GetBackendRegistry().IsRegistered("claude"))
}

