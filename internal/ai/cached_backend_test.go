package ai

import (
	"context"
	"testing"
	"time"

	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
	name string
}

func (m *MockBackend) Name() string {
	return m.name
}

func (m *MockBackend) Query(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.NewCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	return c
}

func TestCachedBackend_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("second identical query is served from cache", func(t *testing.T) {
		backend := &MockBackend{name: "claude"}
		backend.On("Query", mock.Anything, "prompt").Return("[[entry]]\nwhat = \"x\"", nil).Once()

		cached := NewCachedBackend(backend, newTestCache(t))

		first, err := cached.Query(ctx, "prompt")
		require.NoError(t, err)
		second, err := cached.Query(ctx, "prompt")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, "claude", cached.Name())
		backend.AssertNumberOfCalls(t, "Query", 1)
	})

	t.Run("keys include the backend name", func(t *testing.T) {
		store := newTestCache(t)
		claude := &MockBackend{name: "claude"}
		claude.On("Query", mock.Anything, "prompt").Return("from claude", nil).Once()
		gemini := &MockBackend{name: "gemini"}
		gemini.On("Query", mock.Anything, "prompt").Return("from gemini", nil).Once()

		a, err := NewCachedBackend(claude, store).Query(ctx, "prompt")
		require.NoError(t, err)
		b, err := NewCachedBackend(gemini, store).Query(ctx, "prompt")
		require.NoError(t, err)

		assert.Equal(t, "from claude", a)
		assert.Equal(t, "from gemini", b)
		claude.AssertExpectations(t)
		gemini.AssertExpectations(t)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		backend := &MockBackend{name: "codex"}
		failure := appErrors.NewProviderError(appErrors.KindModelUnavailable, "codex", assert.AnError)
		backend.On("Query", mock.Anything, "p").Return("", failure).Once()
		backend.On("Query", mock.Anything, "p").Return("ok", nil).Once()

		cached := NewCachedBackend(backend, newTestCache(t))

		_, err := cached.Query(ctx, "p")
		require.ErrorIs(t, err, failure)

		text, err := cached.Query(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		backend.AssertNumberOfCalls(t, "Query", 2)
	})
}
