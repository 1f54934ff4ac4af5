package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError_WithError(t *testing.T) {
	baseErr := errors.New("original error")
	appErr := ErrCommitNotFound.WithError(baseErr)

	assert.Equal(t, baseErr, appErr.Err)
	assert.Equal(t, TypeGit, appErr.Type)
	assert.ErrorIs(t, appErr, baseErr)
}

func TestAppError_WithContext(t *testing.T) {
	appErr := ErrManifestCorrupted.WithContext("path", ".noggin/manifest.toml").WithContext("detail", "bad key")

	assert.Equal(t, ".noggin/manifest.toml", appErr.Context["path"])
	assert.Equal(t, "bad key", appErr.Context["detail"])
	assert.Nil(t, ErrManifestCorrupted.Context, "sentinel must stay untouched")
}

func TestAppError_Is(t *testing.T) {
	t.Run("copies match their sentinel", func(t *testing.T) {
		err := ErrNoValidEntries.WithContext("backends", 2).WithError(errors.New("x"))
		assert.True(t, errors.Is(err, ErrNoValidEntries))
		assert.False(t, errors.Is(err, ErrParseFailed))
	})

	t.Run("wrapped with fmt.Errorf", func(t *testing.T) {
		err := fmt.Errorf("loading: %w", ErrManifestCorrupted.WithError(errors.New("toml")))
		assert.ErrorIs(t, err, ErrManifestCorrupted)
	})
}

func TestAppError_Error_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		contains []string
	}{
		{
			name:     "Simple error without underlying error",
			err:      ErrNoBackends,
			contains: []string{"PROVIDER", "No backends configured"},
		},
		{
			name:     "Error with underlying error",
			err:      ErrRepositoryNotFound.WithError(errors.New("repository does not exist")),
			contains: []string{"GIT", "Failed to open repository", "repository does not exist"},
		},
		{
			name:     "Error with detail context",
			err:      ErrAllBackendsFailed.WithContext("detail", "claude: timeout; gemini: 401"),
			contains: []string{"All backends failed", "claude: timeout; gemini: 401"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name       string
		msg        string
		kind       ProviderErrorKind
		retryAfter time.Duration
		retryable  bool
	}{
		{"rate limit with hint", "HTTP 429 Too Many Requests, Retry-After: 12", KindRateLimitExceeded, 12 * time.Second, true},
		{"quota", "Quota exceeded for project", KindRateLimitExceeded, 0, true},
		{"unauthorized", "401 Unauthorized", KindAuthenticationFailed, 0, false},
		{"bad api key", "invalid API key provided", KindAuthenticationFailed, 0, false},
		{"unavailable", "model is temporarily unavailable", KindModelUnavailable, 0, true},
		{"other", "connection reset by peer", KindRequestFailed, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := ClassifyMessage("claude", errors.New(tt.msg))
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.retryAfter, pe.RetryAfter)
			assert.Equal(t, tt.retryable, pe.Retryable())
			assert.Equal(t, "claude", pe.Backend)
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	kind, ok := ClassifyStatus(403)
	assert.True(t, ok)
	assert.Equal(t, KindAuthenticationFailed, kind)

	kind, ok = ClassifyStatus(503)
	assert.True(t, ok)
	assert.Equal(t, KindModelUnavailable, kind)

	kind, ok = ClassifyStatus(400)
	assert.True(t, ok)
	assert.Equal(t, KindRequestFailed, kind)

	_, ok = ClassifyStatus(200)
	assert.False(t, ok)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseRetryAfter("retry after 30"))
	assert.Equal(t, 5*time.Second, ParseRetryAfter("RETRY-AFTER:5"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("try later"))
}

func TestFromStatus(t *testing.T) {
	cause := errors.New("boom")

	pe := FromStatus("claude", 429, "12", cause)
	assert.Equal(t, KindRateLimitExceeded, pe.Kind)
	assert.Equal(t, 12*time.Second, pe.RetryAfter)
	assert.ErrorIs(t, pe, cause)

	pe = FromStatus("claude", 429, "soon", cause)
	assert.Equal(t, time.Duration(0), pe.RetryAfter)

	pe = FromStatus("gemini", 403, "", cause)
	assert.Equal(t, KindAuthenticationFailed, pe.Kind)
	assert.False(t, pe.Retryable())

	pe = FromStatus("codex", 0, "", errors.New("service unavailable"))
	assert.Equal(t, KindModelUnavailable, pe.Kind)
}
