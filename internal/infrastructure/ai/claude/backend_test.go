package claude

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.BackendConfig{
		Name:    "claude",
		Kind:    "claude",
		Model:   "claude-sonnet-4-5",
		BaseURL: srv.URL,
	}, "test-key")
}

func TestBackend_Query(t *testing.T) {
	t.Run("returns the text blocks", func(t *testing.T) {
		var got map[string]interface{}
		b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &got)

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{
				"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
				"content": [{"type": "text", "text": "[[entry]]\nwhat = \"x\""}],
				"stop_reason": "end_turn",
				"usage": {"input_tokens": 3, "output_tokens": 5}
			}`)
		})

		text, err := b.Query(context.Background(), "analyze this")

		require.NoError(t, err)
		assert.Equal(t, "[[entry]]\nwhat = \"x\"", text)
		assert.Equal(t, "claude-sonnet-4-5", got["model"])
		assert.EqualValues(t, defaultMaxTokens, got["max_tokens"])
		assert.Equal(t, "claude", b.Name())
	})

	t.Run("empty content is an invalid response", func(t *testing.T) {
		b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"max_tokens","usage":{"input_tokens":1,"output_tokens":0}}`)
		})

		_, err := b.Query(context.Background(), "p")

		var pe *appErrors.ProviderError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, appErrors.KindInvalidResponse, pe.Kind)
	})

	statusCases := []struct {
		status int
		want   appErrors.ProviderErrorKind
	}{
		{http.StatusUnauthorized, appErrors.KindAuthenticationFailed},
		{http.StatusTooManyRequests, appErrors.KindRateLimitExceeded},
		{http.StatusServiceUnavailable, appErrors.KindModelUnavailable},
		{http.StatusBadRequest, appErrors.KindRequestFailed},
	}
	for _, tc := range statusCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			calls := 0
			b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("retry-after", "7")
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"nope"}}`)
			})

			_, err := b.Query(context.Background(), "p")

			var pe *appErrors.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.want, pe.Kind)
			assert.Equal(t, "claude", pe.Backend)
			assert.Equal(t, 1, calls, "sdk retries must be off")
			if tc.want == appErrors.KindRateLimitExceeded {
				assert.Equal(t, "7s", pe.RetryAfter.String())
			}
		})
	}
}
