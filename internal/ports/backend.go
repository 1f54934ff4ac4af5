package ports

import (
	"context"
)

// Backend is a language-model endpoint queried with one prompt.
type Backend interface {
	// Name returns the stable identifier used for trust weighting and
	// reporting (e.g.: "claude", "gemini", "codex").
	Name() string

	// Query sends the prompt and returns the raw response text. Failures
	// are *errors.ProviderError so callers can decide whether to retry.
	Query(ctx context.Context, prompt string) (string, error)
}
