package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/ports"
	sdk "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
)

var _ ports.Backend = (*Backend)(nil)

// Backend queries an OpenAI-compatible chat completions endpoint. It
// serves the "codex" backend and anything else speaking that API.
type Backend struct {
	name      string
	model     string
	maxTokens int64
	client    sdk.Client
}

func New(cfg config.BackendConfig, apiKey string) *Backend {
	opts := []ooption.RequestOption{
		ooption.WithAPIKey(strings.TrimSpace(apiKey)),
		ooption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ooption.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}

	return &Backend{
		name:      cfg.Name,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		client:    sdk.NewClient(opts...),
	}
}

func (b *Backend) Name() string {
	return b.name
}

func (b *Backend) Query(ctx context.Context, prompt string) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(b.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(prompt),
		},
	}
	if b.maxTokens > 0 {
		params.MaxTokens = sdk.Int(b.maxTokens)
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", b.classify(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", appErrors.NewProviderError(appErrors.KindInvalidResponse, b.name,
			errors.New("completion has no content"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *Backend) classify(err error) *appErrors.ProviderError {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		retryAfter := ""
		if apiErr.Response != nil {
			retryAfter = apiErr.Response.Header.Get("retry-after")
		}
		return appErrors.FromStatus(b.name, apiErr.StatusCode, retryAfter, err)
	}
	return appErrors.ClassifyMessage(b.name, err)
}
