package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/ports"
)

const defaultMaxTokens = 4096

var _ ports.Backend = (*Backend)(nil)

// Backend queries the Anthropic Messages API.
type Backend struct {
	name      string
	model     string
	maxTokens int64
	client    anthropic.Client
}

// New builds a Claude backend. Retries are left to the orchestrator's
// policy, so the SDK's own retries are turned off.
func New(cfg config.BackendConfig, apiKey string) *Backend {
	opts := []aoption.RequestOption{
		aoption.WithAPIKey(strings.TrimSpace(apiKey)),
		aoption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, aoption.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Backend{
		name:      cfg.Name,
		model:     cfg.Model,
		maxTokens: maxTokens,
		client:    anthropic.NewClient(opts...),
	}
}

func (b *Backend) Name() string {
	return b.name
}

func (b *Backend) Query(ctx context.Context, prompt string) (string, error) {
	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: b.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", b.classify(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", appErrors.NewProviderError(appErrors.KindInvalidResponse, b.name,
			fmt.Errorf("no text content (stop reason %q)", msg.StopReason))
	}
	return text.String(), nil
}

func (b *Backend) classify(err error) *appErrors.ProviderError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		retryAfter := ""
		if apiErr.Response != nil {
			retryAfter = apiErr.Response.Header.Get("retry-after")
		}
		return appErrors.FromStatus(b.name, apiErr.StatusCode, retryAfter, err)
	}
	return appErrors.ClassifyMessage(b.name, err)
}
