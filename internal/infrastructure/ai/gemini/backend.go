package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/ports"
	"google.golang.org/genai"
)

const defaultMaxOutputTokens = 10000

var _ ports.Backend = (*Backend)(nil)

// Backend queries the Gemini API.
type Backend struct {
	name      string
	model     string
	maxTokens int32
	client    *genai.Client
}

func New(ctx context.Context, cfg config.BackendConfig, apiKey string) (*Backend, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSpace(cfg.BaseURL)}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating gemini client: %w", err)
	}

	maxTokens := int32(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	return &Backend{
		name:      cfg.Name,
		model:     cfg.Model,
		maxTokens: maxTokens,
		client:    client,
	}, nil
}

func (b *Backend) Name() string {
	return b.name
}

func (b *Backend) Query(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), generateConfig(b.model, b.maxTokens))
	if err != nil {
		return "", b.classify(err)
	}

	text := formatResponse(resp)
	if strings.TrimSpace(text) == "" {
		return "", appErrors.NewProviderError(appErrors.KindInvalidResponse, b.name,
			errors.New("response has no text parts"))
	}
	return text, nil
}

func (b *Backend) classify(err error) *appErrors.ProviderError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return appErrors.FromStatus(b.name, apiErr.Code, "", err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return appErrors.FromStatus(b.name, apiErrPtr.Code, "", err)
	}
	return appErrors.ClassifyMessage(b.name, err)
}
