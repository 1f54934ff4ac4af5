package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/noggin-kb/noggin/internal/ai"
	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/infrastructure/ai/claude"
	"github.com/noggin-kb/noggin/internal/infrastructure/ai/gemini"
	"github.com/noggin-kb/noggin/internal/infrastructure/ai/openai"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/orchestrator"
	"github.com/noggin-kb/noggin/internal/ports"
)

// BackendFactory creates the backend client for one config kind.
type BackendFactory interface {
	Create(ctx context.Context, cfg config.BackendConfig, apiKey string) (ports.Backend, error)
}

// FactoryFunc adapts a function to BackendFactory.
type FactoryFunc func(ctx context.Context, cfg config.BackendConfig, apiKey string) (ports.Backend, error)

func (f FactoryFunc) Create(ctx context.Context, cfg config.BackendConfig, apiKey string) (ports.Backend, error) {
	return f(ctx, cfg, apiKey)
}

// BackendRegistry maps config kinds to factories.
type BackendRegistry struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}

func NewBackendRegistry() *BackendRegistry {
	return &BackendRegistry{
		factories: make(map[string]BackendFactory),
	}
}

// NewDefaultRegistry registers the claude, gemini and openai kinds.
func NewDefaultRegistry() *BackendRegistry {
	r := NewBackendRegistry()
	_ = r.Register("claude", FactoryFunc(func(_ context.Context, cfg config.BackendConfig, apiKey string) (ports.Backend, error) {
		return claude.New(cfg, apiKey), nil
	}))
	_ = r.Register("gemini", FactoryFunc(func(ctx context.Context, cfg config.BackendConfig, apiKey string) (ports.Backend, error) {
		return gemini.New(ctx, cfg, apiKey)
	}))
	_ = r.Register("openai", FactoryFunc(func(_ context.Context, cfg config.BackendConfig, apiKey string) (ports.Backend, error) {
		return openai.New(cfg, apiKey), nil
	}))
	return r
}

func (r *BackendRegistry) Register(kind string, factory BackendFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("backend kind '%s' is already registered", kind)
	}

	r.factories[kind] = factory
	return nil
}

func (r *BackendRegistry) Get(kind string) (BackendFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[kind]
	if !exists {
		return nil, appErrors.ErrUnknownBackendKind.WithContext("kind", kind)
	}

	return factory, nil
}

// List returns the registered kinds, sorted.
func (r *BackendRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func (r *BackendRegistry) IsRegistered(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[kind]
	return exists
}

// BuildBackends creates every enabled backend in config order. Each one
// is wrapped with its retry policy and, when rc is not nil, with the
// response cache in front of that. A backend without an API key is
// skipped with a warning; it is an error only when no backend is left.
func (r *BackendRegistry) BuildBackends(ctx context.Context, cfg *config.Config, rc ai.ResponseCache) ([]ports.Backend, error) {
	var (
		backends []ports.Backend
		keyless  []string
	)

	for _, bc := range cfg.EnabledBackends() {
		factory, err := r.Get(bc.Kind)
		if err != nil {
			return nil, err
		}

		apiKey := bc.ResolveAPIKey()
		if apiKey == "" {
			logger.Warn(ctx, "backend skipped, api key missing", "backend", bc.Name, "api_key_env", bc.APIKeyEnv)
			keyless = append(keyless, bc.Name)
			continue
		}

		raw, err := factory.Create(ctx, bc, apiKey)
		if err != nil {
			return nil, appErrors.NewAppError(appErrors.TypeProvider, "Failed to create backend client", err).
				WithContext("backend", bc.Name)
		}

		var backend ports.Backend = orchestrator.WithPolicy(raw, orchestrator.Policy{
			Timeout:           bc.Timeout.Duration,
			MaxAttempts:       bc.MaxAttempts,
			InitialBackoff:    bc.InitialBackoff.Duration,
			MaxBackoff:        bc.MaxBackoff.Duration,
			RequestsPerMinute: bc.RequestsPerMinute,
		})
		if rc != nil {
			backend = ai.NewCachedBackend(backend, rc)
		}

		logger.Debug(ctx, "backend ready", "backend", bc.Name, "kind", bc.Kind, "model", bc.Model)
		backends = append(backends, backend)
	}

	if len(backends) == 0 && len(keyless) > 0 {
		return nil, appErrors.ErrAPIKeyMissing.WithContext("backend", strings.Join(keyless, ", "))
	}

	return backends, nil
}
