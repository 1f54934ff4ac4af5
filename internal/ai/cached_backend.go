package ai

import (
	"context"
	"encoding/json"

	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/ports"
)

// ResponseCache is the storage CachedBackend reads and fills.
type ResponseCache interface {
	GenerateHash(content string) string
	Get(hash string) (json.RawMessage, bool, error)
	Set(hash, backend string, response interface{}) error
}

var _ ports.Backend = (*CachedBackend)(nil)

// CachedBackend answers repeated prompts from the response cache. Only
// successful answers are stored.
type CachedBackend struct {
	backend ports.Backend
	cache   ResponseCache
}

func NewCachedBackend(backend ports.Backend, cache ResponseCache) *CachedBackend {
	return &CachedBackend{backend: backend, cache: cache}
}

func (c *CachedBackend) Name() string {
	return c.backend.Name()
}

func (c *CachedBackend) Query(ctx context.Context, prompt string) (string, error) {
	name := c.backend.Name()
	key := c.cache.GenerateHash(name + "\x00" + prompt)

	if data, hit, err := c.cache.Get(key); err == nil && hit {
		var text string
		if err := json.Unmarshal(data, &text); err == nil {
			logger.Debug(ctx, "cache hit", "backend", name, "cache_key_hash", key)
			return text, nil
		}
	} else if err != nil {
		logger.Warn(ctx, "failed to read cached response", "backend", name, "error", err)
	}

	logger.Debug(ctx, "cache miss, querying backend", "backend", name)

	text, err := c.backend.Query(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(key, name, text); err != nil {
		logger.Warn(ctx, "failed to cache response", "backend", name, "error", err)
	}
	return text, nil
}
