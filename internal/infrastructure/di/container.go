package di

import (
	"context"

	"github.com/noggin-kb/noggin/internal/ai"
	"github.com/noggin-kb/noggin/internal/config"
	"github.com/noggin-kb/noggin/internal/infrastructure/ai/registry"
	"github.com/noggin-kb/noggin/internal/infrastructure/cache"
	"github.com/noggin-kb/noggin/internal/infrastructure/git"
	"github.com/noggin-kb/noggin/internal/infrastructure/scanner"
	"github.com/noggin-kb/noggin/internal/infrastructure/writer"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/ports"
	"github.com/noggin-kb/noggin/internal/services"
)

// Container wires the learning pipeline for one repository. Backends are
// only built when a command asks for the learn service, so commands that
// never query a model work without API keys.
type Container struct {
	root   string
	config *config.Config

	backendRegistry *registry.BackendRegistry

	walker  ports.HistoryWalker
	scanner ports.FileScanner
	writer  ports.RecordWriter

	learnService *services.LearnService
}

func NewContainer(root string, cfg *config.Config) *Container {
	return &Container{
		root:            root,
		config:          cfg,
		backendRegistry: registry.NewDefaultRegistry(),
		walker:          git.NewWalker(),
		scanner:         scanner.New(),
		writer:          writer.New(root),
	}
}

// RegisterBackend adds a backend kind next to the built-in ones.
func (c *Container) RegisterBackend(kind string, factory registry.BackendFactory) error {
	return c.backendRegistry.Register(kind, factory)
}

func (c *Container) GetBackendRegistry() *registry.BackendRegistry {
	return c.backendRegistry
}

func (c *Container) SetHistoryWalker(walker ports.HistoryWalker) {
	c.walker = walker
}

func (c *Container) SetFileScanner(fileScanner ports.FileScanner) {
	c.scanner = fileScanner
}

func (c *Container) SetRecordWriter(recordWriter ports.RecordWriter) {
	c.writer = recordWriter
}

// GetLearnService builds the learn service on first use.
func (c *Container) GetLearnService(ctx context.Context) (*services.LearnService, error) {
	if c.learnService != nil {
		return c.learnService, nil
	}

	backends, err := c.backendRegistry.BuildBackends(ctx, c.config, c.responseCache(ctx))
	if err != nil {
		return nil, err
	}

	c.learnService = services.NewLearnService(c.root, c.config, c.walker, c.scanner, c.writer, backends)
	return c.learnService, nil
}

// responseCache returns nil when caching is off or the cache directory
// cannot be used; a run without cache still works.
func (c *Container) responseCache(ctx context.Context) ai.ResponseCache {
	if !c.config.Cache.Enabled {
		return nil
	}

	rc, err := cache.NewCache(config.CacheDir(c.root), c.config.Cache.TTL.Duration)
	if err != nil {
		logger.Warn(ctx, "response cache disabled", "error", err)
		return nil
	}
	return rc
}
