package cache

import (
	"context"

	"github.com/noggin-kb/noggin/internal/config"
	"github.com/noggin-kb/noggin/internal/i18n"
	"github.com/noggin-kb/noggin/internal/infrastructure/cache"
	"github.com/noggin-kb/noggin/internal/ui"
	"github.com/urfave/cli/v3"
)

type CacheCommandFactory struct {
	root string
}

func NewCacheCommandFactory(root string) *CacheCommandFactory {
	return &CacheCommandFactory{root: root}
}

func (f *CacheCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: t.GetMessage("cache_command_usage", 0, nil),
		Commands: []*cli.Command{
			{
				Name:  "clean",
				Usage: t.GetMessage("cache_clean_usage", 0, nil),
				Action: func(ctx context.Context, command *cli.Command) error {
					rc, err := cache.NewCache(config.CacheDir(f.root), cfg.Cache.TTL.Duration)
					if err != nil {
						return err
					}
					if err := rc.Clean(); err != nil {
						return err
					}

					ui.PrintSuccess(command.Root().Writer, t.GetMessage("cache_cleaned", 0, nil))
					return nil
				},
			},
		},
	}
}
