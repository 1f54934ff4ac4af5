package config

import (
	"context"

	"github.com/BurntSushi/toml"
	"github.com/noggin-kb/noggin/internal/config"
	"github.com/noggin-kb/noggin/internal/i18n"
	"github.com/noggin-kb/noggin/internal/ui"
	"github.com/urfave/cli/v3"
)

const maskedKey = "********"

func (c *ConfigCommandFactory) newShowCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: t.GetMessage("config_show_usage", 0, nil),
		Action: func(ctx context.Context, command *cli.Command) error {
			w := command.Root().Writer
			ui.PrintSectionBanner(w, t.GetMessage("config_show_header", 0, map[string]interface{}{"Path": cfg.PathFile}))
			return toml.NewEncoder(w).Encode(masked(cfg))
		},
	}
}

// masked returns a copy of cfg with inline API keys hidden.
func masked(cfg *config.Config) config.Config {
	out := *cfg
	out.Backends = make([]config.BackendConfig, len(cfg.Backends))
	for i, b := range cfg.Backends {
		if b.APIKey != "" {
			b.APIKey = maskedKey
		}
		out.Backends[i] = b
	}
	return out
}
