package config

import (
	"github.com/noggin-kb/noggin/internal/config"
	"github.com/noggin-kb/noggin/internal/i18n"
	"github.com/urfave/cli/v3"
)

type ConfigCommandFactory struct {
	root string
}

func NewConfigCommandFactory(root string) *ConfigCommandFactory {
	return &ConfigCommandFactory{root: root}
}

func (c *ConfigCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   t.GetMessage("config_command_usage", 0, nil),
		Commands: []*cli.Command{
			c.newInitCommand(t),
			c.newShowCommand(t, cfg),
		},
	}
}
