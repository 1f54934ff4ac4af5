package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/i18n"
	"github.com/noggin-kb/noggin/internal/ui"
	"github.com/urfave/cli/v3"
)

// stateIgnore keeps cached backend answers out of version control while
// records and the manifest stay tracked.
const stateIgnore = "cache/\n"

func (c *ConfigCommandFactory) newInitCommand(t *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: t.GetMessage("config_init_usage", 0, nil),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: t.GetMessage("config_init_force", 0, nil),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			w := command.Root().Writer
			path := config.ConfigPath(c.root)

			if err := ensureStateDir(c.root); err != nil {
				return err
			}

			_, err := os.Stat(path)
			switch {
			case err == nil && !command.Bool("force"):
				ui.PrintWarning(w, t.GetMessage("config_already_exists", 0, map[string]interface{}{"Path": path}))
				return nil
			case err != nil && !errors.Is(err, os.ErrNotExist):
				return appErrors.ErrConfigRead.WithError(err).WithContext("path", path)
			}

			cfg := config.Default()
			cfg.PathFile = path
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}

			ui.PrintSuccess(w, t.GetMessage("config_initialized", 0, map[string]interface{}{"Path": path}))
			return nil
		},
	}
}

func ensureStateDir(root string) error {
	dir := config.Dir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return appErrors.ErrConfigWrite.WithError(err).WithContext("path", dir)
	}

	ignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(ignore); err == nil {
		return nil
	}
	if err := os.WriteFile(ignore, []byte(stateIgnore), 0644); err != nil {
		return appErrors.ErrConfigWrite.WithError(err).WithContext("path", ignore)
	}
	return nil
}
