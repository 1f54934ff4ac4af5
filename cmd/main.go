package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/noggin-kb/noggin/internal/cli/command/cache"
	"github.com/noggin-kb/noggin/internal/cli/command/config"
	"github.com/noggin-kb/noggin/internal/cli/command/learn"
	"github.com/noggin-kb/noggin/internal/cli/command/status"
	"github.com/noggin-kb/noggin/internal/cli/registry"
	cfg "github.com/noggin-kb/noggin/internal/config"
	"github.com/noggin-kb/noggin/internal/i18n"
	"github.com/noggin-kb/noggin/internal/infrastructure/di"
	"github.com/noggin-kb/noggin/internal/infrastructure/git"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/ui"
	"github.com/noggin-kb/noggin/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	logger.Initialize(false, false)

	app, translations, err := initializeApp()
	if err != nil {
		ui.HandleAppError(os.Stderr, err, nil)
		os.Exit(1)
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		ui.HandleAppError(os.Stderr, err, translations)
		os.Exit(1)
	}
}

// repoRoot is the top of the enclosing git repository, or the working
// directory when there is none.
func repoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("error getting working directory: %w", err)
	}
	if root, err := git.NewWalker().RepoRoot(wd); err == nil {
		return root, nil
	}
	return wd, nil
}

func initializeApp() (*cli.Command, *i18n.Translations, error) {
	root, err := repoRoot()
	if err != nil {
		return nil, nil, err
	}

	cfgApp, err := cfg.LoadConfig(root)
	if err != nil {
		return nil, nil, err
	}

	lang, ok := cfg.ResolveLanguage(cfgApp.Language)
	if !ok {
		logger.Warn(context.Background(), "language not supported, using English", "language", cfgApp.Language)
	}

	translations, err := i18n.NewTranslations(lang, filepath.Join(cfg.Dir(root), "locales"))
	if err != nil {
		return nil, nil, err
	}

	container := di.NewContainer(root, cfgApp)

	learnerProvider := func(ctx context.Context) (learn.Learner, error) {
		service, err := container.GetLearnService(ctx)
		if err != nil {
			return nil, err
		}
		return service, nil
	}

	registerCommand := registry.NewRegistry(cfgApp, translations)
	factories := []struct {
		name    string
		factory registry.CommandFactory
	}{
		{"learn", learn.NewLearnCommandFactory(learnerProvider)},
		{"status", status.NewStatusCommandFactory(root)},
		{"config", config.NewConfigCommandFactory(root)},
		{"cache", cache.NewCacheCommandFactory(root)},
	}
	for _, f := range factories {
		if err := registerCommand.Register(f.name, f.factory); err != nil {
			return nil, nil, err
		}
	}

	var debug, verbose bool
	setLogLevel := func(context.Context, *cli.Command, bool) error {
		logger.Initialize(debug, verbose)
		return nil
	}

	return &cli.Command{
		Name:    "noggin",
		Usage:   translations.GetMessage("app_usage", 0, nil),
		Version: version.FullVersion(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       translations.GetMessage("flag_debug", 0, nil),
				Destination: &debug,
				Action:      setLogLevel,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Usage:       translations.GetMessage("flag_verbose", 0, nil),
				Destination: &verbose,
				Action:      setLogLevel,
			},
		},
		Commands:              registerCommand.CreateCommands(),
		EnableShellCompletion: true,
	}, translations, nil
}
