package status

import (
	"context"
	"fmt"
	"io"

	"github.com/noggin-kb/noggin/internal/config"
	"github.com/noggin-kb/noggin/internal/i18n"
	"github.com/noggin-kb/noggin/internal/manifest"
	"github.com/noggin-kb/noggin/internal/ui"
	"github.com/urfave/cli/v3"
)

const timeLayout = "2006-01-02 15:04:05"

type StatusCommandFactory struct {
	root string
}

func NewStatusCommandFactory(root string) *StatusCommandFactory {
	return &StatusCommandFactory{root: root}
}

func (f *StatusCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"st"},
		Usage:   t.GetMessage("status_command_usage", 0, nil),
		Action: func(ctx context.Context, command *cli.Command) error {
			m, err := manifest.Load(config.ManifestPath(f.root))
			if err != nil {
				return err
			}

			w := command.Root().Writer
			printStats(w, t, m.Stats())
			printBackends(w, t, cfg.Backends)
			return nil
		},
	}
}

func printStats(w io.Writer, t *i18n.Translations, s manifest.Stats) {
	if s.Files == 0 && s.Commits == 0 && s.Patterns == 0 {
		ui.PrintInfo(w, t.GetMessage("status_not_initialized", 0, nil))
		return
	}

	ui.PrintInfo(w, t.GetMessage("status_files", s.Files, map[string]interface{}{"Count": s.Files}))
	ui.PrintInfo(w, t.GetMessage("status_commits", s.Commits, map[string]interface{}{"Count": s.Commits}))
	ui.PrintInfo(w, t.GetMessage("status_patterns", s.Patterns, map[string]interface{}{"Count": s.Patterns}))

	if s.LastUpdated.IsZero() {
		ui.PrintInfo(w, t.GetMessage("status_never_updated", 0, nil))
		return
	}
	ui.PrintInfo(w, t.GetMessage("status_last_updated", 0, map[string]interface{}{
		"When": s.LastUpdated.Local().Format(timeLayout),
	}))
}

func printBackends(w io.Writer, t *i18n.Translations, backends []config.BackendConfig) {
	if len(backends) == 0 {
		return
	}

	ui.PrintSectionBanner(w, t.GetMessage("status_backends", 0, nil))
	for _, b := range backends {
		state := ui.Success.Sprint(t.GetMessage("status_backend_enabled", 0, nil))
		if !b.Enabled {
			state = ui.Dim.Sprint(t.GetMessage("status_backend_disabled", 0, nil))
		}
		_, _ = fmt.Fprintf(w, "   %s %s %s\n", ui.Accent.Sprint(b.Name), ui.Dim.Sprintf("(%s, %s)", b.Kind, b.Model), state)
	}
}
