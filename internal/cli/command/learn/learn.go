package learn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/noggin-kb/noggin/internal/config"
	"github.com/noggin-kb/noggin/internal/i18n"
	"github.com/noggin-kb/noggin/internal/services"
	"github.com/noggin-kb/noggin/internal/synthesis"
	"github.com/noggin-kb/noggin/internal/ui"
	"github.com/urfave/cli/v3"
)

type Learner interface {
	Learn(ctx context.Context, opts services.LearnOptions) (*services.LearnReport, error)
}

// LearnerProvider builds the learner when the command runs, so API keys
// are only required by learn itself.
type LearnerProvider func(ctx context.Context) (Learner, error)

type LearnCommandFactory struct {
	newLearner LearnerProvider
}

func NewLearnCommandFactory(newLearner LearnerProvider) *LearnCommandFactory {
	return &LearnCommandFactory{newLearner: newLearner}
}

func (f *LearnCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:    "learn",
		Aliases: []string{"l"},
		Usage:   t.GetMessage("learn_command_usage", 0, nil),
		Flags:   f.createFlags(cfg, t),
		Action:  f.createAction(t),
	}
}

func (f *LearnCommandFactory) createFlags(cfg *config.Config, t *i18n.Translations) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "verify",
			Usage: t.GetMessage("learn_flag_verify", 0, nil),
		},
		&cli.BoolFlag{
			Name:    "full",
			Aliases: []string{"f"},
			Usage:   t.GetMessage("learn_flag_full", 0, nil),
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Value:   int64(cfg.Walk.Limit),
			Usage:   t.GetMessage("learn_flag_limit", 0, nil),
		},
	}
}

func (f *LearnCommandFactory) createAction(t *i18n.Translations) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		limit := command.Int("limit")
		if limit < 0 {
			return errors.New(t.GetMessage("learn_invalid_limit", 0, nil))
		}

		opts := services.LearnOptions{
			Verify: command.Bool("verify"),
			Full:   command.Bool("full"),
			Limit:  int(limit),
		}

		learner, err := f.newLearner(ctx)
		if err != nil {
			return err
		}

		w := command.Root().Writer
		var report *services.LearnReport
		err = ui.WithSpinner(w, t.GetMessage("learn_querying", 0, nil), func() error {
			var learnErr error
			report, learnErr = learner.Learn(ctx, opts)
			return learnErr
		})
		if err != nil {
			return err
		}

		printReport(w, t, report, opts.Verify)
		return nil
	}
}

func printReport(w io.Writer, t *i18n.Translations, r *services.LearnReport, verify bool) {
	ui.PrintInfo(w, t.GetMessage("learn_scan_summary", 0, map[string]interface{}{
		"Changed": r.FilesChanged,
		"Deleted": r.FilesDeleted,
		"Total":   r.FilesTotal,
	}))
	ui.PrintInfo(w, t.GetMessage("learn_commit_summary", 0, map[string]interface{}{
		"New":         r.CommitsNew,
		"Walked":      r.CommitsWalked,
		"Significant": len(r.Significant),
	}))
	if r.FilesDeferred > 0 {
		ui.PrintInfo(w, t.GetMessage("learn_files_deferred", 0, map[string]interface{}{"Count": r.FilesDeferred}))
	}
	if n := len(r.PatternsInvalidated); n > 0 {
		ui.PrintInfo(w, t.GetMessage("learn_patterns_invalidated", n, map[string]interface{}{"Count": n}))
	}

	if r.UpToDate {
		ui.PrintSuccess(w, t.GetMessage("learn_nothing_to_do", 0, nil))
		return
	}

	for _, failure := range r.BackendFailures {
		ui.PrintWarning(w, t.GetMessage("learn_backend_failed", 0, map[string]interface{}{
			"Backend": failure.Backend,
			"Reason":  failure.Err.Error(),
		}))
	}
	if r.Synthesis != nil {
		for _, failure := range r.Synthesis.ParseFailures {
			ui.PrintWarning(w, t.GetMessage("learn_backend_failed", 0, map[string]interface{}{
				"Backend": failure.Backend,
				"Reason":  failure.Err.Error(),
			}))
		}
		printSynthesis(w, t, r.Synthesis)
	}

	n := len(r.Entries)
	ui.PrintSuccess(w, t.GetMessage("learn_entries", n, map[string]interface{}{"Count": n}))

	if verify {
		ui.PrintSectionBanner(w, t.GetMessage("learn_verify_header", 0, nil))
		for _, e := range r.Entries {
			_, _ = fmt.Fprintf(w, "%s %s\n", ui.Accent.Sprintf("[%s]", synthesis.Categorize(e)), e.What)
			if e.Why != "" {
				_, _ = fmt.Fprintf(w, "   %s\n", ui.Dim.Sprint(e.Why))
			}
		}
		return
	}

	if r.Records != nil {
		ui.PrintSuccess(w, t.GetMessage("learn_records", 0, map[string]interface{}{
			"Written": r.Records.Written,
			"Updated": r.Records.Updated,
			"Skipped": r.Records.Skipped,
		}))
	}
}

func printSynthesis(w io.Writer, t *i18n.Translations, s *synthesis.Report) {
	if len(s.BackendsUsed) > 1 {
		ui.PrintInfo(w, t.GetMessage("learn_agreement", 0, map[string]interface{}{
			"Backends": strings.Join(s.BackendsUsed, ", "),
			"Percent":  int(math.Round(s.Agreement * 100)),
		}))
	}
	if s.ConflictsDetected > 0 {
		ui.PrintInfo(w, t.GetMessage("learn_conflicts", 0, map[string]interface{}{
			"Detected":   s.ConflictsDetected,
			"Resolved":   s.ConflictsResolved,
			"Unresolved": s.ConflictsUnresolved,
		}))
	}
}
