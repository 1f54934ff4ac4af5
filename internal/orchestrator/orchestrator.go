package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/models"
	"github.com/noggin-kb/noggin/internal/ports"
	"golang.org/x/sync/errgroup"
)

type Success struct {
	Backend string
	Text    string
}

type Failure struct {
	Backend string
	Err     error
}

// Result holds every backend's outcome in the order backends were given.
type Result struct {
	Successes []Success
	Failures  []Failure
}

// Responses returns the successful answers for synthesis.
func (r *Result) Responses() []models.RawResponse {
	out := make([]models.RawResponse, 0, len(r.Successes))
	for _, s := range r.Successes {
		out = append(out, models.RawResponse{Backend: s.Backend, Text: s.Text})
	}
	return out
}

type outcome struct {
	text string
	err  error
}

type Orchestrator struct{}

func New() *Orchestrator {
	return &Orchestrator{}
}

// QueryAll sends prompt to every backend at once and waits for all of
// them. A slow backend is never cancelled because another one answered;
// each backend is bounded only by its own policy. It fails when there are
// no backends or none succeeded.
func (o *Orchestrator) QueryAll(ctx context.Context, backends []ports.Backend, prompt string) (*Result, error) {
	if len(backends) == 0 {
		return nil, appErrors.ErrNoBackends
	}

	log := logger.FromContext(ctx)
	log.Info("querying backends", "count", len(backends))
	start := time.Now()

	outcomes := make([]outcome, len(backends))

	// branches report through their slot and never return an error, so the
	// group does not cancel siblings
	var g errgroup.Group
	for i, b := range backends {
		g.Go(func() error {
			text, err := b.Query(ctx, prompt)
			outcomes[i] = outcome{text: text, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{}
	for i, b := range backends {
		out := outcomes[i]
		if out.err != nil {
			log.Warn("backend failed", "backend", b.Name(), "error", out.err)
			result.Failures = append(result.Failures, Failure{Backend: b.Name(), Err: out.err})
			continue
		}
		result.Successes = append(result.Successes, Success{Backend: b.Name(), Text: out.text})
	}

	log.Info("backends finished",
		"duration", time.Since(start).Round(time.Millisecond),
		"succeeded", len(result.Successes),
		"failed", len(result.Failures))

	if len(result.Successes) == 0 {
		return nil, allFailed(result.Failures)
	}
	return result, nil
}

func allFailed(failures []Failure) error {
	names := make([]string, 0, len(failures))
	reasons := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Backend)
		reasons = append(reasons, fmt.Sprintf("%s: %v", f.Backend, f.Err))
	}
	return appErrors.ErrAllBackendsFailed.
		WithContext("backends", names).
		WithContext("detail", strings.Join(reasons, "; "))
}
