package synthesis

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/models"
)

const DefaultClusterDistance = 3

// ParseFailure is a backend whose response yielded no entries.
type ParseFailure struct {
	Backend string
	Err     error
}

type Report struct {
	InputCount          int
	OutputCount         int
	ConflictsDetected   int
	ConflictsResolved   int
	ConflictsUnresolved int
	// Agreement is OutputCount/InputCount; lower means more overlap
	// between backends.
	Agreement     float64
	BackendsUsed  []string
	ParseFailures []ParseFailure
}

type Result struct {
	Entries   []models.KnowledgeEntry
	Conflicts []FieldConflict
	Report    Report
}

// Engine reconciles the candidates of several backends into one list.
type Engine struct {
	voter           *Voter
	clusterDistance int
}

func NewEngine(cfg config.SynthesisConfig) *Engine {
	distance := cfg.ClusterDistance
	if distance < 1 {
		distance = DefaultClusterDistance
	}
	return &Engine{
		voter:           NewVoter(cfg.Weights, cfg.MajorityThreshold),
		clusterDistance: distance,
	}
}

// SynthesizeResponses parses each raw response and synthesizes the
// candidates. A response that cannot be parsed is logged and reported,
// never fatal on its own.
func (e *Engine) SynthesizeResponses(ctx context.Context, responses []models.RawResponse) (*Result, error) {
	outputs, failures := GatherOutputs(ctx, responses)

	res, err := e.Synthesize(ctx, outputs)
	if err != nil {
		var appErr *appErrors.AppError
		if len(failures) > 0 && errors.As(err, &appErr) {
			return nil, appErr.WithContext("parse_failures", len(failures))
		}
		return nil, err
	}
	res.Report.ParseFailures = failures
	return res, nil
}

// GatherOutputs parses every response and folds the entries of each
// backend into one ModelOutput, in order of first appearance. Responses
// that fail to parse are returned as failures.
func GatherOutputs(ctx context.Context, responses []models.RawResponse) ([]models.ModelOutput, []ParseFailure) {
	var (
		outputs  []models.ModelOutput
		failures []ParseFailure
	)
	index := make(map[string]int)
	for _, r := range responses {
		entries, err := ParseResponse(r.Backend, r.Text)
		if err != nil {
			logger.Warn(ctx, "discarding unparseable response", "backend", r.Backend, "error", err)
			failures = append(failures, ParseFailure{Backend: r.Backend, Err: err})
			continue
		}
		logger.Debug(ctx, "parsed response", "backend", r.Backend, "entries", len(entries))

		i, ok := index[r.Backend]
		if !ok {
			i = len(outputs)
			index[r.Backend] = i
			outputs = append(outputs, models.ModelOutput{Backend: r.Backend})
		}
		outputs[i].Entries = append(outputs[i].Entries, entries...)
	}
	return outputs, failures
}

// Synthesize categorizes, clusters, merges and votes on the candidates.
// With exactly one contributing backend its candidates are returned as is.
func (e *Engine) Synthesize(ctx context.Context, outputs []models.ModelOutput) (*Result, error) {
	var (
		cands []candidate
		used  []string
		last  int
	)
	for i, out := range outputs {
		if len(out.Entries) == 0 {
			continue
		}
		used = append(used, out.Backend)
		last = i
		for _, entry := range out.Entries {
			cands = append(cands, candidate{source: out.Backend, entry: entry})
		}
	}

	if len(cands) == 0 {
		return nil, appErrors.ErrNoValidEntries
	}

	if len(used) == 1 {
		entries := append([]models.KnowledgeEntry(nil), outputs[last].Entries...)
		logger.Info(ctx, "single backend, skipping reconciliation", "backend", used[0], "entries", len(entries))
		return &Result{
			Entries: entries,
			Report: Report{
				InputCount:   len(cands),
				OutputCount:  len(entries),
				Agreement:    1,
				BackendsUsed: used,
			},
		}, nil
	}

	groups := groupByCategory(cands)

	var (
		merged    []models.KnowledgeEntry
		conflicts []FieldConflict
	)
	for _, cat := range models.EntryCategories {
		for _, cluster := range clusterCandidates(groups[cat], e.clusterDistance) {
			entry, cs := mergeCluster(cluster, len(merged))
			merged = append(merged, entry)
			conflicts = append(conflicts, cs...)
		}
	}

	report := Report{
		InputCount:        len(cands),
		ConflictsDetected: len(conflicts),
		BackendsUsed:      used,
	}
	for i := range conflicts {
		c := &conflicts[i]
		c.Resolution = e.voter.Resolve(*c)
		apply(&merged[c.EntryIndex], *c, c.Resolution)
		if resolved(c.Resolution) {
			report.ConflictsResolved++
		} else {
			report.ConflictsUnresolved++
		}
		logger.Debug(ctx, "conflict resolved",
			"field", c.Field,
			"entry", c.EntryIndex,
			"resolution", c.Resolution.String())
	}

	entries, conflicts := normalize(merged, conflicts)

	report.OutputCount = len(entries)
	report.Agreement = float64(report.OutputCount) / float64(report.InputCount)
	if report.Agreement > 1 {
		report.Agreement = 1
	}

	logger.Info(ctx, "synthesis finished",
		"entries", report.OutputCount,
		"total", report.InputCount,
		"conflicts", report.ConflictsDetected,
		"unresolved", report.ConflictsUnresolved)

	return &Result{Entries: entries, Conflicts: conflicts, Report: report}, nil
}

// normalize trims and dedupes every entry, then orders entries by what.
// Conflict indexes are remapped to the new positions.
func normalize(entries []models.KnowledgeEntry, conflicts []FieldConflict) ([]models.KnowledgeEntry, []FieldConflict) {
	order := make([]int, len(entries))
	for i := range entries {
		e := &entries[i]
		e.What = strings.TrimSpace(e.What)
		e.Why = strings.TrimSpace(e.Why)
		e.How = strings.TrimSpace(e.How)
		e.Context.Files = sortedUnique(e.Context.Files)
		e.Context.Commits = sortedUnique(e.Context.Commits)
		e.Context.Dependencies = sortedUnique(e.Context.Dependencies)
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return entries[order[a]].What < entries[order[b]].What
	})

	sorted := make([]models.KnowledgeEntry, len(entries))
	position := make([]int, len(entries))
	for newIdx, oldIdx := range order {
		sorted[newIdx] = entries[oldIdx]
		position[oldIdx] = newIdx
	}
	for i := range conflicts {
		conflicts[i].EntryIndex = position[conflicts[i].EntryIndex]
	}

	return sorted, conflicts
}
