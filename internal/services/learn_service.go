package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/noggin-kb/noggin/internal/ai"
	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/manifest"
	"github.com/noggin-kb/noggin/internal/models"
	"github.com/noggin-kb/noggin/internal/orchestrator"
	"github.com/noggin-kb/noggin/internal/ports"
	"github.com/noggin-kb/noggin/internal/scoring"
	"github.com/noggin-kb/noggin/internal/synthesis"
)

type LearnOptions struct {
	// Verify synthesizes and reports without touching the knowledge base.
	Verify bool
	Full   bool
	// Limit overrides the configured walk limit when positive.
	Limit int
}

type LearnReport struct {
	RunID string

	FilesChanged int
	FilesDeleted int
	FilesTotal   int
	// FilesDeferred counts changed files left over the prompt's file cap.
	// They stay unrecorded and come back on the next run.
	FilesDeferred int

	CommitsWalked int
	CommitsNew    int
	// Significant holds the new commits at or above the minimum category.
	Significant         []models.CommitMetadata
	PatternsInvalidated []string
	Prompts             int

	BackendFailures []orchestrator.Failure
	Entries         []models.KnowledgeEntry
	Conflicts       []synthesis.FieldConflict
	Synthesis       *synthesis.Report
	// Records is nil in verify mode and when nothing was learned.
	Records *models.WriteResult

	UpToDate bool
}

// LearnService runs one incremental learning pass over a repository.
type LearnService struct {
	root         string
	cfg          *config.Config
	walker       ports.HistoryWalker
	scanner      ports.FileScanner
	writer       ports.RecordWriter
	backends     []ports.Backend
	orchestrator *orchestrator.Orchestrator
	scorer       *scoring.Scorer
	engine       *synthesis.Engine
	prompts      *ai.PromptBuilder
}

func NewLearnService(
	root string,
	cfg *config.Config,
	walker ports.HistoryWalker,
	fileScanner ports.FileScanner,
	recordWriter ports.RecordWriter,
	backends []ports.Backend,
) *LearnService {
	return &LearnService{
		root:         root,
		cfg:          cfg,
		walker:       walker,
		scanner:      fileScanner,
		writer:       recordWriter,
		backends:     backends,
		orchestrator: orchestrator.New(),
		scorer:       scoring.NewScorer(cfg.Scoring),
		engine:       synthesis.NewEngine(cfg.Synthesis),
		prompts:      ai.NewPromptBuilder(root),
	}
}

func (s *LearnService) Learn(ctx context.Context, opts LearnOptions) (*LearnReport, error) {
	report := &LearnReport{RunID: uuid.NewString()}
	ctx = logger.With(ctx, "run_id", report.RunID)
	logger.Info(ctx, "learn run started", "full", opts.Full, "verify", opts.Verify)

	manifestPath := config.ManifestPath(s.root)
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	scan, err := s.scanner.Scan(ctx, s.root, m, opts.Full)
	if err != nil {
		return nil, err
	}
	files := scan.Files
	if budget := s.prompts.MaxFiles(); len(files) > budget {
		report.FilesDeferred = len(files) - budget
		files = files[:budget]
	}
	report.FilesChanged = len(scan.Files)
	report.FilesDeleted = len(scan.Deleted)
	report.FilesTotal = scan.Total

	newCommits, err := s.newCommits(ctx, m, opts, report)
	if err != nil {
		return nil, err
	}
	report.Significant = s.significant(ctx, newCommits)

	report.PatternsInvalidated = m.FindInvalidatedPatterns(filePaths(files), scan.Deleted)
	stale := s.stalePatterns(m, report.PatternsInvalidated, scan.Deleted)

	prompts, err := s.buildPrompts(files, report.Significant, stale)
	if err != nil {
		return nil, err
	}
	report.Prompts = len(prompts)

	if len(prompts) == 0 {
		report.UpToDate = true
		logger.Info(ctx, "nothing new to learn")
		if opts.Verify {
			return report, nil
		}
		s.recordCommits(m, newCommits, nil)
		forgetDeleted(m, scan.Deleted)
		return report, m.Save(manifestPath)
	}

	var responses []models.RawResponse
	for _, prompt := range prompts {
		res, err := s.orchestrator.QueryAll(ctx, s.backends, prompt)
		if err != nil {
			return nil, err
		}
		responses = append(responses, res.Responses()...)
		report.BackendFailures = append(report.BackendFailures, res.Failures...)
	}

	synth, err := s.engine.SynthesizeResponses(ctx, responses)
	if err != nil {
		return nil, err
	}
	report.Entries = synth.Entries
	report.Conflicts = synth.Conflicts
	report.Synthesis = &synth.Report

	if opts.Verify {
		logger.Info(ctx, "verify mode, nothing written", "entries", len(synth.Entries))
		return report, nil
	}

	for _, id := range report.PatternsInvalidated {
		m.InvalidatePattern(id)
	}

	records, err := s.writer.Write(ctx, synth.Entries)
	if err != nil {
		return nil, err
	}
	report.Records = records

	if err := s.updateManifest(ctx, m, files, scan.Deleted, newCommits, synth.Entries, records); err != nil {
		return nil, err
	}
	if err := m.Save(manifestPath); err != nil {
		return nil, err
	}

	logger.Info(ctx, "learn run finished",
		"entries", len(synth.Entries),
		"written", records.Written,
		"updated", records.Updated)

	return report, nil
}

// newCommits walks the history page by page and keeps commits the
// manifest does not have yet, until the limit is reached. A full run keeps
// processed commits too.
func (s *LearnService) newCommits(ctx context.Context, m *manifest.Manifest, opts LearnOptions, report *LearnReport) ([]models.CommitMetadata, error) {
	limit := s.cfg.Walk.Limit
	if opts.Limit > 0 {
		limit = opts.Limit
	}

	walkOpts := models.WalkOptions{
		SkipMerges: s.cfg.Walk.SkipMerges,
		Limit:      limit,
		Paths:      s.cfg.Walk.Paths,
	}

	var fresh []models.CommitMetadata
	for {
		walked, err := s.walker.Walk(ctx, s.root, walkOpts)
		if err != nil {
			if errors.Is(err, appErrors.ErrRepositoryNotFound) {
				logger.Warn(ctx, "not a git repository, skipping history", "path", s.root)
				return nil, nil
			}
			return nil, err
		}
		report.CommitsWalked += len(walked.Commits)

		for _, c := range walked.Commits {
			if opts.Full || !m.IsCommitProcessed(c.Hash) {
				fresh = append(fresh, c)
			}
		}

		if limit <= 0 || len(fresh) >= limit || walked.Continuation == "" {
			break
		}
		logger.Debug(ctx, "walking next page", "since", walked.Continuation, "fresh", len(fresh))
		walkOpts.Since = walked.Continuation
	}

	if limit > 0 && len(fresh) > limit {
		fresh = fresh[:limit]
	}
	report.CommitsNew = len(fresh)
	return fresh, nil
}

func (s *LearnService) significant(ctx context.Context, commits []models.CommitMetadata) []models.CommitMetadata {
	minCategory, err := models.ParseScoreCategory(s.cfg.Scoring.MinCategory)
	if err != nil {
		minCategory = models.CategoryMedium
	}

	var out []models.CommitMetadata
	for _, c := range commits {
		score := s.scorer.Score(c)
		if score.Category >= minCategory {
			out = append(out, c)
			continue
		}
		logger.Debug(ctx, "commit below threshold",
			"commit", c.ShortHash,
			"category", score.Category.String(),
			"significance", score.Significance)
	}
	return out
}

// stalePatterns lists the invalidated patterns with their surviving files.
func (s *LearnService) stalePatterns(m *manifest.Manifest, ids, deleted []string) []ai.StalePattern {
	gone := make(map[string]bool, len(deleted))
	for _, d := range deleted {
		gone[d] = true
	}

	var out []ai.StalePattern
	for _, id := range ids {
		p, ok := m.Patterns[id]
		if !ok {
			continue
		}
		sp := ai.StalePattern{ID: id, Name: p.Name}
		for _, f := range p.ContributingFiles {
			if !gone[f] {
				sp.Files = append(sp.Files, f)
			}
		}
		out = append(out, sp)
	}
	return out
}

func (s *LearnService) buildPrompts(files []models.ScannedFile, commits []models.CommitMetadata, stale []ai.StalePattern) ([]string, error) {
	var prompts []string

	if len(files) > 0 {
		p, err := s.prompts.FilePrompt(files)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	if len(commits) > 0 {
		p, err := s.prompts.CommitPrompt(commits)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	if len(stale) > 0 {
		p, err := s.prompts.PatternPrompt(stale)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func (s *LearnService) updateManifest(
	ctx context.Context,
	m *manifest.Manifest,
	files []models.ScannedFile,
	deleted []string,
	commits []models.CommitMetadata,
	entries []models.KnowledgeEntry,
	records *models.WriteResult,
) error {
	for _, f := range files {
		if err := m.RecordFile(f.Path, f.Hash); err != nil {
			return err
		}
	}

	s.recordCommits(m, commits, commitRecords(entries, records.Paths))

	for i, e := range entries {
		if len(e.Context.Files) == 0 || i >= len(records.PatternIDs) {
			continue
		}
		id := records.PatternIDs[i]
		if untracked := m.UpsertPattern(id, e.What, e.Context.Files); len(untracked) > 0 {
			logger.Debug(ctx, "pattern cites untracked files", "pattern", id, "files", untracked)
		}
	}

	forgetDeleted(m, deleted)
	return nil
}

func (s *LearnService) recordCommits(m *manifest.Manifest, commits []models.CommitMetadata, records map[string]string) {
	for _, c := range commits {
		m.RecordCommit(c.Hash, manifest.InferCommitCategory(c.Message), recordFor(records, c))
	}
}

// commitRecords maps each commit id cited by an entry to that entry's
// record path. The first citing entry wins.
func commitRecords(entries []models.KnowledgeEntry, paths []string) map[string]string {
	out := make(map[string]string)
	for i, e := range entries {
		if i >= len(paths) {
			break
		}
		for _, c := range e.Context.Commits {
			c = strings.ToLower(strings.TrimSpace(c))
			if _, ok := out[c]; !ok && c != "" {
				out[c] = paths[i]
			}
		}
	}
	return out
}

// recordFor finds the record citing a commit by full or abbreviated hash.
func recordFor(records map[string]string, c models.CommitMetadata) string {
	if p, ok := records[c.Hash]; ok {
		return p
	}
	if p, ok := records[c.ShortHash]; ok {
		return p
	}
	for cited, p := range records {
		if len(cited) >= 4 && strings.HasPrefix(c.Hash, cited) {
			return p
		}
	}
	return ""
}

func forgetDeleted(m *manifest.Manifest, deleted []string) {
	for _, path := range deleted {
		for _, id := range m.PatternsForFile(path) {
			m.UnlinkPattern(id, path)
		}
		m.RemoveFile(path)
	}
}

func filePaths(files []models.ScannedFile) []string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return paths
}
