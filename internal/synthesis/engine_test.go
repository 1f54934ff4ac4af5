package synthesis

import (
	"context"
	"testing"

	"github.com/noggin-kb/noggin/internal/config"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(config.Default().Synthesis)
}

func entry(what, why, how string) models.KnowledgeEntry {
	return models.KnowledgeEntry{What: what, Why: why, How: how}
}

func output(backend string, entries ...models.KnowledgeEntry) models.ModelOutput {
	return models.ModelOutput{Backend: backend, Entries: entries}
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()

	t.Run("identical answers collapse into one entry", func(t *testing.T) {
		pooling := entry("Use connection pooling", "Reduces overhead", "Configure PgBouncer")

		res, err := newTestEngine().Synthesize(ctx, []models.ModelOutput{
			output("claude", pooling),
			output("gemini", pooling),
			output("codex", pooling),
		})
		require.NoError(t, err)

		assert.Equal(t, []models.KnowledgeEntry{pooling}, res.Entries)
		assert.Empty(t, res.Conflicts)
		assert.Equal(t, 3, res.Report.InputCount)
		assert.Equal(t, 1, res.Report.OutputCount)
		assert.Equal(t, 0, res.Report.ConflictsDetected)
		assert.InDelta(t, 1.0/3.0, res.Report.Agreement, 1e-9)
		assert.Equal(t, []string{"claude", "gemini", "codex"}, res.Report.BackendsUsed)
	})

	t.Run("single backend is returned verbatim", func(t *testing.T) {
		raw := []models.KnowledgeEntry{
			{What: "  Zeta  ", Why: "b. a.", How: "x", Context: models.EntryContext{Files: []string{"z.go", "a.go", "a.go"}}},
			entry("Alpha", "why", "how"),
		}

		res, err := newTestEngine().Synthesize(ctx, []models.ModelOutput{
			output("gemini"),
			output("claude", raw...),
		})
		require.NoError(t, err)

		assert.Equal(t, raw, res.Entries)
		assert.Empty(t, res.Conflicts)
		assert.Equal(t, []string{"claude"}, res.Report.BackendsUsed)
		assert.Equal(t, 2, res.Report.OutputCount)
	})

	t.Run("zero candidates is an error", func(t *testing.T) {
		_, err := newTestEngine().Synthesize(ctx, nil)
		assert.ErrorIs(t, err, appErrors.ErrNoValidEntries)

		_, err = newTestEngine().Synthesize(ctx, []models.ModelOutput{output("claude"), output("gemini")})
		assert.ErrorIs(t, err, appErrors.ErrNoValidEntries)
	})

	t.Run("majority wins a what conflict", func(t *testing.T) {
		res, err := newTestEngine().Synthesize(ctx, []models.ModelOutput{
			output("claude", entry("Use connection pool", "Overhead", "PgBouncer")),
			output("gemini", entry("Use connection pool", "Overhead", "PgBouncer")),
			output("codex", entry("Use connection pools", "Latency", "PgBouncer")),
		})
		require.NoError(t, err)

		require.Len(t, res.Entries, 1)
		assert.Equal(t, "Use connection pool", res.Entries[0].What)
		assert.Equal(t, "Overhead. Latency", res.Entries[0].Why)

		require.Len(t, res.Conflicts, 1)
		c := res.Conflicts[0]
		assert.Equal(t, "what", c.Field)
		assert.Equal(t, DifferentValues, c.Kind)
		assert.Len(t, c.Values, 3)
		vote, ok := c.Resolution.(MajorityVote)
		require.True(t, ok, "got %v", c.Resolution)
		assert.Equal(t, "Use connection pool", vote.Winner)
		assert.InDelta(t, 2.3, vote.Score, 1e-9)
		assert.Equal(t, 1, res.Report.ConflictsResolved)
		assert.Equal(t, 0, res.Report.ConflictsUnresolved)
	})

	t.Run("highest weight settles a three way outcome split", func(t *testing.T) {
		withOutcome := func(latency string) models.KnowledgeEntry {
			e := entry("Cache responses in memory", "Speed", "LRU")
			e.Context.Outcome = map[string]string{"latency": latency, "hit_rate": "90%"}
			return e
		}

		res, err := newTestEngine().Synthesize(ctx, []models.ModelOutput{
			output("gemini", withOutcome("20ms")),
			output("codex", withOutcome("30ms")),
			output("claude", withOutcome("10ms")),
		})
		require.NoError(t, err)

		require.Len(t, res.Entries, 1)
		assert.Equal(t, map[string]string{"latency": "10ms", "hit_rate": "90%"}, res.Entries[0].Context.Outcome)

		require.Len(t, res.Conflicts, 1)
		assert.Equal(t, "context.outcome.latency", res.Conflicts[0].Field)
		assert.Equal(t, HighestWeight{Source: "claude", Weight: 1.2}, res.Conflicts[0].Resolution)
	})

	t.Run("resolutions land on their own entry", func(t *testing.T) {
		zebra := func(region string) models.KnowledgeEntry {
			e := entry("Zebra cache holds sessions", "Speed", "In memory")
			e.Context.Outcome = map[string]string{"region": region}
			return e
		}
		alpha := entry("Alpha service owns billing", "Ownership", "Team alpha")

		res, err := newTestEngine().Synthesize(ctx, []models.ModelOutput{
			output("gemini", zebra("eu"), alpha),
			output("claude", zebra("us"), alpha),
		})
		require.NoError(t, err)

		require.Len(t, res.Entries, 2)
		assert.Equal(t, "Alpha service owns billing", res.Entries[0].What)
		assert.Nil(t, res.Entries[0].Context.Outcome)
		assert.Equal(t, "Zebra cache holds sessions", res.Entries[1].What)
		assert.Equal(t, map[string]string{"region": "us"}, res.Entries[1].Context.Outcome)

		require.Len(t, res.Conflicts, 1)
		assert.Equal(t, 1, res.Conflicts[0].EntryIndex)
		assert.Equal(t, HighestWeight{Source: "claude", Weight: 1.2}, res.Conflicts[0].Resolution)
	})

	t.Run("context lists are unioned and sorted", func(t *testing.T) {
		a := entry("Retry uploads", "Flaky network", "Wrap in retry")
		a.Context = models.EntryContext{Files: []string{"up.go", "net.go"}, Commits: []string{"bbb"}}
		b := entry("Retry uploads", "Flaky network", "Wrap in retry")
		b.Context = models.EntryContext{Files: []string{"net.go", "api.go"}, Commits: []string{"aaa"}, Dependencies: []string{"backoff"}}

		res, err := newTestEngine().Synthesize(ctx, []models.ModelOutput{output("claude", a), output("codex", b)})
		require.NoError(t, err)

		require.Len(t, res.Entries, 1)
		assert.Equal(t, models.EntryContext{
			Files:        []string{"api.go", "net.go", "up.go"},
			Commits:      []string{"aaa", "bbb"},
			Dependencies: []string{"backoff"},
		}, res.Entries[0].Context)
	})

	t.Run("entries are ordered by what", func(t *testing.T) {
		res, err := newTestEngine().Synthesize(ctx, []models.ModelOutput{
			output("claude", entry("Charlie facts", "w", "h"), entry("Bravo facts", "w", "h")),
			output("gemini", entry("Alpha facts", "w", "h")),
		})
		require.NoError(t, err)

		var whats []string
		for _, e := range res.Entries {
			whats = append(whats, e.What)
		}
		assert.Equal(t, []string{"Alpha facts", "Bravo facts", "Charlie facts"}, whats)
	})
}

func TestSynthesizeResponses(t *testing.T) {
	ctx := context.Background()
	doc := "[[entry]]\nwhat = \"Use connection pooling\"\nwhy = \"Reduces overhead\"\nhow = \"Configure PgBouncer\"\n"

	t.Run("unparseable responses are reported, not fatal", func(t *testing.T) {
		res, err := newTestEngine().SynthesizeResponses(ctx, []models.RawResponse{
			{Backend: "claude", Text: doc},
			{Backend: "gemini", Text: "Sorry, I cannot help with that."},
			{Backend: "codex", Text: doc},
		})
		require.NoError(t, err)

		require.Len(t, res.Entries, 1)
		assert.Equal(t, []string{"claude", "codex"}, res.Report.BackendsUsed)
		require.Len(t, res.Report.ParseFailures, 1)
		assert.Equal(t, "gemini", res.Report.ParseFailures[0].Backend)
		assert.ErrorIs(t, res.Report.ParseFailures[0].Err, appErrors.ErrParseFailed)
	})

	t.Run("responses of one backend fold into one output", func(t *testing.T) {
		other := "[[entry]]\nwhat = \"Fixed race in scheduler\"\nwhy = \"Flaky jobs\"\nhow = \"Added a mutex\"\n"

		outputs, failures := GatherOutputs(ctx, []models.RawResponse{
			{Backend: "claude", Text: doc},
			{Backend: "gemini", Text: doc},
			{Backend: "claude", Text: other},
			{Backend: "gemini", Text: "not toml"},
		})

		require.Len(t, failures, 1)
		require.Len(t, outputs, 2)
		assert.Equal(t, "claude", outputs[0].Backend)
		assert.Len(t, outputs[0].Entries, 2)
		assert.Equal(t, "gemini", outputs[1].Backend)
		assert.Len(t, outputs[1].Entries, 1)
	})

	t.Run("nothing parseable is an error", func(t *testing.T) {
		_, err := newTestEngine().SynthesizeResponses(ctx, []models.RawResponse{
			{Backend: "claude", Text: ""},
			{Backend: "gemini", Text: "no toml here"},
		})
		assert.ErrorIs(t, err, appErrors.ErrNoValidEntries)
	})
}

func TestMergeCluster(t *testing.T) {
	t.Run("single member passes through", func(t *testing.T) {
		e := entry("  untouched ", "a. a", "x")
		got, conflicts := mergeCluster([]candidate{{source: "claude", entry: e}}, 4)
		assert.Equal(t, e, got)
		assert.Empty(t, conflicts)
	})

	t.Run("duplicate why sentence appears once", func(t *testing.T) {
		got, _ := mergeCluster([]candidate{
			{source: "claude", entry: entry("Pool", "Reduces overhead. Scales better.", "a")},
			{source: "gemini", entry: entry("Pool", "Reduces overhead.", "a")},
		}, 0)
		assert.Equal(t, "Reduces overhead. Scales better", got.Why)
	})

	t.Run("how steps are unioned in first-seen order", func(t *testing.T) {
		got, _ := mergeCluster([]candidate{
			{source: "claude", entry: entry("Pool", "w", "Install\n\n  Configure  \nRestart")},
			{source: "gemini", entry: entry("Pool", "w", "Install\nTune\nRestart")},
		}, 0)
		assert.Equal(t, "Install\nConfigure\nRestart\nTune", got.How)
	})

	t.Run("what prefers the shortest shared value", func(t *testing.T) {
		got, conflicts := mergeCluster([]candidate{
			{source: "claude", entry: entry("Use pools", "w", "h")},
			{source: "gemini", entry: entry("Use pool", "w", "h")},
			{source: "codex", entry: entry("Use pools", "w", "h")},
		}, 2)
		assert.Equal(t, "Use pools", got.What)
		require.Len(t, conflicts, 1)
		assert.Equal(t, 2, conflicts[0].EntryIndex)
	})

	t.Run("what falls back to shortest overall", func(t *testing.T) {
		got, _ := mergeCluster([]candidate{
			{source: "claude", entry: entry("Use pooling", "w", "h")},
			{source: "gemini", entry: entry("Use pool", "w", "h")},
			{source: "codex", entry: entry("Use poll", "w", "h")},
		}, 0)
		// equal length, lexicographic tie break
		assert.Equal(t, "Use poll", got.What)
	})
}

func TestClusterCandidates(t *testing.T) {
	cands := func(whats ...string) []candidate {
		var out []candidate
		for _, w := range whats {
			out = append(out, candidate{source: "claude", entry: entry(w, "", "")})
		}
		return out
	}

	clusters := clusterCandidates(cands("aaaa", "AAAB", "zzzz"), 3)
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 2)
	assert.Len(t, clusters[1], 1)

	// greedy: "abbb" is one edit from "aabb" but three from the first
	// cluster's representative, so it starts its own cluster
	clusters = clusterCandidates(cands("aaaa", "aabb", "abbb"), 3)
	require.Len(t, clusters, 2)
	assert.Equal(t, "aabb", clusters[0][1].entry.What)
	assert.Equal(t, "abbb", clusters[1][0].entry.What)
}

func TestVoterResolve(t *testing.T) {
	voter := NewVoter(config.Default().Synthesis.Weights, 2.0)
	values := func(pairs ...string) []SourcedValue {
		var out []SourcedValue
		for i := 0; i < len(pairs); i += 2 {
			out = append(out, SourcedValue{Source: pairs[i], Value: pairs[i+1]})
		}
		return out
	}

	tests := []struct {
		name   string
		values []SourcedValue
		want   Resolution
	}{
		{"empty", nil, KeepAll{}},
		{"weighted majority", values("claude", "x", "gemini", "x", "codex", "y"), MajorityVote{Winner: "x", Score: 1.2 + 1.1}},
		{"normalized agreement keeps first casing", values("codex", "Postgres", "gemini", " postgres "), MajorityVote{Winner: "Postgres", Score: 1.0 + 1.1}},
		{"all different", values("codex", "a", "gemini", "b", "claude", "c"), HighestWeight{Source: "claude", Weight: 1.2}},
		{"one distinct value below threshold", values("codex", "same"), Merged{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := voter.Resolve(FieldConflict{Field: "what", Values: tt.values})
			if want, ok := tt.want.(MajorityVote); ok {
				vote, ok := got.(MajorityVote)
				require.True(t, ok, "got %v", got)
				assert.Equal(t, want.Winner, vote.Winner)
				assert.InDelta(t, want.Score, vote.Score, 1e-9)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown backends weigh one", func(t *testing.T) {
		assert.Equal(t, 1.0, voter.Weight("llama"))
		assert.Equal(t, 1.2, voter.Weight("Claude"))
	})
}
