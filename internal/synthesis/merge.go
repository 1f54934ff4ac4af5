package synthesis

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/noggin-kb/noggin/internal/models"
)

const outcomeFieldPrefix = "context.outcome."

// mergeCluster folds a cluster into one entry. Conflicts found along the
// way are tagged with index, the merged entry's position in the batch.
func mergeCluster(cluster []candidate, index int) (models.KnowledgeEntry, []FieldConflict) {
	if len(cluster) == 1 {
		return cluster[0].entry, nil
	}

	var conflicts []FieldConflict

	what, conflict := mergeWhat(cluster)
	if conflict != nil {
		conflicts = append(conflicts, *conflict)
	}

	ctx, outcomeConflicts := mergeContext(cluster)
	conflicts = append(conflicts, outcomeConflicts...)

	for i := range conflicts {
		conflicts[i].EntryIndex = index
	}

	return models.KnowledgeEntry{
		What:    what,
		Why:     mergeWhy(cluster),
		How:     mergeHow(cluster),
		Context: ctx,
	}, conflicts
}

// mergeWhat prefers the shortest value proposed by two or more sources,
// then the shortest value overall.
func mergeWhat(cluster []candidate) (string, *FieldConflict) {
	counts := make(map[string]int)
	var (
		distinct []string
		values   []SourcedValue
	)
	for _, c := range cluster {
		v := strings.TrimSpace(c.entry.What)
		if counts[v] == 0 {
			distinct = append(distinct, v)
		}
		counts[v]++
		values = append(values, SourcedValue{Source: c.source, Value: v})
	}

	var conflict *FieldConflict
	if len(distinct) > 1 {
		conflict = &FieldConflict{Field: "what", Kind: DifferentValues, Values: values}
	}

	var shared []string
	for _, v := range distinct {
		if counts[v] >= 2 {
			shared = append(shared, v)
		}
	}
	if len(shared) > 0 {
		return shortest(shared), conflict
	}
	return shortest(distinct), conflict
}

// shortest returns the value with the fewest characters, breaking ties
// lexicographically.
func shortest(values []string) string {
	best := values[0]
	for _, v := range values[1:] {
		bl, vl := utf8.RuneCountInString(best), utf8.RuneCountInString(v)
		if vl < bl || (vl == bl && v < best) {
			best = v
		}
	}
	return best
}

// mergeWhy is the union of every member's sentences in first-seen order.
func mergeWhy(cluster []candidate) string {
	var seen orderedSet
	for _, c := range cluster {
		for _, sentence := range strings.Split(c.entry.Why, ".") {
			seen.add(strings.TrimSpace(sentence))
		}
	}
	return strings.Join(seen.items, ". ")
}

// mergeHow is the union of every member's non-blank lines in first-seen
// order.
func mergeHow(cluster []candidate) string {
	var seen orderedSet
	for _, c := range cluster {
		for _, line := range strings.Split(c.entry.How, "\n") {
			seen.add(strings.TrimSpace(line))
		}
	}
	return strings.Join(seen.items, "\n")
}

func mergeContext(cluster []candidate) (models.EntryContext, []FieldConflict) {
	var files, commits, deps []string
	outcomes := make(map[string][]SourcedValue)
	for _, c := range cluster {
		files = append(files, c.entry.Context.Files...)
		commits = append(commits, c.entry.Context.Commits...)
		deps = append(deps, c.entry.Context.Dependencies...)

		// map iteration order must not leak into value order
		keys := sortedKeys(c.entry.Context.Outcome)
		for _, k := range keys {
			outcomes[k] = append(outcomes[k], SourcedValue{Source: c.source, Value: c.entry.Context.Outcome[k]})
		}
	}

	ctx := models.EntryContext{
		Files:        sortedUnique(files),
		Commits:      sortedUnique(commits),
		Dependencies: sortedUnique(deps),
	}

	var conflicts []FieldConflict
	if len(outcomes) > 0 {
		ctx.Outcome = make(map[string]string, len(outcomes))
	}
	for _, key := range sortedKeys(outcomes) {
		values := outcomes[key]
		ctx.Outcome[key] = values[0].Value

		if distinctValues(values) > 1 {
			conflicts = append(conflicts, FieldConflict{
				Field:  outcomeFieldPrefix + key,
				Kind:   DifferentValues,
				Values: values,
			})
		}
	}

	return ctx, conflicts
}

func distinctValues(values []SourcedValue) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v.Value] = struct{}{}
	}
	return len(seen)
}

type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (s *orderedSet) add(item string) {
	if item == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[item]; ok {
		return
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedUnique(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := append([]string(nil), items...)
	sort.Strings(out)

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
