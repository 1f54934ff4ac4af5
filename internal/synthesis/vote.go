package synthesis

import (
	"strings"

	"github.com/noggin-kb/noggin/internal/models"
)

const (
	DefaultMajorityThreshold = 2.0
	defaultWeight            = 1.0
)

// Voter resolves conflicts by summing per-backend trust weights.
type Voter struct {
	weights   map[string]float64
	threshold float64
}

// NewVoter builds a voter. Backend names are matched case-insensitively;
// unknown backends weigh 1.0.
func NewVoter(weights map[string]float64, threshold float64) *Voter {
	if threshold <= 0 {
		threshold = DefaultMajorityThreshold
	}
	w := make(map[string]float64, len(weights))
	for name, weight := range weights {
		w[strings.ToLower(name)] = weight
	}
	return &Voter{weights: w, threshold: threshold}
}

func (v *Voter) Weight(source string) float64 {
	if w, ok := v.weights[strings.ToLower(source)]; ok {
		return w
	}
	return defaultWeight
}

type tally struct {
	original string
	score    float64
}

// Resolve decides a conflict. Values are compared trimmed and lowercased;
// the winner keeps the casing of the first source that proposed it.
func (v *Voter) Resolve(c FieldConflict) Resolution {
	if len(c.Values) == 0 {
		return KeepAll{}
	}

	var order []string
	tallies := make(map[string]*tally)
	for _, sv := range c.Values {
		key := strings.ToLower(strings.TrimSpace(sv.Value))
		t, ok := tallies[key]
		if !ok {
			t = &tally{original: sv.Value}
			tallies[key] = t
			order = append(order, key)
		}
		t.score += v.Weight(sv.Source)
	}

	top := tallies[order[0]]
	for _, key := range order[1:] {
		if tallies[key].score > top.score {
			top = tallies[key]
		}
	}
	if top.score >= v.threshold {
		return MajorityVote{Winner: top.original, Score: top.score}
	}

	if len(order) > 1 {
		best := c.Values[0]
		for _, sv := range c.Values[1:] {
			if v.Weight(sv.Source) > v.Weight(best.Source) {
				best = sv
			}
		}
		return HighestWeight{Source: best.Source, Weight: v.Weight(best.Source)}
	}

	return Merged{}
}

// apply writes a resolution's winning value into the conflicting field of
// entry. Merged and KeepAll leave the entry alone.
func apply(entry *models.KnowledgeEntry, c FieldConflict, r Resolution) {
	var value string
	switch res := r.(type) {
	case MajorityVote:
		value = res.Winner
	case HighestWeight:
		found := false
		for _, sv := range c.Values {
			if sv.Source == res.Source {
				value, found = sv.Value, true
				break
			}
		}
		if !found {
			return
		}
	case Merged, KeepAll:
		return
	}

	switch {
	case c.Field == "what":
		entry.What = value
	case c.Field == "why":
		entry.Why = value
	case c.Field == "how":
		entry.How = value
	case strings.HasPrefix(c.Field, outcomeFieldPrefix):
		if entry.Context.Outcome == nil {
			entry.Context.Outcome = make(map[string]string)
		}
		entry.Context.Outcome[strings.TrimPrefix(c.Field, outcomeFieldPrefix)] = value
	}
}
