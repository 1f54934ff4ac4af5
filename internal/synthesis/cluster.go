package synthesis

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/noggin-kb/noggin/internal/models"
)

// candidate is one parsed entry tagged with the backend that proposed it.
type candidate struct {
	source string
	entry  models.KnowledgeEntry
}

// groupByCategory buckets candidates by category, keeping input order
// within each bucket.
func groupByCategory(cands []candidate) map[models.EntryCategory][]candidate {
	groups := make(map[models.EntryCategory][]candidate)
	for _, c := range cands {
		cat := Categorize(c.entry)
		groups[cat] = append(groups[cat], c)
	}
	return groups
}

// clusterCandidates groups candidates whose lowercased what is closer than
// maxDistance edits to a cluster's first member. Each candidate joins the
// first such cluster, so the result depends on input order.
func clusterCandidates(cands []candidate, maxDistance int) [][]candidate {
	var (
		clusters [][]candidate
		reps     []string
	)

	for _, c := range cands {
		what := strings.ToLower(c.entry.What)
		joined := false
		for i, rep := range reps {
			if levenshtein.ComputeDistance(what, rep) < maxDistance {
				clusters[i] = append(clusters[i], c)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, []candidate{c})
			reps = append(reps, what)
		}
	}

	return clusters
}
