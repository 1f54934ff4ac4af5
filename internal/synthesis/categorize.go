package synthesis

import (
	"strings"

	"github.com/noggin-kb/noggin/internal/models"
)

// categoryRules are checked in order; the first family with a hit wins.
var categoryRules = []struct {
	category models.EntryCategory
	keywords []string
}{
	{models.EntryMigration, []string{"migrat", "upgrade", "schema"}},
	{models.EntryBug, []string{"bug", "fix", "patch"}},
	{models.EntryPattern, []string{"pattern", "convention", "standard"}},
	{models.EntryDecision, []string{"decid", "chose", "adopt", "decision"}},
}

// Categorize files an entry under a category from the words in its what,
// why and how. Entries matching no family are facts.
func Categorize(e models.KnowledgeEntry) models.EntryCategory {
	text := strings.ToLower(e.What + " " + e.Why + " " + e.How)

	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return models.EntryFact
}
