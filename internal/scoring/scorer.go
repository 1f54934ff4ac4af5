// Package scoring decides which commits are significant enough to analyze.
package scoring

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/noggin-kb/noggin/internal/config"
	"github.com/noggin-kb/noggin/internal/models"
)

// neutralScore is given to diff and pattern for root and merge commits.
const neutralScore = 0.5

var docExtensions = map[string]bool{".md": true, ".txt": true, ".rst": true}

type weighted struct {
	key    string
	weight float64
}

// Scorer computes commit significance. It holds no mutable state and the
// same commit always yields the same score.
type Scorer struct {
	diffWeight    float64
	patternWeight float64
	messageWeight float64
	patterns      []weighted
	keywords      []weighted
}

func NewScorer(cfg config.ScoringConfig) *Scorer {
	keywords := sortedTable(cfg.MessageKeywords)
	for i := range keywords {
		keywords[i].key = strings.ToLower(keywords[i].key)
	}
	return &Scorer{
		diffWeight:    cfg.DiffWeight,
		patternWeight: cfg.PatternWeight,
		messageWeight: cfg.MessageWeight,
		patterns:      sortedTable(cfg.FilePatterns),
		keywords:      keywords,
	}
}

func sortedTable(m map[string]float64) []weighted {
	out := make([]weighted, 0, len(m))
	for k, w := range m {
		out = append(out, weighted{key: k, weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func (s *Scorer) Score(commit models.CommitMetadata) models.CommitScore {
	var factors []models.ScoreFactor

	diffScore, patternScore := neutralScore, neutralScore
	if len(commit.ParentHashes) == 1 {
		diffScore = s.diffScore(commit)
		factors = append(factors, models.ScoreFactor{
			Kind:   models.FactorDiffSize,
			Detail: strconv.Itoa(commit.TotalLines()),
			Score:  diffScore,
		})

		var matched string
		patternScore, matched = bestMatch(s.patterns, commit.Paths())
		if matched != "" {
			factors = append(factors, models.ScoreFactor{
				Kind:   models.FactorFilePattern,
				Detail: matched,
				Score:  patternScore,
			})
		}
	}

	messageScore, keyword := bestMatch(s.keywords, []string{strings.ToLower(commit.Message)})
	if keyword != "" {
		factors = append(factors, models.ScoreFactor{
			Kind:   models.FactorMessageKeyword,
			Detail: keyword,
			Score:  messageScore,
		})
	}

	significance := s.diffWeight*diffScore + s.patternWeight*patternScore + s.messageWeight*messageScore

	return models.CommitScore{
		Significance: significance,
		Category:     Categorize(significance),
		Factors:      factors,
	}
}

// Categorize maps a significance value onto the fixed thresholds.
func Categorize(significance float64) models.ScoreCategory {
	switch {
	case significance >= 0.8:
		return models.CategoryCritical
	case significance >= 0.6:
		return models.CategoryHigh
	case significance >= 0.4:
		return models.CategoryMedium
	case significance >= 0.2:
		return models.CategoryLow
	default:
		return models.CategoryTrivial
	}
}

func (s *Scorer) diffScore(commit models.CommitMetadata) float64 {
	lines := commit.TotalLines()

	var score float64
	switch {
	case lines <= 10:
		score = 0.1
	case lines <= 50:
		score = 0.3
	case lines <= 200:
		score = 0.5
	case lines <= 500:
		score = 0.7
	default:
		score = 1.0
	}

	if isTrivialDiff(commit) {
		score /= 2
	}
	return score
}

// isTrivialDiff is true for one-line changes and for diffs where more than
// 80% of the touched files are documentation.
func isTrivialDiff(commit models.CommitMetadata) bool {
	if commit.TotalLines() <= 1 {
		return true
	}
	if len(commit.Files) == 0 {
		return false
	}

	docs := 0
	for _, f := range commit.Files {
		if docExtensions[strings.ToLower(filepath.Ext(f.Path))] {
			docs++
		}
	}
	return float64(docs)/float64(len(commit.Files)) > 0.8
}

// bestMatch returns the highest weight among table keys found in any of
// the haystacks. Ties keep the key that sorts first.
func bestMatch(table []weighted, haystacks []string) (float64, string) {
	best, matched := 0.0, ""
	for _, w := range table {
		if w.weight <= best && matched != "" {
			continue
		}
		for _, h := range haystacks {
			if strings.Contains(h, w.key) {
				if matched == "" || w.weight > best {
					best, matched = w.weight, w.key
				}
				break
			}
		}
	}
	return best, matched
}
