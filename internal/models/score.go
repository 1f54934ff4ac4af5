package models

import "fmt"

// ScoreCategory buckets a commit's significance.
type ScoreCategory int

const (
	CategoryTrivial ScoreCategory = iota
	CategoryLow
	CategoryMedium
	CategoryHigh
	CategoryCritical
)

func (c ScoreCategory) String() string {
	switch c {
	case CategoryTrivial:
		return "trivial"
	case CategoryLow:
		return "low"
	case CategoryMedium:
		return "medium"
	case CategoryHigh:
		return "high"
	case CategoryCritical:
		return "critical"
	default:
		panic(fmt.Sprintf("unknown score category %d", int(c)))
	}
}

// ParseScoreCategory is the inverse of String, used by config.
func ParseScoreCategory(s string) (ScoreCategory, error) {
	for c := CategoryTrivial; c <= CategoryCritical; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return CategoryTrivial, fmt.Errorf("unknown score category %q", s)
}

type FactorKind int

const (
	FactorDiffSize FactorKind = iota
	FactorFilePattern
	FactorMessageKeyword
)

func (k FactorKind) String() string {
	switch k {
	case FactorDiffSize:
		return "diff_size"
	case FactorFilePattern:
		return "file_pattern"
	case FactorMessageKeyword:
		return "message_keyword"
	default:
		panic(fmt.Sprintf("unknown factor kind %d", int(k)))
	}
}

// ScoreFactor explains one contribution to a commit score. Detail is the
// line count for diff size, the matched substring for file patterns and the
// matched keyword for messages.
type ScoreFactor struct {
	Kind   FactorKind
	Detail string
	Score  float64
}

type CommitScore struct {
	Significance float64
	Category     ScoreCategory
	Factors      []ScoreFactor
}
