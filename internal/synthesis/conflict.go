package synthesis

import "fmt"

type ConflictKind int

const (
	DifferentValues ConflictKind = iota
	DifferentStructure
	MissingInSome
)

func (k ConflictKind) String() string {
	switch k {
	case DifferentValues:
		return "different values"
	case DifferentStructure:
		return "different structure"
	case MissingInSome:
		return "missing in some"
	default:
		panic(fmt.Sprintf("unknown conflict kind %d", int(k)))
	}
}

// SourcedValue is one backend's value for a conflicting field.
type SourcedValue struct {
	Source string
	Value  string
}

// FieldConflict records a disagreement on one field of one merged entry.
// EntryIndex points into Result.Entries.
type FieldConflict struct {
	Field      string
	Kind       ConflictKind
	Values     []SourcedValue
	Resolution Resolution
	EntryIndex int
}

// Resolution tags how a conflict was closed. The set of implementations
// is closed: MajorityVote, HighestWeight, Merged and KeepAll.
type Resolution interface {
	fmt.Stringer
	resolution()
}

// MajorityVote means sources whose weights reach the threshold agreed.
type MajorityVote struct {
	Winner string
	Score  float64
}

// HighestWeight means no value reached the threshold and the most trusted
// source's value was taken.
type HighestWeight struct {
	Source string
	Weight float64
}

// Merged means the sources did not actually contradict each other.
type Merged struct{}

// KeepAll leaves the field as merged; the conflict stays unresolved.
type KeepAll struct{}

func (MajorityVote) resolution()  {}
func (HighestWeight) resolution() {}
func (Merged) resolution()        {}
func (KeepAll) resolution()       {}

func (r MajorityVote) String() string {
	return fmt.Sprintf("majority vote for %q (%.2f)", r.Winner, r.Score)
}

func (r HighestWeight) String() string {
	return fmt.Sprintf("highest weight %s (%.2f)", r.Source, r.Weight)
}

func (Merged) String() string  { return "merged" }
func (KeepAll) String() string { return "keep all" }

// resolved reports whether r closes the conflict.
func resolved(r Resolution) bool {
	switch r.(type) {
	case MajorityVote, HighestWeight, Merged:
		return true
	case KeepAll, nil:
		return false
	default:
		panic(fmt.Sprintf("unknown resolution %T", r))
	}
}
