package scoring

import (
	"iter"
	"slices"
)

// ViolationType distinguishes assumption violations from sample-size shortfalls
type ViolationType string

const (
	ViolationAssumption ViolationType = "assumption"
	ViolationSampleSize ViolationType = "sample_size"
)

// Impact is how strongly a violation affects a test's suitability
type Impact string

const (
	ImpactSevere   Impact = "severe"
	ImpactModerate Impact = "moderate"
)

// Violation explains one penalty applied to a test
type Violation struct {
	Type       ViolationType `json:"type"`
	Assumption string        `json:"assumption,omitempty"`
	Severity   Impact        `json:"severity"`
}

// TestScore is the derived suitability of one test for the current inputs
type TestScore struct {
	Score      int         `json:"score"`
	Violations []Violation `json:"violations"`
	// Power is a linear heuristic (base power scaled by score), not a real power analysis
	Power float64 `json:"power"`
}

// HasViolations reports whether any penalty was applied
func (s TestScore) HasViolations() bool {
	return len(s.Violations) > 0
}

// RankedTest pairs a test name with its score
type RankedTest struct {
	Test string `json:"test"`
	TestScore
}

// Ranking is an ordered list of scored tests, best first
type Ranking []RankedTest

// All iterates the ranking as (test name, score) pairs
func (r Ranking) All() iter.Seq2[string, TestScore] {
	return func(yield func(string, TestScore) bool) {
		for _, entry := range r {
			if !yield(entry.Test, entry.TestScore) {
				return
			}
		}
	}
}

// Names returns test names in rank order
func (r Ranking) Names() []string {
	names := make([]string, len(r))
	for i, entry := range r {
		names[i] = entry.Test
	}
	return names
}

// Top returns at most n entries. n <= 0 returns the full ranking.
func (r Ranking) Top(n int) Ranking {
	if n <= 0 || n >= len(r) {
		return r
	}
	return r[:n]
}

// Clone deep-copies the ranking so callers cannot mutate cached results
func (r Ranking) Clone() Ranking {
	out := make(Ranking, len(r))
	for i, entry := range r {
		entry.Violations = slices.Clone(entry.Violations)
		out[i] = entry
	}
	return out
}

// Action is what the analyst should do about an assumption result
type Action string

const (
	ActionProceed Action = "proceed"
	ActionCaution Action = "caution"
	ActionChange  Action = "change"
)

// Recommendation is the user-facing advice derived from a severity
type Recommendation struct {
	Action       Action   `json:"action"`
	Message      string   `json:"message"`
	Alternatives []string `json:"alternatives"`
}
