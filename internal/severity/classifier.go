// Package severity turns assumption-check results into severity levels and
// confidence percentages.
package severity

import (
	"math"
	"sort"

	"statadvisor/domain/assumption"
)

const (
	warningPValue  = 0.01
	criticalPValue = 0.001

	baseConfidence = 50
)

// Classify maps a check result to a severity. ok is false when the result is
// absent or the check could not be evaluated, which is distinct from a pass.
//
// A failed check without a usable p-value classifies as fail.
func Classify(result *assumption.CheckResult) (sev assumption.Severity, ok bool) {
	if result == nil || result.Passed == nil {
		return 0, false
	}
	if *result.Passed {
		return assumption.SeverityPass, true
	}
	if !result.HasPValue() {
		return assumption.SeverityFail, true
	}

	p := clampPValue(*result.PValue)
	switch {
	case p > warningPValue:
		return assumption.SeverityWarning, true
	case p > criticalPValue:
		return assumption.SeverityFail, true
	default:
		return assumption.SeverityCritical, true
	}
}

// Confidence scores how much weight a check result deserves, from 0 to 100.
// Larger samples and smaller p-values raise it; samples under 20 lower it.
func Confidence(result *assumption.CheckResult, sampleSize int) int {
	confidence := baseConfidence

	switch {
	case sampleSize > 100:
		confidence += 20
	case sampleSize > 50:
		confidence += 10
	case sampleSize < 20:
		confidence -= 20
	}

	if result != nil && result.HasPValue() {
		p := clampPValue(*result.PValue)
		switch {
		case p < criticalPValue:
			confidence += 20
		case p < warningPValue:
			confidence += 10
		}
	}

	return clampPercent(confidence)
}

// Assessment is the classified view of one assumption
type Assessment struct {
	Assumption string                 `json:"assumption"`
	Severity   assumption.Severity    `json:"severity,omitempty"`
	Known      bool                   `json:"known"`
	Confidence int                    `json:"confidence"`
	Check      assumption.CheckResult `json:"check"`
}

// Assess classifies every check, sorted by assumption key
func Assess(checks assumption.Checks, sampleSize int) []Assessment {
	keys := make([]string, 0, len(checks))
	for k := range checks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Assessment, 0, len(keys))
	for _, key := range keys {
		check := checks[key]
		sev, ok := Classify(&check)
		out = append(out, Assessment{
			Assumption: key,
			Severity:   sev,
			Known:      ok,
			Confidence: Confidence(&check, sampleSize),
			Check:      check,
		})
	}
	return out
}

// FilterByConfidence keeps assessments whose confidence meets the threshold
func FilterByConfidence(assessments []Assessment, threshold int) []Assessment {
	if threshold <= 0 {
		return assessments
	}
	out := make([]Assessment, 0, len(assessments))
	for _, a := range assessments {
		if a.Confidence >= threshold {
			out = append(out, a)
		}
	}
	return out
}

// Worst returns the most severe known assessment
func Worst(assessments []Assessment) (Assessment, bool) {
	var worst Assessment
	found := false
	for _, a := range assessments {
		if !a.Known {
			continue
		}
		if !found || a.Severity > worst.Severity {
			worst = a
			found = true
		}
	}
	return worst, found
}

func clampPValue(p float64) float64 {
	return math.Min(1, math.Max(0, p))
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
