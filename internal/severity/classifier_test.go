package severity

import (
	"math"
	"testing"

	"statadvisor/domain/assumption"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failed(p float64) *assumption.CheckResult {
	r := assumption.Failing("shapiro_wilk", p)
	return &r
}

func TestClassify_Unknown(t *testing.T) {
	_, ok := Classify(nil)
	assert.False(t, ok, "nil result is unknown")

	_, ok = Classify(&assumption.CheckResult{})
	assert.False(t, ok, "nil passed is unknown")
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		p    float64
		want assumption.Severity
	}{
		{"just above warning cutoff", 0.0100001, assumption.SeverityWarning},
		{"conventional failure", 0.02, assumption.SeverityWarning},
		{"exactly 0.01 is fail", 0.01, assumption.SeverityFail},
		{"between cutoffs", 0.005, assumption.SeverityFail},
		{"exactly 0.001 is critical", 0.001, assumption.SeverityCritical},
		{"tiny", 1e-9, assumption.SeverityCritical},
		{"zero", 0, assumption.SeverityCritical},
		{"negative clamps to zero", -0.5, assumption.SeverityCritical},
		{"above one clamps to one", 3, assumption.SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(failed(tt.p))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The rule for critical is p <= 0.001, so 0.001 itself is critical while
// anything above it up to and including 0.01 is fail.
func TestClassify_JustAboveCriticalIsFail(t *testing.T) {
	got, ok := Classify(failed(0.0010001))
	require.True(t, ok)
	assert.Equal(t, assumption.SeverityFail, got)
}

func TestClassify_PassAndMissingPValue(t *testing.T) {
	pass := assumption.Passing("levene")
	got, ok := Classify(&pass)
	require.True(t, ok)
	assert.Equal(t, assumption.SeverityPass, got)

	no := false
	got, ok = Classify(&assumption.CheckResult{Passed: &no})
	require.True(t, ok)
	assert.Equal(t, assumption.SeverityFail, got)

	nan := math.NaN()
	got, ok = Classify(&assumption.CheckResult{Passed: &no, PValue: &nan})
	require.True(t, ok)
	assert.Equal(t, assumption.SeverityFail, got)
}

func TestConfidence_Adjustments(t *testing.T) {
	tests := []struct {
		name   string
		result *assumption.CheckResult
		n      int
		want   int
	}{
		{"base", nil, 30, 50},
		{"large sample", nil, 101, 70},
		{"exactly 100 is medium", nil, 100, 60},
		{"exactly 50 is neutral", nil, 50, 50},
		{"exactly 20 is neutral", nil, 20, 50},
		{"small sample", nil, 19, 30},
		{"zero sample", nil, 0, 30},
		{"negative sample", nil, -5, 30},
		{"tiny p", failed(0.0005), 30, 70},
		{"p exactly 0.001 gets +10", failed(0.001), 30, 60},
		{"p exactly 0.01 gets nothing", failed(0.01), 30, 50},
		{"max", failed(0.0001), 500, 90},
		{"min", failed(0.5), 5, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.result, tt.n))
		})
	}
}

func TestConfidence_AlwaysInRange(t *testing.T) {
	pValues := []float64{-1, 0, 1e-6, 0.0009, 0.001, 0.005, 0.01, 0.05, 1, 2, math.NaN()}
	sizes := []int{-100, 0, 1, 19, 20, 50, 51, 100, 101, 1 << 20}
	for _, p := range pValues {
		for _, n := range sizes {
			c := Confidence(failed(p), n)
			assert.GreaterOrEqual(t, c, 0)
			assert.LessOrEqual(t, c, 100)
			// deterministic
			assert.Equal(t, c, Confidence(failed(p), n))
		}
	}
}

func TestAssessAndFilter(t *testing.T) {
	checks := assumption.Checks{
		assumption.Normality:    *failed(0.0004),
		assumption.Homogeneity:  assumption.Passing("levene"),
		assumption.Independence: {},
	}

	assessments := Assess(checks, 120)
	require.Len(t, assessments, 3)
	assert.Equal(t, []string{"homogeneity", "independence", "normality"},
		[]string{assessments[0].Assumption, assessments[1].Assumption, assessments[2].Assumption})

	assert.False(t, assessments[1].Known)
	assert.Equal(t, assumption.SeverityCritical, assessments[2].Severity)
	assert.Equal(t, 90, assessments[2].Confidence)
	assert.Equal(t, 70, assessments[0].Confidence)

	high := FilterByConfidence(assessments, 80)
	require.Len(t, high, 1)
	assert.Equal(t, "normality", high[0].Assumption)
	assert.Len(t, FilterByConfidence(assessments, 0), 3)

	worst, ok := Worst(assessments)
	require.True(t, ok)
	assert.Equal(t, "normality", worst.Assumption)

	_, ok = Worst([]Assessment{{Assumption: "x"}})
	assert.False(t, ok)
}
