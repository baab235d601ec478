package report

import (
	"strings"
	"testing"

	"statadvisor/domain/assumption"
	"statadvisor/domain/scoring"
	"statadvisor/internal/severity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRanking() scoring.Ranking {
	return scoring.Ranking{
		{Test: "mann_whitney_u", TestScore: scoring.TestScore{Score: 100, Power: 0.7, Violations: []scoring.Violation{}}},
		{Test: "welch_t_test", TestScore: scoring.TestScore{Score: 70, Power: 0.546, Violations: []scoring.Violation{
			{Type: scoring.ViolationAssumption, Assumption: "normality", Severity: scoring.ImpactModerate},
		}}},
		{Test: "student_t_test", TestScore: scoring.TestScore{Score: 10, Power: 0.08, Violations: []scoring.Violation{
			{Type: scoring.ViolationAssumption, Assumption: "normality", Severity: scoring.ImpactSevere},
			{Type: scoring.ViolationAssumption, Assumption: "homogeneity", Severity: scoring.ImpactSevere},
			{Type: scoring.ViolationSampleSize, Severity: scoring.ImpactModerate},
		}}},
	}
}

func remedies(key string) []string {
	if assumption.BaseKey(key) == "normality" {
		return []string{"Apply a log transform", "Use a rank-based test", "Bootstrap the interval"}
	}
	return nil
}

func TestBuild_Summary(t *testing.T) {
	checks := assumption.Checks{
		"normality":   assumption.Failing("shapiro_wilk", 0.0005),
		"homogeneity": assumption.Passing("levene"),
		"linearity":   {},
	}
	r := Build(sampleRanking(), severity.Assess(checks, 25), remedies, 25)

	assert.Equal(t, 3, r.Summary.Tests)
	assert.Equal(t, 1, r.Summary.Clean)
	assert.Equal(t, "mann_whitney_u", r.Summary.Best)
	assert.InDelta(t, 60.0, r.Summary.MeanScore, 1e-9)
	assert.InDelta(t, 70.0, r.Summary.MedianScore, 1e-9)
	assert.InDelta(t, 100.0, r.Summary.MaxScore, 1e-9)

	require.Len(t, r.Findings, 3)
	byKey := map[string]Finding{}
	for _, f := range r.Findings {
		byKey[f.Assumption] = f
	}
	require.NotNil(t, byKey["normality"].Recommendation)
	assert.Equal(t, scoring.ActionChange, byKey["normality"].Recommendation.Action)
	assert.Len(t, byKey["normality"].Recommendation.Alternatives, 3)
	assert.Equal(t, scoring.ActionProceed, byKey["homogeneity"].Recommendation.Action)
	assert.Nil(t, byKey["linearity"].Recommendation, "unknown severity yields no advice")
}

func TestBuild_EmptyRanking(t *testing.T) {
	r := Build(nil, nil, nil, 0)
	assert.Equal(t, Summary{}, r.Summary)

	md := r.Markdown()
	assert.Contains(t, md, "No tests were scored.")
	assert.Contains(t, md, "No assumption checks were recorded.")
}

func TestMarkdown(t *testing.T) {
	checks := assumption.Checks{"normality": assumption.Failing("shapiro_wilk", 0.03)}
	md := Build(sampleRanking(), severity.Assess(checks, 60), remedies, 60).Markdown()

	assert.True(t, strings.HasPrefix(md, "# Test selection report"))
	assert.Contains(t, md, "Sample size: **60**")
	assert.Contains(t, md, "| normality | warning | 60% | 0.03 | caution |")
	assert.Contains(t, md, "### normality")
	assert.Contains(t, md, "- Use a rank-based test")
	assert.NotContains(t, md, "- Bootstrap the interval", "warnings list at most two alternatives")
	assert.Contains(t, md, `| 1 | mann\_whitney\_u | 100 | 0.70 | none |`)
	assert.Contains(t, md, "normality (severe), homogeneity (severe), sample size (moderate)")
}

func TestHTML(t *testing.T) {
	out := string(Build(sampleRanking(), nil, nil, 30).HTML())

	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "Test selection report")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>mann_whitney_u</td>")
}

func TestBuild_DoesNotAliasRanking(t *testing.T) {
	ranking := sampleRanking()
	r := Build(ranking, nil, nil, 30)
	ranking[0].Test = "changed"
	ranking[1].Violations[0].Assumption = "changed"

	assert.Equal(t, "mann_whitney_u", r.Ranking[0].Test)
	assert.Equal(t, "normality", r.Ranking[1].Violations[0].Assumption)
}

func TestMarkdown_EscapesUntrustedText(t *testing.T) {
	checks := assumption.Checks{"normality|injected": assumption.Failing("shapiro_wilk", 0.03)}
	md := Build(nil, severity.Assess(checks, 60), nil, 60).Markdown()

	assert.Contains(t, md, `| normality\|injected | warning |`)
	assert.Contains(t, md, `### normality\|injected`)
}

func TestHTML_DropsMarkupFromChecks(t *testing.T) {
	checks := assumption.Checks{"<script>alert(1)</script>": assumption.Failing("shapiro_wilk", 0.0001)}
	ranking := scoring.Ranking{
		{Test: "<img src=x onerror=alert(2)>", TestScore: scoring.TestScore{Score: 100, Violations: []scoring.Violation{}}},
	}
	out := string(Build(ranking, severity.Assess(checks, 60), nil, 60).HTML())

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, "alert(1)")
}
