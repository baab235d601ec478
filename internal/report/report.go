// Package report renders a test-selection ranking and its assumption findings
// as Markdown or HTML.
package report

import (
	"fmt"
	"strings"

	"statadvisor/domain/assumption"
	"statadvisor/domain/core"
	"statadvisor/domain/scoring"
	"statadvisor/internal/severity"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"
)

// RemedySource returns the remedies registered for an assumption key
type RemedySource func(key string) []string

// Finding is one assessed assumption with the advice derived from it
type Finding struct {
	severity.Assessment
	Recommendation *scoring.Recommendation `json:"recommendation,omitempty"`
}

// Summary aggregates the scores of a ranking
type Summary struct {
	Tests       int     `json:"tests"`
	Clean       int     `json:"clean"`
	MeanScore   float64 `json:"mean_score"`
	MedianScore float64 `json:"median_score"`
	MaxScore    float64 `json:"max_score"`
	Best        string  `json:"best,omitempty"`
}

// Report is a rendered-on-demand view of one scoring run
type Report struct {
	SampleSize  int             `json:"sample_size"`
	Ranking     scoring.Ranking `json:"ranking"`
	Findings    []Finding       `json:"findings"`
	Summary     Summary         `json:"summary"`
	GeneratedAt core.Timestamp  `json:"generated_at"`
}

// Build assembles a report. remedies may be nil.
func Build(ranking scoring.Ranking, assessments []severity.Assessment, remedies RemedySource, sampleSize int) Report {
	return Report{
		SampleSize:  sampleSize,
		Ranking:     ranking.Clone(),
		Findings:    Findings(assessments, remedies),
		Summary:     summarize(ranking),
		GeneratedAt: core.Now(),
	}
}

// Findings attaches a recommendation to every assessment with a known severity
func Findings(assessments []severity.Assessment, remedies RemedySource) []Finding {
	out := make([]Finding, 0, len(assessments))
	for _, a := range assessments {
		var alternatives []string
		if remedies != nil {
			alternatives = remedies(a.Assumption)
		}
		finding := Finding{Assessment: a}
		if rec, ok := severity.Recommend(a.Severity, a.Known, alternatives); ok {
			finding.Recommendation = &rec
		}
		out = append(out, finding)
	}
	return out
}

func summarize(ranking scoring.Ranking) Summary {
	s := Summary{Tests: len(ranking)}
	if len(ranking) == 0 {
		return s
	}

	scores := make(stats.Float64Data, 0, len(ranking))
	for _, entry := range ranking {
		scores = append(scores, float64(entry.Score))
		if !entry.HasViolations() {
			s.Clean++
		}
	}
	s.Best = ranking[0].Test

	// errors only occur on empty input, ruled out above
	s.MeanScore, _ = stats.Round(mustStat(scores.Mean()), 1)
	s.MedianScore = mustStat(scores.Median())
	s.MaxScore = mustStat(scores.Max())
	return s
}

func mustStat(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	return v
}

// Markdown renders the report as a Markdown document
func (r Report) Markdown() string {
	var b strings.Builder

	b.WriteString("# Test selection report\n\n")
	fmt.Fprintf(&b, "Sample size: **%d**. Generated %s.\n\n", r.SampleSize, r.GeneratedAt)

	b.WriteString("## Summary\n\n")
	if r.Summary.Tests == 0 {
		b.WriteString("No tests were scored.\n\n")
	} else {
		fmt.Fprintf(&b, "- Tests scored: %d (%d without violations)\n", r.Summary.Tests, r.Summary.Clean)
		fmt.Fprintf(&b, "- Best candidate: **%s**\n", escape(r.Summary.Best))
		fmt.Fprintf(&b, "- Score mean %.1f, median %.1f, max %.0f\n\n",
			r.Summary.MeanScore, r.Summary.MedianScore, r.Summary.MaxScore)
	}

	b.WriteString("## Assumptions\n\n")
	if len(r.Findings) == 0 {
		b.WriteString("No assumption checks were recorded.\n\n")
	} else {
		b.WriteString("| Assumption | Severity | Confidence | p-value | Action |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, f := range r.Findings {
			fmt.Fprintf(&b, "| %s | %s | %d%% | %s | %s |\n",
				escape(f.Assumption), severityLabel(f.Assessment), f.Confidence, pValueLabel(f.Check), actionLabel(f.Recommendation))
		}
		b.WriteString("\n")

		for _, f := range r.Findings {
			if f.Recommendation == nil || f.Recommendation.Action == scoring.ActionProceed {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", escape(f.Assumption), escape(f.Recommendation.Message))
			for _, alt := range f.Recommendation.Alternatives {
				fmt.Fprintf(&b, "- %s\n", escape(alt))
			}
			if len(f.Recommendation.Alternatives) > 0 {
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("## Ranking\n\n")
	if len(r.Ranking) == 0 {
		b.WriteString("No tests were scored.\n")
		return b.String()
	}
	b.WriteString("| # | Test | Score | Power | Violations |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for i, entry := range r.Ranking {
		fmt.Fprintf(&b, "| %d | %s | %d | %.2f | %s |\n",
			i+1, escape(entry.Test), entry.Score, entry.Power, violationsLabel(entry.Violations))
	}
	return b.String()
}

// HTML renders the Markdown report to an HTML fragment. Raw HTML in the
// Markdown is dropped.
func (r Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML | html.Safelink})
	return markdown.ToHTML([]byte(r.Markdown()), p, renderer)
}

// markdownEscaper backslash-escapes characters that would start Markdown or
// HTML syntax, or split a table cell.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"|", `\|`,
	"<", `\<`,
	">", `\>`,
	"[", `\[`,
	"]", `\]`,
	"#", `\#`,
	"\n", " ",
)

// escape makes text from checks or catalogs safe to interpolate into Markdown
func escape(text string) string {
	return markdownEscaper.Replace(text)
}

func severityLabel(a severity.Assessment) string {
	if !a.Known {
		return "unknown"
	}
	return a.Severity.String()
}

func pValueLabel(check assumption.CheckResult) string {
	if !check.HasPValue() {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", *check.PValue)
}

func actionLabel(rec *scoring.Recommendation) string {
	if rec == nil {
		return "-"
	}
	return string(rec.Action)
}

func violationsLabel(violations []scoring.Violation) string {
	if len(violations) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		if v.Type == scoring.ViolationSampleSize {
			parts = append(parts, fmt.Sprintf("sample size (%s)", v.Severity))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", escape(v.Assumption), v.Severity))
	}
	return strings.Join(parts, ", ")
}
