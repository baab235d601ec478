package severity

import (
	"fmt"
	"strings"

	"statadvisor/domain/assumption"
	"statadvisor/domain/scoring"
)

const cautionAlternatives = 2

// Recommend turns a severity into advice. Warnings carry at most two remedies;
// fail and critical carry all of them. Unknown severities produce no advice.
func Recommend(sev assumption.Severity, known bool, remedies []string) (scoring.Recommendation, bool) {
	if !known {
		return scoring.Recommendation{}, false
	}

	switch sev {
	case assumption.SeverityPass:
		return scoring.Recommendation{
			Action:       scoring.ActionProceed,
			Message:      "Assumption satisfied. Proceed with the planned analysis.",
			Alternatives: []string{},
		}, true
	case assumption.SeverityWarning:
		n := min(len(remedies), cautionAlternatives)
		return scoring.Recommendation{
			Action:       scoring.ActionCaution,
			Message:      "Minor violation detected. Results may be affected; consider a remedy.",
			Alternatives: append([]string{}, remedies[:n]...),
		}, true
	case assumption.SeverityFail, assumption.SeverityCritical:
		return scoring.Recommendation{
			Action:       scoring.ActionChange,
			Message:      fmt.Sprintf("%s violation. Change the analysis approach before interpreting results.", capitalize(sev.String())),
			Alternatives: append([]string{}, remedies...),
		}, true
	}
	return scoring.Recommendation{}, false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
