package assumption

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"statadvisor/domain/core"
)

// Well-known assumption keys produced by the statistics backend
const (
	Normality         = "normality"
	Homogeneity       = "homogeneity"
	Independence      = "independence"
	Linearity         = "linearity"
	Multicollinearity = "multicollinearity"
)

// CheckResult is the outcome of one assumption check run by the statistics backend.
// Passed is tri-state: nil means the check could not be evaluated.
type CheckResult struct {
	Passed    *bool          `json:"passed"`
	PValue    *float64       `json:"p_value,omitempty"`
	Test      string         `json:"test,omitempty"`
	Timestamp core.Timestamp `json:"timestamp,omitempty"`
}

// Checks maps assumption key to its check result
type Checks map[string]CheckResult

// Passing builds a passed check result
func Passing(test string) CheckResult {
	passed := true
	return CheckResult{Passed: &passed, Test: test, Timestamp: core.Now()}
}

// Failing builds a failed check result with the given p-value
func Failing(test string, pValue float64) CheckResult {
	passed := false
	return CheckResult{Passed: &passed, PValue: &pValue, Test: test, Timestamp: core.Now()}
}

// IsFailed reports whether the check ran and the assumption was rejected
func (r CheckResult) IsFailed() bool {
	return r.Passed != nil && !*r.Passed
}

// HasPValue reports whether a usable p-value is present
func (r CheckResult) HasPValue() bool {
	return r.PValue != nil && !isNaN(*r.PValue)
}

// UnmarshalJSON accepts both p_value and pValue spellings
func (r *CheckResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Passed      *bool          `json:"passed"`
		PValue      *float64       `json:"p_value"`
		PValueCamel *float64       `json:"pValue"`
		Test        string         `json:"test"`
		Timestamp   core.Timestamp `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Passed = raw.Passed
	r.PValue = raw.PValue
	if r.PValue == nil {
		r.PValue = raw.PValueCamel
	}
	r.Test = raw.Test
	r.Timestamp = raw.Timestamp
	return nil
}

// Get looks up the check for an assumption key. An exact match wins; otherwise
// a check stored under the base key ("normality" for "normality_differences")
// is used.
func (c Checks) Get(key string) (CheckResult, bool) {
	if result, ok := c[key]; ok {
		return result, true
	}
	result, ok := c[BaseKey(key)]
	return result, ok
}

// Clone returns a shallow copy of the checks map. CheckResult pointers are
// treated as immutable once stored.
func (c Checks) Clone() Checks {
	out := make(Checks, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Fingerprint renders each check to a stable string for input hashing
func (c Checks) Fingerprint() map[string]string {
	fields := make(map[string]string, len(c))
	for k, v := range c {
		passed := "null"
		if v.Passed != nil {
			passed = strconv.FormatBool(*v.Passed)
		}
		p := "none"
		if v.HasPValue() {
			p = strconv.FormatFloat(*v.PValue, 'g', -1, 64)
		}
		fields[k] = passed + "/" + p
	}
	return fields
}

// BaseKey returns the portion of an assumption key before the first underscore,
// e.g. "normality_differences" -> "normality".
func BaseKey(key string) string {
	if i := strings.IndexByte(key, '_'); i >= 0 {
		return key[:i]
	}
	return key
}

// Severity is the ordered classification of an assumption violation
type Severity int

const (
	SeverityPass Severity = iota + 1
	SeverityWarning
	SeverityFail
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityPass:
		return "pass"
	case SeverityWarning:
		return "warning"
	case SeverityFail:
		return "fail"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity parses the string form of a severity
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass":
		return SeverityPass, nil
	case "warning":
		return SeverityWarning, nil
	case "fail":
		return SeverityFail, nil
	case "critical":
		return SeverityCritical, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func isNaN(f float64) bool { return f != f }
