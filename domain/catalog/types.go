package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"statadvisor/domain/assumption"
	"statadvisor/domain/core"
)

// AllTests is the impact-table sentinel meaning every test is affected
const AllTests = "all"

// Category groups tests by family
type Category string

const (
	CategoryParametric    Category = "parametric"
	CategoryNonparametric Category = "nonparametric"
	CategoryCategorical   Category = "categorical"
	CategoryCorrelation   Category = "correlation"
	CategoryRegression    Category = "regression"
)

// SampleSizeRequirement holds the minimum and optimal sample sizes of a test
type SampleSizeRequirement struct {
	Min     int `json:"min" yaml:"min"`
	Optimal int `json:"optimal" yaml:"optimal"`
}

// ParameterType is the value type of a test parameter
type ParameterType string

const (
	ParamNumber  ParameterType = "number"
	ParamInteger ParameterType = "integer"
	ParamBoolean ParameterType = "boolean"
	ParamSelect  ParameterType = "select"
)

// Parameter describes one execution-time option of a test. Scoring ignores it.
type Parameter struct {
	Name    string        `json:"name" yaml:"name"`
	Type    ParameterType `json:"type" yaml:"type"`
	Default interface{}   `json:"default,omitempty" yaml:"default,omitempty"`
	Min     *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Options []string      `json:"options,omitempty" yaml:"options,omitempty"`
}

// TestDefinition is an immutable catalog entry for a candidate statistical test
type TestDefinition struct {
	Name        string                `json:"name" yaml:"name"`
	Category    Category              `json:"category" yaml:"category"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Assumptions []string              `json:"assumptions" yaml:"assumptions"`
	SampleSize  SampleSizeRequirement `json:"sample_size" yaml:"sample_size"`
	BasePower   float64               `json:"base_power" yaml:"base_power"`
	Parameters  []Parameter           `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Impact records which tests are affected by a violated assumption
type Impact struct {
	Severe   []string `json:"severe" yaml:"severe"`
	Moderate []string `json:"moderate,omitempty" yaml:"moderate,omitempty"`
	Robust   []string `json:"robust,omitempty" yaml:"robust,omitempty"`
}

// IsSevere reports whether a violation is severe for the named test
func (i Impact) IsSevere(test string) bool {
	return slices.Contains(i.Severe, AllTests) || slices.Contains(i.Severe, test)
}

// IsModerate reports whether a violation is moderate for the named test
func (i Impact) IsModerate(test string) bool {
	return slices.Contains(i.Moderate, test)
}

// ImpactTable maps base assumption key to its impact on tests
type ImpactTable map[string]Impact

// Catalog bundles the test definitions with the domain knowledge used to score them
type Catalog struct {
	Name     string              `json:"name" yaml:"name"`
	Tests    []TestDefinition    `json:"tests" yaml:"tests"`
	Impact   ImpactTable         `json:"impact" yaml:"impact"`
	Remedies map[string][]string `json:"remedies,omitempty" yaml:"remedies,omitempty"`
}

// Lookup finds a test definition by name
func (c *Catalog) Lookup(name string) (TestDefinition, bool) {
	for _, def := range c.Tests {
		if def.Name == name {
			return def, true
		}
	}
	return TestDefinition{}, false
}

// RemediesFor returns the remedies registered for an assumption's base key
func (c *Catalog) RemediesFor(key string) []string {
	return c.Remedies[assumption.BaseKey(key)]
}

// Version fingerprints the catalog content
func (c *Catalog) Version() core.CatalogVersion {
	// json.Marshal sorts map keys, so the encoding is canonical
	data, err := json.Marshal(c)
	if err != nil {
		return core.NewCatalogVersion([]byte(c.Name))
	}
	return core.NewCatalogVersion(data)
}

// Issue is one problem found while validating a catalog
type Issue struct {
	Test    string `json:"test,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	// Fatal issues make the entry unscoreable; Sanitize drops it
	Fatal bool `json:"fatal"`
}

func (i Issue) String() string {
	if i.Test == "" {
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	}
	return fmt.Sprintf("%s.%s: %s", i.Test, i.Field, i.Message)
}

// Validate returns every issue found in the catalog. An empty result means the
// catalog is fully consistent.
func (c *Catalog) Validate() []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(c.Tests))

	for idx, def := range c.Tests {
		label := def.Name
		if label == "" {
			label = fmt.Sprintf("#%d", idx)
		}
		issues = append(issues, validateDefinition(label, def, seen)...)
		if def.Name != "" {
			seen[def.Name] = true
		}
	}

	for key, impact := range c.Impact {
		if assumption.BaseKey(key) != key {
			issues = append(issues, Issue{Field: "impact." + key, Message: "impact keys must be base assumption keys"})
		}
		for _, name := range append(append(slices.Clone(impact.Severe), impact.Moderate...), impact.Robust...) {
			if name != AllTests && !seen[name] {
				issues = append(issues, Issue{Field: "impact." + key, Message: fmt.Sprintf("references unknown test %q", name)})
			}
		}
	}

	return issues
}

func validateDefinition(label string, def TestDefinition, seen map[string]bool) []Issue {
	var issues []Issue
	fatal := func(field, msg string) {
		issues = append(issues, Issue{Test: label, Field: field, Message: msg, Fatal: true})
	}
	warn := func(field, msg string) {
		issues = append(issues, Issue{Test: label, Field: field, Message: msg})
	}

	if def.Name == "" {
		fatal("name", "is required")
	} else if seen[def.Name] {
		fatal("name", "is duplicated")
	}
	if def.SampleSize.Min <= 0 {
		fatal("sample_size.min", "must be positive")
	}
	if def.SampleSize.Optimal < def.SampleSize.Min {
		fatal("sample_size.optimal", "must be >= min")
	}
	if math.IsNaN(def.BasePower) || def.BasePower <= 0 || def.BasePower > 1 {
		fatal("base_power", "must be in (0,1]")
	}
	if len(def.Assumptions) == 0 {
		warn("assumptions", "no assumptions listed; test can only be penalized for sample size")
	}
	for _, p := range def.Parameters {
		issues = append(issues, validateParameter(label, p)...)
	}
	return issues
}

func validateParameter(label string, p Parameter) []Issue {
	field := "parameters." + p.Name
	var issues []Issue
	warn := func(msg string) {
		issues = append(issues, Issue{Test: label, Field: field, Message: msg})
	}

	switch p.Type {
	case ParamNumber, ParamInteger:
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			warn("min exceeds max")
		}
		if v, ok := toFloat(p.Default); ok {
			if p.Min != nil && v < *p.Min || p.Max != nil && v > *p.Max {
				warn("default outside bounds")
			}
		}
	case ParamSelect:
		if len(p.Options) == 0 {
			warn("select parameter has no options")
		} else if s, ok := p.Default.(string); ok && !slices.Contains(p.Options, s) {
			warn("default is not one of the options")
		}
	case ParamBoolean:
		if _, ok := p.Default.(bool); p.Default != nil && !ok {
			warn("default is not a boolean")
		}
	default:
		warn(fmt.Sprintf("unknown parameter type %q", p.Type))
	}
	return issues
}

// Sanitize returns a copy of the catalog without entries that cannot be scored,
// together with the issues that caused each drop.
func (c *Catalog) Sanitize() (*Catalog, []Issue) {
	out := &Catalog{
		Name:     c.Name,
		Impact:   make(ImpactTable, len(c.Impact)),
		Remedies: make(map[string][]string, len(c.Remedies)),
	}
	for k, v := range c.Impact {
		out.Impact[k] = v
	}
	for k, v := range c.Remedies {
		out.Remedies[k] = slices.Clone(v)
	}

	var dropped []Issue
	seen := make(map[string]bool, len(c.Tests))
	for idx, def := range c.Tests {
		label := def.Name
		if label == "" {
			label = fmt.Sprintf("#%d", idx)
		}
		var fatal []Issue
		for _, issue := range validateDefinition(label, def, seen) {
			if issue.Fatal {
				fatal = append(fatal, issue)
			}
		}
		if len(fatal) > 0 {
			dropped = append(dropped, fatal...)
			continue
		}
		seen[def.Name] = true
		def.Assumptions = slices.Clone(def.Assumptions)
		out.Tests = append(out.Tests, def)
	}
	return out, dropped
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
