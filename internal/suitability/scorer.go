// Package suitability ranks candidate statistical tests by how well their
// assumptions and sample-size requirements fit the observed data.
package suitability

import (
	"iter"
	"math"
	"sort"

	"statadvisor/domain/assumption"
	"statadvisor/domain/catalog"
	"statadvisor/domain/core"
	"statadvisor/domain/scoring"
)

// Penalties applied to the 100-point suitability score
const (
	maxScore = 100

	severeAssumptionPenalty   = 40
	moderateAssumptionPenalty = 20
	belowMinimumPenalty       = 30
	belowOptimalPenalty       = 10
)

// Scorer scores tests against one immutable catalog. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	catalog *catalog.Catalog
	version core.CatalogVersion
}

// NewScorer creates a scorer bound to the given catalog
func NewScorer(cat *catalog.Catalog) *Scorer {
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	return &Scorer{catalog: cat, version: cat.Version()}
}

// Catalog returns the catalog the scorer was built with
func (s *Scorer) Catalog() *catalog.Catalog {
	return s.catalog
}

// Version returns the fingerprint of the scorer's catalog
func (s *Scorer) Version() core.CatalogVersion {
	return s.version
}

// ScoreTest scores a single definition using the scorer's impact table
func (s *Scorer) ScoreTest(def catalog.TestDefinition, checks assumption.Checks, sampleSize int) scoring.TestScore {
	return ScoreTest(def, checks, sampleSize, s.catalog.Impact)
}

// Rank scores every catalog test, best first. Ties keep catalog order.
func (s *Scorer) Rank(checks assumption.Checks, sampleSize int) scoring.Ranking {
	ranking := make(scoring.Ranking, 0, len(s.catalog.Tests))
	for name, score := range s.Rankings(checks, sampleSize) {
		ranking = append(ranking, scoring.RankedTest{Test: name, TestScore: score})
	}
	return ranking
}

// Rankings yields (test, score) pairs in rank order. Each range over the
// sequence recomputes the ranking from the current inputs.
func (s *Scorer) Rankings(checks assumption.Checks, sampleSize int) iter.Seq2[string, scoring.TestScore] {
	return func(yield func(string, scoring.TestScore) bool) {
		ranked := RankTests(s.catalog.Tests, checks, sampleSize, s.catalog.Impact)
		for _, entry := range ranked {
			if !yield(entry.Test, entry.TestScore) {
				return
			}
		}
	}
}

// RankTests scores all definitions and stable-sorts them by score descending
func RankTests(defs []catalog.TestDefinition, checks assumption.Checks, sampleSize int, impact catalog.ImpactTable) scoring.Ranking {
	ranking := make(scoring.Ranking, len(defs))
	for i, def := range defs {
		ranking[i] = scoring.RankedTest{
			Test:      def.Name,
			TestScore: ScoreTest(def, checks, sampleSize, impact),
		}
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})
	return ranking
}

// ScoreTest computes the suitability of one test.
//
// Each failed assumption the test depends on costs 40 points when the impact
// table lists the test as severely affected (or lists "all"), 20 when it is
// moderately affected, and nothing otherwise. Assumptions without a check or
// without an impact entry are skipped. Sample sizes below the minimum cost 30,
// below optimal cost 10.
func ScoreTest(def catalog.TestDefinition, checks assumption.Checks, sampleSize int, impact catalog.ImpactTable) scoring.TestScore {
	score := maxScore
	violations := []scoring.Violation{}

	for _, key := range def.Assumptions {
		check, ok := checks.Get(key)
		if !ok || !check.IsFailed() {
			continue
		}
		entry, ok := impact[assumption.BaseKey(key)]
		if !ok {
			continue
		}

		switch {
		case entry.IsSevere(def.Name):
			score -= severeAssumptionPenalty
			violations = append(violations, scoring.Violation{
				Type:       scoring.ViolationAssumption,
				Assumption: key,
				Severity:   scoring.ImpactSevere,
			})
		case entry.IsModerate(def.Name):
			score -= moderateAssumptionPenalty
			violations = append(violations, scoring.Violation{
				Type:       scoring.ViolationAssumption,
				Assumption: key,
				Severity:   scoring.ImpactModerate,
			})
		}
	}

	switch {
	case sampleSize < def.SampleSize.Min || sampleSize <= 0:
		score -= belowMinimumPenalty
		violations = append(violations, scoring.Violation{Type: scoring.ViolationSampleSize, Severity: scoring.ImpactSevere})
	case sampleSize < def.SampleSize.Optimal:
		score -= belowOptimalPenalty
		violations = append(violations, scoring.Violation{Type: scoring.ViolationSampleSize, Severity: scoring.ImpactModerate})
	}

	if score < 0 {
		score = 0
	}

	return scoring.TestScore{
		Score:      score,
		Violations: violations,
		Power:      estimatePower(def.BasePower, score),
	}
}

// estimatePower scales the catalog's base power by the suitability score.
// This is a linear heuristic, not a statistical power calculation.
func estimatePower(basePower float64, score int) float64 {
	if math.IsNaN(basePower) {
		return 0
	}
	base := math.Min(1, math.Max(0, basePower))
	return base * float64(score) / maxScore
}
