package risk

import (
	"sort"

	"github.com/pbaille/neuroassist/internal/domain"
)

type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

const trendBand = 10.0

// Trend compares one test type's recent average against its baseline component
type Trend struct {
	Baseline  float64   `json:"baseline"`
	Current   float64   `json:"current"`
	Change    float64   `json:"change"`
	Direction Direction `json:"direction"`
}

// TrendReport is the per-test-type trend for one user
type TrendReport struct {
	HasBaseline bool                      `json:"hasBaseline"`
	Trends      map[domain.TestType]Trend `json:"trends,omitempty"`
}

// TestTypes returns the reported test types in sorted order
func (r TrendReport) TestTypes() []domain.TestType {
	types := make([]domain.TestType, 0, len(r.Trends))
	for t := range r.Trends {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// componentPct maps a test type to its baseline sub-score as a percentage
func componentPct(c domain.Components, testType domain.TestType) (float64, bool) {
	switch testType {
	case domain.TestOrientation:
		return float64(c.Orientation) / 3 * 100, true
	case domain.TestRecall:
		return float64(c.Recall) / 5 * 100, true
	case domain.TestTrailMaking:
		return float64(c.Trail) / 2 * 100, true
	}
	return 0, false
}

// AnalyzeTrend compares recent per-type averages with the baseline components.
// Without a baseline or without recent tests the report is empty.
func AnalyzeTrend(baseline *domain.Baseline, recent []domain.CognitiveTest) TrendReport {
	if baseline == nil || len(recent) == 0 {
		return TrendReport{HasBaseline: false}
	}

	sums := make(map[domain.TestType]float64)
	counts := make(map[domain.TestType]int)
	for _, t := range recent {
		sums[t.TestType] += t.Ratio() * 100
		counts[t.TestType]++
	}

	report := TrendReport{
		HasBaseline: true,
		Trends:      make(map[domain.TestType]Trend, len(sums)),
	}
	for testType, sum := range sums {
		current := sum / float64(counts[testType])
		base, _ := componentPct(baseline.Components, testType)
		change := current - base

		dir := Stable
		switch {
		case change > trendBand:
			dir = Improving
		case change < -trendBand:
			dir = Declining
		}

		report.Trends[testType] = Trend{
			Baseline:  base,
			Current:   current,
			Change:    change,
			Direction: dir,
		}
	}
	return report
}
