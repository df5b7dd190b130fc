// Package risk holds the scoring and alerting core. Everything here is a
// pure function of the records passed in; reading and persisting them is
// the caller's job.
package risk

import (
	"math"
	"time"

	"github.com/pbaille/neuroassist/internal/domain"
)

const (
	maxScore = 10.0

	// ExpectedMedications is one medication log per day over the default window.
	ExpectedMedications = 7

	recallThreshold = 0.6
	trailThreshold  = 0.5

	severeDecline   = 20.0
	moderateDecline = 10.0
)

// Assessment is the result of a risk score computation
type Assessment struct {
	Score     float64          `json:"score"`
	Status    domain.Status    `json:"status"`
	Breakdown domain.Breakdown `json:"breakdown"`
}

// Calculate scores a windowed snapshot. Calendar days for the mood factor
// are taken in loc; a nil loc means UTC.
func Calculate(snap domain.Snapshot, loc *time.Location) Assessment {
	if loc == nil {
		loc = time.UTC
	}

	score := maxScore
	var b domain.Breakdown

	// Total logs against a 1/day cadence, not per calendar day.
	meds := 0
	for _, l := range snap.RoutineLogs {
		if l.Activity == domain.ActivityMedication {
			meds++
		}
	}
	b.MissedMedications = max(0, ExpectedMedications-meds)
	score -= float64(b.MissedMedications)

	for _, t := range snap.FunctionalTasks {
		if t.Abnormal() {
			b.AbnormalFunctionalTasks++
		}
	}
	score -= float64(b.AbnormalFunctionalTasks) * 2

	if avg, ok := meanRatio(snap.CognitiveTests, domain.TestRecall); ok && avg < recallThreshold {
		b.LowMemoryRecall = 1
		score--
	}
	if avg, ok := meanRatio(snap.CognitiveTests, domain.TestTrailMaking); ok && avg < trailThreshold {
		b.SlowTrailMaking = 1
		score--
	}

	b.NegativeMoodDays = negativeMoodDays(snap.RoutineLogs, loc)
	score -= float64(b.NegativeMoodDays)

	if snap.Baseline != nil && len(snap.CognitiveTests) > 0 {
		baselinePct := float64(snap.Baseline.CognitiveScore) / 10 * 100
		recentPct := 0.0
		for _, t := range snap.CognitiveTests {
			recentPct += t.Ratio() * 100
		}
		recentPct /= float64(len(snap.CognitiveTests))

		decline := baselinePct - recentPct
		b.BaselineDecline = &decline
		switch {
		case decline > severeDecline:
			b.TrendFactor = 2
		case decline > moderateDecline:
			b.TrendFactor = 1
		}
		score -= float64(b.TrendFactor)
	}

	score = math.Max(0, math.Min(maxScore, score))

	return Assessment{
		Score:     score,
		Status:    StatusFor(score),
		Breakdown: b,
	}
}

// StatusFor bands a score into green (>= 8), amber (>= 5) or red
func StatusFor(score float64) domain.Status {
	switch {
	case score >= 8:
		return domain.StatusGreen
	case score >= 5:
		return domain.StatusAmber
	default:
		return domain.StatusRed
	}
}

func meanRatio(tests []domain.CognitiveTest, testType domain.TestType) (float64, bool) {
	sum, n := 0.0, 0
	for _, t := range tests {
		if t.TestType != testType {
			continue
		}
		sum += t.Ratio()
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func negativeMoodDays(logs []domain.RoutineLog, loc *time.Location) int {
	days := make(map[string]struct{})
	for _, l := range logs {
		if l.Mood.Negative() {
			days[DayKey(l.Timestamp, loc)] = struct{}{}
		}
	}
	return len(days)
}

// DayKey is the calendar date of t in loc, formatted YYYY-MM-DD
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
