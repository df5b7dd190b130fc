// Package onboarding scores the one-time baseline assessment a patient
// takes when joining: orientation, five-word recall, a mini trail-making
// test and the tea-making functional task.
package onboarding

import (
	"errors"
	"fmt"

	"github.com/pbaille/neuroassist/internal/domain"
)

// ErrInvalid is returned for attempts outside the test ranges
var ErrInvalid = errors.New("invalid onboarding attempt")

const (
	MaxOrientation = 3
	MaxRecall      = 5
	MaxTrail       = 2
	MaxTeaTask     = 5

	trailErrorLimit  = 3
	trailSecondLimit = 60
)

// Attempt is the raw outcome of the onboarding tests
type Attempt struct {
	OrientationCorrect int  `json:"orientationCorrect"`
	RecallCorrect      int  `json:"recallCorrect"`
	TrailErrors        int  `json:"trailErrors"`
	TrailSeconds       int  `json:"trailSeconds"`
	TeaErrors          int  `json:"teaErrors"`
	TeaSequenceCorrect bool `json:"teaSequenceCorrect"`
}

func (a Attempt) Validate() error {
	switch {
	case a.OrientationCorrect < 0 || a.OrientationCorrect > MaxOrientation:
		return fmt.Errorf("%w: orientation must be 0-%d", ErrInvalid, MaxOrientation)
	case a.RecallCorrect < 0 || a.RecallCorrect > MaxRecall:
		return fmt.Errorf("%w: recall must be 0-%d", ErrInvalid, MaxRecall)
	case a.TrailErrors < 0 || a.TrailSeconds < 0 || a.TeaErrors < 0:
		return fmt.Errorf("%w: errors and durations cannot be negative", ErrInvalid)
	}
	return nil
}

// TrailScore starts at 2 and loses a point each for more than 3 errors
// and for taking more than 60 seconds
func TrailScore(mistakes, seconds int) int {
	score := MaxTrail
	if mistakes > trailErrorLimit {
		score--
	}
	if seconds > trailSecondLimit {
		score--
	}
	return max(0, score)
}

// TeaTaskScore grades the tea-making sequence on a 0-5 scale
func TeaTaskScore(mistakes int, sequenceCorrect bool) int {
	if !sequenceCorrect {
		if mistakes <= 2 {
			return 2
		}
		return 1
	}
	switch {
	case mistakes == 0:
		return 5
	case mistakes <= 2:
		return 4
	default:
		return 3
	}
}

// Level classifies a 0-15 total score
func Level(total int) domain.RiskLevel {
	switch {
	case total >= 10:
		return domain.RiskNormal
	case total >= 6:
		return domain.RiskMild
	default:
		return domain.RiskHigh
	}
}

// Assess scores an attempt into a baseline for userID. The result has no
// ID or timestamp yet.
func Assess(userID string, a Attempt) (domain.Baseline, error) {
	if err := a.Validate(); err != nil {
		return domain.Baseline{}, err
	}

	c := domain.Components{
		Orientation: a.OrientationCorrect,
		Recall:      a.RecallCorrect,
		Trail:       TrailScore(a.TrailErrors, a.TrailSeconds),
		TeaTask:     TeaTaskScore(a.TeaErrors, a.TeaSequenceCorrect),
	}
	cognitive := c.Orientation + c.Recall + c.Trail
	total := cognitive + c.TeaTask

	return domain.Baseline{
		UserID:          userID,
		CognitiveScore:  cognitive,
		FunctionalScore: c.TeaTask,
		TotalScore:      total,
		RiskLevel:       Level(total),
		Components:      c,
	}, nil
}
