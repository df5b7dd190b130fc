package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/pbaille/neuroassist/internal/domain"
)

const (
	// DefaultMedicationCutoffHour is the local hour after which a missing
	// medication log raises an alert.
	DefaultMedicationCutoffHour = 18

	lowScoreRatio     = 0.40
	belowAverageRatio = 0.60
	confusionRun      = 3
	declineAlertLimit = -15.0
)

// Rules evaluate freshly inserted records and return alert drafts. A draft
// has no ID or timestamp; storage assigns them on insert. Rules never look
// at previously raised alerts, so repeated triggers produce repeated alerts.

// MissedMedication fires when no medication was logged today and the local
// hour is at or past cutoffHour. logs are the user's windowed routine logs.
func MissedMedication(userID string, logs []domain.RoutineLog, now time.Time, loc *time.Location, cutoffHour int) *domain.Alert {
	if loc == nil {
		loc = time.UTC
	}
	today := DayKey(now, loc)
	for _, l := range logs {
		if l.Activity == domain.ActivityMedication && DayKey(l.Timestamp, loc) == today {
			return nil
		}
	}
	if now.In(loc).Hour() < cutoffHour {
		return nil
	}
	return &domain.Alert{
		UserID:   userID,
		Type:     domain.AlertRoutine,
		Priority: domain.PriorityHigh,
		Message:  "Medication not logged today",
	}
}

// ConfusionPattern fires when the three most recent mood logs are all
// confused. logs must be ordered newest first.
func ConfusionPattern(userID string, logs []domain.RoutineLog) *domain.Alert {
	seen := 0
	for _, l := range logs {
		if l.Activity != domain.ActivityMood {
			continue
		}
		if l.Mood != domain.MoodConfused {
			return nil
		}
		seen++
		if seen == confusionRun {
			return &domain.Alert{
				UserID:   userID,
				Type:     domain.AlertMood,
				Priority: domain.PriorityMedium,
				Message:  "Pattern of confusion detected in recent mood logs",
			}
		}
	}
	return nil
}

// CognitiveScore fires on a low (< 40%) or below-average (< 60%) result;
// the two are mutually exclusive.
func CognitiveScore(userID string, testType domain.TestType, score, maxScore int) *domain.Alert {
	ratio := domain.CognitiveTest{Score: score, MaxScore: maxScore}.Ratio()
	data := map[string]any{
		"testType": testType,
		"score":    score,
		"maxScore": maxScore,
	}

	switch {
	case ratio < lowScoreRatio:
		return &domain.Alert{
			UserID:   userID,
			Type:     domain.AlertCognitive,
			Priority: domain.PriorityHigh,
			Message: fmt.Sprintf("Low score on %s test: %d/%d (%.0f%%)",
				testType, score, maxScore, ratio*100),
			Data: data,
		}
	case ratio < belowAverageRatio:
		return &domain.Alert{
			UserID:   userID,
			Type:     domain.AlertCognitive,
			Priority: domain.PriorityMedium,
			Message:  fmt.Sprintf("Below average score on %s test: %d/%d", testType, score, maxScore),
			Data:     data,
		}
	}
	return nil
}

// TaskFailure fires when a functional task was done out of order or with
// more than two errors.
func TaskFailure(task domain.FunctionalTask) *domain.Alert {
	if !task.Abnormal() {
		return nil
	}
	return &domain.Alert{
		UserID:   task.UserID,
		Type:     domain.AlertFunctionalTask,
		Priority: domain.PriorityHigh,
		Message: fmt.Sprintf("Functional task %q completed with %d errors or incorrect sequence",
			task.TaskType, task.Errors),
		Data: map[string]any{
			"taskId":          task.ID,
			"errors":          task.Errors,
			"sequenceCorrect": task.SequenceCorrect,
		},
	}
}

// BaselineDecline returns one alert per test type whose trend is declining
// by more than 15 points, in sorted test-type order.
func BaselineDecline(userID string, report TrendReport) []domain.Alert {
	if !report.HasBaseline {
		return nil
	}
	var alerts []domain.Alert
	for _, testType := range report.TestTypes() {
		tr := report.Trends[testType]
		if tr.Direction != Declining || tr.Change >= declineAlertLimit {
			continue
		}
		alerts = append(alerts, domain.Alert{
			UserID:   userID,
			Type:     domain.AlertTrend,
			Priority: domain.PriorityHigh,
			Message: fmt.Sprintf("%s performance declined %.0f points below baseline",
				testType, math.Abs(tr.Change)),
			Data: map[string]any{
				"testType": testType,
				"baseline": tr.Baseline,
				"current":  tr.Current,
				"change":   tr.Change,
			},
		})
	}
	return alerts
}
