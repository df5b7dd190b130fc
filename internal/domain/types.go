package domain

import (
	"encoding/json"
	"time"
)

// User is a patient or a caregiver
type User struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Role                Role      `json:"role"`
	DateOfBirth         string    `json:"dateOfBirth,omitempty"`
	CaregiverID         string    `json:"caregiverId,omitempty"`
	OnboardingCompleted bool      `json:"onboardingCompleted"`
	CreatedAt           time.Time `json:"createdAt"`
}

// RoutineLog is a single daily-routine entry logged by a patient
type RoutineLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Activity  Activity  `json:"activity"`
	Value     *float64  `json:"value,omitempty"`
	Mood      Mood      `json:"mood,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CognitiveTest is the result of one short cognitive test
type CognitiveTest struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	TestType  TestType        `json:"testType"`
	Score     int             `json:"score"`
	MaxScore  int             `json:"maxScore"`
	TimeTaken *int            `json:"timeTaken,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Ratio returns score/maxScore, or 0 when maxScore is not positive
func (t CognitiveTest) Ratio() float64 {
	if t.MaxScore <= 0 {
		return 0
	}
	return float64(t.Score) / float64(t.MaxScore)
}

// FunctionalTask is the result of a functional task such as making tea
type FunctionalTask struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	TaskType        TaskType  `json:"taskType"`
	Completed       bool      `json:"completed"`
	Errors          int       `json:"errors"`
	SequenceCorrect bool      `json:"sequenceCorrect"`
	TimeTaken       int       `json:"timeTaken"`
	Steps           []string  `json:"steps,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Abnormal reports whether the task was done out of order or with more than two errors
func (t FunctionalTask) Abnormal() bool {
	return !t.SequenceCorrect || t.Errors > 2
}

// Components holds the baseline sub-scores
type Components struct {
	Orientation int `json:"orientation"`
	Recall      int `json:"recall"`
	Trail       int `json:"trail"`
	TeaTask     int `json:"teaTask"`
}

// Baseline is the onboarding assessment that ongoing performance is compared against
type Baseline struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	CognitiveScore  int        `json:"cognitiveScore"`
	FunctionalScore int        `json:"functionalScore"`
	TotalScore      int        `json:"totalScore"`
	RiskLevel       RiskLevel  `json:"riskLevel"`
	Components      Components `json:"components"`
	Timestamp       time.Time  `json:"timestamp"`
}

// Alert is a caregiver-facing notification raised by an alert rule
type Alert struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Type      AlertType      `json:"type"`
	Priority  Priority       `json:"priority"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	Timestamp time.Time      `json:"timestamp"`
}

// Breakdown records the raw value of each risk factor, not its deduction
type Breakdown struct {
	MissedMedications       int      `json:"missedMedications"`
	AbnormalFunctionalTasks int      `json:"abnormalFunctionalTasks"`
	LowMemoryRecall         int      `json:"lowMemoryRecall"`
	SlowTrailMaking         int      `json:"slowTrailMaking"`
	NegativeMoodDays        int      `json:"negativeMoodDays"`
	TrendFactor             int      `json:"trendFactor"`
	BaselineDecline         *float64 `json:"baselineDecline,omitempty"`
}

// RiskScore is one persisted risk score computation
type RiskScore struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Score     float64   `json:"score"`
	Status    Status    `json:"status"`
	Breakdown Breakdown `json:"breakdown"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a consistent, time-windowed view of one user's records
type Snapshot struct {
	RoutineLogs     []RoutineLog
	CognitiveTests  []CognitiveTest
	FunctionalTasks []FunctionalTask
	Baseline        *Baseline
}
