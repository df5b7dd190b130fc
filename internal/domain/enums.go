package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is returned when a string does not name a known enum member
var ErrInvalidValue = errors.New("invalid value")

type Role string

const (
	RolePatient   Role = "patient"
	RoleCaregiver Role = "caregiver"
)

type Activity string

const (
	ActivityMedication Activity = "medication"
	ActivityMood       Activity = "mood"
	ActivityBreakfast  Activity = "breakfast"
	ActivityLunch      Activity = "lunch"
	ActivityDinner     Activity = "dinner"
	ActivityWater      Activity = "water"
)

type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodNormal   Mood = "normal"
	MoodConfused Mood = "confused"
	MoodSad      Mood = "sad"
	MoodAnxious  Mood = "anxious"
	MoodTired    Mood = "tired"
)

// Negative reports whether the mood counts against the risk score
func (m Mood) Negative() bool {
	return m == MoodConfused || m == MoodSad
}

type TestType string

const (
	TestOrientation TestType = "orientation"
	TestRecall      TestType = "recall"
	TestTrailMaking TestType = "trail-making"
)

type TaskType string

const (
	TaskMakeTea TaskType = "make-tea"
)

type RiskLevel string

const (
	RiskNormal RiskLevel = "normal"
	RiskMild   RiskLevel = "mild"
	RiskHigh   RiskLevel = "high"
)

type AlertType string

const (
	AlertRoutine        AlertType = "routine"
	AlertMood           AlertType = "mood"
	AlertCognitive      AlertType = "cognitive"
	AlertFunctionalTask AlertType = "functional_task"
	AlertTrend          AlertType = "trend"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status is the green/amber/red banding of a risk score
type Status string

const (
	StatusGreen Status = "green"
	StatusAmber Status = "amber"
	StatusRed   Status = "red"
)

func parse[T ~string](kind, s string, members ...T) (T, error) {
	for _, m := range members {
		if string(m) == s {
			return m, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: unknown %s %q", ErrInvalidValue, kind, s)
}

func ParseRole(s string) (Role, error) {
	return parse("role", s, RolePatient, RoleCaregiver)
}

func ParseActivity(s string) (Activity, error) {
	return parse("activity", s, ActivityMedication, ActivityMood, ActivityBreakfast,
		ActivityLunch, ActivityDinner, ActivityWater)
}

// ParseMood accepts the empty string as "no mood"
func ParseMood(s string) (Mood, error) {
	if s == "" {
		return "", nil
	}
	return parse("mood", s, MoodHappy, MoodNormal, MoodConfused, MoodSad, MoodAnxious, MoodTired)
}

func ParseTestType(s string) (TestType, error) {
	return parse("test type", s, TestOrientation, TestRecall, TestTrailMaking)
}

func ParseTaskType(s string) (TaskType, error) {
	return parse("task type", s, TaskMakeTea)
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	return parse("risk level", s, RiskNormal, RiskMild, RiskHigh)
}

func ParseAlertType(s string) (AlertType, error) {
	return parse("alert type", s, AlertRoutine, AlertMood, AlertCognitive, AlertFunctionalTask, AlertTrend)
}

func ParsePriority(s string) (Priority, error) {
	return parse("priority", s, PriorityHigh, PriorityMedium, PriorityLow)
}

func ParseStatus(s string) (Status, error) {
	return parse("status", s, StatusGreen, StatusAmber, StatusRed)
}

// UnmarshalText rejects unknown members when decoding request bodies.

func (r *Role) UnmarshalText(b []byte) (err error)      { *r, err = ParseRole(string(b)); return }
func (a *Activity) UnmarshalText(b []byte) (err error)  { *a, err = ParseActivity(string(b)); return }
func (m *Mood) UnmarshalText(b []byte) (err error)      { *m, err = ParseMood(string(b)); return }
func (t *TestType) UnmarshalText(b []byte) (err error)  { *t, err = ParseTestType(string(b)); return }
func (t *TaskType) UnmarshalText(b []byte) (err error)  { *t, err = ParseTaskType(string(b)); return }
func (r *RiskLevel) UnmarshalText(b []byte) (err error) { *r, err = ParseRiskLevel(string(b)); return }
func (a *AlertType) UnmarshalText(b []byte) (err error) { *a, err = ParseAlertType(string(b)); return }
func (p *Priority) UnmarshalText(b []byte) (err error)  { *p, err = ParsePriority(string(b)); return }
func (s *Status) UnmarshalText(b []byte) (err error)    { *s, err = ParseStatus(string(b)); return }
