package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/neuroassist/internal/domain"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	s.SetClock(func() time.Time { return now })
	t.Cleanup(func() { s.Close() })
	return s
}

func newPatient(t *testing.T, s *Store) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), domain.User{Name: "Margaret", Role: domain.RolePatient})
	require.NoError(t, err)
	return u
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	patient := newPatient(t, s)
	assert.NotEmpty(t, patient.ID)
	assert.True(t, patient.CreatedAt.Equal(now))

	caregiver, err := s.CreateUser(ctx, domain.User{Name: "Tom", Role: domain.RoleCaregiver, DateOfBirth: "1970-01-01"})
	require.NoError(t, err)

	got, err := s.GetUser(ctx, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tom", got.Name)
	assert.Equal(t, domain.RoleCaregiver, got.Role)
	assert.Equal(t, "1970-01-01", got.DateOfBirth)
	assert.Empty(t, got.CaregiverID)
	assert.False(t, got.OnboardingCompleted)

	found, err := s.FindUserByName(ctx, "margaret")
	require.NoError(t, err)
	assert.Equal(t, patient.ID, found.ID)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindUserByName(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBaseline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newPatient(t, s)

	b, err := s.GetBaseline(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = s.InsertBaseline(ctx, domain.Baseline{
		UserID:          u.ID,
		CognitiveScore:  8,
		FunctionalScore: 5,
		TotalScore:      13,
		RiskLevel:       domain.RiskNormal,
		Components:      domain.Components{Orientation: 3, Recall: 4, Trail: 1, TeaTask: 5},
	})
	require.NoError(t, err)

	b, err = s.GetBaseline(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 8, b.CognitiveScore)
	assert.Equal(t, domain.Components{Orientation: 3, Recall: 4, Trail: 1, TeaTask: 5}, b.Components)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.OnboardingCompleted)
}

func TestRecordsWindowAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newPatient(t, s)

	for _, ts := range []time.Time{now.Add(-10 * 24 * time.Hour), now.Add(-2 * time.Hour), now.Add(-time.Hour)} {
		_, err := s.InsertRoutineLog(ctx, domain.RoutineLog{
			UserID: u.ID, Activity: domain.ActivityMood, Mood: domain.MoodConfused, Timestamp: ts,
		})
		require.NoError(t, err)
	}
	water := 1.5
	_, err := s.InsertRoutineLog(ctx, domain.RoutineLog{UserID: u.ID, Activity: domain.ActivityWater, Value: &water})
	require.NoError(t, err)

	logs, err := s.RoutineLogs(ctx, u.ID, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 3)

	assert.Equal(t, domain.ActivityWater, logs[0].Activity)
	require.NotNil(t, logs[0].Value)
	assert.InDelta(t, 1.5, *logs[0].Value, 1e-9)
	assert.Empty(t, logs[0].Mood)
	assert.True(t, logs[1].Timestamp.Equal(now.Add(-time.Hour)))
	assert.True(t, logs[2].Timestamp.Equal(now.Add(-2*time.Hour)))
	assert.Equal(t, domain.MoodConfused, logs[1].Mood)

	all, err := s.RoutineLogs(ctx, u.ID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCognitiveAndFunctionalRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newPatient(t, s)

	seconds := 42
	_, err := s.InsertCognitiveTest(ctx, domain.CognitiveTest{
		UserID: u.ID, TestType: domain.TestRecall, Score: 3, MaxScore: 5,
		TimeTaken: &seconds, Details: json.RawMessage(`{"words":["apple"]}`),
	})
	require.NoError(t, err)

	tests, err := s.CognitiveTests(ctx, u.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, tests, 1)
	require.NotNil(t, tests[0].TimeTaken)
	assert.Equal(t, 42, *tests[0].TimeTaken)
	assert.JSONEq(t, `{"words":["apple"]}`, string(tests[0].Details))

	_, err = s.InsertFunctionalTask(ctx, domain.FunctionalTask{
		UserID: u.ID, TaskType: domain.TaskMakeTea, Completed: true, Errors: 3,
		SequenceCorrect: false, TimeTaken: 90, Steps: []string{"boil", "pour"},
	})
	require.NoError(t, err)

	tasks, err := s.FunctionalTasks(ctx, u.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)
	assert.False(t, tasks[0].SequenceCorrect)
	assert.Equal(t, 3, tasks[0].Errors)
	assert.Equal(t, 90, tasks[0].TimeTaken)
	assert.Equal(t, []string{"boil", "pour"}, tasks[0].Steps)
}

func TestInsertRequiresExistingUser(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertRoutineLog(context.Background(), domain.RoutineLog{UserID: "ghost", Activity: domain.ActivityWater})
	assert.Error(t, err)
}

func TestAlerts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newPatient(t, s)

	draft := domain.Alert{
		UserID: u.ID, Type: domain.AlertRoutine, Priority: domain.PriorityHigh,
		Message: "Medication not logged today",
	}
	first, err := s.InsertAlert(ctx, draft)
	require.NoError(t, err)
	// identical drafts are stored twice
	_, err = s.InsertAlert(ctx, draft)
	require.NoError(t, err)

	_, err = s.InsertAlert(ctx, domain.Alert{
		UserID: u.ID, Type: domain.AlertCognitive, Priority: domain.PriorityMedium,
		Message: "Below average", Data: map[string]any{"score": 3},
	})
	require.NoError(t, err)

	alerts, err := s.ListAlerts(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Len(t, alerts, 3)

	read, err := s.MarkAlertRead(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	unread, err := s.ListAlerts(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	for _, a := range unread {
		if a.Type == domain.AlertCognitive {
			assert.Equal(t, float64(3), a.Data["score"])
		}
	}

	_, err = s.MarkAlertRead(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRiskScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newPatient(t, s)

	latest, err := s.LatestRiskScore(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	decline := 25.0
	_, err = s.InsertRiskScore(ctx, domain.RiskScore{
		UserID: u.ID, Score: 8, Status: domain.StatusGreen, Timestamp: now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = s.InsertRiskScore(ctx, domain.RiskScore{
		UserID: u.ID, Score: 4, Status: domain.StatusRed,
		Breakdown: domain.Breakdown{MissedMedications: 3, TrendFactor: 2, BaselineDecline: &decline},
	})
	require.NoError(t, err)

	latest, err = s.LatestRiskScore(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 4.0, latest.Score)
	assert.Equal(t, 3, latest.Breakdown.MissedMedications)
	require.NotNil(t, latest.Breakdown.BaselineDecline)
	assert.Equal(t, 25.0, *latest.Breakdown.BaselineDecline)

	history, err := s.RiskScores(ctx, u.ID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newPatient(t, s)

	_, err := s.InsertRoutineLog(ctx, domain.RoutineLog{UserID: u.ID, Activity: domain.ActivityMedication})
	require.NoError(t, err)
	_, err = s.InsertCognitiveTest(ctx, domain.CognitiveTest{UserID: u.ID, TestType: domain.TestOrientation, Score: 2, MaxScore: 3})
	require.NoError(t, err)
	_, err = s.InsertFunctionalTask(ctx, domain.FunctionalTask{UserID: u.ID, TaskType: domain.TaskMakeTea, SequenceCorrect: true})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, u.ID, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, snap.RoutineLogs, 1)
	assert.Len(t, snap.CognitiveTests, 1)
	assert.Len(t, snap.FunctionalTasks, 1)
	assert.Nil(t, snap.Baseline)

	empty, err := s.Snapshot(ctx, "nobody", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, empty.RoutineLogs)
}
