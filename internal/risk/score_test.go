package risk

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/neuroassist/internal/domain"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func medLogs(n int) []domain.RoutineLog {
	logs := make([]domain.RoutineLog, n)
	for i := range logs {
		logs[i] = domain.RoutineLog{
			UserID:    "u1",
			Activity:  domain.ActivityMedication,
			Timestamp: now.Add(-time.Duration(i) * 24 * time.Hour),
		}
	}
	return logs
}

func test(testType domain.TestType, score, maxScore int) domain.CognitiveTest {
	return domain.CognitiveTest{UserID: "u1", TestType: testType, Score: score, MaxScore: maxScore, Timestamp: now}
}

func TestCalculate_AllClear(t *testing.T) {
	got := Calculate(domain.Snapshot{RoutineLogs: medLogs(7)}, time.UTC)

	assert.Equal(t, 10.0, got.Score)
	assert.Equal(t, domain.StatusGreen, got.Status)
	assert.Equal(t, 0, got.Breakdown.MissedMedications)
	assert.Nil(t, got.Breakdown.BaselineDecline)
}

func TestCalculate_NoMedication(t *testing.T) {
	got := Calculate(domain.Snapshot{}, time.UTC)

	assert.Equal(t, 7, got.Breakdown.MissedMedications)
	assert.Equal(t, 3.0, got.Score)
	assert.Equal(t, domain.StatusRed, got.Status)
}

func TestCalculate_SameDayMedicationLogsCountSeparately(t *testing.T) {
	logs := make([]domain.RoutineLog, 7)
	for i := range logs {
		logs[i] = domain.RoutineLog{Activity: domain.ActivityMedication, Timestamp: now}
	}
	got := Calculate(domain.Snapshot{RoutineLogs: logs}, time.UTC)
	assert.Equal(t, 0, got.Breakdown.MissedMedications)
}

func TestCalculate_LowRecallDeductsOnce(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		tests := make([]domain.CognitiveTest, n)
		for i := range tests {
			tests[i] = test(domain.TestRecall, 5, 10)
		}
		got := Calculate(domain.Snapshot{RoutineLogs: medLogs(7), CognitiveTests: tests}, time.UTC)

		assert.Equal(t, 1, got.Breakdown.LowMemoryRecall)
		assert.Equal(t, 9.0, got.Score, "recall tests: %d", n)
	}
}

func TestCalculate_RecallAtThresholdNotFlagged(t *testing.T) {
	got := Calculate(domain.Snapshot{
		RoutineLogs:    medLogs(7),
		CognitiveTests: []domain.CognitiveTest{test(domain.TestRecall, 3, 5)},
	}, time.UTC)
	assert.Equal(t, 0, got.Breakdown.LowMemoryRecall)
	assert.Equal(t, 10.0, got.Score)
}

func TestCalculate_SlowTrailMaking(t *testing.T) {
	got := Calculate(domain.Snapshot{
		RoutineLogs: medLogs(7),
		CognitiveTests: []domain.CognitiveTest{
			test(domain.TestTrailMaking, 4, 10),
			test(domain.TestTrailMaking, 5, 10),
		},
	}, time.UTC)
	assert.Equal(t, 1, got.Breakdown.SlowTrailMaking)
	assert.Equal(t, 9.0, got.Score)
}

func TestCalculate_AbnormalTasks(t *testing.T) {
	got := Calculate(domain.Snapshot{
		RoutineLogs: medLogs(7),
		FunctionalTasks: []domain.FunctionalTask{
			{SequenceCorrect: false},
			{SequenceCorrect: true, Errors: 3},
			{SequenceCorrect: true, Errors: 2},
		},
	}, time.UTC)
	assert.Equal(t, 2, got.Breakdown.AbnormalFunctionalTasks)
	assert.Equal(t, 6.0, got.Score)
	assert.Equal(t, domain.StatusAmber, got.Status)
}

func TestCalculate_NegativeMoodDaysUseLocation(t *testing.T) {
	// 23:30 and 00:30 UTC fall on different UTC days but the same day in UTC-5.
	logs := append(medLogs(7),
		domain.RoutineLog{Activity: domain.ActivityMood, Mood: domain.MoodSad,
			Timestamp: time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)},
		domain.RoutineLog{Activity: domain.ActivityMood, Mood: domain.MoodConfused,
			Timestamp: time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)},
		domain.RoutineLog{Activity: domain.ActivityMood, Mood: domain.MoodHappy,
			Timestamp: time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)},
	)

	utc := Calculate(domain.Snapshot{RoutineLogs: logs}, time.UTC)
	assert.Equal(t, 2, utc.Breakdown.NegativeMoodDays)
	assert.Equal(t, 8.0, utc.Score)

	est := time.FixedZone("EST", -5*3600)
	local := Calculate(domain.Snapshot{RoutineLogs: logs}, est)
	assert.Equal(t, 1, local.Breakdown.NegativeMoodDays)
	assert.Equal(t, 9.0, local.Score)
}

func TestCalculate_BaselineTrend(t *testing.T) {
	baseline := &domain.Baseline{CognitiveScore: 9}

	tests := []struct {
		name       string
		tests      []domain.CognitiveTest
		wantFactor int
		wantScore  float64
	}{
		{"within ten points", []domain.CognitiveTest{test(domain.TestOrientation, 3, 3), test(domain.TestOrientation, 2, 3)}, 0, 10},
		{"moderate decline", []domain.CognitiveTest{test(domain.TestOrientation, 3, 4)}, 1, 9},
		{"severe decline", []domain.CognitiveTest{test(domain.TestOrientation, 1, 3)}, 2, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(domain.Snapshot{
				RoutineLogs:    medLogs(7),
				CognitiveTests: tt.tests,
				Baseline:       baseline,
			}, time.UTC)
			assert.Equal(t, tt.wantFactor, got.Breakdown.TrendFactor)
			assert.Equal(t, tt.wantScore, got.Score)
			require.NotNil(t, got.Breakdown.BaselineDecline)
		})
	}
}

func TestCalculate_BaselineWithoutTestsIgnored(t *testing.T) {
	got := Calculate(domain.Snapshot{RoutineLogs: medLogs(7), Baseline: &domain.Baseline{CognitiveScore: 10}}, time.UTC)
	assert.Equal(t, 0, got.Breakdown.TrendFactor)
	assert.Nil(t, got.Breakdown.BaselineDecline)
	assert.Equal(t, 10.0, got.Score)
}

func TestCalculate_ClampsAtZero(t *testing.T) {
	tasks := make([]domain.FunctionalTask, 10)
	got := Calculate(domain.Snapshot{FunctionalTasks: tasks}, time.UTC)
	assert.Equal(t, 0.0, got.Score)
	assert.Equal(t, domain.StatusRed, got.Status)
	assert.Equal(t, 10, got.Breakdown.AbnormalFunctionalTasks)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, domain.StatusGreen, StatusFor(10))
	assert.Equal(t, domain.StatusGreen, StatusFor(8))
	assert.Equal(t, domain.StatusAmber, StatusFor(7.999))
	assert.Equal(t, domain.StatusAmber, StatusFor(5))
	assert.Equal(t, domain.StatusRed, StatusFor(4.999))
	assert.Equal(t, domain.StatusRed, StatusFor(0))
}

func randomSnapshot(r *rand.Rand) domain.Snapshot {
	var snap domain.Snapshot
	moods := []domain.Mood{"", domain.MoodHappy, domain.MoodConfused, domain.MoodSad}
	for i := 0; i < r.Intn(15); i++ {
		act := domain.ActivityMedication
		if r.Intn(2) == 0 {
			act = domain.ActivityMood
		}
		snap.RoutineLogs = append(snap.RoutineLogs, domain.RoutineLog{
			Activity:  act,
			Mood:      moods[r.Intn(len(moods))],
			Timestamp: now.Add(-time.Duration(r.Intn(7*24)) * time.Hour),
		})
	}
	types := []domain.TestType{domain.TestOrientation, domain.TestRecall, domain.TestTrailMaking}
	for i := 0; i < r.Intn(6); i++ {
		m := 1 + r.Intn(10)
		snap.CognitiveTests = append(snap.CognitiveTests, test(types[r.Intn(3)], r.Intn(m+1), m))
	}
	for i := 0; i < r.Intn(4); i++ {
		snap.FunctionalTasks = append(snap.FunctionalTasks, domain.FunctionalTask{
			SequenceCorrect: r.Intn(2) == 0,
			Errors:          r.Intn(5),
		})
	}
	if r.Intn(2) == 0 {
		snap.Baseline = &domain.Baseline{CognitiveScore: r.Intn(11)}
	}
	return snap
}

func TestCalculate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		snap := randomSnapshot(r)
		got := Calculate(snap, time.UTC)

		require.GreaterOrEqual(t, got.Score, 0.0)
		require.LessOrEqual(t, got.Score, 10.0)
		require.Equal(t, StatusFor(got.Score), got.Status)

		again := Calculate(snap, time.UTC)
		require.Equal(t, got, again)

		worse := snap
		worse.FunctionalTasks = append(append([]domain.FunctionalTask(nil), snap.FunctionalTasks...),
			domain.FunctionalTask{SequenceCorrect: false})
		require.LessOrEqual(t, Calculate(worse, time.UTC).Score, got.Score)
	}
}
