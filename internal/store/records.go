package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/neuroassist/internal/domain"
)

// Records are returned newest first. A zero since returns everything.

// InsertRoutineLog stores a routine log entry
func (s *Store) InsertRoutineLog(ctx context.Context, l domain.RoutineLog) (*domain.RoutineLog, error) {
	l.ID = uuid.New().String()
	l.Timestamp = s.stamp(l.Timestamp)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO routine_logs (id, user_id, activity, value, mood, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		l.ID, l.UserID, l.Activity, l.Value, nullString(string(l.Mood)), l.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert routine log: %w", err)
	}
	return &l, nil
}

// RoutineLogs returns the user's routine logs at or after since
func (s *Store) RoutineLogs(ctx context.Context, userID string, since time.Time) ([]domain.RoutineLog, error) {
	return routineLogs(ctx, s.db, userID, since)
}

func routineLogs(ctx context.Context, q querier, userID string, since time.Time) ([]domain.RoutineLog, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, activity, value, mood, timestamp
		FROM routine_logs
		WHERE user_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query routine logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.RoutineLog
	for rows.Next() {
		var l domain.RoutineLog
		var value sql.NullFloat64
		var mood sql.NullString
		if err := rows.Scan(&l.ID, &l.UserID, &l.Activity, &value, &mood, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan routine log: %w", err)
		}
		if value.Valid {
			l.Value = &value.Float64
		}
		l.Mood = domain.Mood(mood.String)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// InsertCognitiveTest stores a cognitive test result
func (s *Store) InsertCognitiveTest(ctx context.Context, t domain.CognitiveTest) (*domain.CognitiveTest, error) {
	t.ID = uuid.New().String()
	t.Timestamp = s.stamp(t.Timestamp)

	details := sql.NullString{String: string(t.Details), Valid: len(t.Details) > 0}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cognitive_tests (id, user_id, test_type, score, max_score, time_taken, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TestType, t.Score, t.MaxScore, t.TimeTaken, details, t.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert cognitive test: %w", err)
	}
	return &t, nil
}

// CognitiveTests returns the user's cognitive tests at or after since
func (s *Store) CognitiveTests(ctx context.Context, userID string, since time.Time) ([]domain.CognitiveTest, error) {
	return cognitiveTests(ctx, s.db, userID, since)
}

func cognitiveTests(ctx context.Context, q querier, userID string, since time.Time) ([]domain.CognitiveTest, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, test_type, score, max_score, time_taken, details, timestamp
		FROM cognitive_tests
		WHERE user_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query cognitive tests: %w", err)
	}
	defer rows.Close()

	var tests []domain.CognitiveTest
	for rows.Next() {
		var t domain.CognitiveTest
		var timeTaken sql.NullInt64
		var details sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.TestType, &t.Score, &t.MaxScore, &timeTaken, &details, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan cognitive test: %w", err)
		}
		if timeTaken.Valid {
			v := int(timeTaken.Int64)
			t.TimeTaken = &v
		}
		if details.Valid {
			t.Details = json.RawMessage(details.String)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// InsertFunctionalTask stores a functional task result
func (s *Store) InsertFunctionalTask(ctx context.Context, t domain.FunctionalTask) (*domain.FunctionalTask, error) {
	t.ID = uuid.New().String()
	t.Timestamp = s.stamp(t.Timestamp)

	steps, err := nullJSON(t.Steps, len(t.Steps) == 0)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO functional_tasks (id, user_id, task_type, completed, errors, sequence_correct, time_taken, steps, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TaskType, t.Completed, t.Errors, t.SequenceCorrect, t.TimeTaken, steps, t.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert functional task: %w", err)
	}
	return &t, nil
}

// FunctionalTasks returns the user's functional tasks at or after since
func (s *Store) FunctionalTasks(ctx context.Context, userID string, since time.Time) ([]domain.FunctionalTask, error) {
	return functionalTasks(ctx, s.db, userID, since)
}

func functionalTasks(ctx context.Context, q querier, userID string, since time.Time) ([]domain.FunctionalTask, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, task_type, completed, errors, sequence_correct, time_taken, steps, timestamp
		FROM functional_tasks
		WHERE user_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query functional tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.FunctionalTask
	for rows.Next() {
		var t domain.FunctionalTask
		var timeTaken sql.NullInt64
		var steps sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.TaskType, &t.Completed, &t.Errors, &t.SequenceCorrect, &timeTaken, &steps, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan functional task: %w", err)
		}
		t.TimeTaken = int(timeTaken.Int64)
		if steps.Valid {
			if err := json.Unmarshal([]byte(steps.String), &t.Steps); err != nil {
				return nil, fmt.Errorf("decode steps: %w", err)
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
