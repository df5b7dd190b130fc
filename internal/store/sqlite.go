package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/neuroassist/internal/domain"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Store handles database operations
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps snapshots simple.
	db.SetMaxOpenConns(1)

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// SetClock replaces the clock used to stamp records inserted without a timestamp
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return t.UTC()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// nullJSON encodes v, storing NULL for empty values
func nullJSON(v any, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

const userColumns = "id, name, role, date_of_birth, caregiver_id, onboarding_completed, created_at"

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	var dob, caregiver sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &u.Role, &dob, &caregiver, &u.OnboardingCompleted, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.DateOfBirth = dob.String
	u.CaregiverID = caregiver.String
	return &u, nil
}

// CreateUser inserts a new user and returns it
func (s *Store) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	u.ID = uuid.New().String()
	u.CreatedAt = s.stamp(u.CreatedAt)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Name, u.Role, nullString(u.DateOfBirth), nullString(u.CaregiverID), u.OnboardingCompleted, u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// FindUserByName looks a user up by case-insensitive name
func (s *Store) FindUserByName(ctx context.Context, name string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE lower(name) = lower(?) ORDER BY created_at LIMIT 1", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, oldest first
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// InsertBaseline stores a baseline assessment and marks the user's onboarding complete
func (s *Store) InsertBaseline(ctx context.Context, b domain.Baseline) (*domain.Baseline, error) {
	b.ID = uuid.New().String()
	b.Timestamp = s.stamp(b.Timestamp)

	components, err := json.Marshal(b.Components)
	if err != nil {
		return nil, fmt.Errorf("encode components: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO baseline_assessments
		(id, user_id, cognitive_score, functional_score, total_score, risk_level, components, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.CognitiveScore, b.FunctionalScore, b.TotalScore, b.RiskLevel, string(components), b.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert baseline: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE users SET onboarding_completed = 1 WHERE id = ?", b.UserID); err != nil {
		return nil, fmt.Errorf("mark onboarding complete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit baseline: %w", err)
	}
	return &b, nil
}

// GetBaseline returns the user's latest baseline, or nil if there is none
func (s *Store) GetBaseline(ctx context.Context, userID string) (*domain.Baseline, error) {
	return getBaseline(ctx, s.db, userID)
}

func getBaseline(ctx context.Context, q querier, userID string) (*domain.Baseline, error) {
	var b domain.Baseline
	var components string
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, cognitive_score, functional_score, total_score, risk_level, components, timestamp
		FROM baseline_assessments
		WHERE user_id = ?
		ORDER BY timestamp DESC LIMIT 1`, userID,
	).Scan(&b.ID, &b.UserID, &b.CognitiveScore, &b.FunctionalScore, &b.TotalScore, &b.RiskLevel, &components, &b.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get baseline: %w", err)
	}
	if err := json.Unmarshal([]byte(components), &b.Components); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	return &b, nil
}

// Snapshot reads the user's records since the cutoff and their baseline
// inside one transaction, so every list reflects the same state.
func (s *Store) Snapshot(ctx context.Context, userID string, since time.Time) (*domain.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	var snap domain.Snapshot
	if snap.RoutineLogs, err = routineLogs(ctx, tx, userID, since); err != nil {
		return nil, err
	}
	if snap.CognitiveTests, err = cognitiveTests(ctx, tx, userID, since); err != nil {
		return nil, err
	}
	if snap.FunctionalTasks, err = functionalTasks(ctx, tx, userID, since); err != nil {
		return nil, err
	}
	if snap.Baseline, err = getBaseline(ctx, tx, userID); err != nil {
		return nil, err
	}
	return &snap, nil
}
