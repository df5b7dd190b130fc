package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/neuroassist/internal/domain"
)

const alertColumns = "id, user_id, type, priority, message, data, read, timestamp"

func scanAlert(row scanner) (*domain.Alert, error) {
	var a domain.Alert
	var data sql.NullString
	if err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.Priority, &a.Message, &data, &a.Read, &a.Timestamp); err != nil {
		return nil, err
	}
	if data.Valid {
		if err := json.Unmarshal([]byte(data.String), &a.Data); err != nil {
			return nil, fmt.Errorf("decode alert data: %w", err)
		}
	}
	return &a, nil
}

// InsertAlert stores an alert. Alerts are append-only; nothing is de-duplicated.
func (s *Store) InsertAlert(ctx context.Context, a domain.Alert) (*domain.Alert, error) {
	a.ID = uuid.New().String()
	a.Timestamp = s.stamp(a.Timestamp)

	data, err := nullJSON(a.Data, len(a.Data) == 0)
	if err != nil {
		return nil, fmt.Errorf("encode alert data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO alerts ("+alertColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.UserID, a.Type, a.Priority, a.Message, data, a.Read, a.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	return &a, nil
}

// ListAlerts returns a user's alerts, newest first
func (s *Store) ListAlerts(ctx context.Context, userID string, unreadOnly bool) ([]domain.Alert, error) {
	query := "SELECT " + alertColumns + " FROM alerts WHERE user_id = ?"
	if unreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// MarkAlertRead flags an alert as read and returns it
func (s *Store) MarkAlertRead(ctx context.Context, id string) (*domain.Alert, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE alerts SET read = 1 WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("mark alert read: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("mark alert read: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}

	a, err := scanAlert(s.db.QueryRowContext(ctx, "SELECT "+alertColumns+" FROM alerts WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

const riskScoreColumns = "id, user_id, score, status, breakdown, timestamp"

func scanRiskScore(row scanner) (*domain.RiskScore, error) {
	var r domain.RiskScore
	var breakdown sql.NullString
	if err := row.Scan(&r.ID, &r.UserID, &r.Score, &r.Status, &breakdown, &r.Timestamp); err != nil {
		return nil, err
	}
	if breakdown.Valid {
		if err := json.Unmarshal([]byte(breakdown.String), &r.Breakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown: %w", err)
		}
	}
	return &r, nil
}

// InsertRiskScore appends a computed risk score to the user's history
func (s *Store) InsertRiskScore(ctx context.Context, r domain.RiskScore) (*domain.RiskScore, error) {
	r.ID = uuid.New().String()
	r.Timestamp = s.stamp(r.Timestamp)

	breakdown, err := json.Marshal(r.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode breakdown: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO risk_scores ("+riskScoreColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.UserID, r.Score, r.Status, string(breakdown), r.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert risk score: %w", err)
	}
	return &r, nil
}

// RiskScores returns the user's risk score history at or after since, newest first
func (s *Store) RiskScores(ctx context.Context, userID string, since time.Time) ([]domain.RiskScore, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+riskScoreColumns+" FROM risk_scores WHERE user_id = ? AND timestamp >= ? ORDER BY timestamp DESC",
		userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query risk scores: %w", err)
	}
	defer rows.Close()

	var scores []domain.RiskScore
	for rows.Next() {
		r, err := scanRiskScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk score: %w", err)
		}
		scores = append(scores, *r)
	}
	return scores, rows.Err()
}

// LatestRiskScore returns the most recent persisted score, or nil if there is none
func (s *Store) LatestRiskScore(ctx context.Context, userID string) (*domain.RiskScore, error) {
	r, err := scanRiskScore(s.db.QueryRowContext(ctx,
		"SELECT "+riskScoreColumns+" FROM risk_scores WHERE user_id = ? ORDER BY timestamp DESC LIMIT 1", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest risk score: %w", err)
	}
	return r, nil
}
