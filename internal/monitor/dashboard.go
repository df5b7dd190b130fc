package monitor

import (
	"context"
	"fmt"

	"github.com/pbaille/neuroassist/internal/domain"
)

// Dashboard is the caregiver overview of one patient
type Dashboard struct {
	User            *domain.User            `json:"user"`
	Baseline        *domain.Baseline        `json:"baseline"`
	RoutineLogs     []domain.RoutineLog     `json:"routineLogs"`
	CognitiveTests  []domain.CognitiveTest  `json:"cognitiveTests"`
	FunctionalTasks []domain.FunctionalTask `json:"functionalTasks"`
	Alerts          []domain.Alert          `json:"alerts"`
	RiskHistory     []domain.RiskScore      `json:"riskHistory"`
	RiskScore       *domain.RiskScore       `json:"riskScore"`
}

// Dashboard records a fresh risk score and gathers the records of the last
// days (the scoring window when days <= 0). Returns the storage not-found
// error when the user does not exist.
func (s *Service) Dashboard(ctx context.Context, userID string, days int) (*Dashboard, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	current, err := s.RecordRiskScore(ctx, userID)
	if err != nil {
		return nil, err
	}

	since := s.Since(days)
	snap, err := s.store.Snapshot(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	alerts, err := s.store.ListAlerts(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	history, err := s.store.RiskScores(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("read risk history: %w", err)
	}

	return &Dashboard{
		User:            user,
		Baseline:        snap.Baseline,
		RoutineLogs:     snap.RoutineLogs,
		CognitiveTests:  snap.CognitiveTests,
		FunctionalTasks: snap.FunctionalTasks,
		Alerts:          alerts,
		RiskHistory:     history,
		RiskScore:       current,
	}, nil
}
