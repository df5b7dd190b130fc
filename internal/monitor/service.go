// Package monitor runs the risk scoring and alert rules against stored
// records. It reads one consistent view of a user's records, calls the pure
// functions in package risk, then appends whatever they produce: alerts on
// record insertion and risk scores on request.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pbaille/neuroassist/internal/domain"
	"github.com/pbaille/neuroassist/internal/logging"
	"github.com/pbaille/neuroassist/internal/metrics"
	"github.com/pbaille/neuroassist/internal/notify"
	"github.com/pbaille/neuroassist/internal/risk"
	"github.com/pbaille/neuroassist/internal/telemetry"
)

// DefaultWindowDays is the rolling window scored when none is configured.
const DefaultWindowDays = 7

// Storage is the persistence the service reads from and appends to.
// Windowed reads return records at or after since, newest first.
type Storage interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	Snapshot(ctx context.Context, userID string, since time.Time) (*domain.Snapshot, error)
	RoutineLogs(ctx context.Context, userID string, since time.Time) ([]domain.RoutineLog, error)
	CognitiveTests(ctx context.Context, userID string, since time.Time) ([]domain.CognitiveTest, error)
	FunctionalTasks(ctx context.Context, userID string, since time.Time) ([]domain.FunctionalTask, error)
	GetBaseline(ctx context.Context, userID string) (*domain.Baseline, error)
	InsertAlert(ctx context.Context, a domain.Alert) (*domain.Alert, error)
	ListAlerts(ctx context.Context, userID string, unreadOnly bool) ([]domain.Alert, error)
	InsertRiskScore(ctx context.Context, r domain.RiskScore) (*domain.RiskScore, error)
	RiskScores(ctx context.Context, userID string, since time.Time) ([]domain.RiskScore, error)
}

// Options configures a Service. Zero values get defaults.
type Options struct {
	Logger               *zap.Logger
	Metrics              *metrics.Metrics
	Publisher            notify.Publisher
	Tracer               trace.Tracer
	Location             *time.Location
	WindowDays           int
	MedicationCutoffHour int
	Now                  func() time.Time
}

// Service is safe for concurrent use; it holds no mutable state.
type Service struct {
	store      Storage
	log        *zap.Logger
	metrics    *metrics.Metrics
	publisher  notify.Publisher
	tracer     trace.Tracer
	loc        *time.Location
	windowDays int
	cutoffHour int
	now        func() time.Time
}

// New creates a monitoring service over store.
func New(store Storage, opts Options) *Service {
	s := &Service{
		store:      store,
		log:        logging.OrNop(opts.Logger).Named("monitor"),
		metrics:    opts.Metrics,
		publisher:  opts.Publisher,
		tracer:     opts.Tracer,
		loc:        opts.Location,
		windowDays: opts.WindowDays,
		cutoffHour: opts.MedicationCutoffHour,
		now:        opts.Now,
	}
	if s.publisher == nil {
		s.publisher = notify.Nop{}
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(telemetry.TracerName)
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.windowDays <= 0 {
		s.windowDays = DefaultWindowDays
	}
	if s.cutoffHour == 0 {
		s.cutoffHour = risk.DefaultMedicationCutoffHour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Since converts a window length in days into a cutoff time.
func (s *Service) Since(days int) time.Time {
	if days <= 0 {
		days = s.windowDays
	}
	return s.now().Add(-time.Duration(days) * 24 * time.Hour)
}

func (s *Service) start(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("user.id", userID)))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// CalculateRiskScore scores the user's current window without persisting anything.
func (s *Service) CalculateRiskScore(ctx context.Context, userID string) (risk.Assessment, error) {
	snap, err := s.store.Snapshot(ctx, userID, s.Since(s.windowDays))
	if err != nil {
		return risk.Assessment{}, fmt.Errorf("read snapshot: %w", err)
	}
	return risk.Calculate(*snap, s.loc), nil
}

// RecordRiskScore scores the user's current window and appends the result
// to their risk score history. Each call appends a new row.
func (s *Service) RecordRiskScore(ctx context.Context, userID string) (*domain.RiskScore, error) {
	ctx, span := s.start(ctx, "monitor.RecordRiskScore", userID)
	defer span.End()

	a, err := s.CalculateRiskScore(ctx, userID)
	if err != nil {
		return nil, fail(span, err)
	}

	rs, err := s.store.InsertRiskScore(ctx, domain.RiskScore{
		UserID:    userID,
		Score:     a.Score,
		Status:    a.Status,
		Breakdown: a.Breakdown,
		Timestamp: s.now(),
	})
	if err != nil {
		return nil, fail(span, fmt.Errorf("record risk score: %w", err))
	}

	s.metrics.ScoreRecorded(rs.Score, rs.Status)
	span.SetAttributes(attribute.Float64("risk.score", rs.Score), attribute.String("risk.status", string(rs.Status)))
	logging.WithTrace(ctx, s.log).Info("risk score recorded",
		zap.String("user_id", userID),
		zap.Float64("score", rs.Score),
		zap.String("status", string(rs.Status)))
	return rs, nil
}

// OnRoutineLogInserted runs the missed-medication and confusion-pattern
// rules after a routine log has been stored.
func (s *Service) OnRoutineLogInserted(ctx context.Context, entry domain.RoutineLog) ([]domain.Alert, error) {
	ctx, span := s.start(ctx, "monitor.OnRoutineLogInserted", entry.UserID)
	defer span.End()

	logs, err := s.store.RoutineLogs(ctx, entry.UserID, s.Since(s.windowDays))
	if err != nil {
		return nil, fail(span, fmt.Errorf("read routine logs: %w", err))
	}

	drafts := []*domain.Alert{
		risk.MissedMedication(entry.UserID, logs, s.now(), s.loc, s.cutoffHour),
		risk.ConfusionPattern(entry.UserID, logs),
	}
	alerts, err := s.raiseAll(ctx, drafts)
	if err != nil {
		return nil, fail(span, err)
	}
	return alerts, nil
}

// OnCognitiveTestInserted runs the score thresholds on the new test and,
// when the user has a baseline, the baseline decline rule over the window.
func (s *Service) OnCognitiveTestInserted(ctx context.Context, test domain.CognitiveTest) ([]domain.Alert, error) {
	ctx, span := s.start(ctx, "monitor.OnCognitiveTestInserted", test.UserID)
	defer span.End()

	drafts := []*domain.Alert{risk.CognitiveScore(test.UserID, test.TestType, test.Score, test.MaxScore)}

	snap, err := s.store.Snapshot(ctx, test.UserID, s.Since(s.windowDays))
	if err != nil {
		return nil, fail(span, fmt.Errorf("read snapshot: %w", err))
	}
	if snap.Baseline != nil {
		for _, a := range risk.BaselineDecline(test.UserID, risk.AnalyzeTrend(snap.Baseline, snap.CognitiveTests)) {
			drafts = append(drafts, &a)
		}
	}

	alerts, err := s.raiseAll(ctx, drafts)
	if err != nil {
		return nil, fail(span, err)
	}
	return alerts, nil
}

// OnFunctionalTaskInserted runs the task failure rule on the new task.
func (s *Service) OnFunctionalTaskInserted(ctx context.Context, task domain.FunctionalTask) ([]domain.Alert, error) {
	ctx, span := s.start(ctx, "monitor.OnFunctionalTaskInserted", task.UserID)
	defer span.End()

	alerts, err := s.raiseAll(ctx, []*domain.Alert{risk.TaskFailure(task)})
	if err != nil {
		return nil, fail(span, err)
	}
	return alerts, nil
}

// AnalyzeTrend compares the user's windowed cognitive tests with their baseline.
func (s *Service) AnalyzeTrend(ctx context.Context, userID string) (risk.TrendReport, error) {
	ctx, span := s.start(ctx, "monitor.AnalyzeTrend", userID)
	defer span.End()

	snap, err := s.store.Snapshot(ctx, userID, s.Since(s.windowDays))
	if err != nil {
		return risk.TrendReport{}, fail(span, fmt.Errorf("read snapshot: %w", err))
	}
	report := risk.AnalyzeTrend(snap.Baseline, snap.CognitiveTests)
	span.SetAttributes(attribute.Bool("trend.has_baseline", report.HasBaseline))
	return report, nil
}

// raiseAll appends the non-nil drafts in order.
func (s *Service) raiseAll(ctx context.Context, drafts []*domain.Alert) ([]domain.Alert, error) {
	var raised []domain.Alert
	for _, d := range drafts {
		if d == nil {
			continue
		}
		a, err := s.raise(ctx, *d)
		if err != nil {
			return raised, err
		}
		raised = append(raised, *a)
	}
	return raised, nil
}

// raise stores an alert, then publishes it. Publication failures are only
// logged; the alert is already durable.
func (s *Service) raise(ctx context.Context, draft domain.Alert) (*domain.Alert, error) {
	if draft.Timestamp.IsZero() {
		draft.Timestamp = s.now()
	}
	a, err := s.store.InsertAlert(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	s.metrics.AlertRaised(*a)
	log := logging.WithTrace(ctx, s.log).With(
		zap.String("alert_id", a.ID),
		zap.String("user_id", a.UserID),
		zap.String("type", string(a.Type)),
		zap.String("priority", string(a.Priority)))
	log.Info("alert raised", zap.String("message", a.Message))

	if err := s.publisher.Publish(ctx, *a); err != nil {
		log.Warn("alert publish failed", zap.Error(err))
	}
	return a, nil
}
