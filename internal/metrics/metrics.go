// Package metrics exposes Prometheus metrics for raised alerts and computed risk scores.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pbaille/neuroassist/internal/domain"
)

// Metrics holds the monitoring collectors. A nil *Metrics records nothing.
type Metrics struct {
	// AlertsRaised counts appended alerts.
	// Labels: type, priority
	AlertsRaised *prometheus.CounterVec

	// RiskScores counts recorded risk scores.
	// Labels: status (green, amber, red)
	RiskScores *prometheus.CounterVec

	// RiskScore observes recorded score values.
	RiskScore prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AlertsRaised: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neuroassist",
				Name:      "alerts_raised_total",
				Help:      "Total number of alerts raised by alert rules",
			},
			[]string{"type", "priority"},
		),
		RiskScores: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neuroassist",
				Name:      "risk_scores_total",
				Help:      "Total number of risk scores recorded by status",
			},
			[]string{"status"},
		),
		RiskScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "neuroassist",
				Name:      "risk_score",
				Help:      "Distribution of recorded risk scores",
				Buckets:   prometheus.LinearBuckets(0, 1, 11),
			},
		),
	}
}

// AlertRaised records one appended alert.
func (m *Metrics) AlertRaised(a domain.Alert) {
	if m == nil {
		return
	}
	m.AlertsRaised.WithLabelValues(string(a.Type), string(a.Priority)).Inc()
}

// ScoreRecorded records one persisted risk score.
func (m *Metrics) ScoreRecorded(score float64, status domain.Status) {
	if m == nil {
		return
	}
	m.RiskScores.WithLabelValues(string(status)).Inc()
	m.RiskScore.Observe(score)
}
