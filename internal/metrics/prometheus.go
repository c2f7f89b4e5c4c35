// Package metrics defines the Prometheus domain metrics for the auth engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttemptsTotal counts resolved login attempts by outcome.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authengine",
			Name:      "auth_attempts_total",
			Help:      "Total authentication attempts by outcome",
		},
		[]string{"outcome"},
	)

	// RiskScoreObserved tracks the distribution of composite risk scores by
	// the decision they produced.
	RiskScoreObserved = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "authengine",
			Name:      "risk_score",
			Help:      "Composite risk score distribution by decision",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 85, 100},
		},
		[]string{"decision"},
	)

	// RiskLevelTotal counts assessments by classified level.
	RiskLevelTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authengine",
			Name:      "risk_level_total",
			Help:      "Risk assessments by level",
		},
		[]string{"level"},
	)

	// ChallengeVerificationsTotal counts challenge verifications by type and
	// outcome.
	ChallengeVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authengine",
			Name:      "challenge_verifications_total",
			Help:      "Challenge verifications by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// BlockedAttemptsTotal counts attempts denied by the risk policy.
	BlockedAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "authengine",
			Name:      "blocked_attempts_total",
			Help:      "Login attempts blocked at critical risk",
		},
	)
)
