// Package analytics aggregates risk decisions into queryable daily metrics.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/database"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/metrics"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/risk"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

const (
	metricsKeyPrefix = "metrics:"
	metricsTTL       = 30 * 24 * time.Hour
	eventsIndex      = "auth-events"
	riskIPThreshold  = 30
	writeTimeout     = 2 * time.Second
)

// IPRisk accumulates risk observed from one source IP.
type IPRisk struct {
	TotalScore float64 `json:"total_score"`
	Attempts   int     `json:"attempts"`
}

// HourlyActivity is the per-hour attempt histogram entry.
type HourlyActivity struct {
	Attempts int `json:"attempts"`
	Blocked  int `json:"blocked"`
}

// Metrics is one daily aggregation bucket, keyed by UTC date.
type Metrics struct {
	Date                 string                    `json:"date"`
	TotalAttempts        int                       `json:"total_attempts"`
	SuccessfulLogins     int                       `json:"successful_logins"`
	FailedLogins         int                       `json:"failed_logins"`
	BlockedAttempts      int                       `json:"blocked_attempts"`
	ChallengesIssued     int                       `json:"challenges_issued"`
	ChallengeCompletions int                       `json:"challenge_completions"`
	RiskLevels           map[string]int            `json:"risk_levels"`
	AttackTypes          map[string]int            `json:"attack_types"`
	TopRiskIPs           map[string]IPRisk         `json:"top_risk_ips"`
	HourlyActivity       map[string]HourlyActivity `json:"hourly_activity"`
}

func newMetrics(date string) Metrics {
	return Metrics{
		Date: date,
		RiskLevels: map[string]int{
			string(risk.RiskLevelLow):      0,
			string(risk.RiskLevelMedium):   0,
			string(risk.RiskLevelHigh):     0,
			string(risk.RiskLevelCritical): 0,
		},
		AttackTypes:    map[string]int{},
		TopRiskIPs:     map[string]IPRisk{},
		HourlyActivity: map[string]HourlyActivity{},
	}
}

// authEvent is the per-attempt document shipped to the optional event sink.
type authEvent struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	IPAddress string           `json:"ip_address"`
	Username  string           `json:"username,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Success   bool             `json:"success"`
	Composite float64          `json:"composite"`
	Level     string           `json:"level"`
	Factors   risk.RiskFactors `json:"factors"`
}

// Collector folds assessment results into daily metrics buckets in the keyed
// store and mirrors them to Prometheus. Concurrent collectors race on the
// same bucket with last-writer-wins; a lost increment marginally under-counts
// a heuristic signal and is accepted (the store is not a ledger). The mutex
// only serializes writers within one process.
type Collector struct {
	store  store.Store
	events *database.ElasticsearchClient // nil when no sink is configured
	logger *zap.Logger
	mu     sync.Mutex
}

// NewCollector creates a Collector. events may be nil.
func NewCollector(s store.Store, events *database.ElasticsearchClient, logger *zap.Logger) *Collector {
	return &Collector{
		store:  s,
		events: events,
		logger: logger.With(zap.String("component", "analytics_collector")),
	}
}

// RecordAttempt implements risk.Recorder. Both assessment passes arrive here;
// only the resolved pass counts toward the daily bucket so each logical
// attempt is aggregated once.
func (c *Collector) RecordAttempt(attempt risk.LoginAttempt, factors risk.RiskFactors, phase risk.Phase) {
	if phase != risk.PhaseResolved {
		return
	}

	c.update(attempt.Timestamp, func(m *Metrics) {
		m.TotalAttempts++
		if attempt.Success {
			m.SuccessfulLogins++
		} else {
			m.FailedLogins++
		}

		m.RiskLevels[string(factors.Level)]++

		for _, at := range attackTypes(factors) {
			m.AttackTypes[at]++
		}

		if factors.Composite > riskIPThreshold && attempt.IPAddress != "" {
			entry := m.TopRiskIPs[attempt.IPAddress]
			entry.TotalScore += factors.Composite
			entry.Attempts++
			m.TopRiskIPs[attempt.IPAddress] = entry
		}

		hour := fmt.Sprintf("%02d", attempt.Timestamp.UTC().Hour())
		activity := m.HourlyActivity[hour]
		activity.Attempts++
		m.HourlyActivity[hour] = activity
	})

	outcome := "failure"
	if attempt.Success {
		outcome = "success"
	}
	metrics.AuthAttemptsTotal.WithLabelValues(outcome).Inc()
	metrics.RiskLevelTotal.WithLabelValues(string(factors.Level)).Inc()
	metrics.RiskScoreObserved.WithLabelValues(decision(factors.Level)).Observe(factors.Composite)

	c.shipEvent(attempt, factors)
}

// RecordChallengeIssued counts a challenge demanded from a client.
func (c *Collector) RecordChallengeIssued(challengeType risk.ChallengeType, at time.Time) {
	c.update(at, func(m *Metrics) {
		m.ChallengesIssued++
	})
	metrics.ChallengeVerificationsTotal.WithLabelValues(string(challengeType), "issued").Inc()
}

// RecordChallengeCompleted counts a challenge verification outcome.
func (c *Collector) RecordChallengeCompleted(challengeType risk.ChallengeType, passed bool, at time.Time) {
	if passed {
		c.update(at, func(m *Metrics) {
			m.ChallengeCompletions++
		})
	}

	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	metrics.ChallengeVerificationsTotal.WithLabelValues(string(challengeType), outcome).Inc()
}

// RecordBlockedAttempt counts an attempt denied by the risk policy.
func (c *Collector) RecordBlockedAttempt(attempt risk.LoginAttempt, factors risk.RiskFactors) {
	c.update(attempt.Timestamp, func(m *Metrics) {
		m.BlockedAttempts++

		hour := fmt.Sprintf("%02d", attempt.Timestamp.UTC().Hour())
		activity := m.HourlyActivity[hour]
		activity.Blocked++
		m.HourlyActivity[hour] = activity
	})
	metrics.BlockedAttemptsTotal.Inc()
}

// GetMetrics returns the bucket for date (YYYY-MM-DD), today when empty.
// A missing bucket returns an empty initialized Metrics, not an error.
func (c *Collector) GetMetrics(ctx context.Context, date string) (Metrics, error) {
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	m := newMetrics(date)
	if _, err := store.GetJSON(ctx, c.store, metricsKeyPrefix+date, &m); err != nil {
		return Metrics{}, err
	}
	return m, nil
}

// update applies mutate to the day's bucket with read-default-merge-write.
func (c *Collector) update(at time.Time, mutate func(*Metrics)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	date := at.UTC().Format("2006-01-02")
	key := metricsKeyPrefix + date

	m := newMetrics(date)
	if _, err := store.GetJSON(ctx, c.store, key, &m); err != nil {
		c.logger.Warn("Metrics read failed, skipping update", zap.Error(err))
		return
	}

	mutate(&m)

	if err := store.PutJSON(ctx, c.store, key, m, metricsTTL); err != nil {
		c.logger.Warn("Metrics write failed", zap.Error(err), zap.String("key", key))
	}
}

// shipEvent indexes one per-attempt document into the event sink, best effort.
func (c *Collector) shipEvent(attempt risk.LoginAttempt, factors risk.RiskFactors) {
	if c.events == nil {
		return
	}

	doc := authEvent{
		ID:        uuid.New().String(),
		Timestamp: attempt.Timestamp,
		IPAddress: attempt.IPAddress,
		Username:  attempt.Username,
		UserID:    attempt.UserID,
		Success:   attempt.Success,
		Composite: factors.Composite,
		Level:     string(factors.Level),
		Factors:   factors,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		c.logger.Warn("Event marshal failed", zap.Error(err))
		return
	}

	if err := c.events.Index(eventsIndex, doc.ID, body); err != nil {
		c.logger.Warn("Event index failed", zap.Error(err))
	}
}

// attackTypes names the detectors whose sub-score indicates an active attack.
func attackTypes(f risk.RiskFactors) []string {
	var types []string
	if f.BruteForce >= 50 {
		types = append(types, "brute_force")
	}
	if f.CredentialStuffing >= 50 {
		types = append(types, "credential_stuffing")
	}
	if f.GeoVelocity >= 50 {
		types = append(types, "impossible_travel")
	}
	if f.Anomaly >= 50 {
		types = append(types, "behavioral_anomaly")
	}
	if f.DeviceReputation >= 80 {
		types = append(types, "bad_device")
	}
	return types
}

// decision maps a level to the action it produces at the HTTP boundary.
func decision(level risk.RiskLevel) string {
	switch level {
	case risk.RiskLevelLow:
		return "allow"
	case risk.RiskLevelCritical:
		return "block"
	default:
		return "challenge"
	}
}
