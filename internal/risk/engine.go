package risk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

const defaultElapsedHours = 24

// RiskEngine orchestrates the per-attempt pipeline: it fans an attempt out to
// the five detectors, combines their sub-scores, forwards the result to
// analytics, and returns it.
//
// Callers run the engine twice per login flow: a pending pass before
// credential verification (so a challenge can be demanded without revealing
// whether the credentials were valid) and a resolved pass afterwards with the
// real outcome. Only the resolved pass mutates shared state, and it does so
// exactly once per logical attempt.
type RiskEngine struct {
	bruteForce *BruteForceDetector
	stuffing   *CredentialStuffingDetector
	geo        *GeoVelocityScorer
	anomaly    *AnomalyDetector
	reputation *DeviceReputationTracker
	calculator *RiskCalculator
	router     *ChallengeRouter
	recorder   Recorder
	logger     *zap.Logger
}

// NewRiskEngine wires the detectors against the keyed store. recorder may be
// nil when no analytics sink is configured.
func NewRiskEngine(s store.Store, recorder Recorder, logger *zap.Logger) *RiskEngine {
	return &RiskEngine{
		bruteForce: NewBruteForceDetector(s, logger),
		stuffing:   NewCredentialStuffingDetector(s, logger),
		geo:        NewGeoVelocityScorer(),
		anomaly:    NewAnomalyDetector(s, logger),
		reputation: NewDeviceReputationTracker(s, logger),
		calculator: NewRiskCalculator(),
		router:     NewChallengeRouter(),
		recorder:   recorder,
		logger:     logger.With(zap.String("component", "risk_engine")),
	}
}

// Calculator exposes the composite calculator for weight tuning.
func (e *RiskEngine) Calculator() *RiskCalculator {
	return e.calculator
}

// Router exposes the challenge decision table.
func (e *RiskEngine) Router() *ChallengeRouter {
	return e.router
}

// Reputation exposes the device reputation tracker for challenge outcomes.
func (e *RiskEngine) Reputation() *DeviceReputationTracker {
	return e.reputation
}

// AssessRisk runs all detectors over the attempt and returns the composite
// result. lastKnown supplies the previous login's location and time for the
// geo-velocity signal; nil means no prior login is known and a full innocuous
// day is assumed.
//
// On the resolved pass the attempt is first recorded into the brute-force and
// stuffing windows and the device reputation, so the returned scores reflect
// ground truth including this attempt. The behavioral baseline is scored
// before it is refreshed, so an anomalous attempt cannot vouch for itself.
func (e *RiskEngine) AssessRisk(ctx context.Context, attempt LoginAttempt, phase Phase, lastKnown *LastKnownLogin) RiskFactors {
	start := time.Now()

	// Anomaly is scored against the pre-attempt baseline in both phases.
	anomalyScore := e.anomaly.Detect(ctx, attempt)

	if phase == PhaseResolved {
		e.bruteForce.Record(ctx, attempt)
		e.stuffing.Record(ctx, attempt)

		if attempt.DeviceFingerprint != "" {
			if _, err := e.reputation.UpdateReputation(ctx, attempt.DeviceFingerprint, ReputationEvent{
				Success:   attempt.Success,
				Timestamp: attempt.Timestamp,
			}); err != nil {
				e.logger.Warn("Reputation update failed", zap.Error(err))
			}
		}

		e.anomaly.Record(ctx, attempt)
	}

	var prevLocation *Location
	hoursElapsed := float64(defaultElapsedHours)
	if lastKnown != nil {
		prevLocation = lastKnown.Location
		if !lastKnown.LastLogin.IsZero() {
			if h := attempt.Timestamp.Sub(lastKnown.LastLogin).Hours(); h > 0 {
				hoursElapsed = h
			}
		}
	}

	factors := e.calculator.Calculate(SubScores{
		BruteForce:         e.bruteForce.Detect(ctx, attempt),
		CredentialStuffing: e.stuffing.Detect(ctx, attempt),
		GeoVelocity:        e.geo.Score(attempt.Location, prevLocation, hoursElapsed),
		Anomaly:            anomalyScore,
		DeviceReputation:   e.reputation.GetRiskScore(ctx, attempt.DeviceFingerprint),
	})

	if e.recorder != nil {
		e.recorder.RecordAttempt(attempt, factors, phase)
	}

	e.logger.Debug("Risk assessed",
		zap.String("phase", string(phase)),
		zap.String("ip", attempt.IPAddress),
		zap.Float64("composite", factors.Composite),
		zap.String("level", string(factors.Level)),
		zap.Duration("duration", time.Since(start)),
	)

	return factors
}
