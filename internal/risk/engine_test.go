package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

// failingStore simulates a store outage for degradation tests.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store down")
}
func (failingStore) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("store down") }
func (failingStore) List(context.Context, string) ([]string, error) {
	return nil, errors.New("store down")
}

// captureRecorder remembers every forwarded assessment.
type captureRecorder struct {
	attempts []LoginAttempt
	factors  []RiskFactors
}

func (r *captureRecorder) RecordAttempt(a LoginAttempt, f RiskFactors, _ Phase) {
	r.attempts = append(r.attempts, a)
	r.factors = append(r.factors, f)
}

func TestAssessRiskPendingIsReadOnly(t *testing.T) {
	s := newRiskStore(t)
	e := NewRiskEngine(s, nil, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	attempt := failedAttempt("alice", "1.2.3.4", now)
	attempt.DeviceFingerprint = Fingerprint("agent", "1.2.3.4")

	for i := 0; i < 4; i++ {
		e.AssessRisk(ctx, attempt, PhasePending, nil)
	}

	// Repeated pending passes must leave shared state untouched
	assert.Equal(t, 0.0, e.bruteForce.Detect(ctx, attempt))
	assert.Equal(t, 50.0, e.reputation.GetRiskScore(ctx, attempt.DeviceFingerprint))
}

func TestAssessRiskResolvedRecordsExactlyOnce(t *testing.T) {
	s := newRiskStore(t)
	e := NewRiskEngine(s, nil, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	attempt := failedAttempt("alice", "1.2.3.4", now)
	attempt.DeviceFingerprint = Fingerprint("agent", "1.2.3.4")

	// Pending then resolved, as the login flow runs them
	e.AssessRisk(ctx, attempt, PhasePending, nil)
	factors := e.AssessRisk(ctx, attempt, PhaseResolved, nil)

	// One logical attempt, one window entry
	assert.Equal(t, 20.0, factors.BruteForce)
	assert.Equal(t, 20.0, e.bruteForce.Detect(ctx, attempt))

	var rep DeviceReputation
	found, err := store.GetJSON(ctx, s, "device:reputation:"+attempt.DeviceFingerprint, &rep)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, rep.TotalAttempts)
}

func TestAssessRiskForwardsToRecorder(t *testing.T) {
	rec := &captureRecorder{}
	e := NewRiskEngine(newRiskStore(t), rec, zap.NewNop())

	attempt := failedAttempt("alice", "1.2.3.4", time.Now())
	e.AssessRisk(context.Background(), attempt, PhasePending, nil)

	assert.Len(t, rec.attempts, 1)
	assert.Len(t, rec.factors, 1)
	assert.Equal(t, "alice", rec.attempts[0].Username)
}

func TestAssessRiskDegradesOnStoreFailure(t *testing.T) {
	e := NewRiskEngine(failingStore{}, nil, zap.NewNop())

	attempt := failedAttempt("alice", "1.2.3.4", time.Now())
	attempt.UserID = "u1"
	attempt.DeviceFingerprint = "fp"

	factors := e.AssessRisk(context.Background(), attempt, PhaseResolved, nil)

	// Every store-backed signal falls back to its neutral default
	assert.Equal(t, 0.0, factors.BruteForce)
	assert.Equal(t, 0.0, factors.CredentialStuffing)
	assert.Equal(t, 0.0, factors.Anomaly)
	assert.Equal(t, 50.0, factors.DeviceReputation)
	assert.Equal(t, RiskLevelLow, factors.Level)
}

func TestAssessRiskElapsedHoursFromLastKnown(t *testing.T) {
	e := NewRiskEngine(newRiskStore(t), nil, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	attempt := LoginAttempt{Timestamp: now, IPAddress: "1.2.3.4", Location: newYork}

	// One hour after a London login: transatlantic, maximal geo score
	fast := e.AssessRisk(ctx, attempt, PhasePending, &LastKnownLogin{
		Location:  london,
		LastLogin: now.Add(-time.Hour),
	})
	assert.Equal(t, 100.0, fast.GeoVelocity)

	// No known last login: a full innocuous day is assumed, so the same
	// trip implies ~232 km/h
	slow := e.AssessRisk(ctx, attempt, PhasePending, &LastKnownLogin{Location: london})
	assert.Equal(t, 40.0, slow.GeoVelocity)
}

func TestEndToEndAnomalyChallenge(t *testing.T) {
	s := newRiskStore(t)
	e := NewRiskEngine(s, nil, zap.NewNop())
	ctx := context.Background()

	day1 := time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)
	homeIP := "81.2.69.160"
	homeFP := Fingerprint("Mozilla/5.0", homeIP)

	// Attempt 1: normal login from London at a normal hour
	first := LoginAttempt{
		Timestamp:         day1,
		IPAddress:         homeIP,
		Success:           true,
		Username:          "alice@example.com",
		UserID:            "u1",
		UserAgent:         "Mozilla/5.0",
		Location:          london,
		DeviceFingerprint: homeFP,
		AuthMethod:        "password",
	}
	e.AssessRisk(ctx, first, PhaseResolved, nil)

	// Nine days later: failed probes, then a login from 5500 km away at 3am
	// on a new network
	day9 := time.Date(2026, 8, 10, 3, 0, 0, 0, time.UTC)
	awayIP := "203.0.113.50"
	awayFP := Fingerprint("Mozilla/5.0", awayIP)

	for i := 0; i < 3; i++ {
		probe := LoginAttempt{
			Timestamp:         day9.Add(time.Duration(i-3) * time.Minute),
			IPAddress:         awayIP,
			Success:           false,
			Username:          "alice@example.com",
			UserAgent:         "Mozilla/5.0",
			DeviceFingerprint: awayFP,
			AuthMethod:        "password",
		}
		e.AssessRisk(ctx, probe, PhaseResolved, nil)
	}

	second := LoginAttempt{
		Timestamp:         day9,
		IPAddress:         awayIP,
		Success:           false, // pending pass runs before credential verification
		Username:          "alice@example.com",
		UserID:            "u1",
		UserAgent:         "Mozilla/5.0",
		Location:          newYork,
		DeviceFingerprint: awayFP,
		AuthMethod:        "password",
	}
	factors := e.AssessRisk(ctx, second, PhasePending, &LastKnownLogin{
		Location:  london,
		LastLogin: day1,
	})

	// Unfamiliar location, unusual hour, unknown device
	assert.GreaterOrEqual(t, factors.Anomaly, 50.0)
	assert.True(t, factors.Level != RiskLevelLow, "composite %.1f level %s", factors.Composite, factors.Level)

	router := e.Router()
	assert.True(t, router.ShouldRequireChallenge(factors.Level))
	assert.Equal(t, ChallengeTurnstile, router.GetChallengeType(factors.Level))
}
