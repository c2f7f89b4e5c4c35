package risk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

const (
	reputationKeyPrefix = "device:reputation:"
	neutralReputation   = 50
)

// ReputationEvent is one observed outcome for a device.
type ReputationEvent struct {
	Success         bool
	ChallengePassed *bool // nil when no challenge outcome is known
	Timestamp       time.Time
}

// DeviceReputationTracker maintains a running reputation per device
// fingerprint in the keyed store. Records are created at the neutral score
// and never deleted; reputation moves only through accumulated signals, so a
// single failure cannot erase a long history of success.
type DeviceReputationTracker struct {
	store  store.Store
	logger *zap.Logger
}

// NewDeviceReputationTracker creates a tracker backed by the keyed store.
func NewDeviceReputationTracker(s store.Store, logger *zap.Logger) *DeviceReputationTracker {
	return &DeviceReputationTracker{
		store:  s,
		logger: logger.With(zap.String("component", "reputation_tracker")),
	}
}

// GetRiskScore returns 100 minus the device's reputation, defaulting to the
// neutral 50 for unseen fingerprints or store failures. Read-only.
func (t *DeviceReputationTracker) GetRiskScore(ctx context.Context, fingerprint string) float64 {
	if fingerprint == "" {
		return neutralReputation
	}

	var rep DeviceReputation
	found, err := store.GetJSON(ctx, t.store, reputationKeyPrefix+fingerprint, &rep)
	if err != nil {
		t.logger.Warn("Reputation read failed, degrading to neutral", zap.Error(err))
		return neutralReputation
	}
	if !found {
		return neutralReputation
	}

	return clampScore(100 - rep.ReputationScore)
}

// UpdateReputation applies an outcome to the device's record and writes it
// back. Called exactly once per logical attempt, on the resolved pass.
func (t *DeviceReputationTracker) UpdateReputation(ctx context.Context, fingerprint string, event ReputationEvent) (DeviceReputation, error) {
	key := reputationKeyPrefix + fingerprint

	var rep DeviceReputation
	found, err := store.GetJSON(ctx, t.store, key, &rep)
	if err != nil {
		return DeviceReputation{}, err
	}

	var old *DeviceReputation
	if found {
		old = &rep
	}
	updated := applyReputation(old, fingerprint, event)

	if err := store.PutJSON(ctx, t.store, key, updated, 0); err != nil {
		return DeviceReputation{}, err
	}
	return updated, nil
}

// RecordChallengeOutcome applies a standalone challenge result, used when the
// challenge resolves after the login attempt that issued it.
func (t *DeviceReputationTracker) RecordChallengeOutcome(ctx context.Context, fingerprint string, passed bool, at time.Time) (DeviceReputation, error) {
	key := reputationKeyPrefix + fingerprint

	var rep DeviceReputation
	found, err := store.GetJSON(ctx, t.store, key, &rep)
	if err != nil {
		return DeviceReputation{}, err
	}

	var old *DeviceReputation
	if found {
		old = &rep
	}
	updated := applyChallengeOutcome(old, fingerprint, passed, at)

	if err := store.PutJSON(ctx, t.store, key, updated, 0); err != nil {
		return DeviceReputation{}, err
	}
	return updated, nil
}

// applyReputation is the pure update rule: a new record starts at 50;
// success +2, failure -10, then challenge pass +5 or fail -15 when a
// challenge outcome is known, each step clamped to [0,100].
func applyReputation(old *DeviceReputation, fingerprint string, event ReputationEvent) DeviceReputation {
	rep := DeviceReputation{
		Fingerprint:     fingerprint,
		ReputationScore: neutralReputation,
	}
	if old != nil {
		rep = *old
	}

	rep.TotalAttempts++
	if event.Success {
		rep.SuccessfulAttempts++
		rep.ReputationScore = clampScore(rep.ReputationScore + 2)
	} else {
		rep.FailedAttempts++
		rep.ReputationScore = clampScore(rep.ReputationScore - 10)
	}

	if event.ChallengePassed != nil {
		if *event.ChallengePassed {
			rep.ChallengePasses++
			rep.ReputationScore = clampScore(rep.ReputationScore + 5)
		} else {
			rep.ChallengeFails++
			rep.ReputationScore = clampScore(rep.ReputationScore - 15)
		}
	}

	rep.LastSeen = event.Timestamp
	return rep
}

// applyChallengeOutcome adjusts only the challenge counters and score, not
// the attempt counters. Pass +5, fail -15, clamped.
func applyChallengeOutcome(old *DeviceReputation, fingerprint string, passed bool, at time.Time) DeviceReputation {
	rep := DeviceReputation{
		Fingerprint:     fingerprint,
		ReputationScore: neutralReputation,
	}
	if old != nil {
		rep = *old
	}

	if passed {
		rep.ChallengePasses++
		rep.ReputationScore = clampScore(rep.ReputationScore + 5)
	} else {
		rep.ChallengeFails++
		rep.ReputationScore = clampScore(rep.ReputationScore - 15)
	}

	rep.LastSeen = at
	return rep
}
