package risk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

const (
	stuffingWindow    = 15 * time.Minute
	stuffingBurst     = 60 * time.Second
	stuffingKeyPrefix = "stuffing:"
)

// CredentialStuffingDetector scores multi-identity fan-out from a single
// source IP within a fifteen-minute window. Many identities from one source
// is the stuffing signature; one identity from many sources is brute force.
type CredentialStuffingDetector struct {
	store  store.Store
	logger *zap.Logger
}

// NewCredentialStuffingDetector creates a detector backed by the keyed store.
func NewCredentialStuffingDetector(s store.Store, logger *zap.Logger) *CredentialStuffingDetector {
	return &CredentialStuffingDetector{
		store:  s,
		logger: logger.With(zap.String("component", "stuffing_detector")),
	}
}

// Key returns the window key for an attempt's source IP.
func (d *CredentialStuffingDetector) Key(attempt LoginAttempt) string {
	return stuffingKeyPrefix + attempt.IPAddress
}

// Detect scores the IP's window. Additive up to 100: +50 when three or more
// distinct identities were attempted, +30 when failures reach six, +20 when
// more than ten attempts landed in the trailing minute. Attempts carrying no
// username score 0. Read-only.
func (d *CredentialStuffingDetector) Detect(ctx context.Context, attempt LoginAttempt) float64 {
	if attempt.Username == "" {
		return 0
	}

	entries, err := d.load(ctx, d.Key(attempt))
	if err != nil {
		d.logger.Warn("Stuffing window read failed, degrading to 0", zap.Error(err))
		return 0
	}

	entries = pruneWindow(entries, attempt.Timestamp, stuffingWindow)

	identities := make(map[string]struct{})
	failures := 0
	recent := 0
	burstCutoff := attempt.Timestamp.Add(-stuffingBurst)

	for _, e := range entries {
		if e.Username != "" {
			identities[e.Username] = struct{}{}
		}
		if !e.Success {
			failures++
		}
		if e.Timestamp.After(burstCutoff) {
			recent++
		}
	}

	score := 0.0
	if len(identities) >= 3 {
		score += 50
	}
	if failures >= 6 {
		score += 30
	}
	if recent > 10 {
		score += 20
	}

	return clampScore(score)
}

// Record appends the attempt to the IP's window and rewrites the pruned
// window. Called exactly once per logical login attempt, on the resolved pass.
func (d *CredentialStuffingDetector) Record(ctx context.Context, attempt LoginAttempt) {
	key := d.Key(attempt)
	entries, err := d.load(ctx, key)
	if err != nil {
		d.logger.Warn("Stuffing window read failed, skipping record", zap.Error(err))
		return
	}

	entries = pruneWindow(entries, attempt.Timestamp, stuffingWindow)
	entries = append(entries, windowEntry{
		Timestamp: attempt.Timestamp,
		Success:   attempt.Success,
		Username:  attempt.Username,
	})

	if err := store.PutJSON(ctx, d.store, key, entries, stuffingWindow+windowTTLSlack); err != nil {
		d.logger.Warn("Stuffing window write failed", zap.Error(err), zap.String("key", key))
	}
}

func (d *CredentialStuffingDetector) load(ctx context.Context, key string) ([]windowEntry, error) {
	var entries []windowEntry
	if _, err := store.GetJSON(ctx, d.store, key, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
