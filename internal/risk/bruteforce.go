package risk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

const (
	bruteForceWindow    = 5 * time.Minute
	bruteForcePerFail   = 20
	windowTTLSlack      = 60 * time.Second
	bruteForceKeyPrefix = "bruteforce:"
)

// BruteForceDetector scores repeated failed attempts against one identity or
// source IP within a sliding five-minute window. Keying prefers the username
// when present, so a distributed attack on one account is tracked per-account
// while an attacker rotating usernames is tracked per-IP.
type BruteForceDetector struct {
	store  store.Store
	logger *zap.Logger
}

// NewBruteForceDetector creates a BruteForceDetector backed by the keyed store.
func NewBruteForceDetector(s store.Store, logger *zap.Logger) *BruteForceDetector {
	return &BruteForceDetector{
		store:  s,
		logger: logger.With(zap.String("component", "bruteforce_detector")),
	}
}

// Key returns the window key for an attempt.
func (d *BruteForceDetector) Key(attempt LoginAttempt) string {
	if attempt.Username != "" {
		return bruteForceKeyPrefix + attempt.Username
	}
	return bruteForceKeyPrefix + "ip:" + attempt.IPAddress
}

// Detect returns min(100, 20 x failures in window). Read-only; a store
// failure degrades to 0 rather than aborting the pipeline.
func (d *BruteForceDetector) Detect(ctx context.Context, attempt LoginAttempt) float64 {
	entries, err := d.load(ctx, d.Key(attempt))
	if err != nil {
		d.logger.Warn("Brute force window read failed, degrading to 0", zap.Error(err))
		return 0
	}

	entries = pruneWindow(entries, attempt.Timestamp, bruteForceWindow)

	failures := 0
	for _, e := range entries {
		if !e.Success {
			failures++
		}
	}

	return clampScore(float64(failures * bruteForcePerFail))
}

// Record appends the attempt to its window and rewrites the pruned window.
// Called exactly once per logical login attempt, on the resolved pass.
func (d *BruteForceDetector) Record(ctx context.Context, attempt LoginAttempt) {
	key := d.Key(attempt)
	entries, err := d.load(ctx, key)
	if err != nil {
		d.logger.Warn("Brute force window read failed, skipping record", zap.Error(err))
		return
	}

	entries = pruneWindow(entries, attempt.Timestamp, bruteForceWindow)
	entries = append(entries, windowEntry{
		Timestamp: attempt.Timestamp,
		Success:   attempt.Success,
		Username:  attempt.Username,
	})

	if err := store.PutJSON(ctx, d.store, key, entries, bruteForceWindow+windowTTLSlack); err != nil {
		d.logger.Warn("Brute force window write failed", zap.Error(err), zap.String("key", key))
	}
}

// Reset clears the window for a key, used after a confirmed non-malicious
// resolution.
func (d *BruteForceDetector) Reset(ctx context.Context, key string) error {
	return d.store.Delete(ctx, key)
}

func (d *BruteForceDetector) load(ctx context.Context, key string) ([]windowEntry, error) {
	var entries []windowEntry
	if _, err := store.GetJSON(ctx, d.store, key, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// pruneWindow drops entries older than the window relative to now.
func pruneWindow(entries []windowEntry, now time.Time, window time.Duration) []windowEntry {
	cutoff := now.Add(-window)
	kept := entries[:0]
	for _, e := range entries {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
