package risk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

const (
	baselineKeyPrefix     = "baseline:"
	baselineRingSize      = 10
	baselineRefreshPeriod = 7 * 24 * time.Hour
	anomalyDistanceKm     = 50
)

// AnomalyDetector scores deviation from a per-identity behavioral baseline of
// typical locations, login hours, and devices. Baselines live in the keyed
// store so behavior is consistent across instances; the update logic is a
// pure fold over (baseline, attempt) so it stays unit-testable without a
// store.
type AnomalyDetector struct {
	store  store.Store
	logger *zap.Logger
}

// NewAnomalyDetector creates an AnomalyDetector backed by the keyed store.
func NewAnomalyDetector(s store.Store, logger *zap.Logger) *AnomalyDetector {
	return &AnomalyDetector{
		store:  s,
		logger: logger.With(zap.String("component", "anomaly_detector")),
	}
}

// Detect scores the attempt against the identity's baseline. Anonymous
// attempts and cold-start identities score 0; an anomalous actor without an
// identity is the other detectors' problem. Read-only.
func (d *AnomalyDetector) Detect(ctx context.Context, attempt LoginAttempt) float64 {
	if attempt.UserID == "" {
		return 0
	}

	var baseline UserBaseline
	found, err := store.GetJSON(ctx, d.store, baselineKeyPrefix+attempt.UserID, &baseline)
	if err != nil {
		d.logger.Warn("Baseline read failed, degrading to 0", zap.Error(err))
		return 0
	}
	if !found {
		return 0
	}

	return scoreBaseline(baseline, attempt)
}

// Record folds the attempt into the identity's baseline. A new identity gets
// a baseline seeded from this attempt; an existing baseline only refreshes
// once its seven-day gate has elapsed, so a single anomalous session cannot
// permanently alter the profile. Called on the resolved pass only.
func (d *AnomalyDetector) Record(ctx context.Context, attempt LoginAttempt) {
	if attempt.UserID == "" || !attempt.Success {
		return
	}

	key := baselineKeyPrefix + attempt.UserID
	var baseline UserBaseline
	found, err := store.GetJSON(ctx, d.store, key, &baseline)
	if err != nil {
		d.logger.Warn("Baseline read failed, skipping record", zap.Error(err))
		return
	}

	if found && attempt.Timestamp.Sub(baseline.LastUpdated) <= baselineRefreshPeriod {
		return
	}

	baseline = foldBaseline(baseline, attempt)

	if err := store.PutJSON(ctx, d.store, key, baseline, 0); err != nil {
		d.logger.Warn("Baseline write failed", zap.Error(err), zap.String("key", key))
	}
}

// scoreBaseline is the pure scoring half: additive +30 unfamiliar location,
// +20 unusual hour, +25 unknown device, clamped to 100. Each component is
// gated on the baseline actually having history for it.
func scoreBaseline(b UserBaseline, attempt LoginAttempt) float64 {
	score := 0.0

	if attempt.Location != nil && len(b.TypicalLocations) > 0 {
		familiar := false
		for _, loc := range b.TypicalLocations {
			dist := haversineDistance(loc.Latitude, loc.Longitude,
				attempt.Location.Latitude, attempt.Location.Longitude)
			if dist <= anomalyDistanceKm {
				familiar = true
				break
			}
		}
		if !familiar {
			score += 30
		}
	}

	if len(b.TypicalTimeOfDay) > 0 {
		hour := attempt.Timestamp.UTC().Hour()
		usual := false
		for _, h := range b.TypicalTimeOfDay {
			if h == hour {
				usual = true
				break
			}
		}
		if !usual {
			score += 20
		}
	}

	if len(b.TypicalDevices) > 0 && attempt.DeviceFingerprint != "" {
		known := false
		for _, fp := range b.TypicalDevices {
			if fp == attempt.DeviceFingerprint {
				known = true
				break
			}
		}
		if !known {
			score += 25
		}
	}

	return clampScore(score)
}

// foldBaseline is the pure update half: inserts the attempt's location into
// the bounded ring (evicting the oldest beyond ten), its hour and device into
// their sets, and resets LastUpdated.
func foldBaseline(b UserBaseline, attempt LoginAttempt) UserBaseline {
	if attempt.Location != nil {
		b.TypicalLocations = append(b.TypicalLocations, *attempt.Location)
		if len(b.TypicalLocations) > baselineRingSize {
			b.TypicalLocations = b.TypicalLocations[len(b.TypicalLocations)-baselineRingSize:]
		}
	}

	hour := attempt.Timestamp.UTC().Hour()
	hasHour := false
	for _, h := range b.TypicalTimeOfDay {
		if h == hour {
			hasHour = true
			break
		}
	}
	if !hasHour {
		b.TypicalTimeOfDay = append(b.TypicalTimeOfDay, hour)
	}

	if attempt.DeviceFingerprint != "" {
		hasDevice := false
		for _, fp := range b.TypicalDevices {
			if fp == attempt.DeviceFingerprint {
				hasDevice = true
				break
			}
		}
		if !hasDevice {
			b.TypicalDevices = append(b.TypicalDevices, attempt.DeviceFingerprint)
		}
	}

	b.LastUpdated = attempt.Timestamp
	return b
}
