package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func baselineAttempt(userID string, loc *Location, at time.Time, device string) LoginAttempt {
	return LoginAttempt{
		Timestamp:         at,
		IPAddress:         "1.2.3.4",
		Success:           true,
		UserID:            userID,
		Location:          loc,
		DeviceFingerprint: device,
	}
}

func TestAnomalyAnonymousScoresZero(t *testing.T) {
	d := NewAnomalyDetector(newRiskStore(t), zap.NewNop())

	attempt := LoginAttempt{Timestamp: time.Now(), IPAddress: "1.2.3.4"}
	assert.Equal(t, 0.0, d.Detect(context.Background(), attempt))
}

func TestAnomalyColdStartScoresZero(t *testing.T) {
	d := NewAnomalyDetector(newRiskStore(t), zap.NewNop())

	attempt := baselineAttempt("u1", london, time.Now(), "dev-a")
	assert.Equal(t, 0.0, d.Detect(context.Background(), attempt))
}

func TestAnomalyDeviationFromBaseline(t *testing.T) {
	d := NewAnomalyDetector(newRiskStore(t), zap.NewNop())
	ctx := context.Background()
	seedTime := time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)

	d.Record(ctx, baselineAttempt("u1", london, seedTime, "dev-a"))

	// Same profile later in the day scores nothing
	familiar := baselineAttempt("u1", london, seedTime.Add(time.Hour*24*2), "dev-a")
	familiar.Timestamp = time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, 0.0, d.Detect(ctx, familiar))

	// Distant location, unusual hour, unknown device
	odd := baselineAttempt("u1", newYork, time.Date(2026, 8, 3, 3, 0, 0, 0, time.UTC), "dev-b")
	assert.Equal(t, 75.0, d.Detect(ctx, odd))
}

func TestAnomalyLocationOnly(t *testing.T) {
	d := NewAnomalyDetector(newRiskStore(t), zap.NewNop())
	ctx := context.Background()
	seedTime := time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)

	d.Record(ctx, baselineAttempt("u2", london, seedTime, "dev-a"))

	// Paris is ~344 km from London: past the 50 km familiarity radius
	away := baselineAttempt("u2", paris, time.Date(2026, 8, 2, 14, 0, 0, 0, time.UTC), "dev-a")
	assert.Equal(t, 30.0, d.Detect(ctx, away))
}

func TestAnomalyRefreshGate(t *testing.T) {
	d := NewAnomalyDetector(newRiskStore(t), zap.NewNop())
	ctx := context.Background()
	seedTime := time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)

	d.Record(ctx, baselineAttempt("u3", london, seedTime, "dev-a"))

	// Two days later: inside the seven-day gate, the baseline must not move
	d.Record(ctx, baselineAttempt("u3", newYork, seedTime.Add(48*time.Hour), "dev-b"))
	stillOdd := baselineAttempt("u3", newYork, time.Date(2026, 8, 4, 14, 0, 0, 0, time.UTC), "dev-b")
	assert.Equal(t, 55.0, d.Detect(ctx, stillOdd))

	// Nine days after seeding the gate has elapsed and the fold applies
	d.Record(ctx, baselineAttempt("u3", newYork, seedTime.Add(9*24*time.Hour), "dev-b"))
	nowFamiliar := baselineAttempt("u3", newYork, seedTime.Add(10*24*time.Hour), "dev-b")
	assert.Equal(t, 0.0, d.Detect(ctx, nowFamiliar))
}

func TestAnomalyFailedAttemptsDoNotSeedBaseline(t *testing.T) {
	d := NewAnomalyDetector(newRiskStore(t), zap.NewNop())
	ctx := context.Background()

	a := baselineAttempt("u4", london, time.Now(), "dev-a")
	a.Success = false
	d.Record(ctx, a)

	assert.Equal(t, 0.0, d.Detect(ctx, baselineAttempt("u4", newYork, time.Now(), "dev-b")))
}

func TestFoldBaselineRingEviction(t *testing.T) {
	b := UserBaseline{}
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		loc := Location{Latitude: float64(i) * 5, Longitude: 0}
		b = foldBaseline(b, LoginAttempt{
			Timestamp:         at.AddDate(0, 0, i*8),
			Location:          &loc,
			DeviceFingerprint: "dev-a",
			Success:           true,
		})
	}

	assert.Len(t, b.TypicalLocations, 10)
	// Oldest entries evicted; ring now starts at latitude 10
	assert.Equal(t, 10.0, b.TypicalLocations[0].Latitude)
	assert.Equal(t, 55.0, b.TypicalLocations[9].Latitude)
}

func TestFoldBaselineSetsAreDeduplicated(t *testing.T) {
	b := UserBaseline{}
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	b = foldBaseline(b, LoginAttempt{Timestamp: at, DeviceFingerprint: "dev-a", Success: true})
	b = foldBaseline(b, LoginAttempt{Timestamp: at.AddDate(0, 0, 8), DeviceFingerprint: "dev-a", Success: true})

	assert.Equal(t, []int{12}, b.TypicalTimeOfDay)
	assert.Equal(t, []string{"dev-a"}, b.TypicalDevices)
}
