package risk

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestStuffingNoUsernameScoresZero(t *testing.T) {
	d := NewCredentialStuffingDetector(newRiskStore(t), zap.NewNop())

	attempt := LoginAttempt{Timestamp: time.Now(), IPAddress: "9.9.9.9"}
	assert.Equal(t, 0.0, d.Detect(context.Background(), attempt))
}

func TestStuffingMultiIdentityFanOut(t *testing.T) {
	d := NewCredentialStuffingDetector(newRiskStore(t), zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	// Three distinct identities, two failed attempts each, within 15 minutes
	users := []string{"alice", "bob", "carol"}
	i := 0
	for _, u := range users {
		for j := 0; j < 2; j++ {
			d.Record(ctx, failedAttempt(u, "9.9.9.9", now.Add(time.Duration(i)*time.Minute)))
			i++
		}
	}

	score := d.Detect(ctx, failedAttempt("dave", "9.9.9.9", now.Add(7*time.Minute)))
	// +50 for distinct identities, +30 for six failures
	assert.GreaterOrEqual(t, score, 80.0)
}

func TestStuffingSingleIdentityDoesNotFanOut(t *testing.T) {
	d := NewCredentialStuffingDetector(newRiskStore(t), zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 4; i++ {
		d.Record(ctx, failedAttempt("alice", "9.9.9.9", now.Add(time.Duration(i)*time.Second)))
	}

	// One identity, four failures: neither threshold reached
	assert.Equal(t, 0.0, d.Detect(ctx, failedAttempt("alice", "9.9.9.9", now.Add(5*time.Second))))
}

func TestStuffingBurstComponent(t *testing.T) {
	d := NewCredentialStuffingDetector(newRiskStore(t), zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	// Eleven attempts from one identity inside sixty seconds, all successful
	// so only the burst component fires
	for i := 0; i < 11; i++ {
		a := failedAttempt("alice", "9.9.9.9", now.Add(time.Duration(i)*time.Second))
		a.Success = true
		d.Record(ctx, a)
	}

	assert.Equal(t, 20.0, d.Detect(ctx, failedAttempt("alice", "9.9.9.9", now.Add(12*time.Second))))
}

func TestStuffingWindowPruning(t *testing.T) {
	d := NewCredentialStuffingDetector(newRiskStore(t), zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		d.Record(ctx, failedAttempt(fmt.Sprintf("user%d", i), "9.9.9.9", now.Add(time.Duration(i)*time.Second)))
	}

	// Sixteen minutes later the window is empty
	later := now.Add(16 * time.Minute)
	assert.Equal(t, 0.0, d.Detect(ctx, failedAttempt("user9", "9.9.9.9", later)))
}

func TestStuffingPerIPIsolation(t *testing.T) {
	d := NewCredentialStuffingDetector(newRiskStore(t), zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	for i, u := range []string{"alice", "bob", "carol"} {
		for j := 0; j < 2; j++ {
			d.Record(ctx, failedAttempt(u, "9.9.9.9", now.Add(time.Duration(i*2+j)*time.Second)))
		}
	}

	// A different source IP sees a clean window
	assert.Equal(t, 0.0, d.Detect(ctx, failedAttempt("alice", "8.8.8.8", now.Add(10*time.Second))))
}
