package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldRequireChallenge(t *testing.T) {
	r := NewChallengeRouter()

	assert.False(t, r.ShouldRequireChallenge(RiskLevelLow))
	assert.True(t, r.ShouldRequireChallenge(RiskLevelMedium))
	assert.True(t, r.ShouldRequireChallenge(RiskLevelHigh))
	assert.True(t, r.ShouldRequireChallenge(RiskLevelCritical))
}

func TestGetChallengeType(t *testing.T) {
	r := NewChallengeRouter()

	assert.Equal(t, ChallengeTurnstile, r.GetChallengeType(RiskLevelLow))
	assert.Equal(t, ChallengeTurnstile, r.GetChallengeType(RiskLevelMedium))
	assert.Equal(t, ChallengeManaged, r.GetChallengeType(RiskLevelHigh))
	assert.Equal(t, ChallengeManaged, r.GetChallengeType(RiskLevelCritical))
}

func TestGetChallengeConfig(t *testing.T) {
	r := NewChallengeRouter()

	cfg := r.GetChallengeConfig(RiskLevelMedium)
	assert.Equal(t, ChallengeTurnstile, cfg.Type)
	assert.Equal(t, "standard", cfg.Difficulty)
	assert.Equal(t, 3*time.Minute, cfg.Timeout)

	cfg = r.GetChallengeConfig(RiskLevelCritical)
	assert.Equal(t, ChallengeManaged, cfg.Type)
	assert.Equal(t, "strict", cfg.Difficulty)
	assert.Equal(t, time.Minute, cfg.Timeout)
}
