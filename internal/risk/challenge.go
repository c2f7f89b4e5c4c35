package risk

import "time"

// ChallengeType identifies the kind of secondary verification to interpose.
type ChallengeType string

const (
	ChallengeTurnstile ChallengeType = "turnstile"
	ChallengeManaged   ChallengeType = "managed"
)

// ChallengeConfig describes how a challenge should be presented for a level.
type ChallengeConfig struct {
	Type       ChallengeType `json:"type"`
	Difficulty string        `json:"difficulty"`
	Timeout    time.Duration `json:"timeout"`
}

// ChallengeRouter maps risk levels to challenge decisions. A fixed decision
// table re-evaluated fresh on every attempt, with no memory of past decisions.
type ChallengeRouter struct{}

// NewChallengeRouter creates a ChallengeRouter
func NewChallengeRouter() *ChallengeRouter {
	return &ChallengeRouter{}
}

// ShouldRequireChallenge reports whether a challenge is needed at the level.
func (r *ChallengeRouter) ShouldRequireChallenge(level RiskLevel) bool {
	return level != RiskLevelLow
}

// GetChallengeType returns the challenge kind for a level.
func (r *ChallengeRouter) GetChallengeType(level RiskLevel) ChallengeType {
	switch level {
	case RiskLevelLow, RiskLevelMedium:
		return ChallengeTurnstile
	default:
		return ChallengeManaged
	}
}

// GetChallengeConfig returns the full challenge presentation for a level.
func (r *ChallengeRouter) GetChallengeConfig(level RiskLevel) ChallengeConfig {
	switch level {
	case RiskLevelLow:
		return ChallengeConfig{Type: ChallengeTurnstile, Difficulty: "easy", Timeout: 5 * time.Minute}
	case RiskLevelMedium:
		return ChallengeConfig{Type: ChallengeTurnstile, Difficulty: "standard", Timeout: 3 * time.Minute}
	case RiskLevelHigh:
		return ChallengeConfig{Type: ChallengeManaged, Difficulty: "hard", Timeout: 2 * time.Minute}
	default:
		return ChallengeConfig{Type: ChallengeManaged, Difficulty: "strict", Timeout: time.Minute}
	}
}
