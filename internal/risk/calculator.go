package risk

import "sync"

// Weights holds the per-detector weighting of the composite score.
// A complete set sums to 1.0.
type Weights struct {
	BruteForce         float64 `json:"brute_force" mapstructure:"brute_force"`
	CredentialStuffing float64 `json:"credential_stuffing" mapstructure:"credential_stuffing"`
	GeoVelocity        float64 `json:"geo_velocity" mapstructure:"geo_velocity"`
	Anomaly            float64 `json:"anomaly" mapstructure:"anomaly"`
	DeviceReputation   float64 `json:"device_reputation" mapstructure:"device_reputation"`
}

// DefaultWeights returns the standard detector weighting.
func DefaultWeights() Weights {
	return Weights{
		BruteForce:         0.30,
		CredentialStuffing: 0.25,
		GeoVelocity:        0.20,
		Anomaly:            0.15,
		DeviceReputation:   0.10,
	}
}

// SubScores carries the five detector outputs into the calculator.
type SubScores struct {
	BruteForce         float64
	CredentialStuffing float64
	GeoVelocity        float64
	Anomaly            float64
	DeviceReputation   float64
}

// RiskCalculator combines detector sub-scores into a composite score and
// level. Calculation is a pure function of the inputs and current weights.
type RiskCalculator struct {
	mu      sync.RWMutex
	weights Weights
}

// NewRiskCalculator creates a calculator with the default weights.
func NewRiskCalculator() *RiskCalculator {
	return &RiskCalculator{weights: DefaultWeights()}
}

// Calculate returns the weighted composite and its level classification.
func (c *RiskCalculator) Calculate(s SubScores) RiskFactors {
	c.mu.RLock()
	w := c.weights
	c.mu.RUnlock()

	composite := s.BruteForce*w.BruteForce +
		s.CredentialStuffing*w.CredentialStuffing +
		s.GeoVelocity*w.GeoVelocity +
		s.Anomaly*w.Anomaly +
		s.DeviceReputation*w.DeviceReputation
	composite = clampScore(composite)

	return RiskFactors{
		BruteForce:         clampScore(s.BruteForce),
		CredentialStuffing: clampScore(s.CredentialStuffing),
		GeoVelocity:        clampScore(s.GeoVelocity),
		Anomaly:            clampScore(s.Anomaly),
		DeviceReputation:   clampScore(s.DeviceReputation),
		Composite:          composite,
		Level:              ClassifyLevel(composite),
	}
}

// ClassifyLevel maps a composite score to its risk level. Total and
// non-overlapping over [0,100].
func ClassifyLevel(composite float64) RiskLevel {
	switch {
	case composite < 30:
		return RiskLevelLow
	case composite < 60:
		return RiskLevelMedium
	case composite < 85:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// UpdateWeights merges non-negative overrides into the current weight set.
// Zero fields in the override keep their current value.
func (c *RiskCalculator) UpdateWeights(override Weights) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if override.BruteForce > 0 {
		c.weights.BruteForce = override.BruteForce
	}
	if override.CredentialStuffing > 0 {
		c.weights.CredentialStuffing = override.CredentialStuffing
	}
	if override.GeoVelocity > 0 {
		c.weights.GeoVelocity = override.GeoVelocity
	}
	if override.Anomaly > 0 {
		c.weights.Anomaly = override.Anomaly
	}
	if override.DeviceReputation > 0 {
		c.weights.DeviceReputation = override.DeviceReputation
	}
}

// CurrentWeights returns a copy of the active weight set.
func (c *RiskCalculator) CurrentWeights() Weights {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weights
}
