package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCompositeInRange(t *testing.T) {
	c := NewRiskCalculator()

	tests := []struct {
		name string
		in   SubScores
	}{
		{"all zero", SubScores{}},
		{"all max", SubScores{100, 100, 100, 100, 100}},
		{"mixed", SubScores{BruteForce: 80, GeoVelocity: 20, DeviceReputation: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Calculate(tt.in)
			assert.GreaterOrEqual(t, out.Composite, 0.0)
			assert.LessOrEqual(t, out.Composite, 100.0)
		})
	}
}

func TestCalculateWeightedSum(t *testing.T) {
	c := NewRiskCalculator()

	out := c.Calculate(SubScores{
		BruteForce:         100,
		CredentialStuffing: 100,
		GeoVelocity:        0,
		Anomaly:            0,
		DeviceReputation:   0,
	})

	// .30*100 + .25*100 = 55
	assert.InDelta(t, 55.0, out.Composite, 0.001)
	assert.Equal(t, RiskLevelMedium, out.Level)
}

func TestClassifyLevelPartition(t *testing.T) {
	tests := []struct {
		composite float64
		want      RiskLevel
	}{
		{0, RiskLevelLow},
		{29.9, RiskLevelLow},
		{30, RiskLevelMedium},
		{59.9, RiskLevelMedium},
		{60, RiskLevelHigh},
		{84.9, RiskLevelHigh},
		{85, RiskLevelCritical},
		{100, RiskLevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyLevel(tt.composite), "composite %.1f", tt.composite)
	}
}

func TestCalculateIdempotent(t *testing.T) {
	c := NewRiskCalculator()
	in := SubScores{BruteForce: 40, CredentialStuffing: 70, GeoVelocity: 20, Anomaly: 55, DeviceReputation: 50}

	first := c.Calculate(in)
	second := c.Calculate(in)
	assert.Equal(t, first, second)
}

func TestUpdateWeightsPartialMerge(t *testing.T) {
	c := NewRiskCalculator()

	c.UpdateWeights(Weights{BruteForce: 0.5, GeoVelocity: 0.1})

	w := c.CurrentWeights()
	assert.Equal(t, 0.5, w.BruteForce)
	assert.Equal(t, 0.1, w.GeoVelocity)
	// Untouched fields keep defaults
	assert.Equal(t, 0.25, w.CredentialStuffing)
	assert.Equal(t, 0.15, w.Anomaly)
	assert.Equal(t, 0.10, w.DeviceReputation)
}
