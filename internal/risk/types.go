// Package risk implements the adaptive authentication risk pipeline: five
// independent detectors, a weighted composite calculator, and challenge routing.
package risk

import "time"

// RiskLevel represents the classification of risk
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// String returns the string representation of RiskLevel
func (r RiskLevel) String() string {
	return string(r)
}

// Phase tags which pass of the two-phase assessment an attempt is on.
// A pending assessment is read-only against shared state; only the resolved
// pass records window entries and reputation updates, so each logical login
// attempt is counted exactly once.
type Phase string

const (
	PhasePending  Phase = "pending"
	PhaseResolved Phase = "resolved"
)

// Location is a resolved geographic position for an attempt. It is optional
// on an attempt; the edge network cannot always resolve one.
type Location struct {
	Country   string  `json:"country"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// LoginAttempt is the unit of work flowing through the pipeline. It is not
// persisted as an entity; Success and UserID are back-filled after credential
// verification for the resolved pass.
type LoginAttempt struct {
	Timestamp         time.Time `json:"timestamp"`
	IPAddress         string    `json:"ip_address"`
	Success           bool      `json:"success"`
	Username          string    `json:"username,omitempty"`
	UserID            string    `json:"user_id,omitempty"`
	UserAgent         string    `json:"user_agent"`
	Location          *Location `json:"location,omitempty"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	AuthMethod        string    `json:"auth_method"`
}

// RiskFactors is the result of one assessment. All sub-scores and the
// composite are in [0,100]. Produced fresh per attempt, never mutated.
type RiskFactors struct {
	BruteForce         float64   `json:"brute_force"`
	CredentialStuffing float64   `json:"credential_stuffing"`
	GeoVelocity        float64   `json:"geo_velocity"`
	Anomaly            float64   `json:"anomaly"`
	DeviceReputation   float64   `json:"device_reputation"`
	Composite          float64   `json:"composite"`
	Level              RiskLevel `json:"level"`
}

// DeviceReputation is the running reputation record for one device
// fingerprint. Created at score 50 on first sighting, never deleted.
type DeviceReputation struct {
	Fingerprint        string    `json:"fingerprint"`
	ReputationScore    float64   `json:"reputation_score"`
	TotalAttempts      int       `json:"total_attempts"`
	SuccessfulAttempts int       `json:"successful_attempts"`
	FailedAttempts     int       `json:"failed_attempts"`
	ChallengePasses    int       `json:"challenge_passes"`
	ChallengeFails     int       `json:"challenge_fails"`
	LastSeen           time.Time `json:"last_seen"`
}

// UserBaseline is the slow-adapting behavioral profile for one identity.
// Created lazily and empty on first sighting; refreshed at most once per
// seven days.
type UserBaseline struct {
	TypicalLocations []Location `json:"typical_locations"`
	TypicalTimeOfDay []int      `json:"typical_time_of_day"`
	TypicalDevices   []string   `json:"typical_devices"`
	LastUpdated      time.Time  `json:"last_updated"`
}

// windowEntry is one recorded attempt inside a detector's sliding window.
// Only the fields the detectors consult are kept.
type windowEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Username  string    `json:"username,omitempty"`
}

// LastKnownLogin carries the previous successful login's location and time,
// used to derive elapsed hours for geo-velocity scoring.
type LastKnownLogin struct {
	Location  *Location `json:"location,omitempty"`
	LastLogin time.Time `json:"last_login"`
}

// Recorder receives every assessment result for aggregation. Implemented by
// the analytics collector; kept as an interface here so the pipeline does not
// depend on the analytics package. The phase lets the collector count each
// logical attempt once while still seeing both passes.
type Recorder interface {
	RecordAttempt(attempt LoginAttempt, factors RiskFactors, phase Phase)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
