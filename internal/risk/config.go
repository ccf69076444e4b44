package risk

import (
	"fmt"
	"time"
)

// Factor names, used as keys in Assessment.Factors.
const (
	FactorAnomaly      = "anomaly"
	FactorPattern      = "pattern"
	FactorMagnitude    = "magnitude"
	FactorTemporal     = "temporal"
	FactorReputation   = "reputation"
	FactorTypeSpecific = "type_specific"
)

// Weights for the six factors (must sum to 1.0).
type Weights struct {
	Anomaly      float64
	Pattern      float64
	Magnitude    float64
	Temporal     float64
	Reputation   float64
	TypeSpecific float64
}

// DefaultWeights favors behavioral anomaly over static rules.
var DefaultWeights = Weights{
	Anomaly:      0.25,
	Pattern:      0.20,
	Magnitude:    0.20,
	Temporal:     0.10,
	Reputation:   0.15,
	TypeSpecific: 0.10,
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Anomaly + w.Pattern + w.Magnitude + w.Temporal + w.Reputation + w.TypeSpecific
}

// Limits are the numeric trip points of the factors.
type Limits struct {
	MinAnomalyHistory     int     // fewer historical actions skip the z-score test
	MinMatchedSamples     int     // per-key samples needed for a z-score
	InsufficientDataScore float64 // anomaly score when history is too short
	HighZScore            float64
	MediumZScore          float64
	SpikeRatio            float64 // current / historical mean
	ElevatedRatio         float64
	LargeAbsoluteValue    float64
	LargeTransaction      float64 // financial agents
	MedicalConfidence     float64 // medical agents
}

// DefaultLimits are hand-tuned and have no calibration data behind them;
// change them only together with the tests that pin them.
var DefaultLimits = Limits{
	MinAnomalyHistory:     3,
	MinMatchedSamples:     2,
	InsufficientDataScore: 20,
	HighZScore:            3,
	MediumZScore:          2,
	SpikeRatio:            10,
	ElevatedRatio:         5,
	LargeAbsoluteValue:    1_000_000,
	LargeTransaction:      10_000,
	MedicalConfidence:     0.90,
}

// Points added per finding.
const (
	pointsHighAnomaly     = 30
	pointsMediumAnomaly   = 15
	pointsRiskyPattern    = 15
	pointsPII             = 25
	pointsMagnitudeSpike  = 40
	pointsElevated        = 20
	pointsLargeAbsolute   = 20
	pointsOffHours        = 15
	pointsWeekend         = 10
	pointsLargeTxn        = 30
	pointsLowConfMedical  = 25
	pointsUncertainLegal  = 15
	maxFactorScore        = 100.0
	maxReputationBaseline = 100.0
)

// Classification upper bounds (inclusive).
const (
	lowMax    = 30.0
	mediumMax = 60.0
	highMax   = 80.0
)

// BusinessHours is the local window in which activity is expected.
// Hours outside [Start, End) count as off-hours.
type BusinessHours struct {
	Start    int
	End      int
	Location *time.Location
}

// DefaultBusinessHours is 09:00-17:00 in the process's local zone.
var DefaultBusinessHours = BusinessHours{Start: 9, End: 17, Location: time.Local}

// Validate checks the window is a sane same-day range.
func (b BusinessHours) Validate() error {
	if b.Start < 0 || b.Start > 23 {
		return fmt.Errorf("business hours: start %d out of range 0-23", b.Start)
	}
	if b.End < 1 || b.End > 24 {
		return fmt.Errorf("business hours: end %d out of range 1-24", b.End)
	}
	if b.Start >= b.End {
		return fmt.Errorf("business hours: start %d must be before end %d", b.Start, b.End)
	}
	return nil
}

var riskyPatterns = []string{
	"transfer", "delete", "drop", "execute", "admin",
	"sudo", "root", "password", "secret", "key",
}

// "password" is in both lists on purpose: it is risky and PII.
var piiPatterns = []string{"ssn", "social security", "credit card", "password"}

var uncertainLegalTerms = []string{"maybe", "possibly", "might", "could be"}

var amountFields = []string{"amount", "value", "total", "price", "cost", "amount_usd"}
