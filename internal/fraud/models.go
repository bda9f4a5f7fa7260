package fraud

import (
	"time"

	"github.com/richxcame/claims-fraud/pkg/graph"
)

// FraudAlert is raised once per claim whose score reaches the alert threshold
type FraudAlert struct {
	ID         int64     `json:"id" db:"id"`
	ClaimID    int64     `json:"claim_id" db:"claim_id"`
	FraudScore float64   `json:"fraud_score" db:"fraud_score"`
	Signals    []string  `json:"signals" db:"signals"`
	IsResolved bool      `json:"is_resolved" db:"is_resolved"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// RiskLevel is the display classification of a live score
type RiskLevel string

const (
	RiskDangerous  RiskLevel = "dangerous"
	RiskSuspicious RiskLevel = "suspicious"
	RiskNormal     RiskLevel = "normal"
	RiskUnknown    RiskLevel = "unknown"
)

// Assessment is the outcome of scoring one insured party
type Assessment struct {
	InsuredID int64
	Score     float64
	Signals   []string
	Overlap   graph.Overlap
	// Degraded is set when the graph store could not be reached and Score defaulted to 0.
	Degraded bool
}

// LiveScore is the non-persisted score shown next to an insured party.
// When Available is false, Score carries no information.
type LiveScore struct {
	InsuredID       int64     `json:"insured_id"`
	Score           float64   `json:"score"`
	Available       bool      `json:"available"`
	Level           RiskLevel `json:"level"`
	PhoneOverlaps   int       `json:"phone_overlaps"`
	AddressOverlaps int       `json:"address_overlaps"`
	ComputedAt      time.Time `json:"computed_at"`
}

// ResyncReport summarizes a full graph resynchronization
type ResyncReport struct {
	Total    int           `json:"total"`
	Synced   int           `json:"synced"`
	Failed   int           `json:"failed"`
	Pruned   int           `json:"pruned"`
	Duration time.Duration `json:"duration"`
	// FailedIDs lists the insured parties that could not be mirrored.
	FailedIDs []int64 `json:"failed_ids,omitempty"`
}

// NotifyResult reports the outcome of one alert notification
type NotifyResult struct {
	AlertID  int64
	ClaimID  int64
	Attempts int
	Duration time.Duration
	Err      error
}

// Thresholds are the score cut-offs for alerting and risk levels
type Thresholds struct {
	Alert float64
	High  float64
}

// DefaultThresholds returns 30 (alert, suspicious) and 70 (high, dangerous)
func DefaultThresholds() Thresholds {
	return Thresholds{Alert: 30, High: 70}
}

// Level classifies score for display
func (t Thresholds) Level(score float64) RiskLevel {
	switch {
	case score >= t.High:
		return RiskDangerous
	case score >= t.Alert:
		return RiskSuspicious
	default:
		return RiskNormal
	}
}
