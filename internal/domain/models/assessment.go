package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the coarse band of an assessment score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// LevelForScore maps a score to its band.
// 分数 >=80 为 CRITICAL，>=60 为 HIGH，>=40 为 MEDIUM，其余为 LOW
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskLevelCritical
	case score >= 60:
		return RiskLevelHigh
	case score >= 40:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// Factor keys recorded on every regular assessment.
const (
	FactorTimeCorrelation   = "time_correlation_score"
	FactorFrequencySpike    = "frequency_spike_score"
	FactorCategoryBonus     = "category_match_bonus"
	FactorFederatedRisk     = "federated_risk_score"
	FactorTrustScore        = "trust_score"
	FactorTrustRisk         = "trust_risk"
	FactorDirectBreachMatch = "direct_breach_match"
	FactorFinalScore        = "final_score"

	FactorEventTypeDataLeak = "event_type_data_leak"
	FactorImpact            = "impact"
)

// RiskFactors records each factor's contribution by name.
type RiskFactors map[string]float64

// ExposureSnapshot is the part of an exposure an assessment keeps with it.
type ExposureSnapshot struct {
	UserID   uuid.UUID `json:"user_id"`
	AppName  string    `json:"app_name"`
	Category string    `json:"category,omitempty"`
}

// RiskAssessment is the explainable verdict for one exposure.
type RiskAssessment struct {
	ID uuid.UUID `json:"id"`
	// ExposureID is uuid.Nil for breach-only findings without a declared signup.
	ExposureID uuid.UUID        `json:"exposure_id"`
	Exposure   ExposureSnapshot `json:"exposure"`
	UserID     uuid.UUID        `json:"user_id"`
	RiskScore  float64          `json:"risk_score"`
	RiskLevel  RiskLevel        `json:"risk_level"`
	Reasoning  string           `json:"reasoning"`
	Factors    RiskFactors      `json:"factors"`
	AssessedAt time.Time        `json:"assessed_at"`
}

// NewRiskAssessment creates an assessment for exposure with its level derived from score.
func NewRiskAssessment(exposure *AppExposure, score float64, reasoning string, factors RiskFactors) *RiskAssessment {
	return &RiskAssessment{
		ID:         uuid.New(),
		ExposureID: exposure.ID,
		Exposure: ExposureSnapshot{
			UserID:   exposure.UserID,
			AppName:  exposure.AppName,
			Category: exposure.Category,
		},
		UserID:     exposure.UserID,
		RiskScore:  score,
		RiskLevel:  LevelForScore(score),
		Reasoning:  reasoning,
		Factors:    factors,
		// microsecond precision survives every storage backend
		AssessedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// IsBreachOnly reports whether the assessment is bound to the identity-monitor placeholder.
func (a *RiskAssessment) IsBreachOnly() bool {
	return a.ExposureID == uuid.Nil
}
