// Package dto holds the request and response shapes of the PD-MEWS API.
package dto

import (
	"time"

	"github.com/turtacn/pdmews/internal/domain/models"
)

// CreateUserRequest registers a monitored user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=1,max=128"`
}

// AddIdentifierRequest registers a contact point. Value is hashed before storage
// and handed to breach detection in the clear.
type AddIdentifierRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Type   string `json:"type" validate:"required,oneof=EMAIL PHONE"`
	Value  string `json:"value" validate:"required,max=320"`
	Label  string `json:"label,omitempty" validate:"max=128"`
}

// AddExposureRequest declares a signup to a named service.
type AddExposureRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid"`
	AppName    string `json:"app_name" validate:"required,max=256"`
	SignupDate string `json:"signup_date" validate:"required,calendar_date"`
	Category   string `json:"category,omitempty" validate:"max=64"`
}

// ReportEventRequest records an observed misuse.
type ReportEventRequest struct {
	UserID       string            `json:"user_id" validate:"required,uuid"`
	IdentifierID string            `json:"identifier_id,omitempty" validate:"omitempty,uuid"`
	Type         string            `json:"type" validate:"required,oneof=SPAM_CALL SPAM_SMS SPAM_EMAIL PHISHING_ATTEMPT DATA_LEAK UNKNOWN"`
	Timestamp    time.Time         `json:"timestamp" validate:"required"`
	Severity     string            `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Description  string            `json:"description,omitempty" validate:"max=2048"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// AnalysisResponse is the ranked result of one analysis.
type AnalysisResponse struct {
	UserID      string                   `json:"user_id"`
	Assessments []*models.RiskAssessment `json:"assessments"`
	// Warnings lists assessments that could not be persisted.
	Warnings []string `json:"warnings,omitempty"`
}

// CrowdResponse reports an app's cross-user standing.
type CrowdResponse struct {
	AppName    string  `json:"app_name"`
	Reports    int     `json:"reports"`
	Multiplier float64 `json:"multiplier"`
}

// TrustResponse reports an app's reputation.
type TrustResponse struct {
	AppName    string `json:"app_name"`
	TrustScore int    `json:"trust_score"`
}

// VerificationResponse reports whether stored evidence still matches its assessment.
type VerificationResponse struct {
	AssessmentID string `json:"assessment_id"`
	Valid        bool   `json:"valid"`
}
