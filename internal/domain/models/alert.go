package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Alert notifies a user of a high-risk assessment.
type Alert struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Severity     RiskLevel `json:"severity"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAlertForAssessment builds the early-warning alert for a.
func NewAlertForAssessment(a *RiskAssessment) *Alert {
	return &Alert{
		ID:           uuid.New(),
		UserID:       a.UserID,
		AssessmentID: a.ID,
		Title:        "Early Warning: " + a.Exposure.AppName,
		Message:      fmt.Sprintf("High probability (%.1f%%) of data source mismatch detected.", a.RiskScore),
		Severity:     a.RiskLevel,
		CreatedAt:    time.Now().UTC(),
	}
}
