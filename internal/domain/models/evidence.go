package models

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceRecord is the frozen, hashed snapshot of one assessment.
// At most one record exists per assessment.
type EvidenceRecord struct {
	ID              uuid.UUID `json:"id"`
	AssessmentID    uuid.UUID `json:"assessment_id"`
	ContentHash     string    `json:"content_hash"`
	LegalNoticeText string    `json:"legal_notice_text"`
	PreservedAt     time.Time `json:"preserved_at"`
}

// NewEvidenceRecord creates an evidence record for assessmentID.
func NewEvidenceRecord(assessmentID uuid.UUID, hash, notice string) *EvidenceRecord {
	return &EvidenceRecord{
		ID:              uuid.New(),
		AssessmentID:    assessmentID,
		ContentHash:     hash,
		LegalNoticeText: notice,
		PreservedAt:     time.Now().UTC(),
	}
}
