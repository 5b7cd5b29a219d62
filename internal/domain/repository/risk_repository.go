package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/turtacn/pdmews/internal/domain/models"
)

// AssessmentRepository persists risk assessments.
type AssessmentRepository interface {
	Save(ctx context.Context, assessment *models.RiskAssessment) error

	// FindByID returns the assessment or a not_found error.
	FindByID(ctx context.Context, id uuid.UUID) (*models.RiskAssessment, error)

	// ListByUser returns the user's assessments, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.RiskAssessment, error)
}

// AlertRepository persists alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error

	// ListByUser returns the user's alerts, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Alert, error)
}

// EvidenceRepository persists evidence records. At most one record exists per assessment.
type EvidenceRepository interface {
	// FindByAssessmentID returns the record or a not_found error.
	FindByAssessmentID(ctx context.Context, assessmentID uuid.UUID) (*models.EvidenceRecord, error)

	// CreateIfAbsent inserts record unless one already exists for its assessment.
	// It always returns the stored record; created reports whether it is the given one.
	// 并发调用时只有一个写入者胜出，其余调用方读取胜出者的记录
	CreateIfAbsent(ctx context.Context, record *models.EvidenceRecord) (stored *models.EvidenceRecord, created bool, err error)
}
