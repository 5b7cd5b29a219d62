package postgres

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

// pgUniqueViolation is the SQLSTATE of a unique constraint violation.
const pgUniqueViolation = "23505"

// AssessmentRepoImpl implements repository.AssessmentRepository.
type AssessmentRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewAssessmentRepository creates a GORM-backed assessment repository.
func NewAssessmentRepository(db *gorm.DB, log logger.Logger) repository.AssessmentRepository {
	return &AssessmentRepoImpl{db: db, logger: log}
}

// Save upserts an assessment.
func (r *AssessmentRepoImpl) Save(ctx context.Context, assessment *models.RiskAssessment) error {
	if err := r.db.WithContext(ctx).Save(assessmentFromDomain(assessment)).Error; err != nil {
		r.logger.Error(ctx, "Failed to save risk assessment", err,
			logger.ID("assessment_id", assessment.ID),
			logger.String("app_name", assessment.Exposure.AppName),
		)
		return errors.ErrInternal("failed to save risk assessment").WithCause(err)
	}
	return nil
}

// FindByID returns the assessment or a not_found error.
func (r *AssessmentRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.RiskAssessment, error) {
	var dbm assessmentDBM
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbm).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound("assessment", id.String())
		}
		return nil, errors.ErrInternal("failed to query risk assessment").WithCause(err)
	}
	return dbm.toDomain(), nil
}

// ListByUser returns the user's assessments, newest first.
func (r *AssessmentRepoImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.RiskAssessment, error) {
	var rows []assessmentDBM
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("assessed_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.ErrInternal("failed to list risk assessments").WithCause(err)
	}
	out := make([]*models.RiskAssessment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// AlertRepoImpl implements repository.AlertRepository.
type AlertRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewAlertRepository creates a GORM-backed alert repository.
func NewAlertRepository(db *gorm.DB, log logger.Logger) repository.AlertRepository {
	return &AlertRepoImpl{db: db, logger: log}
}

// Create stores an alert.
func (r *AlertRepoImpl) Create(ctx context.Context, alert *models.Alert) error {
	if err := r.db.WithContext(ctx).Create(alertFromDomain(alert)).Error; err != nil {
		r.logger.Error(ctx, "Failed to create alert", err, logger.ID("assessment_id", alert.AssessmentID))
		return errors.ErrInternal("failed to create alert").WithCause(err)
	}
	return nil
}

// ListByUser returns the user's alerts, newest first.
func (r *AlertRepoImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Alert, error) {
	var rows []alertDBM
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.ErrInternal("failed to list alerts").WithCause(err)
	}
	out := make([]*models.Alert, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// EvidenceRepoImpl implements repository.EvidenceRepository.
type EvidenceRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewEvidenceRepository creates a GORM-backed evidence repository.
func NewEvidenceRepository(db *gorm.DB, log logger.Logger) repository.EvidenceRepository {
	return &EvidenceRepoImpl{db: db, logger: log}
}

// FindByAssessmentID returns the record or a not_found error.
func (r *EvidenceRepoImpl) FindByAssessmentID(ctx context.Context, assessmentID uuid.UUID) (*models.EvidenceRecord, error) {
	var dbm evidenceDBM
	if err := r.db.WithContext(ctx).Where("assessment_id = ?", assessmentID).First(&dbm).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound("evidence", assessmentID.String())
		}
		return nil, errors.ErrInternal("failed to query evidence").WithCause(err)
	}
	return dbm.toDomain(), nil
}

// CreateIfAbsent inserts record unless its assessment already has one, then returns the stored record.
// 依赖 assessment_id 唯一索引：冲突时不写入，改为读取已存在的记录。
func (r *EvidenceRepoImpl) CreateIfAbsent(ctx context.Context, record *models.EvidenceRecord) (*models.EvidenceRecord, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assessment_id"}},
			DoNothing: true,
		}).
		Create(evidenceFromDomain(record))
	if result.Error != nil && !isUniqueViolation(result.Error) {
		r.logger.Error(ctx, "Failed to create evidence record", result.Error,
			logger.ID("assessment_id", record.AssessmentID))
		return nil, false, errors.ErrInternal("failed to create evidence record").WithCause(result.Error)
	}
	if result.Error == nil && result.RowsAffected == 1 {
		return record, true, nil
	}

	stored, err := r.FindByAssessmentID(ctx, record.AssessmentID)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func isUniqueViolation(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
