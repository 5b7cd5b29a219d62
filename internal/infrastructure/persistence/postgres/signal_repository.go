package postgres

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

// ExposureRepoImpl implements repository.ExposureRepository.
type ExposureRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewExposureRepository creates a GORM-backed exposure repository.
func NewExposureRepository(db *gorm.DB, log logger.Logger) repository.ExposureRepository {
	return &ExposureRepoImpl{db: db, logger: log}
}

// Create stores a declared signup.
func (r *ExposureRepoImpl) Create(ctx context.Context, exposure *models.AppExposure) error {
	if err := r.db.WithContext(ctx).Create(exposureFromDomain(exposure)).Error; err != nil {
		r.logger.Error(ctx, "Failed to create exposure", err,
			logger.ID("user_id", exposure.UserID),
			logger.String("app_name", exposure.AppName),
		)
		return errors.ErrInternal("failed to create exposure").WithCause(err)
	}
	return nil
}

// FindByID returns the exposure or a not_found error.
func (r *ExposureRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.AppExposure, error) {
	var dbm exposureDBM
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbm).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound("exposure", id.String())
		}
		return nil, errors.ErrInternal("failed to query exposure").WithCause(err)
	}
	return dbm.toDomain(), nil
}

// ListByUser returns the user's exposures ordered by signup date.
func (r *ExposureRepoImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.AppExposure, error) {
	var rows []exposureDBM
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("signup_date ASC").Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.ErrInternal("failed to list exposures").WithCause(err)
	}
	out := make([]*models.AppExposure, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// MisuseEventRepoImpl implements repository.MisuseEventRepository.
type MisuseEventRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMisuseEventRepository creates a GORM-backed misuse event repository.
func NewMisuseEventRepository(db *gorm.DB, log logger.Logger) repository.MisuseEventRepository {
	return &MisuseEventRepoImpl{db: db, logger: log}
}

// Create stores an observed misuse event.
func (r *MisuseEventRepoImpl) Create(ctx context.Context, event *models.MisuseEvent) error {
	if err := r.db.WithContext(ctx).Create(misuseEventFromDomain(event)).Error; err != nil {
		r.logger.Error(ctx, "Failed to create misuse event", err,
			logger.ID("user_id", event.UserID),
			logger.String("type", string(event.Type)),
		)
		return errors.ErrInternal("failed to create misuse event").WithCause(err)
	}
	return nil
}

// ListByUser returns the user's events ordered by timestamp.
func (r *MisuseEventRepoImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.MisuseEvent, error) {
	var rows []misuseEventDBM
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp ASC").Find(&rows).Error; err != nil {
		return nil, errors.ErrInternal("failed to list misuse events").WithCause(err)
	}
	out := make([]*models.MisuseEvent, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
