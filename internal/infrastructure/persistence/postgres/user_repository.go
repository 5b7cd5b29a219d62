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

// UserRepoImpl implements repository.UserRepository.
type UserRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewUserRepository creates a GORM-backed user repository.
func NewUserRepository(db *gorm.DB, log logger.Logger) repository.UserRepository {
	return &UserRepoImpl{db: db, logger: log}
}

// Create stores a new user.
func (r *UserRepoImpl) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(userFromDomain(user)).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.ErrConflict("username already exists").WithMetadata("username", user.Username)
		}
		r.logger.Error(ctx, "Failed to create user", err, logger.ID("user_id", user.ID))
		return errors.ErrInternal("failed to create user").WithCause(err)
	}
	return nil
}

// FindByID returns the user or a not_found error.
func (r *UserRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var dbm userDBM
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbm).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound("user", id.String())
		}
		return nil, errors.ErrInternal("failed to query user").WithCause(err)
	}
	return dbm.toDomain(), nil
}

// ListIDs returns every user id, oldest first.
func (r *UserRepoImpl) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&userDBM{}).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, errors.ErrInternal("failed to list users").WithCause(err)
	}
	return ids, nil
}

// IdentifierRepoImpl implements repository.IdentifierRepository.
type IdentifierRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewIdentifierRepository creates a GORM-backed identifier repository.
func NewIdentifierRepository(db *gorm.DB, log logger.Logger) repository.IdentifierRepository {
	return &IdentifierRepoImpl{db: db, logger: log}
}

// Create stores a monitored identifier.
func (r *IdentifierRepoImpl) Create(ctx context.Context, identifier *models.Identifier) error {
	if err := r.db.WithContext(ctx).Create(identifierFromDomain(identifier)).Error; err != nil {
		r.logger.Error(ctx, "Failed to create identifier", err, logger.ID("user_id", identifier.UserID))
		return errors.ErrInternal("failed to create identifier").WithCause(err)
	}
	return nil
}

// ListByUser returns the user's identifiers.
func (r *IdentifierRepoImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Identifier, error) {
	var rows []identifierDBM
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.ErrInternal("failed to list identifiers").WithCause(err)
	}
	out := make([]*models.Identifier, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
