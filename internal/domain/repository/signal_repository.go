package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/turtacn/pdmews/internal/domain/models"
)

// ExposureRepository persists declared signups.
type ExposureRepository interface {
	Create(ctx context.Context, exposure *models.AppExposure) error

	// FindByID returns the exposure or a not_found error.
	FindByID(ctx context.Context, id uuid.UUID) (*models.AppExposure, error)

	// ListByUser returns the user's exposures ordered by signup date.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.AppExposure, error)
}

// MisuseEventRepository persists observed misuse.
type MisuseEventRepository interface {
	Create(ctx context.Context, event *models.MisuseEvent) error

	// ListByUser returns the user's events ordered by timestamp.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.MisuseEvent, error)
}
