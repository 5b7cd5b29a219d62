// Package repository 定义领域仓储接口
// 实现类位于 internal/infrastructure/persistence/postgres
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/turtacn/pdmews/internal/domain/models"
)

// UserRepository persists users.
type UserRepository interface {
	// Create stores a new user. A duplicate username returns a conflict error.
	Create(ctx context.Context, user *models.User) error

	// FindByID returns the user or a not_found error.
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// ListIDs returns the ids of every user, oldest first.
	// 用于后台定时重评估
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// IdentifierRepository persists monitored identifiers.
type IdentifierRepository interface {
	Create(ctx context.Context, identifier *models.Identifier) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Identifier, error)
}
