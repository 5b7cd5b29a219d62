package service

import (
	"context"
	"strings"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
	"github.com/turtacn/pdmews/pkg/utils"
)

// IdentityService manages monitored users and their identifiers.
type IdentityService interface {
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error)
	// AddIdentifier stores the hash of the identifier and runs breach detection on the raw value.
	AddIdentifier(ctx context.Context, req *dto.AddIdentifierRequest) (*models.Identifier, error)
}

type identityServiceImpl struct {
	users       repository.UserRepository
	identifiers repository.IdentifierRepository
	leaks       LeakDetectionService
	log         logger.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(users repository.UserRepository, identifiers repository.IdentifierRepository, leaks LeakDetectionService, log logger.Logger) IdentityService {
	return &identityServiceImpl{
		users:       users,
		identifiers: identifiers,
		leaks:       leaks,
		log:         log.WithComponent("identity"),
	}
}

// CreateUser registers a new user.
func (s *identityServiceImpl) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Username) == "" {
		return nil, errors.ErrInvalidRequest("username must not be blank")
	}

	user := models.NewUser(req.Username)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "User created", logger.ID("user_id", user.ID))
	return user, nil
}

// AddIdentifier registers a contact point and checks it against breach data.
func (s *identityServiceImpl) AddIdentifier(ctx context.Context, req *dto.AddIdentifierRequest) (*models.Identifier, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	userID, appErr := utils.ParseUUID("user_id", req.UserID)
	if appErr != nil {
		return nil, appErr
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	identifier := models.NewIdentifier(user.ID, models.ContactType(req.Type), strings.TrimSpace(req.Value), req.Label)
	if err := s.identifiers.Create(ctx, identifier); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "Identifier added",
		logger.ID("user_id", user.ID),
		logger.ID("identifier_id", identifier.ID),
		logger.String("type", string(identifier.Type)))

	if s.leaks != nil {
		s.leaks.CheckIdentity(ctx, req.Value, user, &identifier.ID)
	}
	return identifier, nil
}
