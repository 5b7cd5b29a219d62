package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	"github.com/turtacn/pdmews/pkg/logger"
	"github.com/turtacn/pdmews/pkg/utils"
)

// ExposureService records the signups a user declares.
type ExposureService interface {
	AddExposure(ctx context.Context, req *dto.AddExposureRequest) (*models.AppExposure, error)
	ListExposures(ctx context.Context, userID uuid.UUID) ([]*models.AppExposure, error)
}

// MisuseEventService records observed misuse.
type MisuseEventService interface {
	ReportEvent(ctx context.Context, req *dto.ReportEventRequest) (*models.MisuseEvent, error)
	ListEvents(ctx context.Context, userID uuid.UUID) ([]*models.MisuseEvent, error)
}

type exposureServiceImpl struct {
	users     repository.UserRepository
	exposures repository.ExposureRepository
	log       logger.Logger
}

// NewExposureService creates a new ExposureService.
func NewExposureService(users repository.UserRepository, exposures repository.ExposureRepository, log logger.Logger) ExposureService {
	return &exposureServiceImpl{users: users, exposures: exposures, log: log.WithComponent("exposure")}
}

func (s *exposureServiceImpl) AddExposure(ctx context.Context, req *dto.AddExposureRequest) (*models.AppExposure, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	userID, appErr := utils.ParseUUID("user_id", req.UserID)
	if appErr != nil {
		return nil, appErr
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	signup, err := utils.ParseCalendarDate(req.SignupDate)
	if err != nil {
		return nil, err
	}

	exposure := models.NewAppExposure(userID, req.AppName, signup, req.Category)
	if err := s.exposures.Create(ctx, exposure); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "Exposure declared",
		logger.ID("user_id", userID),
		logger.String("app_name", exposure.AppName))
	return exposure, nil
}

func (s *exposureServiceImpl) ListExposures(ctx context.Context, userID uuid.UUID) ([]*models.AppExposure, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.exposures.ListByUser(ctx, userID)
}

type misuseEventServiceImpl struct {
	users  repository.UserRepository
	events repository.MisuseEventRepository
	log    logger.Logger
}

// NewMisuseEventService creates a new MisuseEventService.
func NewMisuseEventService(users repository.UserRepository, events repository.MisuseEventRepository, log logger.Logger) MisuseEventService {
	return &misuseEventServiceImpl{users: users, events: events, log: log.WithComponent("misuse_event")}
}

func (s *misuseEventServiceImpl) ReportEvent(ctx context.Context, req *dto.ReportEventRequest) (*models.MisuseEvent, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	userID, appErr := utils.ParseUUID("user_id", req.UserID)
	if appErr != nil {
		return nil, appErr
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	event := models.NewMisuseEvent(userID, models.EventType(req.Type), req.Timestamp,
		models.Severity(req.Severity), req.Description)
	if req.IdentifierID != "" {
		identifierID, appErr := utils.ParseUUID("identifier_id", req.IdentifierID)
		if appErr != nil {
			return nil, appErr
		}
		event.IdentifierID = &identifierID
	}
	for k, v := range req.Metadata {
		event.Metadata[k] = v
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "Misuse event reported",
		logger.ID("user_id", userID),
		logger.String("type", string(event.Type)))
	return event, nil
}

func (s *misuseEventServiceImpl) ListEvents(ctx context.Context, userID uuid.UUID) ([]*models.MisuseEvent, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.events.ListByUser(ctx, userID)
}
