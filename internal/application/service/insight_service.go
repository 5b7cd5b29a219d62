package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	domainservice "github.com/turtacn/pdmews/internal/domain/service"
)

// InsightService serves read-only views of analysis results and app reputation.
type InsightService interface {
	ListAlerts(ctx context.Context, userID uuid.UUID) ([]*models.Alert, error)
	ListAssessments(ctx context.Context, userID uuid.UUID) ([]*models.RiskAssessment, error)
	CrowdStanding(ctx context.Context, appName string) (*dto.CrowdResponse, error)
	TrustScore(appName string) *dto.TrustResponse
}

type insightServiceImpl struct {
	users       repository.UserRepository
	alerts      repository.AlertRepository
	assessments repository.AssessmentRepository
	crowd       domainservice.CrowdCorrelator
	trust       domainservice.TrustRegistry
}

// NewInsightService creates a new InsightService.
func NewInsightService(users repository.UserRepository, alerts repository.AlertRepository, assessments repository.AssessmentRepository,
	crowd domainservice.CrowdCorrelator, trust domainservice.TrustRegistry) InsightService {
	return &insightServiceImpl{
		users:       users,
		alerts:      alerts,
		assessments: assessments,
		crowd:       crowd,
		trust:       trust,
	}
}

func (s *insightServiceImpl) ListAlerts(ctx context.Context, userID uuid.UUID) ([]*models.Alert, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.alerts.ListByUser(ctx, userID)
}

func (s *insightServiceImpl) ListAssessments(ctx context.Context, userID uuid.UUID) ([]*models.RiskAssessment, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.assessments.ListByUser(ctx, userID)
}

func (s *insightServiceImpl) CrowdStanding(ctx context.Context, appName string) (*dto.CrowdResponse, error) {
	reports, err := s.crowd.ReportCount(ctx, appName)
	if err != nil {
		return nil, err
	}
	return &dto.CrowdResponse{
		AppName:    appName,
		Reports:    reports,
		Multiplier: domainservice.CrowdMultiplierFor(reports),
	}, nil
}

func (s *insightServiceImpl) TrustScore(appName string) *dto.TrustResponse {
	return &dto.TrustResponse{AppName: appName, TrustScore: s.trust.TrustScore(appName)}
}
