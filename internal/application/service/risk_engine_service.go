// Package service implements the application services of the risk engine.
// 应用层：编排领域评分器、仓储与反馈组件（信誉表、群体关联缓存、告警发布）。
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	domainservice "github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

// RiskEngineService runs the correlation analysis for a user.
type RiskEngineService interface {
	// AnalyzeUserRisk scores every exposure of the user against the user's
	// misuse events and returns the persisted assessments ranked by score.
	// A non-nil error alongside assessments lists the ones that failed to persist.
	AnalyzeUserRisk(ctx context.Context, userID uuid.UUID) ([]*models.RiskAssessment, error)
}

// RiskEngineDeps groups the collaborators of the risk engine.
type RiskEngineDeps struct {
	Users       repository.UserRepository
	Exposures   repository.ExposureRepository
	Events      repository.MisuseEventRepository
	Assessments repository.AssessmentRepository
	Alerts      repository.AlertRepository
	Trust       domainservice.TrustRegistry
	Crowd       domainservice.CrowdCorrelator
	// Publisher is optional.
	Publisher domainservice.AlertPublisher
	Metrics   domainservice.Metrics
	// Tracer is optional; the global provider is used when nil.
	Tracer trace.Tracer
}

type riskEngineServiceImpl struct {
	deps   RiskEngineDeps
	scorer *domainservice.RiskScorer
	tracer trace.Tracer
	log    logger.Logger
}

// NewRiskEngineService creates a new RiskEngineService.
func NewRiskEngineService(deps RiskEngineDeps, log logger.Logger) RiskEngineService {
	if deps.Metrics == nil {
		deps.Metrics = domainservice.NoopMetrics{}
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("pdmews/risk")
	}
	return &riskEngineServiceImpl{
		deps:   deps,
		scorer: domainservice.NewRiskScorer(),
		tracer: tracer,
		log:    log.WithComponent("risk_engine"),
	}
}

// AnalyzeUserRisk implements RiskEngineService.
func (s *riskEngineServiceImpl) AnalyzeUserRisk(ctx context.Context, userID uuid.UUID) (result []*models.RiskAssessment, err error) {
	ctx, span := s.tracer.Start(ctx, "RiskEngine.AnalyzeUserRisk",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	start := time.Now()
	defer func() {
		span.SetAttributes(attribute.Int("assessments", len(result)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.deps.Metrics.RecordAnalysis(err == nil, len(result), time.Since(start))
	}()

	ctx = context.WithValue(ctx, constants.ContextKeyUserID, userID.String())
	s.log.Info(ctx, "Starting hypothesis-based risk analysis", logger.ID("user_id", userID))

	if _, err := s.deps.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	exposures, err := s.deps.Exposures.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, err := s.deps.Events.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(exposures) == 0 || len(events) == 0 {
		return s.analyzeWithoutCandidates(ctx, userID, events)
	}

	// every exposure is scored against the same registry and crowd state;
	// feedback from this run only affects later analyses
	assessments := make([]*models.RiskAssessment, 0, len(exposures))
	for _, exp := range exposures {
		a, scoreErr := s.scoreExposure(ctx, exp, events)
		if scoreErr != nil {
			s.log.Error(ctx, "Failed to score exposure, skipping", scoreErr,
				logger.ID("exposure_id", exp.ID),
				logger.String("app_name", exp.AppName))
			continue
		}
		assessments = append(assessments, a)
	}

	sort.SliceStable(assessments, func(i, j int) bool {
		return assessments[i].RiskScore > assessments[j].RiskScore
	})

	persisted := make([]*models.RiskAssessment, 0, len(assessments))
	var persistErrs []error
	for _, a := range assessments {
		if err := s.deps.Assessments.Save(ctx, a); err != nil {
			s.log.Error(ctx, "Failed to persist assessment", err,
				logger.ID("assessment_id", a.ID),
				logger.String("app_name", a.Exposure.AppName))
			persistErrs = append(persistErrs, fmt.Errorf("assessment %s (%s): %w", a.ID, a.Exposure.AppName, err))
			continue
		}
		s.deps.Metrics.RecordAssessment(string(a.RiskLevel), a.RiskScore)
		if a.RiskScore > constants.AlertScoreThreshold {
			if err := s.applyHighRiskFeedback(ctx, a); err != nil {
				persistErrs = append(persistErrs, err)
			}
		}
		persisted = append(persisted, a)
	}

	s.log.Info(ctx, "Risk analysis complete",
		logger.Int("exposures", len(exposures)),
		logger.Int("events", len(events)),
		logger.Int("assessments", len(persisted)))

	return persisted, errors.Join(persistErrs...)
}

// analyzeWithoutCandidates handles a user with no exposures or no events.
// A breach finding still yields a single critical assessment on the identity-monitor placeholder.
func (s *riskEngineServiceImpl) analyzeWithoutCandidates(ctx context.Context, userID uuid.UUID, events []*models.MisuseEvent) ([]*models.RiskAssessment, error) {
	for _, e := range events {
		if !e.IsDataLeak() {
			continue
		}
		a := domainservice.BreachOnlyAssessment(e)
		if err := s.deps.Assessments.Save(ctx, a); err != nil {
			return nil, err
		}
		s.deps.Metrics.RecordAssessment(string(a.RiskLevel), a.RiskScore)
		s.log.Info(ctx, "Breach-only assessment recorded",
			logger.ID("assessment_id", a.ID),
			logger.ID("event_id", e.ID))
		return []*models.RiskAssessment{a}, nil
	}

	s.log.Info(ctx, "Insufficient data (no apps or no misuse signals)", logger.ID("user_id", userID))
	return []*models.RiskAssessment{}, nil
}

// scoreExposure isolates the scoring of one exposure; a panic is returned as an error.
func (s *riskEngineServiceImpl) scoreExposure(ctx context.Context, exp *models.AppExposure, events []*models.MisuseEvent) (a *models.RiskAssessment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.ErrInternal(fmt.Sprintf("panic while scoring exposure: %v", r))
		}
	}()

	res := s.scorer.Score(domainservice.ScoringInput{
		Exposure:        exp,
		Events:          events,
		TrustScore:      s.deps.Trust.TrustScore(exp.AppName),
		CrowdMultiplier: s.deps.Crowd.CrowdMultiplier(ctx, exp.AppName),
	})
	s.log.Debug(ctx, "Exposure scored",
		logger.String("app_name", exp.AppName),
		logger.Float64("score", res.Score),
		logger.Float64("trust_risk", res.Factors[models.FactorTrustRisk]))

	return models.NewRiskAssessment(exp, res.Score, res.Reasoning, res.Factors), nil
}

// applyHighRiskFeedback raises the alert and feeds the trust registry and crowd cache.
// Only a failure to store the alert is returned; the other hooks are best effort.
func (s *riskEngineServiceImpl) applyHighRiskFeedback(ctx context.Context, a *models.RiskAssessment) error {
	app := a.Exposure.AppName

	alert := models.NewAlertForAssessment(a)
	var alertErr error
	if err := s.deps.Alerts.Create(ctx, alert); err != nil {
		s.log.Error(ctx, "Failed to create alert", err, logger.ID("assessment_id", a.ID))
		alertErr = fmt.Errorf("alert for assessment %s: %w", a.ID, err)
	} else {
		s.deps.Metrics.RecordAlert(string(alert.Severity))
		if s.deps.Publisher != nil {
			if err := s.deps.Publisher.Publish(ctx, alert); err != nil {
				s.log.Warn(ctx, "Failed to publish alert", logger.Error(err), logger.ID("alert_id", alert.ID))
			}
		}
	}

	s.deps.Trust.DecreaseTrust(app, constants.TrustDecayStep)
	if err := s.deps.Crowd.ReportHighRisk(ctx, app); err != nil {
		s.log.Warn(ctx, "Failed to report high risk to crowd cache", logger.Error(err), logger.String("app_name", app))
	}
	return alertErr
}
