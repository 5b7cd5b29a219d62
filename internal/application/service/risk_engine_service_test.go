package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/errors"
)

func TestAnalyzeUserRisk_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine().AnalyzeUserRisk(context.Background(), uuid.New())
	assert.True(t, errors.IsNotFound(err))
}

func TestAnalyzeUserRisk_NoData(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "empty")

	got, err := env.engine().AnalyzeUserRisk(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	alerts, err := env.alerts.ListByUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAnalyzeUserRisk_ExposuresWithoutEvents(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "quiet")
	env.exposure(t, u.ID, "FitnessPal", day(2024, 1, 1), "FITNESS")

	got, err := env.engine().AnalyzeUserRisk(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnalyzeUserRisk_BreachOnly(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "breached")
	leak := env.event(t, u.ID, models.EventTypeDataLeak, day(2024, 3, 1), models.EventMetadata{
		constants.MetadataBreachedApp: "Adobe",
	})

	got, err := env.engine().AnalyzeUserRisk(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)

	a := got[0]
	assert.True(t, a.IsBreachOnly())
	assert.Equal(t, constants.IdentityMonitorAppName, a.Exposure.AppName)
	assert.Equal(t, 100.0, a.RiskScore)
	assert.Equal(t, models.RiskLevelCritical, a.RiskLevel)
	assert.Equal(t, "CRITICAL: Identity found in data breach.\nDetails: "+leak.Description, a.Reasoning)
	assert.Equal(t, models.RiskFactors{models.FactorEventTypeDataLeak: 1, models.FactorImpact: 100}, a.Factors)

	stored, err := env.assessments.FindByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Reasoning, stored.Reasoning)

	// no feedback for the placeholder
	alerts, _ := env.alerts.ListByUser(context.Background(), u.ID)
	assert.Empty(t, alerts)
	count, _ := env.crowd.ReportCount(context.Background(), constants.IdentityMonitorAppName)
	assert.Zero(t, count)
	assert.Zero(t, env.publisher.count())
}

func TestAnalyzeUserRisk_RanksAndFeedsBack(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "alice")
	env.exposure(t, u.ID, "OldGym", day(2020, 1, 1), "")
	env.exposure(t, u.ID, "ShadyApp", day(2024, 1, 1), "")
	env.exposure(t, u.ID, "FitnessPal", day(2024, 1, 1), "FITNESS")
	env.event(t, u.ID, models.EventTypeDataLeak, day(2024, 1, 3), models.EventMetadata{
		constants.MetadataBreachedApp: "ShadyApp",
	})

	got, err := env.engine().AnalyzeUserRisk(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// ShadyApp: direct breach override
	assert.Equal(t, "ShadyApp", got[0].Exposure.AppName)
	assert.Equal(t, 100.0, got[0].RiskScore)
	// FitnessPal: time 100 and spike 100 -> 60
	assert.Equal(t, "FitnessPal", got[1].Exposure.AppName)
	assert.InDelta(t, 60.0, got[1].RiskScore, 1e-9)
	assert.Equal(t, models.RiskLevelHigh, got[1].RiskLevel)
	// OldGym: only the generic spike -> 1.0
	assert.Equal(t, "OldGym", got[2].Exposure.AppName)
	assert.InDelta(t, 1.0, got[2].RiskScore, 1e-9)

	alerts, err := env.alerts.ListByUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Early Warning: ShadyApp", alerts[0].Title)
	assert.Equal(t, "High probability (100.0%) of data source mismatch detected.", alerts[0].Message)
	assert.Equal(t, got[0].ID, alerts[0].AssessmentID)

	assert.Equal(t, 49, env.trust.TrustScore("ShadyApp"))
	assert.Equal(t, 50, env.trust.TrustScore("FitnessPal"))
	count, _ := env.crowd.ReportCount(context.Background(), "ShadyApp")
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, env.publisher.count())

	stored, err := env.assessments.ListByUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestAnalyzeUserRisk_FeedbackAffectsLaterRuns(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.crowd.ReportHighRisk(context.Background(), "ShadyApp"))
	}
	u := env.user(t, "bob")
	env.exposure(t, u.ID, "ShadyApp", day(2024, 1, 1), "")
	env.event(t, u.ID, models.EventTypeSpamCall, day(2024, 1, 2), nil)

	got, err := env.engine().AnalyzeUserRisk(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	// 40 + 20 + 0.25 * min(100, 0.12 * 200)
	assert.InDelta(t, 66.0, got[0].RiskScore, 1e-9)
	assert.InDelta(t, 24.0, got[0].Factors[models.FactorFederatedRisk], 1e-9)
}

func TestAnalyzeUserRisk_PublishFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = assert.AnError
	u := env.user(t, "carol")
	env.exposure(t, u.ID, "ShadyApp", day(2024, 1, 1), "")
	env.event(t, u.ID, models.EventTypeDataLeak, day(2024, 1, 2), models.EventMetadata{
		constants.MetadataBreachedApp: "ShadyApp",
	})

	got, err := env.engine().AnalyzeUserRisk(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)

	alerts, _ := env.alerts.ListByUser(context.Background(), u.ID)
	assert.Len(t, alerts, 1)
}

func TestAnalyzeUserRisk_AlertRequiresScoreAboveThreshold(t *testing.T) {
	env := newTestEnv(t)

	// time 100, spike 100, SOCIAL + SPAM_EMAIL bonus 10: exactly 70
	atThreshold := env.user(t, "erin")
	env.exposure(t, atThreshold.ID, "ChatterBox", day(2024, 1, 1), "SOCIAL")
	env.event(t, atThreshold.ID, models.EventTypeSpamEmail, day(2024, 1, 2), nil)

	got, err := env.engine().AnalyzeUserRisk(context.Background(), atThreshold.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, constants.AlertScoreThreshold, got[0].RiskScore)
	assert.Equal(t, models.RiskLevelHigh, got[0].RiskLevel)

	alerts, err := env.alerts.ListByUser(context.Background(), atThreshold.ID)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, 50, env.trust.TrustScore("ChatterBox"))
	count, _ := env.crowd.ReportCount(context.Background(), "ChatterBox")
	assert.Zero(t, count)
	assert.Zero(t, env.publisher.count())

	// FINANCE + SPAM_SMS bonus 15: 75
	above := env.user(t, "frank")
	env.exposure(t, above.ID, "QuickLoan", day(2024, 1, 1), "FINANCE")
	env.event(t, above.ID, models.EventTypeSpamSMS, day(2024, 1, 2), nil)

	got, err = env.engine().AnalyzeUserRisk(context.Background(), above.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Greater(t, got[0].RiskScore, constants.AlertScoreThreshold)

	alerts, err = env.alerts.ListByUser(context.Background(), above.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "High probability (75.0%) of data source mismatch detected.", alerts[0].Message)
	assert.Equal(t, 49, env.trust.TrustScore("QuickLoan"))
	count, _ = env.crowd.ReportCount(context.Background(), "QuickLoan")
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, env.publisher.count())
}

// orderedExposures lists exposures in a fixed order regardless of storage order.
type orderedExposures struct {
	repository.ExposureRepository
	list []*models.AppExposure
}

func (o *orderedExposures) ListByUser(context.Context, uuid.UUID) ([]*models.AppExposure, error) {
	return o.list, nil
}

func TestAnalyzeUserRisk_TiedScoresKeepExposureOrder(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "grace")
	zeta := env.exposure(t, u.ID, "Zeta", day(2024, 1, 1), "")
	alpha := env.exposure(t, u.ID, "Alpha", day(2024, 1, 1), "")
	loan := env.exposure(t, u.ID, "QuickLoan", day(2024, 1, 1), "FINANCE")
	env.event(t, u.ID, models.EventTypeSpamSMS, day(2024, 1, 2), nil)

	tests := []struct {
		name  string
		order []*models.AppExposure
		want  []string
	}{
		{"zeta first", []*models.AppExposure{zeta, alpha, loan}, []string{"QuickLoan", "Zeta", "Alpha"}},
		{"alpha first", []*models.AppExposure{alpha, loan, zeta}, []string{"QuickLoan", "Alpha", "Zeta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewRiskEngineService(RiskEngineDeps{
				Users:       env.users,
				Exposures:   &orderedExposures{ExposureRepository: env.exposures, list: tt.order},
				Events:      env.events,
				Assessments: env.assessments,
				Alerts:      env.alerts,
				Trust:       env.trust,
				Crowd:       env.crowd,
			}, env.log)

			got, err := engine.AnalyzeUserRisk(context.Background(), u.ID)
			require.NoError(t, err)
			require.Len(t, got, 3)

			names := make([]string, 0, len(got))
			for _, a := range got {
				names = append(names, a.Exposure.AppName)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, got[1].RiskScore, got[2].RiskScore)
		})
	}
}

// flakyAssessments fails to save assessments of one app.
type flakyAssessments struct {
	repository.AssessmentRepository
	failApp string
}

func (f *flakyAssessments) Save(ctx context.Context, a *models.RiskAssessment) error {
	if a.Exposure.AppName == f.failApp {
		return errors.ErrTransient("database unavailable")
	}
	return f.AssessmentRepository.Save(ctx, a)
}

func TestAnalyzeUserRisk_PersistFailuresAreJoined(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "dave")
	env.exposure(t, u.ID, "ShadyApp", day(2024, 1, 1), "")
	env.exposure(t, u.ID, "FitnessPal", day(2024, 1, 1), "")
	env.event(t, u.ID, models.EventTypeDataLeak, day(2024, 1, 2), models.EventMetadata{
		constants.MetadataBreachedApp: "ShadyApp",
	})

	engine := NewRiskEngineService(RiskEngineDeps{
		Users:       env.users,
		Exposures:   env.exposures,
		Events:      env.events,
		Assessments: &flakyAssessments{AssessmentRepository: env.assessments, failApp: "ShadyApp"},
		Alerts:      env.alerts,
		Trust:       env.trust,
		Crowd:       env.crowd,
	}, env.log)

	got, err := engine.AnalyzeUserRisk(context.Background(), u.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ShadyApp")
	require.Len(t, got, 1)
	assert.Equal(t, "FitnessPal", got[0].Exposure.AppName)

	// the unsaved assessment raised no alert and fed nothing back
	alerts, _ := env.alerts.ListByUser(context.Background(), u.ID)
	assert.Empty(t, alerts)
	assert.Equal(t, 50, env.trust.TrustScore("ShadyApp"))
}

// panickyCrowd panics for one app.
type panickyCrowd struct {
	panicApp string
}

func (p *panickyCrowd) ReportHighRisk(context.Context, string) error { return nil }
func (p *panickyCrowd) ReportCount(context.Context, string) (int, error) {
	return 0, nil
}
func (p *panickyCrowd) CrowdMultiplier(_ context.Context, app string) float64 {
	if app == p.panicApp {
		panic("corrupt counter")
	}
	return 1.0
}

func TestAnalyzeUserRisk_ScoringPanicSkipsExposure(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "erin")
	env.exposure(t, u.ID, "Broken", day(2024, 1, 1), "")
	env.exposure(t, u.ID, "FitnessPal", day(2024, 1, 1), "")
	env.event(t, u.ID, models.EventTypeSpamCall, day(2024, 1, 2), nil)

	engine := NewRiskEngineService(RiskEngineDeps{
		Users:       env.users,
		Exposures:   env.exposures,
		Events:      env.events,
		Assessments: env.assessments,
		Alerts:      env.alerts,
		Trust:       env.trust,
		Crowd:       &panickyCrowd{panicApp: "Broken"},
	}, env.log)

	got, err := engine.AnalyzeUserRisk(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "FitnessPal", got[0].Exposure.AppName)
	assert.WithinDuration(t, time.Now(), got[0].AssessedAt, time.Minute)
}
