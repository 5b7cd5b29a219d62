package service_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/service"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func event(userID uuid.UUID, t models.EventType, ts time.Time) *models.MisuseEvent {
	return models.NewMisuseEvent(userID, t, ts, models.SeverityMedium, "")
}

func score(exp *models.AppExposure, events ...*models.MisuseEvent) service.ScoreResult {
	return service.NewRiskScorer().Score(service.ScoringInput{
		Exposure:        exp,
		Events:          events,
		TrustScore:      50,
		CrowdMultiplier: 1.0,
	})
}

func TestRiskScorer_DirectBreachOverride(t *testing.T) {
	userID := uuid.New()
	exp := models.NewAppExposure(userID, "FitnessPal", day(2024, 1, 1, 0), "")
	leak := event(userID, models.EventTypeDataLeak, day(2024, 6, 1, 0))
	leak.Metadata["breached_app"] = "FitnessPal"

	res := score(exp, leak)

	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, models.RiskLevelCritical, res.Level)
	assert.Equal(t, 100.0, res.Factors[models.FactorDirectBreachMatch])
	assert.True(t, strings.HasPrefix(res.Reasoning, "- **CRITICAL MATCH**: Direct data breach detected at FitnessPal.\n### Hypothesis: FitnessPal as Source\n"))
	assert.True(t, strings.HasSuffix(res.Reasoning, "**Final Confidence: 100.0%**"))
}

func TestRiskScorer_BreachTagRequiresExactMatch(t *testing.T) {
	userID := uuid.New()
	exp := models.NewAppExposure(userID, "Pal", day(2020, 1, 1, 0), "")
	leak := event(userID, models.EventTypeDataLeak, day(2024, 6, 1, 0))
	leak.Metadata["breached_app"] = "FitnessPal"

	res := score(exp, leak)
	assert.Equal(t, 0.0, res.Factors[models.FactorDirectBreachMatch])
	assert.Less(t, res.Score, 100.0)
}

func TestRiskScorer_OldSignupGenericIncrease(t *testing.T) {
	userID := uuid.New()
	exp := models.NewAppExposure(userID, "OldApp", day(2023, 1, 1, 0), "")

	// one event long after the attribution window, none before signup
	res := score(exp, event(userID, models.EventTypeSpamCall, day(2024, 1, 2, 10)))

	assert.Equal(t, 0.0, res.Factors[models.FactorTimeCorrelation])
	assert.Equal(t, 5.0, res.Factors[models.FactorFrequencySpike])
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, models.RiskLevelLow, res.Level)
	assert.Contains(t, res.Reasoning, "**Result**: Insufficient evidence.")
}

func TestRiskScorer_OldSignupMinorIncrease(t *testing.T) {
	userID := uuid.New()
	exp := models.NewAppExposure(userID, "OldApp", day(2023, 1, 1, 0), "")

	res := score(exp,
		event(userID, models.EventTypeSpamCall, day(2022, 6, 1, 0)),
		event(userID, models.EventTypeSpamCall, day(2024, 1, 2, 10)),
		event(userID, models.EventTypeSpamCall, day(2024, 2, 1, 10)),
	)

	assert.Equal(t, 2.0, res.Factors[models.FactorFrequencySpike])
	assert.InDelta(t, 0.4, res.Score, 1e-9)
	assert.Equal(t, models.RiskLevelLow, res.Level)
}

func TestRiskScorer_RecentSignup(t *testing.T) {
	userID := uuid.New()
	exp := models.NewAppExposure(userID, "BadApp", day(2024, 1, 1, 0), "")

	res := score(exp, event(userID, models.EventTypeSpamCall, day(2024, 1, 2, 10)))

	assert.Equal(t, 100.0, res.Factors[models.FactorTimeCorrelation])
	assert.Equal(t, 100.0, res.Factors[models.FactorFrequencySpike])
	assert.InDelta(t, 60.0, res.Score, 1e-9)
	assert.Equal(t, models.RiskLevelHigh, res.Level)
	assert.Contains(t, res.Reasoning, "**Result**: Monitoring.")
	assert.Contains(t, res.Reasoning, "- **App Reputation**: Trust score is 50/100.\n")
	assert.Equal(t, 50.0, res.Factors[models.FactorTrustScore])
	assert.Equal(t, 50.0, res.Factors[models.FactorTrustRisk])
}

func TestRiskScorer_TrustRiskIsRecordedButNotWeighted(t *testing.T) {
	userID := uuid.New()
	exp := models.NewAppExposure(userID, "Casino", day(2024, 1, 1, 0), "")
	events := []*models.MisuseEvent{event(userID, models.EventTypeSpamCall, day(2024, 1, 2, 10))}

	trusted := service.NewRiskScorer().Score(service.ScoringInput{Exposure: exp, Events: events, TrustScore: 95, CrowdMultiplier: 1.0})
	shady := service.NewRiskScorer().Score(service.ScoringInput{Exposure: exp, Events: events, TrustScore: 10, CrowdMultiplier: 1.0})

	assert.Equal(t, 5.0, trusted.Factors[models.FactorTrustRisk])
	assert.Equal(t, 90.0, shady.Factors[models.FactorTrustRisk])
	assert.Equal(t, trusted.Score, shady.Score)
}

func TestTrustRiskScore(t *testing.T) {
	assert.Equal(t, 100.0, service.TrustRiskScore(0))
	assert.Equal(t, 50.0, service.TrustRiskScore(50))
	assert.Equal(t, 0.0, service.TrustRiskScore(100))
}

func TestRiskScorer_CategoryBonus(t *testing.T) {
	userID := uuid.New()
	exp := models.NewAppExposure(userID, "QuickLoan", day(2024, 1, 1, 0), "FINANCE")

	res := score(exp, event(userID, models.EventTypeSpamSMS, day(2024, 1, 2, 10)))

	assert.Equal(t, 15.0, res.Factors[models.FactorCategoryBonus])
	assert.InDelta(t, 75.0, res.Score, 1e-9)
	assert.Contains(t, res.Reasoning, "App category (FINANCE) aligns with observed misuse type (+15.0% boost)")
	assert.Contains(t, res.Reasoning, "**Result**: High Probability.")
}

func TestRiskScorer_FederatedContribution(t *testing.T) {
	userID := uuid.New()
	exp := models.NewAppExposure(userID, "Crowded", day(2024, 1, 1, 0), "")

	res := service.NewRiskScorer().Score(service.ScoringInput{
		Exposure:        exp,
		Events:          []*models.MisuseEvent{event(userID, models.EventTypeSpamCall, day(2024, 1, 2, 10))},
		TrustScore:      50,
		CrowdMultiplier: 1.5,
	})

	assert.InDelta(t, 100.0, res.Factors[models.FactorFederatedRisk], 1e-9)
	assert.InDelta(t, 85.0, res.Score, 1e-9)
	assert.Equal(t, models.RiskLevelCritical, res.Level)
	assert.Contains(t, res.Reasoning, "Cross-User Consensus")
}

func TestRiskScorer_ScoreIsClamped(t *testing.T) {
	userID := uuid.New()
	exp := models.NewAppExposure(userID, "Everything", day(2024, 1, 1, 0), "FINANCE")

	res := service.NewRiskScorer().Score(service.ScoringInput{
		Exposure:        exp,
		Events:          []*models.MisuseEvent{event(userID, models.EventTypePhishingAttempt, day(2024, 1, 1, 5))},
		TrustScore:      10,
		CrowdMultiplier: 1.5,
	})
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 100.0, res.Factors[models.FactorFinalScore])
}

func TestTimeCorrelationScore(t *testing.T) {
	signup := day(2024, 3, 10, 0)
	tests := []struct {
		name string
		ts   time.Time
		want float64
	}{
		{"same day", signup.Add(3 * time.Hour), 100},
		{"end of day two", signup.Add(71 * time.Hour), 100},
		{"day three", signup.Add(72 * time.Hour), 80},
		{"day seven", signup.AddDate(0, 0, 7), 80},
		{"day eight", signup.AddDate(0, 0, 8), 50},
		{"day fourteen", signup.AddDate(0, 0, 14), 50},
		{"day fifteen", signup.AddDate(0, 0, 15), 20},
		{"day thirty", signup.AddDate(0, 0, 30), 20},
		{"day thirty one", signup.AddDate(0, 0, 31), 0},
		{"hours before signup truncate to day zero", signup.Add(-12 * time.Hour), 100},
		{"a full day before signup", signup.Add(-25 * time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.TimeCorrelationScore(signup, []*models.MisuseEvent{event(uuid.New(), models.EventTypeSpamCall, tt.ts)})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeCorrelationScore_TakesMaximum(t *testing.T) {
	signup := day(2024, 3, 10, 0)
	uid := uuid.New()
	got := service.TimeCorrelationScore(signup, []*models.MisuseEvent{
		event(uid, models.EventTypeSpamCall, signup.AddDate(0, 0, 20)),
		event(uid, models.EventTypeSpamCall, signup.AddDate(0, 0, 4)),
	})
	assert.Equal(t, 80.0, got)
	assert.Equal(t, 0.0, service.TimeCorrelationScore(signup, nil))
}

func TestFrequencySpikeScore(t *testing.T) {
	signup := day(2024, 3, 10, 0)
	uid := uuid.New()

	at := func(ts ...time.Time) []*models.MisuseEvent {
		out := make([]*models.MisuseEvent, 0, len(ts))
		for _, x := range ts {
			out = append(out, event(uid, models.EventTypeSpamEmail, x))
		}
		return out
	}

	assert.Equal(t, 100.0, service.FrequencySpikeScore(signup, at(signup.AddDate(0, 0, 89))))
	// an event exactly at signup counts neither before nor after
	assert.Equal(t, 0.0, service.FrequencySpikeScore(signup, at(signup)))
	// exactly at the end of the window is outside it
	assert.Equal(t, 5.0, service.FrequencySpikeScore(signup, at(signup.AddDate(0, 0, 90))))
	assert.Equal(t, 0.0, service.FrequencySpikeScore(signup, at(signup.AddDate(0, 0, -1))))
	assert.Equal(t, 0.0, service.FrequencySpikeScore(signup, nil))
}

func TestCategoryMatchBonus(t *testing.T) {
	uid := uuid.New()
	ts := day(2024, 1, 1, 0)
	assert.Equal(t, 15.0, service.CategoryMatchBonus("FINANCE", []*models.MisuseEvent{event(uid, models.EventTypePhishingAttempt, ts)}))
	assert.Equal(t, 10.0, service.CategoryMatchBonus("SOCIAL", []*models.MisuseEvent{event(uid, models.EventTypeSpamEmail, ts)}))
	assert.Equal(t, 0.0, service.CategoryMatchBonus("SOCIAL", []*models.MisuseEvent{event(uid, models.EventTypeSpamSMS, ts)}))
	assert.Equal(t, 0.0, service.CategoryMatchBonus("", []*models.MisuseEvent{event(uid, models.EventTypeSpamSMS, ts)}))
}

func TestCrowdMultiplierFor(t *testing.T) {
	tests := []struct {
		reports int
		want    float64
	}{
		{0, 1.0}, {1, 1.0}, {2, 1.08}, {3, 1.12}, {4, 1.16}, {5, 1.20}, {6, 1.5}, {100, 1.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, service.CrowdMultiplierFor(tt.reports), 1e-9, "reports=%d", tt.reports)
	}
}

func TestBreachOnlyAssessment(t *testing.T) {
	uid := uuid.New()
	leak := event(uid, models.EventTypeDataLeak, day(2024, 1, 1, 0))
	leak.Description = "Identity found in Adobe data breach."

	a := service.BreachOnlyAssessment(leak)
	require.NotNil(t, a)
	assert.True(t, a.IsBreachOnly())
	assert.Equal(t, uid, a.UserID)
	assert.Equal(t, "Identity Monitor (Breach Detected)", a.Exposure.AppName)
	assert.Equal(t, "IDENTITY", a.Exposure.Category)
	assert.Equal(t, 100.0, a.RiskScore)
	assert.Equal(t, models.RiskLevelCritical, a.RiskLevel)
	assert.Equal(t, "CRITICAL: Identity found in data breach.\nDetails: Identity found in Adobe data breach.", a.Reasoning)
	assert.Equal(t, models.RiskFactors{"event_type_data_leak": 1, "impact": 100}, a.Factors)
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "100.0", service.FormatDecimal(100))
	assert.Equal(t, "0.4", service.FormatDecimal(0.4))
	assert.Equal(t, "65.0", service.FormatDecimal(65))
	assert.Equal(t, "72.25", service.FormatDecimal(72.25))
}
