package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/pkg/constants"
)

// ScoringInput is everything the scorer needs to judge one exposure.
type ScoringInput struct {
	Exposure *models.AppExposure
	Events   []*models.MisuseEvent
	// TrustScore is the app's reputation at scoring time.
	TrustScore int
	// CrowdMultiplier is the app's cross-user multiplier at scoring time.
	CrowdMultiplier float64
}

// ScoreResult is the outcome of scoring one exposure.
type ScoreResult struct {
	Score     float64
	Level     models.RiskLevel
	Reasoning string
	Factors   models.RiskFactors
}

// RiskScorer combines the correlation factors into an explainable score.
// RiskScorer 是纯函数式评分器：不访问存储，也不修改任何共享状态。
type RiskScorer struct{}

// NewRiskScorer creates a risk scorer.
func NewRiskScorer() *RiskScorer {
	return &RiskScorer{}
}

// Score evaluates the hypothesis that in.Exposure is the source of in.Events.
func (s *RiskScorer) Score(in ScoringInput) ScoreResult {
	exp := in.Exposure
	var body strings.Builder
	factors := models.RiskFactors{}

	timeScore := TimeCorrelationScore(exp.SignupDate, in.Events)
	if timeScore > 0 {
		body.WriteString("- **Time Correlation**: High suspicion due to recent signup proximity.\n")
	} else {
		body.WriteString("- **Time Correlation**: Low temporal link.\n")
	}
	factors[models.FactorTimeCorrelation] = timeScore

	spikeScore := FrequencySpikeScore(exp.SignupDate, in.Events)
	switch spikeScore {
	case 100:
		body.WriteString("- **Frequency Spike**: Detected misuse events within 90 days of signup (High Attribution).\n")
	case 5:
		body.WriteString("- **Frequency Spike**: Generic increase in misuse detected (Low Attribution; likely unrelated to this app).\n")
	case 2:
		body.WriteString("- **Frequency Spike**: Minor increase in misuse detected.\n")
	default:
		body.WriteString("- **Frequency Spike**: No significant change in misuse frequency.\n")
	}
	factors[models.FactorFrequencySpike] = spikeScore

	bonus := CategoryMatchBonus(exp.Category, in.Events)
	if bonus > 0 {
		fmt.Fprintf(&body, "- **Category Match**: App category (%s) aligns with observed misuse type (+%s%% boost).\n",
			exp.Category, FormatDecimal(bonus))
	}
	factors[models.FactorCategoryBonus] = bonus

	federated := FederatedRiskScore(in.CrowdMultiplier)
	if federated > 10 {
		body.WriteString("- **Cross-User Consensus**: Multiple users reported similar patterns with this app.\n")
	}
	factors[models.FactorFederatedRisk] = federated

	// trust is reported, never weighted
	fmt.Fprintf(&body, "- **App Reputation**: Trust score is %d/100.\n", in.TrustScore)
	factors[models.FactorTrustScore] = float64(in.TrustScore)
	factors[models.FactorTrustRisk] = TrustRiskScore(in.TrustScore)

	breach := HasDirectBreach(exp.AppName, in.Events)

	total := timeScore*constants.WeightTimeCorrelation +
		spikeScore*constants.WeightFrequencySpike +
		federated*constants.WeightFederatedRisk +
		bonus
	if breach {
		total = constants.MaxRiskScore
		factors[models.FactorDirectBreachMatch] = 100
	} else {
		factors[models.FactorDirectBreachMatch] = 0
	}
	total = ClampScore(total)
	factors[models.FactorFinalScore] = total

	switch {
	case total < 40:
		body.WriteString("\n**Result**: Insufficient evidence. App does not align with misuse patterns.\n")
	case total < 65:
		body.WriteString("\n**Result**: Monitoring. Possible correlation detected but requires more signals.\n")
	default:
		body.WriteString("\n**Result**: High Probability. Strong alignment with observed misuse.\n")
	}
	fmt.Fprintf(&body, "\n**Final Confidence: %.1f%%**", total)

	var reasoning strings.Builder
	if breach {
		fmt.Fprintf(&reasoning, "- **CRITICAL MATCH**: Direct data breach detected at %s.\n", exp.AppName)
	}
	fmt.Fprintf(&reasoning, "### Hypothesis: %s as Source\n", exp.AppName)
	reasoning.WriteString("Evaluating evidence for this hypothesis...\n\n")
	reasoning.WriteString(body.String())

	return ScoreResult{
		Score:     total,
		Level:     models.LevelForScore(total),
		Reasoning: reasoning.String(),
		Factors:   factors,
	}
}

// TimeCorrelationScore returns the best signup-proximity score over events.
// 天数按签约日零点计算并向零截断：0-2 天 100，3-7 天 80，8-14 天 50，15-30 天 20，其余 0。
func TimeCorrelationScore(signupDate time.Time, events []*models.MisuseEvent) float64 {
	signup := models.StartOfDay(signupDate)
	best := 0.0
	for _, e := range events {
		days := int64(e.Timestamp.Sub(signup) / (24 * time.Hour))
		var current float64
		switch {
		case days >= 0 && days <= 2:
			current = 100
		case days > 2 && days <= 7:
			current = 80
		case days > 7 && days <= 14:
			current = 50
		case days > 14 && days <= 30:
			current = 20
		}
		if current > best {
			best = current
		}
	}
	return best
}

// FrequencySpikeScore compares misuse before and after signup.
// Any event strictly inside the attribution window scores 100; otherwise a
// generic increase scores 5 and a minor increase 2.
func FrequencySpikeScore(signupDate time.Time, events []*models.MisuseEvent) float64 {
	signup := models.StartOfDay(signupDate)
	windowEnd := signup.Add(constants.AttributionWindow)

	var pre, post, window int
	for _, e := range events {
		ts := e.Timestamp
		if ts.Before(signup) {
			pre++
		}
		if ts.After(signup) {
			post++
			if ts.Before(windowEnd) {
				window++
			}
		}
	}

	switch {
	case window > 0:
		return 100
	case post > pre*2 && post > 0:
		return 5
	case post > pre:
		return 2
	default:
		return 0
	}
}

// CategoryMatchBonus returns the unweighted bonus for a category that fits the observed misuse.
// FINANCE 与短信垃圾或钓鱼匹配加 15，SOCIAL 与垃圾邮件匹配加 10。
func CategoryMatchBonus(category string, events []*models.MisuseEvent) float64 {
	bonus := 0.0
	for _, e := range events {
		switch {
		case category == "FINANCE" && (e.Type == models.EventTypeSpamSMS || e.Type == models.EventTypePhishingAttempt):
			bonus = 15
		case category == "SOCIAL" && e.Type == models.EventTypeSpamEmail:
			bonus = 10
		}
	}
	return bonus
}

// FederatedRiskScore scales a crowd multiplier onto [0,100].
func FederatedRiskScore(multiplier float64) float64 {
	return math.Min(100, (multiplier-1.0)*200)
}

// TrustRiskScore is the risk implied by an app's reputation, 100 minus trust.
// It is recorded for explanation only and never enters the weighted sum.
func TrustRiskScore(trust int) float64 {
	return ClampScore(float64(constants.MaxTrustScore - trust))
}

// HasDirectBreach reports whether any DATA_LEAK event is tagged with exactly appName.
func HasDirectBreach(appName string, events []*models.MisuseEvent) bool {
	if appName == "" {
		return false
	}
	for _, e := range events {
		if e.IsDataLeak() && e.Metadata.BreachedApp() == appName {
			return true
		}
	}
	return false
}

// CrowdMultiplierFor maps a report count onto the crowd multiplier curve.
func CrowdMultiplierFor(reports int) float64 {
	switch {
	case reports <= 1:
		return constants.CrowdNeutralMultiplier
	case reports <= constants.CrowdLinearMaxReports:
		return constants.CrowdNeutralMultiplier + constants.CrowdStepPerReport*float64(reports)
	default:
		return constants.CrowdMaxMultiplier
	}
}

// ClampScore bounds score to [0,100].
func ClampScore(score float64) float64 {
	return math.Min(constants.MaxRiskScore, math.Max(constants.MinRiskScore, score))
}

// BreachOnlyAssessment builds the placeholder assessment for a user with a
// breach finding but nothing to correlate it against.
func BreachOnlyAssessment(leak *models.MisuseEvent) *models.RiskAssessment {
	placeholder := &models.AppExposure{
		UserID:   leak.UserID,
		AppName:  constants.IdentityMonitorAppName,
		Category: constants.IdentityMonitorCategory,
	}
	a := models.NewRiskAssessment(placeholder,
		constants.MaxRiskScore,
		"CRITICAL: Identity found in data breach.\nDetails: "+leak.Description,
		models.RiskFactors{
			models.FactorEventTypeDataLeak: 1,
			models.FactorImpact:            100,
		})
	return a
}

// FormatDecimal renders f in its shortest round-trip form with at least one fractional digit (15 -> "15.0").
func FormatDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
