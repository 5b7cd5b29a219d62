// Package constants defines system-wide constants for the PD-MEWS risk service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Risk Scoring Constants
// ================================================================================

const (
	// WeightTimeCorrelation is the share of the signup-proximity factor in the final score.
	WeightTimeCorrelation = 0.40

	// WeightFrequencySpike is the share of the frequency-spike factor in the final score.
	WeightFrequencySpike = 0.20

	// WeightFederatedRisk is the share of the cross-user correlation factor in the final score.
	WeightFederatedRisk = 0.25

	// AlertScoreThreshold is the score an assessment must strictly exceed to raise an alert.
	AlertScoreThreshold = 70.0

	// MaxRiskScore is the upper clamp of every assessment score.
	MaxRiskScore = 100.0

	// MinRiskScore is the lower clamp of every assessment score.
	MinRiskScore = 0.0

	// AttributionWindow is the post-signup window inside which any misuse event counts as a spike.
	AttributionWindow = 90 * 24 * time.Hour

	// DefaultTrustScore is returned for apps absent from the trust registry.
	DefaultTrustScore = 50

	// MaxTrustScore is the ceiling of the trust scale.
	MaxTrustScore = 100

	// TrustDecayStep is subtracted from an app's trust score per high-risk finding.
	TrustDecayStep = 1

	// IdentityMonitorAppName names the placeholder exposure used for breach-only findings.
	IdentityMonitorAppName = "Identity Monitor (Breach Detected)"

	// IdentityMonitorCategory is the category of the placeholder exposure.
	IdentityMonitorCategory = "IDENTITY"
)

// ================================================================================
// Crowd Correlation Constants
// ================================================================================

const (
	// CrowdNeutralMultiplier applies while an app has at most one report.
	CrowdNeutralMultiplier = 1.0

	// CrowdStepPerReport is the per-report boost between two and CrowdLinearMaxReports reports.
	CrowdStepPerReport = 0.04

	// CrowdLinearMaxReports is the last report count on the linear part of the curve.
	CrowdLinearMaxReports = 5

	// CrowdMaxMultiplier caps the crowd multiplier.
	CrowdMaxMultiplier = 1.5

	// CrowdRedisKey is the Redis hash holding per-app report counters.
	CrowdRedisKey = "pdmews:crowd"
)

// ================================================================================
// Metadata Keys
// ================================================================================

const (
	// MetadataBreachedApp tags a DATA_LEAK event with the breached service name.
	MetadataBreachedApp = "breached_app"

	// MetadataBreachSource records where a breach finding came from.
	MetadataBreachSource = "breach_source"

	// MetadataBreachDate carries the breach date reported by the lookup service.
	MetadataBreachDate = "breach_date"

	// BreachSourceHIBP marks findings returned by the live lookup service.
	BreachSourceHIBP = "hibp"

	// BreachSourceSimulated marks findings synthesized by the offline fallback.
	BreachSourceSimulated = "simulated"
)

// ================================================================================
// Breach Lookup Constants
// ================================================================================

const (
	// DefaultBreachBaseURL is the HIBP v3 API root.
	DefaultBreachBaseURL = "https://haveibeenpwned.com/api/v3"

	// DefaultBreachUserAgent is sent with every lookup; HIBP rejects requests without one.
	DefaultBreachUserAgent = "PD-MEWS-Risk-Agent"

	// DefaultBreachTimeout bounds a single live lookup.
	DefaultBreachTimeout = 10 * time.Second

	// DefaultBreachCacheTTL is how long lookup results are reused.
	DefaultBreachCacheTTL = 6 * time.Hour

	// SimulatedBreachWindowDays bounds how far back simulated findings are dated.
	SimulatedBreachWindowDays = 30
)

// SimulatedBreachSources lists the services the offline fallback reports as breached.
var SimulatedBreachSources = []string{"Adobe", "LinkedIn", "Canva", "Dropbox"}

// ================================================================================
// Scheduling Constants
// ================================================================================

const (
	// DefaultReevaluationInterval is the period of the background risk sweep.
	DefaultReevaluationInterval = time.Hour

	// DefaultReevaluationWorkers bounds how many users are analyzed concurrently in a sweep.
	DefaultReevaluationWorkers = 4
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	// LogLevelDebug is the most verbose logging level
	LogLevelDebug LogLevel = "debug"

	// LogLevelInfo is the standard informational logging level
	LogLevelInfo LogLevel = "info"

	// LogLevelWarn indicates potential issues
	LogLevelWarn LogLevel = "warn"

	// LogLevelError indicates errors that need attention
	LogLevelError LogLevel = "error"

	// LogLevelFatal indicates critical errors that cause service termination
	LogLevelFatal LogLevel = "fatal"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID is the key for distributed trace ID in context
	ContextKeyTraceID ContextKey = "trace_id"

	// ContextKeyUserID is the key for the analyzed user ID in context
	ContextKeyUserID ContextKey = "user_id"
)

// ================================================================================
// HTTP Constants
// ================================================================================

const (
	// HeaderRequestID carries the request correlation ID
	HeaderRequestID = "X-Request-ID"

	// EnvProduction is the environment name that disables debug endpoints
	EnvProduction = "production"
)
