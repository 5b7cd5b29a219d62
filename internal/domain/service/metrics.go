// Package service defines the domain services and the interfaces they depend on.
package service

import (
	"time"
)

// Metrics defines the interface for collecting business metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集业务指标的接口。
type Metrics interface {
	// RecordAnalysis records one user analysis and the number of assessments it produced.
	// RecordAnalysis 记录一次用户风险分析。
	RecordAnalysis(success bool, assessments int, duration time.Duration)

	// RecordAssessment records a scored assessment by level.
	RecordAssessment(level string, score float64)

	// RecordAlert records an alert raised for a high-risk assessment.
	RecordAlert(severity string)

	// RecordBreachLookup records the outcome of a breach lookup ("found", "not_found", "unauthorized", "error", "simulated").
	// RecordBreachLookup 记录数据泄露查询结果。
	RecordBreachLookup(outcome string, duration time.Duration)

	// RecordEvidence records a preserve call; created is false when an existing record was returned.
	RecordEvidence(created bool)

	// RecordReevaluation records one sweep of the background job.
	RecordReevaluation(users, failures int, duration time.Duration)

	// RecordCacheAccess records a cache hit or miss.
	// RecordCacheAccess 记录缓存命中或未命中。
	RecordCacheAccess(cacheType string, hit bool)

	// RecordHTTPRequest records a served HTTP request.
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordAnalysis(bool, int, time.Duration)            {}
func (NoopMetrics) RecordAssessment(string, float64)                   {}
func (NoopMetrics) RecordAlert(string)                                 {}
func (NoopMetrics) RecordBreachLookup(string, time.Duration)           {}
func (NoopMetrics) RecordEvidence(bool)                                {}
func (NoopMetrics) RecordReevaluation(int, int, time.Duration)         {}
func (NoopMetrics) RecordCacheAccess(string, bool)                     {}
func (NoopMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
