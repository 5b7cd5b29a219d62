package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/pdmews/internal/domain/service"
)

// Metrics manages the Prometheus metrics and implements service.Metrics.
// Metrics 管理 Prometheus 指标，并实现领域层的 service.Metrics 接口。
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal       *prometheus.CounterVec
	AnalysisLatency     prometheus.Histogram
	AssessmentsTotal    *prometheus.CounterVec
	AssessmentScores    prometheus.Histogram
	AlertsTotal         *prometheus.CounterVec
	BreachLookups       *prometheus.CounterVec
	BreachLookupLatency prometheus.Histogram
	EvidenceTotal       *prometheus.CounterVec
	ReevaluationUsers   *prometheus.CounterVec
	ReevaluationLatency prometheus.Histogram
	CacheAccess         *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPLatency         *prometheus.HistogramVec
}

var _ service.Metrics = (*Metrics)(nil)

// NewMetrics creates the metrics on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdmews_risk_analyses_total",
				Help: "Total number of user risk analyses.",
			},
			[]string{"result"},
		),
		AnalysisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdmews_risk_analysis_duration_seconds",
			Help:    "Latency of user risk analyses.",
			Buckets: prometheus.DefBuckets,
		}),
		AssessmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdmews_risk_assessments_total",
				Help: "Total number of assessments by risk level.",
			},
			[]string{"level"},
		),
		AssessmentScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdmews_risk_assessment_score",
			Help:    "Distribution of assessment scores.",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		AlertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdmews_alerts_total",
				Help: "Total number of early-warning alerts.",
			},
			[]string{"severity"},
		),
		BreachLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdmews_breach_lookups_total",
				Help: "Total number of breach lookups by outcome.",
			},
			[]string{"outcome"},
		),
		BreachLookupLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdmews_breach_lookup_duration_seconds",
			Help:    "Latency of breach lookups.",
			Buckets: prometheus.DefBuckets,
		}),
		EvidenceTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdmews_evidence_preserve_total",
				Help: "Total number of preserve calls.",
			},
			[]string{"result"},
		),
		ReevaluationUsers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdmews_reevaluation_users_total",
				Help: "Users processed by the background re-evaluation.",
			},
			[]string{"result"},
		),
		ReevaluationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdmews_reevaluation_duration_seconds",
			Help:    "Duration of re-evaluation sweeps.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		CacheAccess: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdmews_cache_access_total",
				Help: "Cache hits and misses.",
			},
			[]string{"cache", "result"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdmews_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pdmews_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the registry holding every metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordAnalysis(success bool, assessments int, duration time.Duration) {
	m.AnalysesTotal.WithLabelValues(resultLabel(success)).Inc()
	m.AnalysisLatency.Observe(duration.Seconds())
}

func (m *Metrics) RecordAssessment(level string, score float64) {
	m.AssessmentsTotal.WithLabelValues(level).Inc()
	m.AssessmentScores.Observe(score)
}

func (m *Metrics) RecordAlert(severity string) {
	m.AlertsTotal.WithLabelValues(severity).Inc()
}

func (m *Metrics) RecordBreachLookup(outcome string, duration time.Duration) {
	m.BreachLookups.WithLabelValues(outcome).Inc()
	m.BreachLookupLatency.Observe(duration.Seconds())
}

func (m *Metrics) RecordEvidence(created bool) {
	if created {
		m.EvidenceTotal.WithLabelValues("created").Inc()
		return
	}
	m.EvidenceTotal.WithLabelValues("existing").Inc()
}

func (m *Metrics) RecordReevaluation(users, failures int, duration time.Duration) {
	m.ReevaluationUsers.WithLabelValues("success").Add(float64(users - failures))
	m.ReevaluationUsers.WithLabelValues("failure").Add(float64(failures))
	m.ReevaluationLatency.Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheAccess(cacheType string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccess.WithLabelValues(cacheType, result).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
