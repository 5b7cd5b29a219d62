package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"

	appservice "github.com/turtacn/pdmews/internal/application/service"
	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/internal/infrastructure/crowd"
	"github.com/turtacn/pdmews/internal/infrastructure/monitoring"
	"github.com/turtacn/pdmews/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/pdmews/internal/infrastructure/trust"
	"github.com/turtacn/pdmews/internal/interfaces/http/handlers"
	"github.com/turtacn/pdmews/internal/interfaces/http/router"
	"github.com/turtacn/pdmews/pkg/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return assert.AnError }

type RouterSuite struct {
	suite.Suite
	db      *postgres.DBConnection
	handler http.Handler
}

func (s *RouterSuite) SetupTest() {
	gdb, err := postgres.OpenSQLiteMemory("router_" + uuid.NewString())
	s.Require().NoError(err)
	log := logger.NewNoopLogger()
	s.db = postgres.NewDBConnectionFromDB(gdb, "sqlite", log)

	users := postgres.NewUserRepository(gdb, log)
	exposures := postgres.NewExposureRepository(gdb, log)
	events := postgres.NewMisuseEventRepository(gdb, log)
	assessments := postgres.NewAssessmentRepository(gdb, log)
	alerts := postgres.NewAlertRepository(gdb, log)
	evidence := postgres.NewEvidenceRepository(gdb, log)
	registry := trust.NewRegistry(nil)
	crowdCache := crowd.NewMemoryCache()
	metrics := monitoring.NewMetrics()

	leaks := appservice.NewLeakDetectionService(nil, events, metrics, log)
	engine := appservice.NewRiskEngineService(appservice.RiskEngineDeps{
		Users: users, Exposures: exposures, Events: events,
		Assessments: assessments, Alerts: alerts,
		Trust: registry, Crowd: crowdCache, Metrics: metrics,
	}, log)

	r := router.NewRouter(config.ServerConfig{Environment: "production"}, router.Handlers{
		Health:   handlers.NewHealthHandler(map[string]handlers.Pinger{"database": s.db}),
		Identity: handlers.NewIdentityHandler(appservice.NewIdentityService(users, postgres.NewIdentifierRepository(gdb, log), leaks, log)),
		Signals: handlers.NewSignalHandler(
			appservice.NewExposureService(users, exposures, log),
			appservice.NewMisuseEventService(users, events, log)),
		Risk: handlers.NewRiskHandler(engine,
			appservice.NewInsightService(users, alerts, assessments, crowdCache, registry), log),
		Legal:   handlers.NewLegalHandler(appservice.NewForensicService(assessments, evidence, metrics, log)),
		Metrics: metrics.Handler(),
	}, otel.Tracer("test"), metrics, log)
	s.handler = r.Engine()
}

func (s *RouterSuite) TearDownTest() {
	s.NoError(s.db.Close())
}

func (s *RouterSuite) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func (s *RouterSuite) TestEndToEndAnalysis() {
	rec, env := s.do(http.MethodPost, "/api/v1/identity/users", map[string]string{"username": "alice"})
	s.Require().Equal(http.StatusCreated, rec.Code)
	var user struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &user))

	rec, _ = s.do(http.MethodPost, "/api/v1/sources", map[string]string{
		"user_id": user.ID, "app_name": "ShadyApp", "signup_date": "2024-01-01",
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/v1/events", map[string]interface{}{
		"user_id":   user.ID,
		"type":      "DATA_LEAK",
		"severity":  "HIGH",
		"timestamp": "2024-01-02T08:00:00Z",
		"metadata":  map[string]string{"breached_app": "ShadyApp"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec, env = s.do(http.MethodPost, "/api/v1/risk/analyze/"+user.ID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var analysis struct {
		Assessments []struct {
			ID        string  `json:"id"`
			RiskScore float64 `json:"risk_score"`
			RiskLevel string  `json:"risk_level"`
		} `json:"assessments"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &analysis))
	s.Require().Len(analysis.Assessments, 1)
	s.Equal(100.0, analysis.Assessments[0].RiskScore)
	s.Equal("CRITICAL", analysis.Assessments[0].RiskLevel)
	assessmentID := analysis.Assessments[0].ID

	rec, env = s.do(http.MethodGet, "/api/v1/alerts/"+user.ID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var alerts []map[string]interface{}
	s.Require().NoError(json.Unmarshal(env.Data, &alerts))
	s.Len(alerts, 1)

	_, first := s.do(http.MethodPost, "/api/v1/legal/preserve/"+assessmentID, nil)
	_, second := s.do(http.MethodPost, "/api/v1/legal/preserve/"+assessmentID, nil)
	var r1, r2 struct {
		ID          string `json:"id"`
		ContentHash string `json:"content_hash"`
	}
	s.Require().NoError(json.Unmarshal(first.Data, &r1))
	s.Require().NoError(json.Unmarshal(second.Data, &r2))
	s.Equal(r1, r2)
	s.Len(r1.ContentHash, 64)

	_, env = s.do(http.MethodGet, "/api/v1/legal/verify/"+assessmentID, nil)
	var verification struct {
		Valid bool `json:"valid"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &verification))
	s.True(verification.Valid)

	_, env = s.do(http.MethodGet, "/api/v1/risk/crowd/ShadyApp", nil)
	var standing struct {
		Reports int `json:"reports"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &standing))
	s.Equal(1, standing.Reports)

	_, env = s.do(http.MethodGet, "/api/v1/risk/trust/ShadyApp", nil)
	var trustScore struct {
		TrustScore int `json:"trust_score"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &trustScore))
	s.Equal(49, trustScore.TrustScore)
}

func (s *RouterSuite) TestErrorMapping() {
	rec, env := s.do(http.MethodPost, "/api/v1/risk/analyze/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Require().NotNil(env.Error)
	s.Equal("not_found", env.Error.Code)

	rec, env = s.do(http.MethodPost, "/api/v1/risk/analyze/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("invalid_request", env.Error.Code)

	rec, _ = s.do(http.MethodPost, "/api/v1/sources", map[string]string{"user_id": "x"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/v1/legal/preserve/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodGet, "/nowhere", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterSuite) TestHealthAndMetrics() {
	rec, _ := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"database":"ok"`)

	rec, _ = s.do(http.MethodGet, "/live", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/metrics", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "pdmews_http_requests_total")

	// pprof stays off in production
	rec, _ = s.do(http.MethodGet, "/debug/pprof/", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func TestHealth_ReportsFailingDependency(t *testing.T) {
	r := router.NewRouter(config.ServerConfig{}, router.Handlers{
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{"redis": failingPinger{}, "vault": nil}),
	}, otel.Tracer("test"), nil, logger.NewNoopLogger())

	rec := httptest.NewRecorder()
	r.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"error:`)
	assert.NotContains(t, rec.Body.String(), "vault")
}
