package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/application/service"
	"github.com/turtacn/pdmews/pkg/logger"
)

// RiskHandler serves analyses, alerts and app reputation.
type RiskHandler struct {
	engine   service.RiskEngineService
	insights service.InsightService
	log      logger.Logger
}

// NewRiskHandler creates a new RiskHandler.
func NewRiskHandler(engine service.RiskEngineService, insights service.InsightService, log logger.Logger) *RiskHandler {
	return &RiskHandler{engine: engine, insights: insights, log: log}
}

// Analyze handles POST /api/v1/risk/analyze/:user_id.
// Persist failures of individual assessments are reported as warnings next to the saved ones.
func (h *RiskHandler) Analyze(c *gin.Context) {
	userID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	assessments, err := h.engine.AnalyzeUserRisk(c.Request.Context(), userID)
	if err != nil && assessments == nil {
		respondError(c, err)
		return
	}

	resp := &dto.AnalysisResponse{UserID: userID.String(), Assessments: assessments}
	if err != nil {
		h.log.Warn(c.Request.Context(), "Analysis completed with persist failures", logger.Error(err))
		resp.Warnings = []string{err.Error()}
	}
	respondOK(c, http.StatusOK, resp)
}

// ListAssessments handles GET /api/v1/risk/assessments/:user_id.
func (h *RiskHandler) ListAssessments(c *gin.Context) {
	userID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	assessments, err := h.insights.ListAssessments(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, assessments)
}

// ListAlerts handles GET /api/v1/alerts/:user_id.
func (h *RiskHandler) ListAlerts(c *gin.Context) {
	userID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	alerts, err := h.insights.ListAlerts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, alerts)
}

// CrowdStanding handles GET /api/v1/risk/crowd/:app_name.
func (h *RiskHandler) CrowdStanding(c *gin.Context) {
	standing, err := h.insights.CrowdStanding(c.Request.Context(), c.Param("app_name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, standing)
}

// TrustScore handles GET /api/v1/risk/trust/:app_name.
func (h *RiskHandler) TrustScore(c *gin.Context) {
	respondOK(c, http.StatusOK, h.insights.TrustScore(c.Param("app_name")))
}
