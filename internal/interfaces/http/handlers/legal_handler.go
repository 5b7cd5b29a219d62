package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/application/service"
)

// LegalHandler serves the evidence freezer.
type LegalHandler struct {
	forensic service.ForensicService
}

// NewLegalHandler creates a new LegalHandler.
func NewLegalHandler(forensic service.ForensicService) *LegalHandler {
	return &LegalHandler{forensic: forensic}
}

// Preserve handles POST /api/v1/legal/preserve/:assessment_id.
func (h *LegalHandler) Preserve(c *gin.Context) {
	assessmentID, ok := pathUUID(c, "assessment_id")
	if !ok {
		return
	}
	record, err := h.forensic.PreserveEvidence(c.Request.Context(), assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, record)
}

// Verify handles GET /api/v1/legal/verify/:assessment_id.
func (h *LegalHandler) Verify(c *gin.Context) {
	assessmentID, ok := pathUUID(c, "assessment_id")
	if !ok {
		return
	}
	valid, err := h.forensic.VerifyEvidence(c.Request.Context(), assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, &dto.VerificationResponse{AssessmentID: assessmentID.String(), Valid: valid})
}
