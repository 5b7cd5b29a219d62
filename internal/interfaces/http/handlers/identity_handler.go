package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/application/service"
)

// IdentityHandler serves user and identifier registration.
type IdentityHandler struct {
	identity service.IdentityService
}

// NewIdentityHandler creates a new IdentityHandler.
func NewIdentityHandler(identity service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identity: identity}
}

// CreateUser handles POST /api/v1/identity/users.
func (h *IdentityHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.identity.CreateUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, user)
}

// AddIdentifier handles POST /api/v1/identity/identifiers.
// Breach detection runs before the response is written.
func (h *IdentityHandler) AddIdentifier(c *gin.Context) {
	var req dto.AddIdentifierRequest
	if !bindJSON(c, &req) {
		return
	}
	identifier, err := h.identity.AddIdentifier(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, identifier)
}
