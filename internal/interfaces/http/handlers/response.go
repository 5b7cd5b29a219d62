// Package handlers implements the HTTP handlers of the PD-MEWS API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/utils"
)

func traceID(c *gin.Context) string {
	if v, ok := c.Request.Context().Value(constants.ContextKeyTraceID).(string); ok {
		return v
	}
	return ""
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, dto.SuccessResponse(data, traceID(c)))
}

// respondError maps the error code to a status; unknown errors are 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := errors.AsAppError(err); ok {
		status = appErr.HTTPStatus()
	}
	c.JSON(status, dto.ErrorResponse(err, traceID(c)))
}

// bindJSON decodes the body into req, answering 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, errors.ErrInvalidRequest("malformed request body").WithCause(err))
		return false
	}
	return true
}

// pathUUID parses the named path parameter, answering 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(name, c.Param(name))
	if err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return id, true
}
