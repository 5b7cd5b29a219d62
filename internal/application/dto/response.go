package dto

import (
	"time"

	"github.com/turtacn/pdmews/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应，非 AppError 一律按内部错误处理且不暴露细节
func ErrorResponse(err error, traceID string) *APIResponse {
	errorDTO := &ErrorDTO{
		Code:    string(errors.CodeInternal),
		Message: "Internal server error",
	}
	if appErr, ok := errors.AsAppError(err); ok {
		errorDTO.Code = string(appErr.Code())
		errorDTO.Message = appErr.Error()
		if md := appErr.Metadata(); len(md) > 0 {
			errorDTO.Details = md
		}
	}

	return &APIResponse{
		Success:   false,
		Error:     errorDTO,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}
