package handler

import (
	"errors"
	"net/http"

	"github.com/sshcollectorpro/netdev/internal/service"
	"github.com/sshcollectorpro/netdev/pkg/netdev/cisco/asa"
	"github.com/sshcollectorpro/netdev/pkg/ssh"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// errorStatus 把领域错误映射为 HTTP 状态码与错误码
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, service.ErrDeviceNotFound):
		return http.StatusNotFound, "DEVICE_NOT_FOUND"
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_PARAMS"
	case errors.Is(err, service.ErrUnsupportedPlatform):
		return http.StatusBadRequest, "UNSUPPORTED_PLATFORM"
	case errors.Is(err, service.ErrSessionLimit):
		return http.StatusTooManyRequests, "SESSION_LIMIT"
	case errors.Is(err, asa.ErrSingleMode):
		return http.StatusConflict, "SINGLE_MODE"
	case errors.Is(err, asa.ErrContextMismatch):
		return http.StatusConflict, "CONTEXT_MISMATCH"
	case errors.Is(err, asa.ErrSessionNotReady):
		return http.StatusConflict, "SESSION_NOT_READY"
	case errors.Is(err, asa.ErrMalformedPrompt):
		return http.StatusBadGateway, "MALFORMED_PROMPT"
	case errors.Is(err, ssh.ErrEnableFailed):
		return http.StatusBadGateway, "ENABLE_FAILED"
	case errors.Is(err, ssh.ErrTransport):
		return http.StatusBadGateway, "TRANSPORT_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func errorResponse(err error, data interface{}) (int, ErrorResponse) {
	status, code := errorStatus(err)
	return status, ErrorResponse{Code: code, Message: err.Error(), Data: data}
}
