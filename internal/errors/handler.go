package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
)

// Envelope 对外的错误响应体
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ErrorHandler 错误处理器
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler 创建错误处理器
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger}
}

// Handle 将错误写为 {"success":false,"error":msg}
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	appErr := Translate(err)
	h.Log(r, appErr)

	body, jsonErr := json.Marshal(Envelope{Success: false, Error: appErr.Message})
	if jsonErr != nil {
		h.logger.Error("Failed to marshal error response", zap.Error(jsonErr))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"success":false,"error":%q}`, MsgInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPCode)
	w.Write(body)
}

// HandlePanic 处理panic并转换为错误响应
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	h.logger.Error("Panic recovered",
		zap.Any("panic", recovered),
		zap.String("path", r.URL.Path),
		zap.ByteString("stack", debug.Stack()),
	)
	h.Handle(w, r, NewSystemError(ErrCodeInternalServer, MsgInternalServerError))
}

// Log 按错误类型选择日志级别
func (h *ErrorHandler) Log(r *http.Request, appErr *AppError) {
	fields := []zap.Field{
		zap.String("error_code", string(appErr.Code)),
		zap.String("error_type", appErr.Type.String()),
		zap.Int("http_code", appErr.HTTPCode),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", ClientIP(r)),
	}
	if appErr.RequestID != "" {
		fields = append(fields, zap.String("request_id", appErr.RequestID))
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.NamedError("cause", appErr.Cause))
	}

	switch appErr.Type {
	case ErrorTypeSystem:
		h.logger.Error(appErr.Message, fields...)
	case ErrorTypeBusiness, ErrorTypeExternal:
		h.logger.Warn(appErr.Message, fields...)
	default:
		h.logger.Info(appErr.Message, fields...)
	}
}

// ClientIP 获取客户端IP地址
func ClientIP(r *http.Request) string {
	// 检查X-Forwarded-For头（代理服务器）
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx > 0 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}
