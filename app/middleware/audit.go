package middleware

import (
	"time"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RequestIDKey 请求ID在上下文中的键
	RequestIDKey = "request_id"
	// RequestIDHeader 请求ID响应头
	RequestIDHeader = "X-Request-ID"

	requestStartKey = "request_start"
)

// RequestIDFilter 为每个请求分配ID并记录开始时间；沿用客户端提供的ID
func RequestIDFilter(ctx *context.Context) {
	id := ctx.Input.Header(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	ctx.Input.SetData(RequestIDKey, id)
	ctx.Input.SetData(requestStartKey, time.Now())
	ctx.Output.Header(RequestIDHeader, id)
}

// AccessLogFilter 请求完成后记录访问日志，需以 FinishRouter 且 ReturnOnOutput=false 注册
func AccessLogFilter(logger *zap.Logger) func(*context.Context) {
	return func(ctx *context.Context) {
		status := ctx.ResponseWriter.Status
		if status == 0 {
			status = 200
		}

		fields := []zap.Field{
			zap.String("method", ctx.Input.Method()),
			zap.String("path", ctx.Input.URL()),
			zap.Int("status", status),
			zap.String("remote_addr", ctx.Input.IP()),
			zap.String("user_agent", ctx.Input.UserAgent()),
		}
		if id, ok := ctx.Input.GetData(RequestIDKey).(string); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		if start, ok := ctx.Input.GetData(requestStartKey).(time.Time); ok {
			fields = append(fields, zap.Duration("duration", time.Since(start)))
		}

		switch {
		case status >= 500:
			logger.Error("Request completed", fields...)
		case status >= 400:
			logger.Warn("Request completed", fields...)
		default:
			logger.Info("Request completed", fields...)
		}
	}
}
