package controllers

import (
	"mime"
	"net/http"

	"github.com/aihub/doctools/app/middleware"
	apperrors "github.com/aihub/doctools/internal/errors"
	"github.com/aihub/doctools/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

// BaseController 统一JSON响应的基础控制器
type BaseController struct {
	web.Controller
}

// JSON 以指定状态码输出JSON
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess 输出标准成功响应
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONResult 输出 {"success": true, key: value}
func (c *BaseController) JSONResult(key string, value interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		key:       value,
	})
}

// JSONError 输出带错误信息的失败响应
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// Fail 将错误转换为AppError并写出错误响应
func (c *BaseController) Fail(err error) {
	appErr := apperrors.Translate(err)
	if id, ok := c.Ctx.Input.GetData(middleware.RequestIDKey).(string); ok {
		appErr = appErr.WithRequestID(id)
	}

	fields := []zap.Field{
		zap.String("code", string(appErr.Code)),
		zap.Int("status", appErr.HTTPCode),
		zap.String("path", c.Ctx.Request.URL.Path),
		zap.String("request_id", appErr.RequestID),
	}
	if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.Error(appErr.Message, append(fields, zap.NamedError("cause", appErr.Cause))...)
	} else {
		logger.Debug(appErr.Message, fields...)
	}

	c.JSONError(appErr.HTTPCode, appErr.Message)
}

// Attachment 以附件形式返回文件
func (c *BaseController) Attachment(filename, contentType string, data []byte) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Ctx.Output.Header("Content-Type", contentType)
	c.Ctx.Output.Header("Content-Disposition", disposition)
	c.Ctx.Output.SetStatus(http.StatusOK)
	if err := c.Ctx.Output.Body(data); err != nil {
		logger.Warn("Failed to write attachment", zap.String("filename", filename), zap.Error(err))
	}
}
