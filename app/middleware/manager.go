package middleware

import (
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

// Options 中间件配置
type Options struct {
	// AllowedOrigins CORS允许的来源，为空时允许所有来源
	AllowedOrigins []string
	// AccessLog 是否记录访问日志
	AccessLog bool
}

// MiddlewareManager 中间件管理器
type MiddlewareManager struct {
	logger *zap.Logger
	opts   Options
}

// NewMiddlewareManager 创建中间件管理器
func NewMiddlewareManager(logger *zap.Logger, opts Options) *MiddlewareManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MiddlewareManager{logger: logger, opts: opts}
}

// Apply 在给定的路由注册器上注册所有过滤器
func (mm *MiddlewareManager) Apply(handlers *web.ControllerRegister) error {
	if err := handlers.InsertFilter("/*", web.BeforeRouter, RequestIDFilter); err != nil {
		return err
	}
	if err := handlers.InsertFilter("/*", web.BeforeRouter, SecurityHeaders); err != nil {
		return err
	}
	if err := handlers.InsertFilter("/*", web.BeforeRouter, CORSMiddleware(mm.opts.AllowedOrigins)); err != nil {
		return err
	}
	if mm.opts.AccessLog {
		if err := handlers.InsertFilter("/*", web.FinishRouter, AccessLogFilter(mm.logger), web.WithReturnOnOutput(false)); err != nil {
			return err
		}
	}
	return nil
}
