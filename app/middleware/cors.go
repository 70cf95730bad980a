package middleware

import (
	"net/http"

	"github.com/beego/beego/v2/server/web/context"
)

// CORSMiddleware CORS中间件；allowedOrigins 为空时允许所有来源
func CORSMiddleware(allowedOrigins []string) func(*context.Context) {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(ctx *context.Context) {
		origin := ctx.Input.Header("Origin")
		if origin == "" {
			// 同源请求
			return
		}
		if !allowAll && !allowed[origin] {
			return
		}

		ctx.Output.Header("Access-Control-Allow-Origin", origin)
		ctx.Output.Header("Vary", "Origin")
		ctx.Output.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		ctx.Output.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, "+RequestIDHeader)
		ctx.Output.Header("Access-Control-Expose-Headers", "Content-Disposition, "+RequestIDHeader)
		ctx.Output.Header("Access-Control-Max-Age", "3600")

		// 处理OPTIONS预检请求
		if ctx.Input.Method() == http.MethodOptions {
			ctx.Output.SetStatus(http.StatusNoContent)
			ctx.Output.Body([]byte(""))
		}
	}
}
