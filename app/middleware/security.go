package middleware

import (
	"github.com/beego/beego/v2/server/web/context"
)

// securityHeaders 所有响应附带的安全头
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

// SecurityHeaders 安全头中间件
func SecurityHeaders(ctx *context.Context) {
	for key, value := range securityHeaders {
		ctx.Output.Header(key, value)
	}
}
