package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/beego/beego/v2/server/web"
	"github.com/beego/beego/v2/server/web/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestHandlers(t *testing.T, logger *zap.Logger, opts Options) *web.ControllerRegister {
	t.Helper()
	handlers := web.NewControllerRegister()
	require.NoError(t, NewMiddlewareManager(logger, opts).Apply(handlers))
	handlers.Get("/ping", func(ctx *context.Context) {
		_ = ctx.Output.Body([]byte("pong"))
	})
	handlers.Get("/missing", func(ctx *context.Context) {
		ctx.Output.SetStatus(http.StatusNotFound)
		_ = ctx.Output.Body([]byte("nope"))
	})
	return handlers
}

func TestRequestIDFilter(t *testing.T) {
	handlers := newTestHandlers(t, nil, Options{})

	rec := httptest.NewRecorder()
	handlers.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "pong", rec.Body.String())
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rec = httptest.NewRecorder()
	handlers.ServeHTTP(rec, req)
	assert.Equal(t, "client-id", rec.Header().Get(RequestIDHeader))
}

func TestSecurityHeaders(t *testing.T) {
	handlers := newTestHandlers(t, nil, Options{})

	rec := httptest.NewRecorder()
	handlers.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	for key, value := range securityHeaders {
		assert.Equal(t, value, rec.Header().Get(key), key)
	}
}

func TestCORSMiddleware(t *testing.T) {
	handlers := newTestHandlers(t, nil, Options{AllowedOrigins: []string{"https://app.example.com"}})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		handlers.ServeHTTP(rec, req)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	})

	t.Run("rejected origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handlers.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		handlers.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestAccessLogFilter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handlers := newTestHandlers(t, zap.New(core), Options{AccessLog: true})

	rec := httptest.NewRecorder()
	handlers.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	rec = httptest.NewRecorder()
	handlers.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.FilterMessage("Request completed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	fields := entries[1].ContextMap()
	assert.Equal(t, "/missing", fields["path"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
