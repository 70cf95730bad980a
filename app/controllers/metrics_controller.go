package controllers

import (
	"net/http"

	"github.com/aihub/doctools/internal/services"
	"github.com/beego/beego/v2/server/web"
)

// MetricsController 指标控制器
type MetricsController struct {
	web.Controller
	Service *services.MetricsService
}

// Metrics 返回Prometheus格式的指标
func (c *MetricsController) Metrics() {
	if c.Service == nil {
		c.Ctx.Output.SetStatus(http.StatusNotFound)
		c.Ctx.Output.Body([]byte("metrics disabled\n"))
		return
	}
	// 使用指标服务的处理器
	c.Service.ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
