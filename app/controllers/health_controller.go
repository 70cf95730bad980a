package controllers

import (
	"net/http"

	"github.com/aihub/doctools/internal/services"
)

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
	Service *services.HealthService
}

// Health 返回服务及组件状态
func (c *HealthController) Health() {
	if c.Service == nil {
		c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	c.JSON(http.StatusOK, c.Service.Check(c.Ctx.Request.Context()))
}
