package services

import (
	"context"
	"time"
)

// OfficeProbe 检查LibreOffice是否可用
type OfficeProbe interface {
	Available() bool
}

// StorageProbe 检查对象存储是否可用
type StorageProbe interface {
	HealthCheck(ctx context.Context) error
}

// HealthService 健康检查服务
type HealthService struct {
	office     OfficeProbe
	storage    StorageProbe
	pdfEnabled bool
}

// NewHealthService 创建健康检查服务；storage 为nil表示未配置对象存储
func NewHealthService(office OfficeProbe, storage StorageProbe, pdfEnabled bool) *HealthService {
	return &HealthService{office: office, storage: storage, pdfEnabled: pdfEnabled}
}

// Check 返回服务状态及各组件状态，组件故障不影响整体的 "ok"
func (s *HealthService) Check(ctx context.Context) map[string]interface{} {
	components := map[string]string{}

	switch {
	case !s.pdfEnabled:
		components["libreoffice"] = "disabled"
	case s.office != nil && s.office.Available():
		components["libreoffice"] = "available"
	default:
		components["libreoffice"] = "unavailable"
	}

	if s.storage == nil {
		components["storage"] = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.storage.HealthCheck(ctx); err != nil {
			components["storage"] = "unhealthy: " + err.Error()
		} else {
			components["storage"] = "healthy"
		}
	}

	return map[string]interface{}{
		"status":     "ok",
		"components": components,
	}
}
