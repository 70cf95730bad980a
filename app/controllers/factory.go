package controllers

import (
	"go.uber.org/dig"

	"github.com/aihub/doctools/internal/config"
	"github.com/aihub/doctools/internal/services"
)

// ControllerFactory 控制器工厂
type ControllerFactory struct {
	container *dig.Container
}

// NewControllerFactory 创建控制器工厂
func NewControllerFactory(container *dig.Container) *ControllerFactory {
	return &ControllerFactory{
		container: container,
	}
}

// CreateDocumentController 创建文档控制器
func (f *ControllerFactory) CreateDocumentController() (*DocumentController, error) {
	var ctrl *DocumentController

	err := f.container.Invoke(func(ds *services.DocumentService, cfg *config.Config) {
		ctrl = NewDocumentController(ds, cfg.Upload.MaxSize)
	})
	if err != nil {
		return nil, err
	}

	return ctrl, nil
}

// CreateHealthController 创建健康检查控制器
func (f *ControllerFactory) CreateHealthController() (*HealthController, error) {
	var ctrl *HealthController

	err := f.container.Invoke(func(hs *services.HealthService) {
		ctrl = &HealthController{Service: hs}
	})
	if err != nil {
		return nil, err
	}

	return ctrl, nil
}

// CreateMetricsController 创建指标控制器
func (f *ControllerFactory) CreateMetricsController() (*MetricsController, error) {
	var ctrl *MetricsController

	err := f.container.Invoke(func(ms *services.MetricsService) {
		ctrl = &MetricsController{Service: ms}
	})
	if err != nil {
		return nil, err
	}

	return ctrl, nil
}
