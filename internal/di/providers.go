package di

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aihub/doctools/internal/config"
	"github.com/aihub/doctools/internal/convert"
	"github.com/aihub/doctools/internal/errors"
	"github.com/aihub/doctools/internal/logger"
	"github.com/aihub/doctools/internal/markdown"
	"github.com/aihub/doctools/internal/services"
	"github.com/aihub/doctools/internal/storage"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	providers := []interface{}{
		// 配置与日志
		func() *config.Config { return cfg },
		func() *zap.Logger { return logger.GetLogger() },

		services.NewMetricsService,
		newObjectStore,
		newImageSource,
		newImporter,

		// 转换器
		newPDFConverter,
		func(cfg *config.Config) *convert.Office {
			return convert.NewOffice(cfg.Convert.LibreOfficePath, cfg.Upload.TempDir, cfg.Convert.Timeout)
		},

		newDocumentService,
		newHealthService,
		errors.NewErrorHandler,
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

// newObjectStore 未配置对象存储时返回nil
func newObjectStore(cfg *config.Config) (*storage.MinIOStore, error) {
	if !cfg.Storage.Enabled() {
		return nil, nil
	}
	store, err := storage.NewMinIOStore(cfg.Storage, cfg.Importer.MaxImageSize)
	if err != nil {
		return nil, err
	}
	logger.Info("Object storage enabled for image references",
		zap.String("provider", cfg.Storage.Provider),
		zap.String("endpoint", cfg.Storage.Endpoint),
	)
	return store, nil
}

func newImageSource(cfg *config.Config, store *storage.MinIOStore) markdown.ImageSource {
	sources := markdown.DefaultSources(http.DefaultClient, cfg.Importer.MaxImageSize)
	if store != nil {
		sources["s3"] = &markdown.ObjectSource{Store: store}
	}
	return sources
}

func newImporter(cfg *config.Config, source markdown.ImageSource) *markdown.Importer {
	return markdown.NewImporter(source,
		markdown.WithImageWidth(cfg.Importer.ImageWidth),
		markdown.WithFetchTimeout(cfg.Importer.FetchTimeout),
	)
}

// newPDFConverter unipdf提取文本需要许可证，未配置时返回nil，PDF转DOCX按未开启处理
func newPDFConverter(cfg *config.Config) *convert.PDF {
	if cfg.Unidoc.LicenseKey == "" {
		return nil
	}
	return convert.NewPDF()
}

func newDocumentService(cfg *config.Config, importer *markdown.Importer, pdf *convert.PDF, office *convert.Office, metrics *services.MetricsService) *services.DocumentService {
	// 避免将nil指针包装为非nil接口
	var pdfConv services.PDFConverter
	if pdf != nil {
		pdfConv = pdf
	}
	return services.NewDocumentService(importer, pdfConv, office, cfg.Convert.PDFEnabled, metrics)
}

func newHealthService(cfg *config.Config, office *convert.Office, store *storage.MinIOStore) *services.HealthService {
	// 避免将nil指针包装为非nil接口
	var probe services.StorageProbe
	if store != nil {
		probe = store
	}
	return services.NewHealthService(office, probe, cfg.Convert.PDFEnabled)
}

// Build 创建新的容器并注册全部依赖；容器由调用方持有，不设全局实例
func Build(cfg *config.Config) (*dig.Container, error) {
	container := dig.New()
	if err := RegisterProviders(container, cfg); err != nil {
		return nil, err
	}
	return container, nil
}

// Ping 检查对象存储连接，未配置时直接返回
func Ping(ctx context.Context, container *dig.Container) error {
	return container.Invoke(func(store *storage.MinIOStore) error {
		if store == nil {
			return nil
		}
		return store.HealthCheck(ctx)
	})
}
