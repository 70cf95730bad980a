package bootstrap

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/aihub/doctools/app/controllers"
	"github.com/aihub/doctools/app/middleware"
	"github.com/aihub/doctools/app/router"
	"github.com/aihub/doctools/internal/config"
	"github.com/aihub/doctools/internal/di"
	"github.com/aihub/doctools/internal/docx"
	apperrors "github.com/aihub/doctools/internal/errors"
	"github.com/aihub/doctools/internal/logger"
	"github.com/beego/beego/v2/server/web"
	beecontext "github.com/beego/beego/v2/server/web/context"
	"github.com/joho/godotenv"
	officelicense "github.com/unidoc/unioffice/common/license"
	pdflicense "github.com/unidoc/unipdf/v3/common/license"
	"go.uber.org/dig"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// App 持有关闭时需要清理的资源
type App struct {
	Config    *config.Config
	Container *dig.Container

	cleanupTasks []func() error
}

// Init 初始化配置、日志与依赖容器
func Init() (*App, error) {
	// 加载.env（不存在时忽略）
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	if err := logger.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		return nil, err
	}

	app := &App{Config: cfg}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		return logger.Sync()
	})

	ApplyLicense(cfg.Unidoc.LicenseKey)

	if cfg.Upload.TempDir != "" {
		if err := os.MkdirAll(cfg.Upload.TempDir, 0o750); err != nil {
			return nil, err
		}
	}

	container, err := di.Build(cfg)
	if err != nil {
		return nil, err
	}
	app.Container = container

	// 对象存储不可用时仍可启动，s3:// 图片会降级为占位段落
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := di.Ping(ctx, container); err != nil {
		logger.Warn("Object storage is not reachable", zap.Error(err))
	}

	configureBeego(cfg)

	logger.Info("Application bootstrapped",
		zap.String("env", cfg.Server.Env),
		zap.Bool("pdf_enabled", cfg.Convert.PDFEnabled),
		zap.Bool("object_storage", cfg.Storage.Enabled()),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)
	return app, nil
}

// RegisterRoutes 注册中间件与路由
func (a *App) RegisterRoutes(handlers *web.ControllerRegister) error {
	mm := middleware.NewMiddlewareManager(logger.GetLogger(), middleware.Options{
		AccessLog: true,
	})
	if err := mm.Apply(handlers); err != nil {
		return err
	}

	if err := a.Container.Invoke(func(h *apperrors.ErrorHandler) {
		web.BConfig.RecoverFunc = recoverWith(h)
	}); err != nil {
		return err
	}

	metricsPath := ""
	if a.Config.Metrics.Enabled {
		metricsPath = a.Config.Metrics.Path
	}
	return router.Register(handlers, controllers.NewControllerFactory(a.Container), metricsPath)
}

// Shutdown 刷新日志并关闭资源，返回全部清理错误
func (a *App) Shutdown() error {
	var err error
	// 逆序执行清理
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.cleanupTasks[i]())
	}
	return err
}

// recoverWith 将panic转换为统一的JSON错误响应
func recoverWith(h *apperrors.ErrorHandler) func(*beecontext.Context, *web.Config) {
	return func(ctx *beecontext.Context, _ *web.Config) {
		rec := recover()
		if rec == nil || rec == web.ErrAbort {
			return
		}
		if ctx.ResponseWriter.Started {
			logger.Error("Panic after response started", zap.Any("panic", rec), zap.String("path", ctx.Request.URL.Path))
			return
		}
		h.HandlePanic(ctx.ResponseWriter, ctx.Request, rec)
	}
}

func configureBeego(cfg *config.Config) {
	web.BConfig.AppName = "doctools"
	web.BConfig.WebConfig.AutoRender = false
	web.BConfig.CopyRequestBody = true
	web.BConfig.RecoverPanic = true
	if cfg.Server.Env == "production" {
		web.BConfig.RunMode = web.PROD
	}

	if port, err := strconv.Atoi(cfg.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	// multipart 请求体包含所有字段，给上传上限留出余量
	web.BConfig.MaxUploadSize = cfg.Upload.MaxSize * 2
	web.BConfig.MaxMemory = cfg.Upload.MaxSize
}

// ApplyLicense 为 unioffice 与 unipdf 设置计量许可证
// 未配置时新建文档直接写出OOXML，PDF转DOCX不可用
func ApplyLicense(key string) {
	docx.UseOffice(false)
	if key == "" {
		logger.Info("UNIDOC_LICENSE_API_KEY is not set, PDF to DOCX conversion is disabled")
		return
	}
	if err := officelicense.SetMeteredKey(key); err != nil {
		logger.Error("Failed to set unioffice license", zap.Error(err))
	} else {
		docx.UseOffice(true)
	}
	if err := pdflicense.SetMeteredKey(key); err != nil {
		logger.Error("Failed to set unipdf license", zap.Error(err))
	}
}
