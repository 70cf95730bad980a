package router

import (
	"github.com/aihub/doctools/app/controllers"
	"github.com/beego/beego/v2/server/web"
)

// Init 在默认beego应用上注册全部路由，需在配置加载后调用
func Init(factory *controllers.ControllerFactory, metricsPath string) error {
	return Register(web.BeeApp.Handlers, factory, metricsPath)
}

// Register 注册API路由；metricsPath为空时不暴露指标端点
func Register(handlers *web.ControllerRegister, factory *controllers.ControllerFactory, metricsPath string) error {
	docController, err := factory.CreateDocumentController()
	if err != nil {
		return err
	}
	healthController, err := factory.CreateHealthController()
	if err != nil {
		return err
	}

	add := func(pattern string, c web.ControllerInterface, mapping string) {
		handlers.Add(pattern, c, web.WithRouterMethods(c, mapping))
	}

	add("/", docController, "get:Index;post:Dispatch")
	add("/health", healthController, "get:Health")

	// 文档处理接口
	add("/api/replace", docController, "post:Replace")
	add("/api/metadata", docController, "post:Metadata")
	add("/api/text", docController, "post:Text")
	add("/api/images", docController, "post:Images")
	add("/api/tables", docController, "post:Tables")
	add("/api/generate", docController, "post:Generate")
	add("/api/docx-to-md", docController, "post:DocxToMarkdown")
	add("/api/pdf-to-docx", docController, "post:PDFToDocx")
	add("/api/docx-to-pdf", docController, "post:DocxToPDF")

	if metricsPath != "" {
		metricsController, err := factory.CreateMetricsController()
		if err != nil {
			return err
		}
		add(metricsPath, metricsController, "get:Metrics")
	}
	return nil
}
