package main

import (
	"log"

	"github.com/aihub/doctools/app/bootstrap"
	"github.com/aihub/doctools/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer func() {
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := app.RegisterRoutes(web.BeeApp.Handlers); err != nil {
		logger.Fatal("Failed to register routes", zap.Error(err))
	}

	logger.Info("Starting document tools service", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
