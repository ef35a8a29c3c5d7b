package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/example/payzen/internal/config"
	"github.com/example/payzen/internal/database"
	"github.com/example/payzen/internal/routes"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	app := fiber.New(fiber.Config{
		AppName: "PayZen Payment Server",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, cfg, zapLogger)

	zapLogger.Info("starting server", zap.String("port", cfg.AppPort))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		zapLogger.Fatal("fiber listen error", zap.Error(err))
	}
}
