package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	routes "github.com/akulinin/mediascore/internal/api"
	"github.com/akulinin/mediascore/internal/config"
	"github.com/akulinin/mediascore/internal/db"
	"github.com/akulinin/mediascore/internal/models"
	"github.com/akulinin/mediascore/pkg/logger"
	"github.com/akulinin/mediascore/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	log, err := logger.NewLogger()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// Redis is optional: without it the service skips the user cache.
	var redisClient *db.RedisClient
	if cfg.RedisAddr != "" {
		redisClient, err = db.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Redis unavailable, running without cache")
			redisClient = nil
		}
	}

	gormDB, err := db.NewDB(
		ctx,
		cfg.DSN(),
		models.All(),
		db.WithLogger(log),
		models.SetupJoinTables,
	)
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize PostgreSQL database")
		panic("DB init failed")
	}
	defer db.CloseDB(log)

	app := fiber.New(fiber.Config{
		AppName: "mediascore",
	})

	routes.NewRoutes(ctx, app, cfg, gormDB, log, redisClient)

	go func() {
		<-ctx.Done()
		log.Info(context.Background()).Logs("Shutting down")
		app.Shutdown()
	}()

	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Error(context.Background()).WithMeta(utils.Map{"error": err.Error()}).Logs("Server stopped")
	}
}
