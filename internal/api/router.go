package routes

import (
	"context"
	"time"

	v1 "github.com/akulinin/mediascore/internal/api/v1"
	"github.com/akulinin/mediascore/internal/auth"
	"github.com/akulinin/mediascore/internal/config"
	"github.com/akulinin/mediascore/internal/db"
	"github.com/akulinin/mediascore/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// NewRoutes installs the middleware chain and every API endpoint on app.
// rclient may be nil; the service then runs without the user cache.
func NewRoutes(ctx context.Context, app *fiber.App, cfg *config.Config, gdb *gorm.DB, log *logger.Logger, rclient *db.RedisClient) {
	app.Use(
		logger.SetupLogger(log),
		recover.New(),
		cors.New(
			cors.Config{
				AllowCredentials: false,
				AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			},
		),
		compress.New(
			compress.Config{
				Level: compress.LevelBestSpeed,
			},
		),
		limiter.New(
			limiter.Config{
				Expiration: 1 * time.Minute,
				Max:        100,
				KeyGenerator: func(c *fiber.Ctx) string {
					return c.IP()
				},
			},
		),
	)
	app.Use(log.Middleware())

	app.Use(auth.New(auth.Options{DB: gdb, Rclient: rclient, Logger: log}))

	v1.Setup(gdb, rclient, log, cfg)
	v1.Register(app)

	go func() {
		<-ctx.Done()
		rclient.Close(log)
		log.Close()
	}()
}
