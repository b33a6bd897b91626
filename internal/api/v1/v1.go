package v1

import (
	"strings"
	"time"

	"github.com/akulinin/mediascore/internal/auth"
	"github.com/akulinin/mediascore/internal/config"
	"github.com/akulinin/mediascore/internal/db"
	"github.com/akulinin/mediascore/pkg/logger"
	"github.com/akulinin/mediascore/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	Redis     *db.RedisClient
	Logger    *logger.Logger
	Validator = utils.NewValidator()
	EmailCfg  utils.EmailConfig
	PageSize  = 10
)

// Setup wires the handler package to its runtime dependencies.
func Setup(gdb *gorm.DB, rclient *db.RedisClient, log *logger.Logger, cfg *config.Config) {
	DB = gdb
	Redis = rclient
	Logger = log
	EmailCfg = utils.EmailConfig{
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
		AppURL:       cfg.AppURL,
		FromEmail:    cfg.FromEmail,
	}
	if cfg.PageSize > 0 {
		PageSize = cfg.PageSize
	}
	auth.Configure(cfg.JWTSecret, cfg.TokenTTL)
}

// Register binds every v1 endpoint. The authentication middleware must
// already be installed on the app.
func Register(app fiber.Router) {
	v := app.Group("/v1")

	v.Post("/auth/signup", Signup)
	v.Post("/auth/token", IssueToken)

	v.Get("/categories", ListCategories)
	v.Post("/categories", CreateCategory)
	v.Delete("/categories/:slug", DeleteCategory)

	v.Get("/genres", ListGenres)
	v.Post("/genres", CreateGenre)
	v.Delete("/genres/:slug", DeleteGenre)

	v.Get("/titles", ListTitles)
	v.Post("/titles", CreateTitle)

	v.Get("/titles/:title_id/reviews", ListReviews)
	v.Post("/titles/:title_id/reviews", CreateReview)
	v.Get("/titles/:title_id/reviews/:review_id/comments", ListComments)
	v.Post("/titles/:title_id/reviews/:review_id/comments", CreateComment)
	v.Get("/titles/:title_id/reviews/:review_id/comments/:id", GetComment)
	v.Patch("/titles/:title_id/reviews/:review_id/comments/:id", UpdateComment)
	v.Delete("/titles/:title_id/reviews/:review_id/comments/:id", DeleteComment)
	v.Get("/titles/:title_id/reviews/:id", GetReview)
	v.Patch("/titles/:title_id/reviews/:id", UpdateReview)
	v.Delete("/titles/:title_id/reviews/:id", DeleteReview)

	v.Get("/titles/:id", GetTitle)
	v.Patch("/titles/:id", UpdateTitle)
	v.Delete("/titles/:id", DeleteTitle)

	// "me" must be registered ahead of the :username routes.
	v.Get("/users/me", Me)
	v.Patch("/users/me", UpdateMe)
	v.Get("/users", ListUsers)
	v.Post("/users", CreateUser)
	v.Get("/users/:username", GetUser)
	v.Patch("/users/:username", UpdateUser)
	v.Delete("/users/:username", DeleteUser)
}

// deny writes a rejected authorization decision.
func deny(c *fiber.Ctx, d *auth.Deny) error {
	return c.Status(d.Status).JSON(fiber.Map{"detail": d.Detail})
}

// notFound writes the standard 404 body.
func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Not found."})
}

// parseError writes the standard malformed-body response.
func parseError(c *fiber.Ctx, err error) error {
	Logger.Warn(c.UserContext()).WithFields(err).Logs("Failed to parse request body: %v")
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "JSON parse error."})
}

// fieldErrors writes collected validation failures as a 400 response.
func fieldErrors(c *fiber.Ctx, fe utils.FieldErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(fe)
}

// isDuplicate detects a uniqueness-constraint violation from the store.
// The constraint, not the pre-check, is the authoritative duplicate guard.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// formatPubDate renders timestamps the way the API serializes them.
func formatPubDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z07:00")
}
