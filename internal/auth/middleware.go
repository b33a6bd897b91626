package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/akulinin/mediascore/internal/db"
	"github.com/akulinin/mediascore/internal/models"
	"github.com/akulinin/mediascore/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserCacheTTL bounds how stale a cached account may get before the next
// DB read. Mutating user handlers invalidate eagerly.
const UserCacheTTL = 30 * time.Minute

// Options carries the middleware dependencies. Rclient may be nil, which
// disables the cache and reads straight from the database.
type Options struct {
	DB      *gorm.DB
	Rclient *db.RedisClient
	Logger  *logger.Logger
}

// UserCacheKey is the Redis key for a cached account record.
func UserCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// InvalidateUser drops a cached account record. Safe with a nil client.
func InvalidateUser(ctx context.Context, rclient *db.RedisClient, id uint) {
	if rclient == nil {
		return
	}
	rclient.Del(ctx, UserCacheKey(id))
}

// New returns the authentication middleware. A missing Authorization header
// leaves the request anonymous; a present but invalid bearer token is
// rejected with 401 regardless of the endpoint. On success the account is
// stored in locals for the permission checks downstream.
func New(opt Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid Authorization header.",
			})
		}

		claims, err := VerifyToken(parts[1])
		if err != nil {
			opt.Logger.Warn(c.UserContext()).WithFields(err).Logs("Access token rejected: %v")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid token.",
			})
		}

		user, err := loadUser(c.UserContext(), opt, claims.UserID)
		if err != nil {
			opt.Logger.Warn(c.UserContext()).WithFields(claims.UserID).Logs("Token for unknown user %d")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "User not found.",
			})
		}

		c.Locals("user", user)
		c.Locals("user_id", fmt.Sprintf("%d", user.ID))
		return c.Next()
	}
}

// CurrentUser returns the authenticated account, or nil for anonymous
// requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// loadUser fetches an account by id, preferring the Redis cache.
func loadUser(ctx context.Context, opt Options, id uint) (*models.User, error) {
	key := UserCacheKey(id)

	if opt.Rclient != nil {
		if cached, err := opt.Rclient.Get(ctx, key).Result(); err == nil && cached != "" {
			user := &models.User{}
			if err := json.Unmarshal([]byte(cached), user); err == nil {
				return user, nil
			}
			opt.Logger.Warn(ctx).Logs("Failed to unmarshal cached user, falling back to DB")
		}
	}

	var user models.User
	if err := opt.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}

	if opt.Rclient != nil {
		if data, err := json.Marshal(&user); err == nil {
			if err := opt.Rclient.Set(ctx, key, data, UserCacheTTL).Err(); err != nil {
				opt.Logger.Warn(ctx).WithFields(err).Logs("Failed to cache user: %v")
			}
		}
	}

	return &user, nil
}
