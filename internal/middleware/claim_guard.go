package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const claimGuardPrefix = "claim:inflight:"

// ClaimGuard allows one in-flight claim per identity. A second claim arriving
// while the first is still processing is rejected instead of raced; the
// reservation is released when the response is written, and the TTL bounds it
// if the server dies mid-request.
func ClaimGuard(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}

		var req struct {
			UserID string `json:"user_id"`
		}
		_ = c.BodyParser(&req)
		if req.UserID == "" {
			return c.Next()
		}

		key := claimGuardPrefix + req.UserID

		acquired, err := cache.SetNX(c.UserContext(), key, 1, ttl).Result()
		if err != nil {
			// Fail-open: the ledger decrement stays correct without the guard.
			logger.Warn("claim guard unavailable", slog.Any("error", err))
			return c.Next()
		}
		if !acquired {
			return c.Status(http.StatusConflict).JSON(fiber.Map{
				"status":  "failed",
				"message": "Permintaan antrean sebelumnya masih diproses",
			})
		}

		defer func() {
			if err := cache.Del(c.UserContext(), key).Err(); err != nil {
				logger.Warn("claim guard release failed", slog.String("user_id", req.UserID), slog.Any("error", err))
			}
		}()

		return c.Next()
	}
}
