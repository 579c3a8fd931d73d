package middleware

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns a fixed-window rate limiter backed by Redis INCR,
// scoped by name so different endpoints keep separate budgets. When the
// Redis client is nil (tests, local development without Redis) the
// middleware is a pass-through.
func RateLimit(rdb *redis.Client, max int, window time.Duration, scope string) fiber.Handler {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = time.Minute
	}

	return func(c *fiber.Ctx) error {
		if rdb == nil {
			return c.Next()
		}

		ctx := c.UserContext()
		slot := time.Now().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, c.IP(), slot)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down should not take the API with it.
			Logger.WarnContext(ctx, "rate limiter unavailable", slog.String("error", err.Error()))
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		remaining := max - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > max {
			c.Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		}

		return c.Next()
	}
}
