package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const sendRateLimitPrefix = "rl:send:"

// SendRateLimit caps payment submissions per client IP per minute using a
// Redis counter. Without Redis, or when Redis fails, requests pass.
func SendRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		key := sendRateLimitPrefix + c.IP()
		ctx := c.UserContext()

		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("send rate limit unavailable", slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, time.Minute)
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(maxPerMin))
		if cnt > int64(maxPerMin) {
			if ttl, err := cache.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds())+1))
			}
			return fiber.NewError(http.StatusTooManyRequests, "too many payment requests, try again later")
		}
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(int64(maxPerMin)-cnt, 10))
		return c.Next()
	}
}
