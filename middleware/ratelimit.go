package middleware

import (
	"errors"
	"log"
	"math"
	"strconv"

	"github.com/go-redis/redis_rate/v10"
	"github.com/gofiber/fiber/v2"

	"watch-rewards-system/redisstore"
)

// RateLimit allows perMinute requests per client IP for the routes it wraps.
// A nil limiter or a non-positive rate disables it. Limiter outages let the
// request through.
func RateLimit(limiter redisstore.Limiter, scope string, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil || perMinute <= 0 {
			return c.Next()
		}

		key := "ratelimit:" + scope + ":" + c.IP()
		err := limiter.Allow(c.UserContext(), key, redis_rate.PerMinute(perMinute))
		var limited *redisstore.RateLimitError
		switch {
		case err == nil:
			return c.Next()
		case errors.As(err, &limited):
			retry := int(math.Ceil(limited.RetryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(max(retry, 1)))
			log.Printf("🚦 [RATE_LIMIT] %s exceeded %d/min on %s", c.IP(), perMinute, scope)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
			})
		default:
			log.Printf("⚠️ [RATE_LIMIT] limiter unavailable, allowing %s: %v", c.IP(), err)
			return c.Next()
		}
	}
}
