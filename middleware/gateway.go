// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenMiddleware guards internal endpoints called by other services
// or cron with a shared token. With no token configured every request is
// refused.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Printf("⚠️ [SERVICE_AUTH] INTERNAL_SERVICE_TOKEN is not set, internal routes are disabled")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Printf("🚫 [SERVICE_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service token missing",
			})
		}

		// Accept "Bearer <token>" or the raw token.
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Printf("❌ [SERVICE_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}
		return c.Next()
	}
}
