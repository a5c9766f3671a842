// middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates event streams. Browsers' EventSource cannot
// set headers, so the access token may come in the `token` query parameter.
//
// Usage:
//
//	app.Get("/me/events", middleware.SSEAuthMiddleware(verifier), events.Stream)
func SSEAuthMiddleware(v *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			log.Printf("[SSEAuth] ❌ Missing token for %s from %s", c.Path(), c.IP())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}

		claims, err := v.Verify(token)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed (prefix: %s...): %v", token[:min(10, len(token))], err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		setIdentity(c, claims, token)
		log.Printf("[SSEAuth] ✅ Authenticated user %s", claims.Subject)
		return c.Next()
	}
}
