// handlers/internal_routes.go
package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"watch-rewards-system/middleware"
)

// Sweeper runs one orphan sweep and reports how many identities it removed.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

func SetupInternalRoutes(app *fiber.App, serviceToken string, sweeper Sweeper) {
	internal := app.Group("/internal", middleware.ServiceTokenMiddleware(serviceToken))

	internal.Post("/sweep-orphans", func(c *fiber.Ctx) error {
		deleted, err := sweeper.Sweep(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"deleted": deleted})
	})
}
