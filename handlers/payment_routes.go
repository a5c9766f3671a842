// handlers/payment_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"watch-rewards-system/middleware"
	"watch-rewards-system/services"
)

func SetupPaymentRoutes(app *fiber.App, verifier *middleware.TokenVerifier, payments *services.PaymentService) {
	app.Post("/payments", middleware.RequireAuth(verifier), func(c *fiber.Ctx) error {
		var req services.PaymentRequestInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		payment, err := payments.CreatePaymentRequest(c.UserContext(), middleware.UserID(c), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(payment)
	})
}
