// handlers/admin_routes.go
package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"watch-rewards-system/middleware"
	"watch-rewards-system/models"
	"watch-rewards-system/services"
	"watch-rewards-system/store"
)

type AdminRoutesConfig struct {
	Verifier  *middleware.TokenVerifier
	Profiles  *services.ProfileService
	Admin     *services.AdminService
	Ledger    *services.CoinLedger
	Campaigns *services.CampaignService
	Payments  *services.PaymentService
}

func SetupAdminRoutes(app *fiber.App, cfg AdminRoutesConfig) {
	// 🔒 Admin-only routes
	admin := app.Group("/admin", middleware.RequireAuth(cfg.Verifier), middleware.RequireAdmin(cfg.Profiles))

	admin.Get("/users", func(c *fiber.Ctx) error {
		page := store.Page{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
		if page.Limit < 0 || page.Offset < 0 {
			return badRequest(c, "limit and offset must not be negative")
		}
		users, err := cfg.Admin.ListUsers(c.UserContext(), page)
		if err != nil {
			return respondError(c, err)
		}
		if users == nil {
			users = []models.User{}
		}
		return c.JSON(users)
	})

	admin.Post("/users/:id/coins", func(c *fiber.Ctx) error {
		var req struct {
			Delta  int64  `json:"delta"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if req.Delta == 0 {
			return badRequest(c, "delta must not be zero")
		}

		userID := c.Params("id")
		balance, err := cfg.Ledger.ApplyDelta(c.UserContext(), userID, req.Delta)
		if err != nil {
			return respondError(c, err)
		}
		log.Printf("🛠️ [ADMIN] %s adjusted %s by %+d (%s)", middleware.UserID(c), userID, req.Delta, req.Reason)
		return c.JSON(fiber.Map{"user_id": userID, "coins": balance})
	})

	admin.Get("/campaigns", func(c *fiber.Ctx) error {
		list, err := cfg.Campaigns.AllCampaigns(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		if list == nil {
			list = []models.CampaignListing{}
		}
		return c.JSON(list)
	})

	admin.Get("/payments", func(c *fiber.Ctx) error {
		list, err := cfg.Payments.ListPayments(c.UserContext(), models.PaymentStatus(c.Query("status")))
		if err != nil {
			return respondError(c, err)
		}
		if list == nil {
			list = []models.PaymentListing{}
		}
		return c.JSON(list)
	})

	admin.Patch("/payments/:id", func(c *fiber.Ctx) error {
		var req struct {
			Status models.PaymentStatus `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		payment, err := cfg.Payments.UpdatePaymentStatus(c.UserContext(), c.Params("id"), req.Status)
		if err != nil {
			return respondError(c, err)
		}
		log.Printf("🛠️ [ADMIN] %s set payment %s to %s", middleware.UserID(c), payment.ID, payment.Status)
		return c.JSON(payment)
	})

	admin.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := cfg.Admin.PlatformStats(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(stats)
	})
}
