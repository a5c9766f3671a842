// handlers/profile_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"watch-rewards-system/middleware"
	"watch-rewards-system/models"
	"watch-rewards-system/services"
)

func SetupProfileRoutes(app *fiber.App, verifier *middleware.TokenVerifier, profiles *services.ProfileService, campaigns *services.CampaignService, events *EventStreamer) {
	// The stream authenticates from the query string, so it is registered
	// before the header-authenticated group.
	app.Get("/me/events", middleware.SSEAuthMiddleware(verifier), events.Stream)

	me := app.Group("/me", middleware.RequireAuth(verifier))

	me.Get("/", func(c *fiber.Ctx) error {
		profile, err := profiles.GetProfile(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(profile)
	})

	me.Get("/referrals", func(c *fiber.Ctx) error {
		refs, err := profiles.Referrals(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if refs == nil {
			refs = []models.ReferralSummary{}
		}
		var earned int64
		for _, r := range refs {
			earned += r.BonusCoins
		}
		return c.JSON(fiber.Map{
			"referrals":   refs,
			"count":       len(refs),
			"bonus_coins": earned,
		})
	})

	me.Get("/watch-logs", func(c *fiber.Ctx) error {
		logs, err := profiles.WatchLogs(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if logs == nil {
			logs = []models.WatchLogListing{}
		}
		return c.JSON(logs)
	})

	me.Get("/campaigns", func(c *fiber.Ctx) error {
		list, err := campaigns.UserCampaigns(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if list == nil {
			list = []models.CampaignListing{}
		}
		return c.JSON(list)
	})
}
