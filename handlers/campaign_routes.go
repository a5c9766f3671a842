// handlers/campaign_routes.go
package handlers

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"watch-rewards-system/middleware"
	"watch-rewards-system/models"
	"watch-rewards-system/services"
)

const MaxVideoUploadBytes = 200 << 20

var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mov":  true,
	".m4v":  true,
}

// VideoStorage persists an uploaded file and returns its public URL.
type VideoStorage interface {
	Upload(ctx context.Context, key string, fileHeader *multipart.FileHeader) (string, error)
}

func SetupCampaignRoutes(app *fiber.App, verifier *middleware.TokenVerifier, campaigns *services.CampaignService, videos VideoStorage) {
	secured := app.Group("/campaigns", middleware.RequireAuth(verifier))

	secured.Post("/", func(c *fiber.Ctx) error {
		var req services.CreateCampaignInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		campaign, err := campaigns.CreateCampaign(c.UserContext(), middleware.UserID(c), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(campaign)
	})

	secured.Post("/videos", func(c *fiber.Ctx) error {
		if videos == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "video uploads are not configured"})
		}
		fileHeader, err := c.FormFile("video")
		if err != nil {
			return badRequest(c, "Missing video file (form field \"video\")")
		}
		if fileHeader.Size > MaxVideoUploadBytes {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": fmt.Sprintf("video exceeds %d MB", MaxVideoUploadBytes>>20),
			})
		}
		ext := strings.ToLower(path.Ext(fileHeader.Filename))
		contentType := fileHeader.Header.Get("Content-Type")
		if !videoExtensions[ext] || (contentType != "" && !strings.HasPrefix(contentType, "video/")) {
			return badRequest(c, "Only mp4, webm, mov and m4v videos are accepted")
		}

		userID := middleware.UserID(c)
		key := fmt.Sprintf("videos/%s/%s%s", userID, uuid.NewString(), ext)
		url, err := videos.Upload(c.UserContext(), key, fileHeader)
		if err != nil {
			log.Printf("❌ [CAMPAIGN] video upload for %s failed: %v", userID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to store video"})
		}
		log.Printf("📼 [CAMPAIGN] %s uploaded %s (%d bytes)", userID, key, fileHeader.Size)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"video_url": url, "key": key})
	})

	secured.Get("/active", func(c *fiber.Ctx) error {
		list, err := campaigns.ActiveCampaigns(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if list == nil {
			list = []models.CampaignListing{}
		}
		return c.JSON(list)
	})

	secured.Post("/:id/watch", func(c *fiber.Ctx) error {
		var req struct {
			Intervals int64 `json:"intervals"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid request body")
			}
		}
		if req.Intervals == 0 {
			req.Intervals = 1
		}

		res, err := campaigns.RecordWatchInterval(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Intervals)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})
}
