// handlers/errors.go
package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"watch-rewards-system/models"
)

type errorMapping struct {
	kind    error
	status  int
	message string
}

// errorMappings is checked in order; the first matching kind wins. Signup
// failures come first so they are not reported as their underlying cause.
var errorMappings = []errorMapping{
	{models.ErrProfileInsertFailed, fiber.StatusInternalServerError, "account could not be created, please try again"},
	{models.ErrIdentityCreationFailed, fiber.StatusBadRequest, "account could not be created"},
	{models.ErrInvalidCredentials, fiber.StatusUnauthorized, "invalid email or password"},
	{models.ErrUnauthorized, fiber.StatusUnauthorized, "unauthorized"},
	{models.ErrForbidden, fiber.StatusForbidden, "forbidden"},
	{models.ErrInvalidInput, fiber.StatusBadRequest, "invalid request"},
	{models.ErrRecordNotFound, fiber.StatusNotFound, "not found"},
	{models.ErrDuplicateKey, fiber.StatusConflict, "already exists"},
	{models.ErrConflict, fiber.StatusConflict, "conflict"},
	{models.ErrStoreUnavailable, fiber.StatusServiceUnavailable, "service temporarily unavailable"},
}

// respondError writes err as {"error": message, "cause": detail}. Unknown
// errors are a 500 carrying the error text.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		if m.kind == models.ErrIdentityCreationFailed && errors.Is(err, models.ErrDuplicateKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "an account with this email already exists",
			})
		}
		if m.kind == models.ErrIdentityCreationFailed && errors.Is(err, models.ErrStoreUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "account could not be created, please try again",
			})
		}
		if m.status >= fiber.StatusInternalServerError {
			log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
			return c.Status(m.status).JSON(fiber.Map{"error": m.message})
		}
		return c.Status(m.status).JSON(fiber.Map{
			"error": m.message,
			"cause": err.Error(),
		})
	}

	log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}
