package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/registry"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := c.Locals("user_id").(int64)
	return userID
}

// platformsParam splits a comma separated platform list.
func platformsParam(raw string) []models.Platform {
	var out []models.Platform
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, models.Platform(p))
		}
	}
	return out
}

// errorStatus maps service errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNoPlatforms),
		errors.Is(err, registry.ErrPlatformNotRegistered),
		errors.Is(err, registry.ErrConfigMismatch):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
