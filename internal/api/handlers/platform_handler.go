package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/registry"
	"github.com/maheshrc27/crosspost/internal/resilience"
)

type PlatformHandler struct {
	reg      *registry.Registry
	breakers *resilience.BreakerSet
}

func NewPlatformHandler(reg *registry.Registry, breakers *resilience.BreakerSet) *PlatformHandler {
	return &PlatformHandler{
		reg:      reg,
		breakers: breakers,
	}
}

func (h *PlatformHandler) ListPlatforms(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"platforms": h.reg.Platforms(),
	})
}

// UpdateConfig replaces a platform's config. The body is the full config as
// JSON or YAML; durations are strings such as "90s".
func (h *PlatformHandler) UpdateConfig(c *fiber.Ctx) error {
	platform := models.Platform(c.Params("platform"))

	cfg, err := config.ParsePlatformConfig(c.Body())
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.reg.UpdateConfig(platform, cfg); err != nil {
		return errorJSON(c, err)
	}

	updated, _ := h.reg.Config(platform)
	return c.Status(fiber.StatusOK).JSON(updated)
}

func (h *PlatformHandler) ListCircuits(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"circuits": h.breakers.Snapshots(),
	})
}

func (h *PlatformHandler) ResetCircuit(c *fiber.Ctx) error {
	platform := models.Platform(c.Params("platform"))
	h.breakers.Reset(platform)
	return c.Status(fiber.StatusOK).JSON(h.breakers.Snapshot(platform))
}
