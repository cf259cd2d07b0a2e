package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/credentials"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/registry"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type ConnectionHandler struct {
	creds credentials.Provider
	reg   *registry.Registry
}

func NewConnectionHandler(creds credentials.Provider, reg *registry.Registry) *ConnectionHandler {
	return &ConnectionHandler{creds: creds, reg: reg}
}

// Connect stores credentials for a platform. A live instance for the pair is
// evicted so the next post authenticates with the new credentials.
func (h *ConnectionHandler) Connect(c *fiber.Ctx) error {
	var req transfer.ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}
	if _, ok := h.reg.Config(req.Platform); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}
	if req.AuthMethod != models.AuthMethodOAuth2 && req.AuthMethod != models.AuthMethodSession {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "auth_method must be oauth2 or session",
		})
	}

	userID := GetUserID(c)
	if err := h.creds.Store(c.Context(), userID, req.AccountName, req.Credentials()); err != nil {
		return errorJSON(c, err)
	}
	h.reg.Evict(req.Platform, userID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Platform connected",
	})
}

func (h *ConnectionHandler) Disconnect(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := models.Platform(c.Params("platform"))

	if err := h.creds.Disconnect(c.Context(), userID, platform); err != nil {
		return errorJSON(c, err)
	}
	h.reg.Evict(platform, userID)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Platform disconnected",
	})
}

// Cleanup releases every cached integration of the caller, e.g. on logout.
func (h *ConnectionHandler) Cleanup(c *fiber.Ctx) error {
	n := h.reg.CleanupUser(GetUserID(c))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"released": n,
	})
}
