package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type QueueHandler struct {
	s service.PostingService
}

func NewQueueHandler(service service.PostingService) *QueueHandler {
	return &QueueHandler{s: service}
}

func (h *QueueHandler) Drain(c *fiber.Ctx) error {
	var req transfer.DrainRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse request",
			})
		}
	}

	stats, err := h.s.DrainQueue(c.Context(), req.BatchSize)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *QueueHandler) Retry(c *fiber.Ctx) error {
	var req transfer.RetryRequest
	if err := c.BodyParser(&req); err != nil || req.MaxAgeHours <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "max_age_hours must be a positive number",
		})
	}

	n, err := h.s.RetryFailed(c.Context(), time.Duration(req.MaxAgeHours)*time.Hour)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"requeued": n,
	})
}

func (h *QueueHandler) Cancel(c *fiber.Ctx) error {
	cancelled, err := h.s.CancelEntry(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	if !cancelled {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Entry is no longer pending",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Entry cancelled",
	})
}
