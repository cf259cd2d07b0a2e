package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
)

type ScheduleHandler struct {
	s service.PostingService
}

func NewScheduleHandler(service service.PostingService) *ScheduleHandler {
	return &ScheduleHandler{s: service}
}

// Optimal serves GET /schedule/optimal?platforms=facebook,etsy&days=7.
func (h *ScheduleHandler) Optimal(c *fiber.Ctx) error {
	platforms := platformsParam(c.Query("platforms"))
	if len(platforms) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "platforms is required",
		})
	}

	times := h.s.OptimalTimes(platforms, c.QueryInt("days", 7))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"times": times,
	})
}

// Staggered serves GET /schedule/staggered?platforms=...&start=RFC3339&stagger=20.
func (h *ScheduleHandler) Staggered(c *fiber.Ctx) error {
	platforms := platformsParam(c.Query("platforms"))
	if len(platforms) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "platforms is required",
		})
	}

	start := time.Now()
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "start must be an RFC 3339 time",
			})
		}
		start = parsed
	}

	slots := h.s.StaggeredSchedule(platforms, start, c.QueryInt("stagger", 15))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"slots": slots,
	})
}
