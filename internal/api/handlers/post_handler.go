package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	s service.PostingService
}

func NewPostHandler(service service.PostingService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) Publish(c *fiber.Ctx) error {
	var req transfer.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	result, err := h.s.PublishNow(c.Context(), GetUserID(c), &req.Content, req.Platforms)
	if err != nil {
		return errorJSON(c, err)
	}

	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(result)
}

func (h *PostHandler) Schedule(c *fiber.Ctx) error {
	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	ids, err := h.s.Schedule(c.Context(), GetUserID(c), &req.Content, req.Platforms, req.ScheduledAt)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(transfer.ScheduleResponse{EntryIDs: ids})
}

func (h *PostHandler) Report(c *fiber.Ctx) error {
	report, err := h.s.ContentReport(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(report)
}
