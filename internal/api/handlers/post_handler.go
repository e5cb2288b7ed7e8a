package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := idParam(c)
	if err != nil {
		return errorJSON(c, err)
	}

	var req transfer.ScheduleRequest
	if err := bindJSON(c, &req); err != nil {
		return errorJSON(c, err)
	}

	validation, err := h.s.Schedule(c.Context(), userID, postID, req.ScheduledAt)
	if errors.Is(err, service.ErrInvalidMedia) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":      err.Error(),
			"validation": validation,
		})
	}
	if err != nil {
		slog.Error(err.Error())
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":    "Post scheduled successfully",
		"validation": validation,
	})
}

func (h *PostHandler) ReschedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := idParam(c)
	if err != nil {
		return errorJSON(c, err)
	}

	var req transfer.RescheduleRequest
	if err := bindJSON(c, &req); err != nil {
		return errorJSON(c, err)
	}

	if err := h.s.Reschedule(c.Context(), userID, postID, req.ScheduledAt); err != nil {
		slog.Error(err.Error())
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post rescheduled successfully",
	})
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := idParam(c)
	if err != nil {
		return errorJSON(c, err)
	}

	if err := h.s.Cancel(c.Context(), userID, postID); err != nil {
		return errorJSON(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RetryPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := idParam(c)
	if err != nil {
		return errorJSON(c, err)
	}

	if err := h.s.Retry(c.Context(), userID, postID); err != nil {
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post queued for another attempt",
	})
}

func (h *PostHandler) ListExecutions(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := idParam(c)
	if err != nil {
		return errorJSON(c, err)
	}

	records, err := h.s.History(c.Context(), userID, postID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(records)
}

func (h *PostHandler) RemoteStatus(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := idParam(c)
	if err != nil {
		return errorJSON(c, err)
	}

	status, err := h.s.RemoteStatus(c.Context(), userID, postID)
	if err != nil {
		slog.Info(err.Error())
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(status)
}
