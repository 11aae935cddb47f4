package api

import (
	"github.com/gofiber/fiber/v2"

	"mailhaven/middleware"
	"mailhaven/storage"
	"mailhaven/utils"
)

// ScheduleHandler manages deferred-delivery requests.
type ScheduleHandler struct {
	storage *storage.ScheduleStore
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(scheduleStorage *storage.ScheduleStore) *ScheduleHandler {
	return &ScheduleHandler{storage: scheduleStorage}
}

// ScheduleEmail records a message to be sent once its scheduled time
// passes. A time in the past means "send on the next poll tick".
func (h *ScheduleHandler) ScheduleEmail(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req storage.ScheduleInput
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	record, err := h.storage.CreateScheduledEmail(userID, req)
	if err != nil {
		return err
	}

	return c.Status(201).JSON(fiber.Map{
		"success":   true,
		"scheduled": record,
	})
}

// GetScheduledEmails lists the user's pending records, soonest first.
func (h *ScheduleHandler) GetScheduledEmails(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	records, err := h.storage.GetScheduledEmails(userID)
	if err != nil {
		return utils.InternalServerError("Failed to retrieve scheduled emails", err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"scheduled": records,
	})
}

// CancelScheduledEmail deletes a scheduled record.
func (h *ScheduleHandler) CancelScheduledEmail(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	id := c.Params("id")
	if id == "" {
		return utils.BadRequestError("Schedule ID required", nil)
	}

	if err := h.storage.CancelScheduledEmail(userID, id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Scheduled email cancelled",
	})
}
