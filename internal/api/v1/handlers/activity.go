package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"vortexboard/internal/middleware"
	"vortexboard/internal/repository"
)

const defaultActivityLimit = 20

// activityFilter adds the optional `days` window to base.
func (h *Handler) activityFilter(c *fiber.Ctx, base repository.ActivityFilter) (repository.ActivityFilter, error) {
	days := c.QueryInt("days", 0)
	if days < 0 {
		return base, fiber.NewError(fiber.StatusBadRequest, "Days must be positive")
	}
	if days > 0 {
		since := h.clock().Add(-time.Duration(days) * 24 * time.Hour)
		base.Since = &since
	}
	return base, nil
}

func (h *Handler) listActivity(c *fiber.Ctx, filter repository.ActivityFilter) error {
	page := pageFrom(c, defaultActivityLimit)
	entries, total, err := h.Stores.Activity.List(c.UserContext(), filter, page)
	if err != nil {
		return err
	}
	return c.JSON(list("activities", entries, len(entries), total, page))
}

// GetMyActivity lists the caller's own activity, newest first.
func (h *Handler) GetMyActivity(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	filter, err := h.activityFilter(c, repository.ActivityFilter{User: &userID})
	if err != nil {
		return err
	}
	return h.listActivity(c, filter)
}

// GetBoardActivity lists activity on the board and on everything inside it.
func (h *Handler) GetBoardActivity(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	board, err := h.loadBoard(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !board.HasAccess(middleware.UserID(c)) {
		return forbidden("Not authorized to access this board")
	}
	filter, err := h.activityFilter(c, repository.ActivityFilter{Board: &board.ID})
	if err != nil {
		return err
	}
	return h.listActivity(c, filter)
}
