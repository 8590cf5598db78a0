package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"vortexboard/internal/analytics"
	"vortexboard/internal/middleware"
)

func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	dashboard, err := h.Reporter.Dashboard(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"analytics": dashboard,
	})
}

// GetBoardAnalytics requires read access to the board.
func (h *Handler) GetBoardAnalytics(c *fiber.Ctx) error {
	board, err := h.boardForRead(c)
	if err != nil {
		return err
	}
	report, err := h.Reporter.BoardReport(c.UserContext(), board)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"analytics": report,
	})
}

// GetProductivity reports over the trailing `period` days.
func (h *Handler) GetProductivity(c *fiber.Ctx) error {
	period := analytics.DefaultPeriodDays
	if raw := c.Query("period"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > analytics.MaxPeriodDays {
			return fiber.NewError(fiber.StatusBadRequest,
				"Period must be between 1 and "+strconv.Itoa(analytics.MaxPeriodDays)+" days")
		}
		period = n
	}
	report, err := h.Reporter.Productivity(c.UserContext(), middleware.UserID(c), period)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"productivity": report,
	})
}
