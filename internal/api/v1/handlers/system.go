package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vortexboard/internal/api/v1/docs"
	"vortexboard/pkg/logger"
)

const apiVersion = "1.0.0"

func (h *Handler) Welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Welcome to VortexBoard API",
		"version": apiVersion,
		"docs":    "/api-docs",
	})
}

// Health pings the database with a short timeout.
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	now := h.clock().Format(time.RFC3339)
	if err := h.Ping(ctx); err != nil {
		logger.ErrorLogger.Error("Health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success":   false,
			"error":     "Database unavailable",
			"timestamp": now,
		})
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "VortexBoard API is running",
		"timestamp": now,
		"database":  "connected",
	})
}

// Docs serves the OpenAPI document.
func (h *Handler) Docs(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(docs.OpenAPI)
}

func (h *Handler) NotFound(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound, "Route not found")
}
