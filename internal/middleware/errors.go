package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vortexboard/internal/repository"
	"vortexboard/pkg/logger"
)

// StatusCode maps err to the HTTP status it should produce.
func StatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the app-wide fiber ErrorHandler. Every failure becomes
// {success:false, error}; internal details never leave the process.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusCode(err)
	message := err.Error()

	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", code),
		zap.String("request_id", RequestIDFrom(c)),
		zap.Error(err),
	}
	switch {
	case code >= fiber.StatusInternalServerError:
		logger.ErrorLogger.Error("Unhandled error", fields...)
		message = "Server Error"
	case code == fiber.StatusUnauthorized || code == fiber.StatusForbidden:
		logger.SecurityLogger.Warn("Access denied", fields...)
	}
	if errors.Is(err, repository.ErrDuplicateEmail) {
		message = "User already exists with this email"
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
