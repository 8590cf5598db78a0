package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vortexboard/pkg/logger"
)

// Recover mengubah panic menjadi error 500 yang diteruskan ke ErrorHandler.
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorLogger.Error(fmt.Sprintf("Recovered from panic: %v", r),
					zap.String("method", c.Method()),
					zap.String("url", c.OriginalURL()),
					zap.String("stack", string(debug.Stack())),
				)
				err = fiber.NewError(fiber.StatusInternalServerError, "Server Error")
			}
		}()
		return c.Next()
	}
}

// RequestLogger mencatat setiap request setelah selesai diproses. Error dari
// handler langsung diteruskan ke ErrorHandler agar status yang dicatat benar.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("request_id", RequestIDFrom(c)),
		}
		if uid := UserID(c); !uid.IsZero() {
			fields = append(fields, zap.String("user_id", uid.Hex()))
		}
		if status >= fiber.StatusInternalServerError {
			logger.RequestLogger.Error("Request failed", fields...)
		} else {
			logger.RequestLogger.Info("Request handled", fields...)
		}
		return nil
	}
}
