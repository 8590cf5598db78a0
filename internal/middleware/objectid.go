package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidateObjectID rejects the request with 400 before any lookup when a
// named route param is not a 24-hex ObjectID.
func ValidateObjectID(params ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, p := range params {
			if !primitive.IsValidObjectID(c.Params(p)) {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid "+p+" format")
			}
		}
		return c.Next()
	}
}
