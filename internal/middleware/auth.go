package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vortexboard/pkg/auth"
	"vortexboard/pkg/logger"
)

const (
	localUserID = "userID"
	localRole   = "role"
)

const notAuthorized = "Not authorized to access this route"

// UseToken memvalidasi Bearer token dan menyimpan userID (ObjectID) dan
// role di Locals.
func UseToken(tm *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			logger.SecurityLogger.Warn("Missing bearer token", zap.String("path", c.Path()), zap.String("ip", c.IP()))
			return fiber.NewError(fiber.StatusUnauthorized, notAuthorized)
		}
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token format")
		}

		claims, err := tm.Parse(parts[1])
		if err != nil {
			logger.SecurityLogger.Warn("Rejected bearer token", zap.String("path", c.Path()), zap.String("ip", c.IP()), zap.Error(err))
			if errors.Is(err, auth.ErrExpiredToken) {
				return fiber.NewError(fiber.StatusUnauthorized, "Token expired")
			}
			return fiber.NewError(fiber.StatusUnauthorized, notAuthorized)
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, notAuthorized)
		}
		c.Locals(localUserID, userID)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// UserID returns the authenticated user set by UseToken, or the zero id.
func UserID(c *fiber.Ctx) primitive.ObjectID {
	id, _ := c.Locals(localUserID).(primitive.ObjectID)
	return id
}

func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(localRole).(string)
	return role
}

// RequireRole hanya meloloskan user dengan salah satu role yang diberikan.
// Dipasang setelah UseToken.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := Role(c)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		logger.SecurityLogger.Warn("Forbidden", zap.String("role", role), zap.String("path", c.Path()), zap.String("user_id", UserID(c).Hex()))
		return fiber.NewError(fiber.StatusForbidden, "User role '"+role+"' is not authorized to access this route")
	}
}
