package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vortexboard/internal/middleware"
	"vortexboard/internal/models"
	"vortexboard/internal/repository"
	"vortexboard/pkg/auth"
	"vortexboard/pkg/logger"
	"vortexboard/pkg/mailer"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// authResponse mengembalikan token beserta ringkasan user (tanpa password).
func (h *Handler) authResponse(c *fiber.Ctx, status int, user *models.User) error {
	token, err := h.Tokens.Generate(user.ID, user.Role)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user.Summary(),
	})
}

// Register membuat akun baru dengan role user.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		Role:     models.RoleUser,
	}
	if err := h.Stores.Users.Create(c.UserContext(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			logger.SecurityLogger.Warn("Duplicate registration", zap.String("email", req.Email))
		}
		return err
	}

	logger.AuditLogger.Info("User registered", zap.String("user_id", user.ID.Hex()))
	h.recordAs(c, user.ID, models.ActionUserRegister, models.EntityUser, user.ID, nil)
	if msg, err := mailer.WelcomeEmail(user.Email, user.Name); err != nil {
		logger.ErrorLogger.Error("Error rendering welcome email", zap.Error(err))
	} else {
		h.Notifier.SendEmail("welcome", msg)
	}
	return h.authResponse(c, fiber.StatusCreated, user)
}

// Login menukar email dan password dengan bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	user, err := h.Stores.Users.FindByEmail(c.UserContext(), req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if user == nil || !auth.CheckPassword(user.Password, req.Password) {
		logger.SecurityLogger.Warn("Invalid login attempt", zap.String("email", req.Email), zap.String("ip", c.IP()))
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	logger.AuditLogger.Info("Login success", zap.String("user_id", user.ID.Hex()), zap.String("role", user.Role))
	h.recordAs(c, user.ID, models.ActionUserLogin, models.EntityUser, user.ID, nil)
	return h.authResponse(c, fiber.StatusOK, user)
}

// Logout hanya mencatat aktivitas; token bersifat stateless.
func (h *Handler) Logout(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	h.record(c, models.ActionUserLogout, models.EntityUser, userID, nil)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}
