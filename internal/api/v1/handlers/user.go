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
)

type updateDetailsRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" label:"New password" validate:"omitempty,min=6"`
}

func (h *Handler) currentUser(c *fiber.Ctx) (*models.User, error) {
	user, err := h.Stores.Users.FindByID(c.UserContext(), middleware.UserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		// token valid tapi user sudah tidak ada
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Not authorized to access this route")
	}
	return user, err
}

const defaultUserLimit = 20

// GetUsers lists every account; admin only.
func (h *Handler) GetUsers(c *fiber.Ctx) error {
	page := pageFrom(c, defaultUserLimit)
	users, total, err := h.Stores.Users.List(c.UserContext(), page)
	if err != nil {
		return err
	}
	return c.JSON(list("users", users, len(users), total, page))
}

// GetMe mengembalikan profil user yang sedang login.
func (h *Handler) GetMe(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user.Summary(),
	})
}

// UpdateDetails mengubah nama dan/atau email.
func (h *Handler) UpdateDetails(c *fiber.Ctx) error {
	var req updateDetailsRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	changed := map[string]interface{}{}
	if req.Name != nil && *req.Name != user.Name {
		user.Name = *req.Name
		changed["name"] = user.Name
	}
	if req.Email != nil && *req.Email != user.Email {
		user.Email = *req.Email
		changed["email"] = user.Email
	}
	if len(changed) > 0 {
		if err := h.Stores.Users.Save(c.UserContext(), user); err != nil {
			return err
		}
		h.record(c, models.ActionUserUpdate, models.EntityUser, user.ID, map[string]interface{}{"fields": changed})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user.Summary(),
	})
}

// UpdatePassword memverifikasi password lama lalu menerbitkan token baru.
func (h *Handler) UpdatePassword(c *fiber.Ctx) error {
	var req updatePasswordRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide current and new password")
	}
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		logger.SecurityLogger.Warn("Wrong current password", zap.String("user_id", user.ID.Hex()))
		return fiber.NewError(fiber.StatusUnauthorized, "Current password is incorrect")
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := h.Stores.Users.Save(c.UserContext(), user); err != nil {
		return err
	}
	h.record(c, models.ActionUserUpdate, models.EntityUser, user.ID, map[string]interface{}{"fields": []string{"password"}})
	return h.authResponse(c, fiber.StatusOK, user)
}
