package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"vortexboard/internal/middleware"
	"vortexboard/internal/models"
	"vortexboard/internal/repository"
)

const defaultNotificationLimit = 20

var errNotificationNotFound = fiber.NewError(fiber.StatusNotFound, "Notification not found")

// GetNotifications lists the caller's notifications, newest first.
func (h *Handler) GetNotifications(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	page := pageFrom(c, defaultNotificationLimit)
	unreadOnly := c.QueryBool("unreadOnly", false)

	ctx := c.UserContext()
	items, total, err := h.Stores.Notifications.List(ctx, userID, unreadOnly, page)
	if err != nil {
		return err
	}
	unread, err := h.Stores.Notifications.CountUnread(ctx, userID)
	if err != nil {
		return err
	}
	resp := list("notifications", items, len(items), total, page)
	resp["unreadCount"] = unread
	return c.JSON(resp)
}

func (h *Handler) GetUnreadCount(c *fiber.Ctx) error {
	count, err := h.Stores.Notifications.CountUnread(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"unreadCount": count,
	})
}

// ownNotification loads the notification and checks it belongs to the
// caller: 404 when absent, 403 when it is someone else's.
func (h *Handler) ownNotification(c *fiber.Ctx) (*models.Notification, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	n, err := h.Stores.Notifications.FindByID(c.UserContext(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	if n.Recipient != middleware.UserID(c) {
		return nil, forbidden("Not authorized")
	}
	return n, nil
}

// MarkNotificationRead sets isRead and readAt.
func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	own, err := h.ownNotification(c)
	if err != nil {
		return err
	}
	n, err := h.Stores.Notifications.MarkRead(c.UserContext(), own.ID, own.Recipient, h.clock())
	if errors.Is(err, repository.ErrNotFound) {
		return errNotificationNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"notification": n,
	})
}

func (h *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	modified, err := h.Stores.Notifications.MarkAllRead(c.UserContext(), middleware.UserID(c), h.clock())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"message":       "All notifications marked as read",
		"modifiedCount": modified,
	})
}

func (h *Handler) DeleteNotification(c *fiber.Ctx) error {
	own, err := h.ownNotification(c)
	if err != nil {
		return err
	}
	err = h.Stores.Notifications.Delete(c.UserContext(), own.ID, own.Recipient)
	if errors.Is(err, repository.ErrNotFound) {
		return errNotificationNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Notification deleted",
	})
}
