package handlers

import (
	"context"
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vortexboard/internal/activity"
	"vortexboard/internal/middleware"
	"vortexboard/internal/models"
	"vortexboard/internal/repository"
	"vortexboard/pkg/logger"
	"vortexboard/pkg/mailer"
)

const defaultBoardLimit = 10

type createBoardRequest struct {
	Name        string `json:"name" label:"Board name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

type updateBoardRequest struct {
	Name        *string `json:"name" label:"Board name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
}

type collaboratorRequest struct {
	UserID     string `json:"userId"`
	Permission string `json:"permission" validate:"omitempty,oneof=read write"`
}

type collaboratorView struct {
	User       models.UserSummary `json:"user"`
	Permission string             `json:"permission"`
}

// boardView is a board with owner and collaborators resolved to summaries.
type boardView struct {
	models.Board
	Owner         models.UserSummary `json:"owner"`
	Collaborators []collaboratorView `json:"collaborators"`
	Role          string             `json:"role,omitempty"`
}

func (h *Handler) boardViews(ctx context.Context, viewer primitive.ObjectID, boards ...models.Board) []boardView {
	var ids []primitive.ObjectID
	for i := range boards {
		ids = append(ids, boards[i].Participants()...)
	}
	users := h.userNames(ctx, ids...)
	summary := func(id primitive.ObjectID) models.UserSummary {
		if u, ok := users[id]; ok {
			s := u.Summary()
			s.Role = ""
			return s
		}
		return models.UserSummary{ID: id}
	}

	views := make([]boardView, 0, len(boards))
	for _, b := range boards {
		v := boardView{
			Board:         b,
			Owner:         summary(b.Owner),
			Collaborators: make([]collaboratorView, 0, len(b.Collaborators)),
		}
		if !viewer.IsZero() {
			v.Role = b.RoleOf(viewer)
		}
		for _, col := range b.Collaborators {
			v.Collaborators = append(v.Collaborators, collaboratorView{User: summary(col.User), Permission: col.Permission})
		}
		views = append(views, v)
	}
	return views
}

// GetBoards lists boards the user owns or collaborates on, newest first.
func (h *Handler) GetBoards(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	page := pageFrom(c, defaultBoardLimit)
	boards, total, err := h.Stores.Boards.ListAccessible(c.UserContext(), userID, page)
	if err != nil {
		return err
	}
	views := h.boardViews(c.UserContext(), userID, boards...)
	return c.JSON(list("boards", views, len(views), total, page))
}

func (h *Handler) GetBoard(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	board, err := h.loadBoard(c.UserContext(), id)
	if err != nil {
		return err
	}
	userID := middleware.UserID(c)
	if !board.HasAccess(userID) {
		return forbidden("Not authorized to access this board")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"board":   h.boardViews(c.UserContext(), userID, *board)[0],
	})
}

func (h *Handler) CreateBoard(c *fiber.Ctx) error {
	var req createBoardRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	userID := middleware.UserID(c)
	board := &models.Board{
		Name:          req.Name,
		Description:   req.Description,
		Color:         req.Color,
		Owner:         userID,
		Collaborators: []models.Collaborator{},
	}
	if board.Color == "" {
		board.Color = models.DefaultBoardColor
	}
	if err := h.Stores.Boards.Create(c.UserContext(), board); err != nil {
		return err
	}

	h.record(c, models.ActionBoardCreate, models.EntityBoard, board.ID, map[string]interface{}{"name": board.Name})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"board":   h.boardViews(c.UserContext(), userID, *board)[0],
	})
}

// UpdateBoard is allowed for the owner and write collaborators.
func (h *Handler) UpdateBoard(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateBoardRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	board, err := h.loadBoard(c.UserContext(), id)
	if err != nil {
		return err
	}
	userID := middleware.UserID(c)
	if !board.CanEdit(userID) {
		return forbidden("Not authorized to update this board")
	}

	changed := map[string]interface{}{}
	if req.Name != nil {
		board.Name = *req.Name
		changed["name"] = board.Name
	}
	if req.Description != nil {
		board.Description = *req.Description
		changed["description"] = board.Description
	}
	if req.Color != nil {
		board.Color = *req.Color
		changed["color"] = board.Color
	}
	if err := h.Stores.Boards.Save(c.UserContext(), board); err != nil {
		return err
	}

	h.record(c, models.ActionBoardUpdate, models.EntityBoard, board.ID, map[string]interface{}{"changes": changed})
	return c.JSON(fiber.Map{
		"success": true,
		"board":   h.boardViews(c.UserContext(), userID, *board)[0],
	})
}

// DeleteBoard removes the board with its tasks, comments and attachments.
// Only the owner may do this.
func (h *Handler) DeleteBoard(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	board, err := h.loadBoard(ctx, id)
	if err != nil {
		return err
	}
	if !board.IsOwner(middleware.UserID(c)) {
		return forbidden("Not authorized to delete this board")
	}

	taskIDs, err := h.Stores.Tasks.DeleteByBoard(ctx, board.ID)
	if err != nil {
		return err
	}
	if len(taskIDs) > 0 {
		if _, err := h.Stores.Comments.DeleteByTasks(ctx, taskIDs); err != nil {
			return err
		}
		removed, err := h.Stores.Attachments.DeleteByTasks(ctx, taskIDs)
		if err != nil {
			return err
		}
		removeFiles(removed...)
	}
	if err := h.Stores.Boards.Delete(ctx, board.ID); err != nil {
		return err
	}

	h.record(c, models.ActionBoardDelete, models.EntityBoard, board.ID, map[string]interface{}{
		"name":         board.Name,
		"tasksDeleted": len(taskIDs),
	})
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Board and associated tasks deleted",
	})
}

// removeFiles menghapus file upload; kegagalan hanya dicatat.
func removeFiles(attachments ...models.Attachment) {
	for _, a := range attachments {
		if a.Path == "" {
			continue
		}
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.ErrorLogger.Error("Error removing attachment file", zap.String("path", a.Path), zap.Error(err))
		}
	}
}

// AddCollaborator shares the board with another user. Owner only.
func (h *Handler) AddCollaborator(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req collaboratorRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if req.UserID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "User ID is required")
	}
	collaboratorID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid userId format")
	}
	if req.Permission == "" {
		req.Permission = models.PermissionRead
	}

	ctx := c.UserContext()
	board, err := h.loadBoard(ctx, id)
	if err != nil {
		return err
	}
	actorID := middleware.UserID(c)
	if !board.IsOwner(actorID) {
		return forbidden("Not authorized to add collaborators")
	}
	if board.IsOwner(collaboratorID) {
		return fiber.NewError(fiber.StatusBadRequest, "Board owner cannot be added as a collaborator")
	}
	if board.IsCollaborator(collaboratorID) {
		return fiber.NewError(fiber.StatusBadRequest, "User is already a collaborator")
	}
	collaborator, err := h.Stores.Users.FindByID(ctx, collaboratorID)
	if errors.Is(err, repository.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		return err
	}

	existing := board.Collaborators
	board.Collaborators = append(append([]models.Collaborator{}, existing...), models.Collaborator{
		User:       collaboratorID,
		Permission: req.Permission,
	})
	if err := h.Stores.Boards.Save(ctx, board); err != nil {
		return err
	}

	h.record(c, models.ActionBoardShare, models.EntityBoard, board.ID, map[string]interface{}{
		"collaborator": collaboratorID.Hex(),
		"permission":   req.Permission,
	})

	actor := h.userNames(ctx, actorID)[actorID]
	ref := models.EntityRef{EntityType: models.EntityBoard, EntityID: board.ID}
	boardName, permission := board.Name, req.Permission
	h.Notifier.Notify(activity.Notice{
		Recipient: collaboratorID,
		Sender:    &actorID,
		Type:      models.NotificationBoardShared,
		Title:     "Board shared with you",
		Message:   actor.Name + " shared the board \"" + boardName + "\" with you",
		Entity:    ref,
		Priority:  models.PriorityMedium,
		Email: func(u *models.User) (mailer.Message, error) {
			return mailer.BoardSharedEmail(u.Email, u.Name, actor.Name, boardName, permission)
		},
	})
	for _, col := range existing {
		h.Notifier.Notify(activity.Notice{
			Recipient: col.User,
			Sender:    &actorID,
			Type:      models.NotificationCollaboratorAdded,
			Title:     "New collaborator",
			Message:   collaborator.Name + " joined the board \"" + boardName + "\"",
			Entity:    ref,
			Priority:  models.PriorityLow,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"board":   h.boardViews(ctx, actorID, *board)[0],
	})
}

// RemoveCollaborator revokes a collaborator's access. Owner only.
func (h *Handler) RemoveCollaborator(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	collaboratorID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	board, err := h.loadBoard(ctx, id)
	if err != nil {
		return err
	}
	actorID := middleware.UserID(c)
	if !board.IsOwner(actorID) {
		return forbidden("Not authorized to remove collaborators")
	}
	if !board.IsCollaborator(collaboratorID) {
		return fiber.NewError(fiber.StatusNotFound, "Collaborator not found")
	}

	board.Collaborators = board.WithoutCollaborator(collaboratorID)
	if err := h.Stores.Boards.Save(ctx, board); err != nil {
		return err
	}
	h.record(c, models.ActionBoardUnshare, models.EntityBoard, board.ID, map[string]interface{}{
		"collaborator": collaboratorID.Hex(),
	})
	return c.JSON(fiber.Map{
		"success": true,
		"board":   h.boardViews(ctx, actorID, *board)[0],
	})
}
