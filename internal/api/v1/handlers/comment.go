package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vortexboard/internal/activity"
	"vortexboard/internal/middleware"
	"vortexboard/internal/models"
	"vortexboard/internal/repository"
	"vortexboard/pkg/mailer"
)

type commentRequest struct {
	Content       string `json:"content" label:"Comment" validate:"required,max=1000"`
	ParentComment string `json:"parentComment"`
}

func (h *Handler) loadComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	comment, err := h.Stores.Comments.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Comment not found")
	}
	return comment, err
}

// mentionable keeps the mentioned ids that can see the board.
func mentionable(board *models.Board, ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if board.HasAccess(id) {
			out = append(out, id)
		}
	}
	return out
}

// GetComments returns the task's comments as single-level threads.
func (h *Handler) GetComments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	task, board, err := h.loadTask(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !board.HasAccess(middleware.UserID(c)) {
		return forbidden("Not authorized to access this task")
	}
	comments, err := h.Stores.Comments.ListByTask(c.UserContext(), task.ID)
	if err != nil {
		return err
	}
	threads := models.Thread(comments)
	return c.JSON(fiber.Map{
		"success":  true,
		"count":    len(comments),
		"comments": threads,
	})
}

// CreateComment adds a comment or a reply. A reply to a reply is attached to
// the top-level comment of that thread.
func (h *Handler) CreateComment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	task, board, err := h.loadTask(ctx, id)
	if err != nil {
		return err
	}
	actorID := middleware.UserID(c)
	if !board.HasAccess(actorID) {
		return forbidden("Not authorized to comment on this task")
	}

	comment := &models.Comment{
		Content:  req.Content,
		Task:     task.ID,
		Author:   actorID,
		Mentions: mentionable(board, models.ParseMentions(req.Content)),
	}
	if req.ParentComment != "" {
		parentID, err := primitive.ObjectIDFromHex(req.ParentComment)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid parentComment format")
		}
		parent, err := h.loadComment(ctx, parentID)
		if err != nil {
			return err
		}
		if parent.Task != task.ID {
			return fiber.NewError(fiber.StatusBadRequest, "Parent comment must belong to the same task")
		}
		if parent.IsReply() {
			parentID = *parent.ParentComment
		}
		comment.ParentComment = &parentID
	}
	if err := h.Stores.Comments.Create(ctx, comment); err != nil {
		return err
	}

	h.record(c, models.ActionCommentCreate, models.EntityComment, comment.ID, map[string]interface{}{
		repository.MetadataBoardKey: board.ID.Hex(),
		"taskId":                    task.ID.Hex(),
	})
	h.notifyComment(ctx, actorID, task, comment, comment.Mentions)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"comment": comment,
	})
}

// notifyComment sends comment_mention to mentioned users and comment_added
// to the task's assignee and creator when they were not mentioned.
func (h *Handler) notifyComment(ctx context.Context, actorID primitive.ObjectID, task *models.Task, comment *models.Comment, mentioned []primitive.ObjectID) {
	h.notifyMentions(ctx, actorID, task, comment, mentioned)

	actor := h.userNames(ctx, actorID)[actorID]
	notified := map[primitive.ObjectID]bool{}
	for _, id := range mentioned {
		notified[id] = true
	}
	watchers := []primitive.ObjectID{task.CreatedBy}
	if task.AssignedTo != nil {
		watchers = append([]primitive.ObjectID{*task.AssignedTo}, watchers...)
	}
	for _, id := range watchers {
		if notified[id] {
			continue
		}
		notified[id] = true
		h.Notifier.Notify(activity.Notice{
			Recipient: id,
			Sender:    &actorID,
			Type:      models.NotificationCommentAdded,
			Title:     "New comment",
			Message:   actor.Name + " commented on \"" + task.Title + "\"",
			Entity:    models.EntityRef{EntityType: models.EntityComment, EntityID: comment.ID},
			Priority:  models.PriorityLow,
		})
	}
}

// UpdateComment edits the content. Only the author may edit; users newly
// mentioned by the edit are notified.
func (h *Handler) UpdateComment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	comment, err := h.loadComment(ctx, id)
	if err != nil {
		return err
	}
	actorID := middleware.UserID(c)
	if comment.Author != actorID {
		return forbidden("Not authorized to update this comment")
	}
	task, board, err := h.loadTask(ctx, comment.Task)
	if err != nil {
		return err
	}

	before := map[primitive.ObjectID]bool{}
	for _, m := range comment.Mentions {
		before[m] = true
	}
	now := h.clock()
	comment.Content = req.Content
	comment.Mentions = mentionable(board, models.ParseMentions(req.Content))
	comment.IsEdited = true
	comment.EditedAt = &now
	if err := h.Stores.Comments.Save(ctx, comment); err != nil {
		return err
	}

	var added []primitive.ObjectID
	for _, m := range comment.Mentions {
		if !before[m] {
			added = append(added, m)
		}
	}
	h.record(c, models.ActionCommentUpdate, models.EntityComment, comment.ID, map[string]interface{}{
		repository.MetadataBoardKey: board.ID.Hex(),
		"taskId":                    task.ID.Hex(),
	})
	if len(added) > 0 {
		h.notifyMentions(ctx, actorID, task, comment, added)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"comment": comment,
	})
}

func (h *Handler) notifyMentions(ctx context.Context, actorID primitive.ObjectID, task *models.Task, comment *models.Comment, ids []primitive.ObjectID) {
	actor := h.userNames(ctx, actorID)[actorID]
	title, content := task.Title, comment.Content
	for _, id := range ids {
		h.Notifier.Notify(activity.Notice{
			Recipient: id,
			Sender:    &actorID,
			Type:      models.NotificationCommentMention,
			Title:     "You were mentioned",
			Message:   actor.Name + " mentioned you on \"" + title + "\"",
			Entity:    models.EntityRef{EntityType: models.EntityComment, EntityID: comment.ID},
			Priority:  models.PriorityMedium,
			Email: func(u *models.User) (mailer.Message, error) {
				return mailer.MentionEmail(u.Email, u.Name, actor.Name, title, content)
			},
		})
	}
}

// DeleteComment removes the comment and its replies. Allowed for the author
// and for anyone who can edit the board.
func (h *Handler) DeleteComment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	comment, err := h.loadComment(ctx, id)
	if err != nil {
		return err
	}
	_, board, err := h.loadTask(ctx, comment.Task)
	if err != nil {
		return err
	}
	actorID := middleware.UserID(c)
	if comment.Author != actorID && !board.CanEdit(actorID) {
		return forbidden("Not authorized to delete this comment")
	}

	deleted, err := h.Stores.Comments.DeleteWithReplies(ctx, comment.ID)
	if err != nil {
		return err
	}
	h.record(c, models.ActionCommentDelete, models.EntityComment, comment.ID, map[string]interface{}{
		repository.MetadataBoardKey: board.ID.Hex(),
		"taskId":                    comment.Task.Hex(),
		"deleted":                   deleted,
	})
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Comment deleted",
		"deleted": deleted,
	})
}
