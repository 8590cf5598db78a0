package handlers

import (
	"context"
	"time"

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

const defaultTaskLimit = 50

type createTaskRequest struct {
	Title       string     `json:"title" label:"Task title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in-progress done"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags" validate:"max=20,dive,max=30"`
}

// updateTaskRequest: field nil berarti tidak diubah. assignedTo "" melepas
// assignee.
type updateTaskRequest struct {
	Title       *string    `json:"title" label:"Task title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Status      *string    `json:"status" validate:"omitempty,oneof=todo in-progress done"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo  *string    `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
	ClearDue    bool       `json:"clearDueDate"`
	Tags        []string   `json:"tags" validate:"omitempty,max=20,dive,max=30"`
	Position    *int       `json:"position" validate:"omitempty,min=0"`
}

// assignee parses raw and checks the user can see the board.
func (h *Handler) assignee(ctx context.Context, board *models.Board, raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid assignedTo format")
	}
	if !board.HasAccess(id) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Assigned user does not have access to this board")
	}
	return &id, nil
}

func (h *Handler) taskFilter(c *fiber.Ctx, boardID primitive.ObjectID) (repository.TaskFilter, error) {
	filter := repository.TaskFilter{
		Boards:   []primitive.ObjectID{boardID},
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort", repository.SortPosition),
	}
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return filter, fiber.NewError(fiber.StatusBadRequest, "Invalid status")
	}
	if filter.Priority != "" && !models.ValidPriority(filter.Priority) {
		return filter, fiber.NewError(fiber.StatusBadRequest, "Invalid priority")
	}
	if !repository.ValidTaskSort(filter.Sort) {
		return filter, fiber.NewError(fiber.StatusBadRequest, "Invalid sort option")
	}
	switch raw := c.Query("assignedTo"); raw {
	case "":
	case "me":
		me := middleware.UserID(c)
		filter.AssignedTo = &me
	default:
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "Invalid assignedTo format")
		}
		filter.AssignedTo = &id
	}
	return filter, nil
}

// boardForRead loads the board named by :boardId and checks read access.
func (h *Handler) boardForRead(c *fiber.Ctx) (*models.Board, error) {
	boardID, err := paramID(c, "boardId")
	if err != nil {
		return nil, err
	}
	board, err := h.loadBoard(c.UserContext(), boardID)
	if err != nil {
		return nil, err
	}
	if !board.HasAccess(middleware.UserID(c)) {
		return nil, forbidden("Not authorized to access this board")
	}
	return board, nil
}

func (h *Handler) listTasks(c *fiber.Ctx, filter repository.TaskFilter) error {
	page := pageFrom(c, defaultTaskLimit)
	tasks, total, err := h.Stores.Tasks.List(c.UserContext(), filter, page)
	if err != nil {
		return err
	}
	return c.JSON(list("tasks", tasks, len(tasks), total, page))
}

// GetTasks lists a board's tasks with optional status, priority, assignee
// and text filters.
func (h *Handler) GetTasks(c *fiber.Ctx) error {
	board, err := h.boardForRead(c)
	if err != nil {
		return err
	}
	filter, err := h.taskFilter(c, board.ID)
	if err != nil {
		return err
	}
	return h.listTasks(c, filter)
}

func (h *Handler) GetTasksByStatus(c *fiber.Ctx) error {
	status := c.Params("status")
	if !models.ValidStatus(status) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid status")
	}
	board, err := h.boardForRead(c)
	if err != nil {
		return err
	}
	return h.listTasks(c, repository.TaskFilter{
		Boards: []primitive.ObjectID{board.ID},
		Status: status,
		Sort:   repository.SortPosition,
	})
}

// GetOverdueTasks lists tasks past their due date that are not done.
func (h *Handler) GetOverdueTasks(c *fiber.Ctx) error {
	board, err := h.boardForRead(c)
	if err != nil {
		return err
	}
	now := h.clock()
	return h.listTasks(c, repository.TaskFilter{
		Boards:        []primitive.ObjectID{board.ID},
		ExcludeStatus: models.StatusDone,
		DueBefore:     &now,
		Sort:          repository.SortDueDate,
	})
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
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
	return c.JSON(fiber.Map{
		"success": true,
		"task":    task,
	})
}

// CreateTask appends a task to the end of the board.
func (h *Handler) CreateTask(c *fiber.Ctx) error {
	boardID, err := paramID(c, "boardId")
	if err != nil {
		return err
	}
	var req createTaskRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	board, err := h.loadBoard(ctx, boardID)
	if err != nil {
		return err
	}
	actorID := middleware.UserID(c)
	if !board.CanEdit(actorID) {
		return forbidden("Not authorized to create tasks in this board")
	}
	assignedTo, err := h.assignee(ctx, board, req.AssignedTo)
	if err != nil {
		return err
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		Board:       board.ID,
		CreatedBy:   actorID,
		AssignedTo:  assignedTo,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Tags:        models.NormalizeTags(req.Tags),
	}
	if task.Status == "" {
		task.Status = models.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.IsCompleted() {
		now := h.clock()
		task.CompletedAt = &now
	}
	if err := h.Stores.Tasks.Create(ctx, task); err != nil {
		return err
	}

	h.record(c, models.ActionTaskCreate, models.EntityTask, task.ID, map[string]interface{}{
		repository.MetadataBoardKey: board.ID.Hex(),
		"title":                     task.Title,
	})
	if assignedTo != nil {
		h.notifyAssigned(ctx, actorID, task, board)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"task":    task,
	})
}

func (h *Handler) notifyAssigned(ctx context.Context, actorID primitive.ObjectID, task *models.Task, board *models.Board) {
	actor := h.userNames(ctx, actorID)[actorID]
	title, boardName := task.Title, board.Name
	h.Notifier.Notify(activity.Notice{
		Recipient: *task.AssignedTo,
		Sender:    &actorID,
		Type:      models.NotificationTaskAssigned,
		Title:     "New task assigned",
		Message:   actor.Name + " assigned you \"" + title + "\"",
		Entity:    models.EntityRef{EntityType: models.EntityTask, EntityID: task.ID},
		Priority:  task.Priority,
		Email: func(u *models.User) (mailer.Message, error) {
			return mailer.TaskAssignedEmail(u.Email, u.Name, actor.Name, title, boardName)
		},
	})
}

// UpdateTask applies a partial update. Moving a task into done stamps
// completedAt; moving it out clears it.
func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateTaskRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	task, board, err := h.loadTask(ctx, id)
	if err != nil {
		return err
	}
	actorID := middleware.UserID(c)
	if !board.CanEdit(actorID) {
		return forbidden("Not authorized to update this task")
	}

	prevStatus := task.Status
	prevAssignee := task.AssignedTo
	changed := map[string]interface{}{}

	if req.Title != nil {
		task.Title = *req.Title
		changed["title"] = task.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
		changed["description"] = true
	}
	if req.Status != nil && *req.Status != task.Status {
		task.Status = *req.Status
		changed["status"] = task.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
		changed["priority"] = task.Priority
	}
	if req.AssignedTo != nil {
		assignedTo, err := h.assignee(ctx, board, *req.AssignedTo)
		if err != nil {
			return err
		}
		task.AssignedTo = assignedTo
		changed["assignedTo"] = *req.AssignedTo
	}
	switch {
	case req.ClearDue:
		task.DueDate = nil
		task.ClearReminders()
		changed["dueDate"] = nil
	case req.DueDate != nil:
		task.DueDate = req.DueDate
		task.ClearReminders()
		changed["dueDate"] = req.DueDate
	}
	if req.Tags != nil {
		task.Tags = models.NormalizeTags(req.Tags)
		changed["tags"] = task.Tags
	}
	if req.Position != nil {
		task.Position = *req.Position
		changed["position"] = task.Position
	}

	completed := prevStatus != models.StatusDone && task.Status == models.StatusDone
	switch {
	case completed:
		now := h.clock()
		task.CompletedAt = &now
	case task.Status != models.StatusDone:
		task.CompletedAt = nil
	}

	if err := h.Stores.Tasks.Save(ctx, task); err != nil {
		return err
	}

	reassigned := task.AssignedTo != nil && (prevAssignee == nil || *prevAssignee != *task.AssignedTo)
	action := models.ActionTaskUpdate
	switch {
	case completed:
		action = models.ActionTaskComplete
	case reassigned:
		action = models.ActionTaskAssign
	}
	h.record(c, action, models.EntityTask, task.ID, map[string]interface{}{
		repository.MetadataBoardKey: board.ID.Hex(),
		"changes":                   changed,
	})
	h.notifyTaskChange(ctx, actorID, task, board, completed, reassigned)

	return c.JSON(fiber.Map{
		"success": true,
		"task":    task,
	})
}

func (h *Handler) notifyTaskChange(ctx context.Context, actorID primitive.ObjectID, task *models.Task, board *models.Board, completed, reassigned bool) {
	ref := models.EntityRef{EntityType: models.EntityTask, EntityID: task.ID}
	if reassigned {
		h.notifyAssigned(ctx, actorID, task, board)
	}
	if completed {
		h.Notifier.Notify(activity.Notice{
			Recipient: task.CreatedBy,
			Sender:    &actorID,
			Type:      models.NotificationTaskCompleted,
			Title:     "Task completed",
			Message:   "\"" + task.Title + "\" was marked as done",
			Entity:    ref,
			Priority:  models.PriorityLow,
		})
	}
	if task.AssignedTo != nil && !reassigned {
		h.Notifier.Notify(activity.Notice{
			Recipient: *task.AssignedTo,
			Sender:    &actorID,
			Type:      models.NotificationTaskUpdated,
			Title:     "Task updated",
			Message:   "\"" + task.Title + "\" was updated",
			Entity:    ref,
			Priority:  models.PriorityLow,
		})
	}
}

// DeleteTask removes the task with its comments and attachments.
func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	task, board, err := h.loadTask(ctx, id)
	if err != nil {
		return err
	}
	if !board.CanEdit(middleware.UserID(c)) {
		return forbidden("Not authorized to delete this task")
	}

	ids := []primitive.ObjectID{task.ID}
	if _, err := h.Stores.Comments.DeleteByTasks(ctx, ids); err != nil {
		return err
	}
	removed, err := h.Stores.Attachments.DeleteByTasks(ctx, ids)
	if err != nil {
		return err
	}
	removeFiles(removed...)
	if err := h.Stores.Tasks.Delete(ctx, task.ID); err != nil {
		return err
	}

	logger.AuditLogger.Info("Task deleted", zap.String("task_id", task.ID.Hex()), zap.String("board_id", board.ID.Hex()))
	h.record(c, models.ActionTaskDelete, models.EntityTask, task.ID, map[string]interface{}{
		repository.MetadataBoardKey: board.ID.Hex(),
		"title":                     task.Title,
	})
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Task deleted",
	})
}
