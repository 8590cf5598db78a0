package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vortexboard/internal/models"
	"vortexboard/internal/repository"
	"vortexboard/pkg/logger"
	"vortexboard/pkg/mailer"
)

// ReminderResult counts the reminders stored by one run.
type ReminderResult struct {
	DueSoon int
	Overdue int
}

// Reminders finds open tasks near or past their due date and notifies the
// assignee, or the creator when nobody is assigned. It is meant to be run by
// an external scheduler.
type Reminders struct {
	tasks    repository.TaskStore
	boards   repository.BoardStore
	notifier *Notifier
	now      func() time.Time
}

func NewReminders(tasks repository.TaskStore, boards repository.BoardStore, notifier *Notifier) *Reminders {
	return &Reminders{tasks: tasks, boards: boards, notifier: notifier, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (r *Reminders) WithClock(now func() time.Time) *Reminders {
	r.now = now
	return r
}

// Run queues task_overdue for tasks due before now and task_due_soon for
// tasks due within the next window. Each kind is sent once per task until
// the due date changes.
func (r *Reminders) Run(ctx context.Context, within time.Duration) (ReminderResult, error) {
	var res ReminderResult
	if within <= 0 {
		return res, errors.New("reminder window must be positive")
	}
	now := r.now().UTC()
	horizon := now.Add(within)
	boardNames := map[primitive.ObjectID]string{}

	overdue, err := r.collect(ctx, repository.TaskFilter{
		ExcludeStatus: models.StatusDone,
		DueBefore:     &now,
		NotReminded:   repository.ReminderOverdue,
		Sort:          repository.SortDueDate,
	})
	if err != nil {
		return res, fmt.Errorf("list overdue tasks: %w", err)
	}
	for i := range overdue {
		if r.remind(ctx, &overdue[i], true, boardNames) {
			res.Overdue++
		}
	}

	dueSoon, err := r.collect(ctx, repository.TaskFilter{
		ExcludeStatus: models.StatusDone,
		DueAfter:      &now,
		DueBefore:     &horizon,
		NotReminded:   repository.ReminderDueSoon,
		Sort:          repository.SortDueDate,
	})
	if err != nil {
		return res, fmt.Errorf("list tasks due soon: %w", err)
	}
	for i := range dueSoon {
		if r.remind(ctx, &dueSoon[i], false, boardNames) {
			res.DueSoon++
		}
	}

	logger.SystemLogger.Info("Due reminders sent", zap.Int("overdue", res.Overdue), zap.Int("due_soon", res.DueSoon))
	return res, nil
}

// collect pages through every task matching filter.
func (r *Reminders) collect(ctx context.Context, filter repository.TaskFilter) ([]models.Task, error) {
	var out []models.Task
	for n := 1; ; n++ {
		page := repository.NewPage(n, repository.MaxPageLimit, repository.MaxPageLimit)
		tasks, total, err := r.tasks.List(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		out = append(out, tasks...)
		if len(tasks) == 0 || int64(len(out)) >= total {
			return out, nil
		}
	}
}

func (r *Reminders) boardName(ctx context.Context, id primitive.ObjectID, cache map[primitive.ObjectID]string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := ""
	if board, err := r.boards.FindByID(ctx, id); err == nil {
		name = board.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		logger.ErrorLogger.Error("Error loading board for reminder", zap.String("board_id", id.Hex()), zap.Error(err))
	}
	cache[id] = name
	return name
}

// remind delivers one reminder and reports whether it was stored. Email
// failures are logged and still count.
func (r *Reminders) remind(ctx context.Context, task *models.Task, overdue bool, boardNames map[primitive.ObjectID]string) bool {
	recipient := task.CreatedBy
	if task.AssignedTo != nil {
		recipient = *task.AssignedTo
	}
	title, due := task.Title, *task.DueDate
	boardName := r.boardName(ctx, task.Board, boardNames)

	notice := Notice{
		Recipient: recipient,
		Type:      models.NotificationTaskDueSoon,
		Title:     "Task due soon",
		Message:   "\"" + title + "\" is due " + due.Format(time.RFC1123),
		Entity:    models.EntityRef{EntityType: models.EntityTask, EntityID: task.ID},
		Priority:  models.PriorityMedium,
		Email: func(u *models.User) (mailer.Message, error) {
			return mailer.DueReminderEmail(u.Email, u.Name, title, boardName, due, overdue)
		},
	}
	if overdue {
		notice.Type = models.NotificationTaskOverdue
		notice.Title = "Task overdue"
		notice.Message = "\"" + title + "\" was due " + due.Format(time.RFC1123)
		notice.Priority = models.PriorityHigh
	}
	if err := r.notifier.Deliver(ctx, notice); err != nil {
		logger.ErrorLogger.Error("Error delivering reminder", zap.String("task_id", task.ID.Hex()), zap.Error(err))
		if !errors.Is(err, errEmail) {
			return false
		}
	}

	kind := repository.ReminderDueSoon
	if overdue {
		kind = repository.ReminderOverdue
	}
	if err := r.tasks.MarkReminded(ctx, task.ID, kind, r.now()); err != nil {
		logger.ErrorLogger.Error("Error marking task as reminded", zap.String("task_id", task.ID.Hex()), zap.String("kind", kind), zap.Error(err))
	}
	return true
}
