package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vortexboard/internal/models"
	"vortexboard/internal/testkit/storefakes"
)

func TestRemindersNotifyOverdueAndDueSoon(t *testing.T) {
	fakes, stores := storefakes.New()
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	owner := models.User{Name: "Ana", Email: "ana@example.com"}
	bo := models.User{Name: "Bo", Email: "bo@example.com"}
	require.NoError(t, stores.Users.Create(ctx, &owner))
	require.NoError(t, stores.Users.Create(ctx, &bo))
	board := models.Board{Name: "Roadmap", Owner: owner.ID}
	require.NoError(t, stores.Boards.Create(ctx, &board))

	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}
	tasks := []models.Task{
		{Title: "late", Status: models.StatusTodo, DueDate: at(-2 * time.Hour), AssignedTo: &bo.ID},
		{Title: "soon", Status: models.StatusInProgress, DueDate: at(3 * time.Hour)},
		{Title: "later", Status: models.StatusTodo, DueDate: at(72 * time.Hour), AssignedTo: &bo.ID},
		{Title: "finished", Status: models.StatusDone, DueDate: at(-time.Hour), AssignedTo: &bo.ID},
		{Title: "undated", Status: models.StatusTodo},
	}
	for i := range tasks {
		tasks[i].Board = board.ID
		tasks[i].CreatedBy = owner.ID
		tasks[i].Priority = models.PriorityMedium
		require.NoError(t, stores.Tasks.Create(ctx, &tasks[i]))
	}

	d := NewDispatcher(DispatcherConfig{Workers: 1, Buffer: 8})
	mail := &recordingMailer{}
	n := NewNotifier(stores.Notifications, stores.Users, nil, mail, d)

	res, err := NewReminders(stores.Tasks, stores.Boards, n).
		WithClock(func() time.Time { return now }).
		Run(ctx, 24*time.Hour)
	require.NoError(t, err)
	closeDispatcher(t, d)

	assert.Equal(t, ReminderResult{DueSoon: 1, Overdue: 1}, res)

	toBo := fakes.Notifications.ForRecipient(bo.ID)
	require.Len(t, toBo, 1)
	assert.Equal(t, models.NotificationTaskOverdue, toBo[0].Type)
	assert.Equal(t, models.PriorityHigh, toBo[0].Priority)

	// unassigned task falls back to its creator
	toOwner := fakes.Notifications.ForRecipient(owner.ID)
	require.Len(t, toOwner, 1)
	assert.Equal(t, models.NotificationTaskDueSoon, toOwner[0].Type)

	require.Len(t, mail.sent, 2)
	subjects := []string{mail.sent[0].Subject, mail.sent[1].Subject}
	assert.ElementsMatch(t, []string{"Overdue: late", "Due soon: soon"}, subjects)
}

func TestRemindersAreSentOncePerDueDate(t *testing.T) {
	fakes, stores := storefakes.New()
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	owner := models.User{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, stores.Users.Create(ctx, &owner))
	board := models.Board{Name: "Roadmap", Owner: owner.ID}
	require.NoError(t, stores.Boards.Create(ctx, &board))

	lateDue, soonDue := now.Add(-time.Hour), now.Add(2*time.Hour)
	late := models.Task{Title: "late", Board: board.ID, CreatedBy: owner.ID, Status: models.StatusTodo, DueDate: &lateDue}
	soon := models.Task{Title: "soon", Board: board.ID, CreatedBy: owner.ID, Status: models.StatusTodo, DueDate: &soonDue}
	require.NoError(t, stores.Tasks.Create(ctx, &late))
	require.NoError(t, stores.Tasks.Create(ctx, &soon))

	d := NewDispatcher(DispatcherConfig{Workers: 1, Buffer: 8})
	defer closeDispatcher(t, d)
	mail := &recordingMailer{}
	r := NewReminders(stores.Tasks, stores.Boards, NewNotifier(stores.Notifications, stores.Users, nil, mail, d)).
		WithClock(func() time.Time { return now })

	res, err := r.Run(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ReminderResult{DueSoon: 1, Overdue: 1}, res)

	stored := fakes.Tasks.Tasks[late.ID]
	require.NotNil(t, stored.OverdueRemindedAt)
	assert.True(t, now.Equal(*stored.OverdueRemindedAt))
	assert.Nil(t, stored.DueSoonRemindedAt)

	res, err = r.Run(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ReminderResult{}, res)
	assert.Len(t, fakes.Notifications.ForRecipient(owner.ID), 2)

	// moving the due date re-arms the reminder
	task, err := stores.Tasks.FindByID(ctx, soon.ID)
	require.NoError(t, err)
	later := now.Add(5 * time.Hour)
	task.DueDate = &later
	task.ClearReminders()
	require.NoError(t, stores.Tasks.Save(ctx, task))

	res, err = r.Run(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ReminderResult{DueSoon: 1}, res)
	assert.Len(t, fakes.Notifications.ForRecipient(owner.ID), 3)
}

func TestRemindersRejectNonPositiveWindow(t *testing.T) {
	_, stores := storefakes.New()
	d := NewDispatcher(DispatcherConfig{Workers: 1, Buffer: 1})
	defer closeDispatcher(t, d)
	n := NewNotifier(stores.Notifications, stores.Users, nil, nil, d)

	_, err := NewReminders(stores.Tasks, stores.Boards, n).Run(context.Background(), 0)
	assert.Error(t, err)
}

func TestDeliverSkipsSelf(t *testing.T) {
	fakes, stores := storefakes.New()
	d := NewDispatcher(DispatcherConfig{Workers: 1, Buffer: 1})
	defer closeDispatcher(t, d)
	n := NewNotifier(stores.Notifications, stores.Users, nil, nil, d)

	me := primitive.NewObjectID()
	require.NoError(t, n.Deliver(context.Background(), Notice{Recipient: me, Sender: &me, Type: models.NotificationTaskUpdated}))
	assert.Empty(t, fakes.Notifications.ForRecipient(me))
}
