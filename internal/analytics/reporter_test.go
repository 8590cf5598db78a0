package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vortexboard/internal/models"
	"vortexboard/internal/repository"
	"vortexboard/internal/testkit/storefakes"
)

type reporterFixture struct {
	fakes    *storefakes.Stores
	reporter *Reporter
	owner    models.User
	helper   models.User
	board    models.Board
	hidden   models.Board
}

func newReporterFixture(t *testing.T) *reporterFixture {
	t.Helper()
	ctx := context.Background()
	fakes, stores := storefakes.New()
	f := &reporterFixture{fakes: fakes, reporter: NewReporter(stores).WithClock(func() time.Time { return now })}

	f.owner = models.User{Name: "Owner", Email: "owner@example.com", Role: models.RoleUser}
	f.helper = models.User{Name: "Helper", Email: "helper@example.com", Role: models.RoleUser}
	require.NoError(t, stores.Users.Create(ctx, &f.owner))
	require.NoError(t, stores.Users.Create(ctx, &f.helper))

	f.board = models.Board{Name: "Roadmap", Owner: f.owner.ID, Collaborators: []models.Collaborator{
		{User: f.helper.ID, Permission: models.PermissionWrite},
	}}
	f.hidden = models.Board{Name: "Private", Owner: f.helper.ID}
	require.NoError(t, stores.Boards.Create(ctx, &f.board))
	require.NoError(t, stores.Boards.Create(ctx, &f.hidden))
	return f
}

func (f *reporterFixture) seed(task models.Task) models.Task {
	task.ID = primitive.NewObjectID()
	f.fakes.Tasks.Tasks[task.ID] = task
	return task
}

func TestReporterDashboard(t *testing.T) {
	f := newReporterFixture(t)
	ctx := context.Background()
	helperID := f.helper.ID
	ownerID := f.owner.ID

	f.seed(models.Task{Board: f.board.ID, CreatedBy: ownerID, AssignedTo: &ownerID, Status: models.StatusDone, Priority: models.PriorityHigh, CreatedAt: now.AddDate(0, 0, -2)})
	f.seed(models.Task{Board: f.board.ID, CreatedBy: ownerID, AssignedTo: &helperID, Status: models.StatusDone, Priority: models.PriorityHigh, CreatedAt: now.AddDate(0, 0, -2)})
	f.seed(models.Task{Board: f.board.ID, CreatedBy: helperID, AssignedTo: &ownerID, Status: models.StatusDone, Priority: models.PriorityLow, CreatedAt: now.AddDate(0, 0, -1)})
	f.seed(models.Task{Board: f.board.ID, CreatedBy: helperID, Status: models.StatusTodo, Priority: models.PriorityLow, DueDate: at(-time.Hour), CreatedAt: now.AddDate(0, 0, -60)})
	f.seed(models.Task{Board: f.hidden.ID, CreatedBy: helperID, Status: models.StatusTodo, Priority: models.PriorityLow, CreatedAt: now})

	require.NoError(t, f.fakes.Activity.Insert(ctx, &models.ActivityLog{User: ownerID, Action: models.ActionTaskCreate, Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, f.fakes.Activity.Insert(ctx, &models.ActivityLog{User: ownerID, Action: models.ActionTaskCreate, Timestamp: now.AddDate(0, 0, -9)}))
	require.NoError(t, f.fakes.Activity.Insert(ctx, &models.ActivityLog{User: helperID, Action: models.ActionTaskCreate, Timestamp: now}))

	d, err := f.reporter.Dashboard(ctx, ownerID)
	require.NoError(t, err)

	assert.Equal(t, Overview{
		TotalBoards:       1,
		TotalTasks:        4,
		TasksAssignedToMe: 2,
		TasksCreatedByMe:  2,
		OverdueTasks:      1,
		TasksDueThisWeek:  0,
		CompletionRate:    75.0,
	}, d.Overview)
	assert.Equal(t, Counts{models.StatusDone: 3, models.StatusTodo: 1}, d.TasksByStatus)
	assert.Equal(t, Counts{models.PriorityHigh: 2, models.PriorityLow: 2}, d.TasksByPriority)
	assert.Len(t, d.RecentActivity, 1)
	assert.Equal(t, []DayCount{{Date: "2024-06-13", Count: 2}, {Date: "2024-06-14", Count: 1}}, d.TaskCreationTrend)
}

func TestReporterDashboardWithoutBoards(t *testing.T) {
	_, stores := storefakes.New()
	r := NewReporter(stores).WithClock(func() time.Time { return now })

	d, err := r.Dashboard(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Overview.CompletionRate)
	assert.Zero(t, d.Overview.TotalTasks)
	assert.Empty(t, d.TaskCreationTrend)
}

func TestReporterBoardReport(t *testing.T) {
	f := newReporterFixture(t)
	ctx := context.Background()
	helperID := f.helper.ID
	ownerID := f.owner.ID
	ghost := primitive.NewObjectID()

	created := now.AddDate(0, 0, -4)
	f.seed(models.Task{Board: f.board.ID, AssignedTo: &helperID, Status: models.StatusDone, Priority: models.PriorityHigh, CreatedAt: created, CompletedAt: at(-3 * 24 * time.Hour)})
	f.seed(models.Task{Board: f.board.ID, AssignedTo: &helperID, Status: models.StatusTodo, Priority: models.PriorityHigh, CreatedAt: created})
	f.seed(models.Task{Board: f.board.ID, AssignedTo: &ownerID, Status: models.StatusDone, Priority: models.PriorityMedium, CreatedAt: created, CompletedAt: at(-24 * time.Hour)})
	f.seed(models.Task{Board: f.board.ID, AssignedTo: &ghost, Status: models.StatusTodo, Priority: models.PriorityMedium, CreatedAt: created, DueDate: at(-time.Minute)})

	require.NoError(t, f.fakes.Activity.Insert(ctx, &models.ActivityLog{User: ownerID, Action: models.ActionBoardUpdate, EntityType: models.EntityBoard, EntityID: f.board.ID}))
	require.NoError(t, f.fakes.Activity.Insert(ctx, &models.ActivityLog{User: ownerID, Action: models.ActionTaskCreate, EntityType: models.EntityTask, EntityID: primitive.NewObjectID(),
		Metadata: map[string]interface{}{repository.MetadataBoardKey: f.board.ID.Hex()}}))
	require.NoError(t, f.fakes.Activity.Insert(ctx, &models.ActivityLog{User: ownerID, Action: models.ActionBoardUpdate, EntityType: models.EntityBoard, EntityID: f.hidden.ID}))

	report, err := f.reporter.BoardReport(ctx, &f.board)
	require.NoError(t, err)

	assert.Equal(t, "Roadmap", report.BoardName)
	assert.Equal(t, 4, report.TotalTasks)
	assert.Equal(t, 50.0, report.CompletionRate)
	assert.Equal(t, 1, report.OverdueTasks)
	assert.Equal(t, 1, report.Collaborators)
	assert.Equal(t, 2.0, report.AvgCompletionDays)
	assert.Len(t, report.BoardActivity, 2)
	assert.Equal(t, []AssigneeCount{
		{ID: helperID, Name: "Helper", Email: "helper@example.com", Count: 2},
		{ID: ownerID, Name: "Owner", Email: "owner@example.com", Count: 1},
	}, report.TasksByAssignee)
}

func TestReporterProductivity(t *testing.T) {
	f := newReporterFixture(t)
	ownerID := f.owner.ID
	helperID := f.helper.ID

	// completed on time, inside the period
	f.seed(models.Task{Board: f.board.ID, CreatedBy: ownerID, AssignedTo: &ownerID, Status: models.StatusDone,
		CreatedAt: now.AddDate(0, 0, -5), UpdatedAt: now.AddDate(0, 0, -1), DueDate: at(0), CompletedAt: at(-24 * time.Hour)})
	// completed late, inside the period
	f.seed(models.Task{Board: f.board.ID, CreatedBy: helperID, AssignedTo: &ownerID, Status: models.StatusDone,
		CreatedAt: now.AddDate(0, 0, -20), UpdatedAt: now.AddDate(0, 0, -1), DueDate: at(-48 * time.Hour), CompletedAt: at(-24 * time.Hour)})
	// completed before the period
	f.seed(models.Task{Board: f.board.ID, CreatedBy: ownerID, AssignedTo: &ownerID, Status: models.StatusDone,
		CreatedAt: now.AddDate(0, 0, -50), UpdatedAt: now.AddDate(0, 0, -40), CompletedAt: at(-40 * 24 * time.Hour)})
	// still open
	f.seed(models.Task{Board: f.board.ID, CreatedBy: ownerID, AssignedTo: &ownerID, Status: models.StatusInProgress,
		CreatedAt: now.AddDate(0, 0, -3), UpdatedAt: now.AddDate(0, 0, -3)})
	// assigned to someone else
	f.seed(models.Task{Board: f.board.ID, CreatedBy: ownerID, AssignedTo: &helperID, Status: models.StatusTodo,
		CreatedAt: now.AddDate(0, 0, -2), UpdatedAt: now.AddDate(0, 0, -2)})

	p, err := f.reporter.Productivity(context.Background(), ownerID, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, p.PeriodDays)
	assert.Equal(t, 2, p.TasksCompleted)
	assert.Equal(t, 3, p.TasksCreated)
	assert.Equal(t, 1, p.ActiveTasks)
	assert.Equal(t, 50.0, p.OnTimeCompletionRate)
	assert.Equal(t, []DayCount{{Date: "2024-06-12", Count: 1}, {Date: "2024-06-14", Count: 2}}, p.DailyActivity)
}

func TestStoreStatsMatchSummarize(t *testing.T) {
	f := newReporterFixture(t)
	ownerID := f.owner.ID
	helperID := f.helper.ID

	seeded := []models.Task{
		f.seed(models.Task{Board: f.board.ID, CreatedBy: ownerID, Status: models.StatusDone, Priority: models.PriorityHigh, DueDate: at(-time.Hour), CreatedAt: now.AddDate(0, 0, -1)}),
		f.seed(models.Task{Board: f.board.ID, CreatedBy: helperID, AssignedTo: &ownerID, Status: models.StatusTodo, Priority: models.PriorityLow, DueDate: at(-time.Hour), CreatedAt: now}),
		f.seed(models.Task{Board: f.board.ID, CreatedBy: helperID, Status: models.StatusInProgress, DueDate: at(3 * 24 * time.Hour), CreatedAt: now.AddDate(0, 0, -45)}),
		f.seed(models.Task{Board: f.board.ID, CreatedBy: ownerID, Status: models.StatusTodo, Priority: models.PriorityMedium, DueDate: at(8 * 24 * time.Hour), CreatedAt: now}),
	}
	f.seed(models.Task{Board: f.hidden.ID, CreatedBy: ownerID, Status: models.StatusTodo, Priority: models.PriorityHigh, CreatedAt: now})

	since := now.AddDate(0, 0, -creationTrendDays)
	stats, err := f.fakes.Tasks.Stats(context.Background(), repository.TaskStatsQuery{
		Boards: []primitive.ObjectID{f.board.ID}, User: ownerID, Now: now, TrendSince: since,
	})
	require.NoError(t, err)

	want := Summarize(seeded, now)
	assert.Equal(t, want.Total, stats.Total)
	assert.Equal(t, want.Completed, stats.Completed)
	assert.Equal(t, want.Overdue, stats.Overdue)
	assert.Equal(t, want.DueThisWeek, stats.DueThisWeek)
	assert.Equal(t, want.ByStatus, Counts(stats.ByStatus))
	assert.Equal(t, want.ByPriority, Counts(stats.ByPriority))
	assert.Equal(t, 1, stats.AssignedTo)
	assert.Equal(t, 2, stats.CreatedBy)

	created := make([]time.Time, 0, len(seeded))
	for _, task := range seeded {
		created = append(created, task.CreatedAt)
	}
	assert.Equal(t, DailyTrend(created, since), TrendFromDays(stats.CreatedPerDay))
}
