package analytics

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"vortexboard/internal/models"
	"vortexboard/internal/repository"
	"vortexboard/pkg/tracing"
)

const (
	DefaultPeriodDays = 30
	MaxPeriodDays     = 365

	recentActivityDays  = 7
	recentActivityLimit = 10
	boardActivityLimit  = 20
	creationTrendDays   = 30
)

type Overview struct {
	TotalBoards       int     `json:"totalBoards"`
	TotalTasks        int     `json:"totalTasks"`
	TasksAssignedToMe int     `json:"tasksAssignedToMe"`
	TasksCreatedByMe  int     `json:"tasksCreatedByMe"`
	OverdueTasks      int     `json:"overdueTasks"`
	TasksDueThisWeek  int     `json:"tasksDueThisWeek"`
	CompletionRate    float64 `json:"completionRate"`
}

type Dashboard struct {
	Overview          Overview             `json:"overview"`
	TasksByStatus     Counts               `json:"tasksByStatus"`
	TasksByPriority   Counts               `json:"tasksByPriority"`
	RecentActivity    []models.ActivityLog `json:"recentActivity"`
	TaskCreationTrend []DayCount           `json:"taskCreationTrend"`
}

type AssigneeCount struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Count int                `json:"count"`
}

type BoardReport struct {
	BoardName         string               `json:"boardName"`
	TotalTasks        int                  `json:"totalTasks"`
	TasksByStatus     Counts               `json:"tasksByStatus"`
	TasksByPriority   Counts               `json:"tasksByPriority"`
	TasksByAssignee   []AssigneeCount      `json:"tasksByAssignee"`
	AvgCompletionDays float64              `json:"avgCompletionTime"`
	CompletionRate    float64              `json:"completionRate"`
	OverdueTasks      int                  `json:"overdueTasks"`
	Collaborators     int                  `json:"collaborators"`
	BoardActivity     []models.ActivityLog `json:"boardActivity"`
}

type Productivity struct {
	PeriodDays           int        `json:"periodDays"`
	TasksCompleted       int        `json:"tasksCompleted"`
	TasksCreated         int        `json:"tasksCreated"`
	ActiveTasks          int        `json:"activeTasks"`
	OnTimeCompletionRate float64    `json:"onTimeCompletionRate"`
	DailyActivity        []DayCount `json:"dailyActivity"`
}

// Reporter builds the reports for the boards a user can see. The dashboard
// is aggregated by the store; the board and productivity reports run the
// pure aggregations over a narrowed task snapshot.
type Reporter struct {
	boards   repository.BoardStore
	tasks    repository.TaskStore
	users    repository.UserStore
	activity repository.ActivityStore
	now      func() time.Time
}

func NewReporter(stores repository.Stores) *Reporter {
	return &Reporter{
		boards:   stores.Boards,
		tasks:    stores.Tasks,
		users:    stores.Users,
		activity: stores.Activity,
		now:      time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// Dashboard counts are aggregated by the task store; only the recent
// activity page is loaded.
func (r *Reporter) Dashboard(ctx context.Context, userID primitive.ObjectID) (*Dashboard, error) {
	ctx, span := tracing.Tracer().Start(ctx, "analytics.Dashboard")
	defer span.End()

	now := r.now()
	var (
		boardIDs []primitive.ObjectID
		stats    *repository.TaskStats
		recent   []models.ActivityLog
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if boardIDs, err = r.boards.AccessibleIDs(gctx, userID); err != nil {
			return err
		}
		stats, err = r.tasks.Stats(gctx, repository.TaskStatsQuery{
			Boards:     boardIDs,
			User:       userID,
			Now:        now,
			TrendSince: now.AddDate(0, 0, -creationTrendDays),
		})
		return err
	})
	g.Go(func() error {
		since := now.AddDate(0, 0, -recentActivityDays)
		var err error
		recent, _, err = r.activity.List(gctx,
			repository.ActivityFilter{User: &userID, Since: &since},
			repository.NewPage(1, recentActivityLimit, recentActivityLimit))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Dashboard{
		Overview: Overview{
			TotalBoards:       len(boardIDs),
			TotalTasks:        stats.Total,
			TasksAssignedToMe: stats.AssignedTo,
			TasksCreatedByMe:  stats.CreatedBy,
			OverdueTasks:      stats.Overdue,
			TasksDueThisWeek:  stats.DueThisWeek,
			CompletionRate:    CompletionRate(stats.Completed, stats.Total),
		},
		TasksByStatus:     Counts(stats.ByStatus),
		TasksByPriority:   Counts(stats.ByPriority),
		RecentActivity:    recent,
		TaskCreationTrend: TrendFromDays(stats.CreatedPerDay),
	}, nil
}

// BoardReport assumes the caller already checked access to board.
func (r *Reporter) BoardReport(ctx context.Context, board *models.Board) (*BoardReport, error) {
	ctx, span := tracing.Tracer().Start(ctx, "analytics.BoardReport")
	defer span.End()

	var (
		tasks    []models.Task
		activity []models.ActivityLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = r.tasks.ListByBoards(gctx, []primitive.ObjectID{board.ID})
		return err
	})
	g.Go(func() error {
		var err error
		activity, _, err = r.activity.List(gctx,
			repository.ActivityFilter{Board: &board.ID},
			repository.NewPage(1, boardActivityLimit, boardActivityLimit))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byAssignee, err := r.byAssignee(ctx, tasks)
	if err != nil {
		return nil, err
	}

	summary := Summarize(tasks, r.now())
	return &BoardReport{
		BoardName:         board.Name,
		TotalTasks:        summary.Total,
		TasksByStatus:     summary.ByStatus,
		TasksByPriority:   summary.ByPriority,
		TasksByAssignee:   byAssignee,
		AvgCompletionDays: AverageCompletionDays(tasks),
		CompletionRate:    CompletionRate(summary.Completed, summary.Total),
		OverdueTasks:      summary.Overdue,
		Collaborators:     len(board.Collaborators),
		BoardActivity:     activity,
	}, nil
}

// byAssignee counts tasks per assignee, dropping assignees that no longer
// resolve to a user. Highest count first.
func (r *Reporter) byAssignee(ctx context.Context, tasks []models.Task) ([]AssigneeCount, error) {
	counts := map[primitive.ObjectID]int{}
	for i := range tasks {
		if a := tasks[i].AssignedTo; a != nil {
			counts[*a]++
		}
	}
	out := []AssigneeCount{}
	if len(counts) == 0 {
		return out, nil
	}

	ids := make([]primitive.ObjectID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	users, err := r.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out = append(out, AssigneeCount{ID: u.ID, Name: u.Name, Email: u.Email, Count: counts[u.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Productivity reports the user's own work over the trailing period,
// limited to boards they can still access.
func (r *Reporter) Productivity(ctx context.Context, userID primitive.ObjectID, periodDays int) (*Productivity, error) {
	ctx, span := tracing.Tracer().Start(ctx, "analytics.Productivity")
	defer span.End()

	boardIDs, err := r.boards.AccessibleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, _, err := r.tasks.List(ctx, repository.TaskFilter{Boards: boardIDs, Involving: &userID}, repository.Page{})
	if err != nil {
		return nil, err
	}

	start := r.now().AddDate(0, 0, -periodDays)
	p := &Productivity{PeriodDays: periodDays}
	var completed []models.Task
	var updated []time.Time
	for i := range tasks {
		t := &tasks[i]
		if t.CreatedBy == userID && !t.CreatedAt.Before(start) {
			p.TasksCreated++
		}
		if t.AssignedTo == nil || *t.AssignedTo != userID {
			continue
		}
		if !t.IsCompleted() {
			p.ActiveTasks++
		} else if !completedAt(t).Before(start) {
			completed = append(completed, *t)
		}
		updated = append(updated, t.UpdatedAt)
	}
	p.TasksCompleted = len(completed)
	p.OnTimeCompletionRate = OnTimeRate(completed)
	p.DailyActivity = DailyTrend(updated, start)
	return p, nil
}
