package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vortexboard/internal/models"
)

var (
	mongoOnce     sync.Once
	mongoPool     *dockertest.Pool
	mongoResource *dockertest.Resource
	mongoClient   *mongo.Client
	mongoErr      error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if mongoClient != nil {
		_ = mongoClient.Disconnect(context.Background())
	}
	if mongoPool != nil && mongoResource != nil {
		_ = mongoPool.Purge(mongoResource)
	}
	os.Exit(code)
}

func startMongo() {
	mongoPool, mongoErr = dockertest.NewPool("")
	if mongoErr != nil {
		return
	}
	if mongoErr = mongoPool.Client.Ping(); mongoErr != nil {
		return
	}
	mongoResource, mongoErr = mongoPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if mongoErr != nil {
		return
	}
	_ = mongoResource.Expire(300)

	uri := fmt.Sprintf("mongodb://localhost:%s", mongoResource.GetPort("27017/tcp"))
	mongoPool.MaxWait = 90 * time.Second
	mongoErr = mongoPool.Retry(func() error {
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := client.Ping(context.Background(), nil); err != nil {
			_ = client.Disconnect(context.Background())
			return err
		}
		mongoClient = client
		return nil
	})
}

// testDatabase returns a fresh database with indexes, skipping the test
// when Docker is unavailable.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	mongoOnce.Do(startMongo)
	if mongoErr != nil {
		t.Skipf("docker not available: %v", mongoErr)
	}

	db := mongoClient.Database("vortexboard_test_" + primitive.NewObjectID().Hex())
	ctx := context.Background()
	require.NoError(t, EnsureIndexes(ctx, db, Retention{Activity: time.Hour, Notifications: time.Hour}))
	t.Cleanup(func() { _ = DropAll(context.Background(), db) })
	return db
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	require.NoError(t, users.Create(ctx, &models.User{Name: "Ana", Email: "ana@example.com", Password: "x", Role: models.RoleUser}))
	err := users.Create(ctx, &models.User{Name: "Other", Email: "ANA@example.com ", Password: "y", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	got, err := users.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
}

func TestTaskRepositoryPositionAndBoardCascade(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	tasks := NewTaskRepository(db)

	boardA, boardB := primitive.NewObjectID(), primitive.NewObjectID()

	first := &models.Task{Title: "first", Board: boardA, Status: models.StatusTodo, Priority: models.PriorityLow}
	require.NoError(t, tasks.Create(ctx, first))
	assert.Equal(t, 0, first.Position)

	second := &models.Task{Title: "second", Board: boardA, Status: models.StatusTodo, Priority: models.PriorityHigh}
	require.NoError(t, tasks.Create(ctx, second))
	assert.Equal(t, 1, second.Position)

	second.Position = 7
	require.NoError(t, tasks.Save(ctx, second))
	third := &models.Task{Title: "third", Board: boardA, Status: models.StatusDone, Priority: models.PriorityMedium}
	require.NoError(t, tasks.Create(ctx, third))
	assert.Equal(t, 8, third.Position)

	other := &models.Task{Title: "other board", Board: boardB, Status: models.StatusTodo, Priority: models.PriorityLow}
	require.NoError(t, tasks.Create(ctx, other))
	assert.Equal(t, 0, other.Position)

	byPriority, total, err := tasks.List(ctx, TaskFilter{Boards: []primitive.ObjectID{boardA}, Sort: SortPriority}, NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, byPriority, 3)
	assert.Equal(t, []string{"second", "third", "first"}, []string{byPriority[0].Title, byPriority[1].Title, byPriority[2].Title})

	deleted, err := tasks.DeleteByBoard(ctx, boardA)
	require.NoError(t, err)
	assert.ElementsMatch(t, []primitive.ObjectID{first.ID, second.ID, third.ID}, deleted)

	remaining, err := tasks.ListByBoards(ctx, []primitive.ObjectID{boardA, boardB})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, other.ID, remaining[0].ID)
}

func TestTaskRepositoryTextSearch(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	tasks := NewTaskRepository(db)
	board := primitive.NewObjectID()

	require.NoError(t, tasks.Create(ctx, &models.Task{Title: "Launch landing page", Board: board, Status: models.StatusTodo, Priority: models.PriorityLow}))
	require.NoError(t, tasks.Create(ctx, &models.Task{Title: "Fix login", Board: board, Status: models.StatusTodo, Priority: models.PriorityLow, Tags: []string{"auth"}}))

	found, total, err := tasks.List(ctx, TaskFilter{Boards: []primitive.ObjectID{board}, Search: "auth"}, NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, "Fix login", found[0].Title)
}

func TestTaskRepositoryReminderMarkers(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	tasks := NewTaskRepository(db)
	board := primitive.NewObjectID()
	due := time.Now().UTC().Add(-time.Hour)

	late := &models.Task{Title: "late", Board: board, Status: models.StatusTodo, Priority: models.PriorityLow, DueDate: &due}
	require.NoError(t, tasks.Create(ctx, late))

	filter := TaskFilter{Boards: []primitive.ObjectID{board}, NotReminded: ReminderOverdue}
	_, total, err := tasks.List(ctx, filter, NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	require.NoError(t, tasks.MarkReminded(ctx, late.ID, ReminderOverdue, time.Now()))
	_, total, err = tasks.List(ctx, filter, NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	// the other kind is tracked separately
	_, total, err = tasks.List(ctx, TaskFilter{Boards: []primitive.ObjectID{board}, NotReminded: ReminderDueSoon}, NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	assert.ErrorIs(t, tasks.MarkReminded(ctx, primitive.NewObjectID(), ReminderOverdue, time.Now()), ErrNotFound)
	assert.Error(t, tasks.MarkReminded(ctx, late.ID, "weekly", time.Now()))
}

func TestTaskRepositoryStats(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	tasks := NewTaskRepository(db)
	board, other := primitive.NewObjectID(), primitive.NewObjectID()
	me, you := primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Now().UTC().Truncate(time.Second)
	past, soon, far := now.Add(-time.Hour), now.Add(48*time.Hour), now.AddDate(0, 0, 10)

	seed := []*models.Task{
		{Board: board, CreatedBy: me, AssignedTo: &me, Status: models.StatusDone, Priority: models.PriorityHigh, DueDate: &past},
		{Board: board, CreatedBy: me, AssignedTo: &you, Status: models.StatusTodo, Priority: models.PriorityHigh, DueDate: &past},
		{Board: board, CreatedBy: you, AssignedTo: &me, Status: models.StatusInProgress, Priority: models.PriorityLow, DueDate: &soon},
		{Board: board, CreatedBy: you, Status: models.StatusTodo, Priority: models.PriorityLow, DueDate: &far},
		{Board: board, CreatedBy: you, Status: models.StatusTodo, Priority: models.PriorityMedium},
		{Board: other, CreatedBy: me, AssignedTo: &me, Status: models.StatusTodo, Priority: models.PriorityHigh, DueDate: &past},
	}
	for _, task := range seed {
		task.Title = "t"
		require.NoError(t, tasks.Create(ctx, task))
	}

	stats, err := tasks.Stats(ctx, TaskStatsQuery{Boards: []primitive.ObjectID{board}, User: me, Now: now, TrendSince: now.AddDate(0, 0, -1)})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.DueThisWeek)
	assert.Equal(t, 2, stats.AssignedTo)
	assert.Equal(t, 2, stats.CreatedBy)
	assert.Equal(t, map[string]int{models.StatusDone: 1, models.StatusTodo: 3, models.StatusInProgress: 1}, stats.ByStatus)
	assert.Equal(t, map[string]int{models.PriorityHigh: 2, models.PriorityLow: 2, models.PriorityMedium: 1}, stats.ByPriority)
	var created int
	for _, n := range stats.CreatedPerDay {
		created += n
	}
	assert.Equal(t, 5, created)

	empty, err := tasks.Stats(ctx, TaskStatsQuery{Boards: []primitive.ObjectID{}, User: me, Now: now})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.ByStatus)
}

func TestDropAllRemovesAppCollections(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	require.NoError(t, NewTaskRepository(db).Create(ctx, &models.Task{Title: "x", Board: primitive.NewObjectID(), Status: models.StatusTodo}))

	require.NoError(t, DropAll(ctx, db))
	names, err := db.ListCollectionNames(ctx, bson.M{})
	require.NoError(t, err)
	assert.NotContains(t, names, TasksCollection)
	assert.NotContains(t, names, UsersCollection)
}

func TestNotificationRepositoryReadState(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	notifications := NewNotificationRepository(db)

	me, someoneElse := primitive.NewObjectID(), primitive.NewObjectID()
	mine := make([]*models.Notification, 3)
	for i := range mine {
		mine[i] = &models.Notification{Recipient: me, Type: models.NotificationTaskAssigned, Title: "t", Message: "m"}
		require.NoError(t, notifications.Create(ctx, mine[i]))
	}
	theirs := &models.Notification{Recipient: someoneElse, Type: models.NotificationTaskAssigned, Title: "t", Message: "m"}
	require.NoError(t, notifications.Create(ctx, theirs))

	readAt := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	n, err := notifications.MarkRead(ctx, mine[0].ID, me, readAt)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)
	assert.True(t, n.ReadAt.Equal(readAt))

	// A second mark keeps the first timestamp.
	n, err = notifications.MarkRead(ctx, mine[0].ID, me, readAt.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, n.ReadAt.Equal(readAt))

	_, err = notifications.MarkRead(ctx, theirs.ID, me, readAt)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := notifications.MarkAllRead(ctx, me, readAt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	unread, err := notifications.CountUnread(ctx, me)
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = notifications.CountUnread(ctx, someoneElse)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestCommentRepositoryDeleteWithReplies(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	comments := NewCommentRepository(db)
	task := primitive.NewObjectID()

	parent := &models.Comment{Content: "parent", Task: task, Author: primitive.NewObjectID()}
	require.NoError(t, comments.Create(ctx, parent))
	reply := &models.Comment{Content: "reply", Task: task, Author: primitive.NewObjectID(), ParentComment: &parent.ID}
	require.NoError(t, comments.Create(ctx, reply))
	sibling := &models.Comment{Content: "sibling", Task: task, Author: primitive.NewObjectID()}
	require.NoError(t, comments.Create(ctx, sibling))

	n, err := comments.DeleteWithReplies(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := comments.ListByTask(ctx, task)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, sibling.ID, left[0].ID)
}
