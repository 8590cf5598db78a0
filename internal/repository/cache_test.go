package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vortexboard/internal/models"
)

// countingTaskStore is an in-memory TaskStore that counts FindByID calls.
type countingTaskStore struct {
	TaskStore
	tasks map[primitive.ObjectID]models.Task
	finds int
}

func (s *countingTaskStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	s.finds++
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &task, nil
}

func (s *countingTaskStore) Save(_ context.Context, task *models.Task) error {
	s.tasks[task.ID] = *task
	return nil
}

func (s *countingTaskStore) MarkReminded(_ context.Context, id primitive.ObjectID, _ string, at time.Time) error {
	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	task.OverdueRemindedAt = &at
	s.tasks[id] = task
	return nil
}

func (s *countingTaskStore) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(s.tasks, id)
	return nil
}

func (s *countingTaskStore) DeleteByBoard(_ context.Context, boardID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	for id, task := range s.tasks {
		if task.Board == boardID {
			ids = append(ids, id)
			delete(s.tasks, id)
		}
	}
	return ids, nil
}

func newCacheFixture(t *testing.T) (*miniredis.Miniredis, *countingTaskStore, *CachedTaskStore, models.Task) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	task := models.Task{
		ID:        primitive.NewObjectID(),
		Title:     "Write docs",
		Board:     primitive.NewObjectID(),
		Status:    models.StatusTodo,
		Priority:  models.PriorityHigh,
		Tags:      []string{"docs"},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	base := &countingTaskStore{tasks: map[primitive.ObjectID]models.Task{task.ID: task}}
	return m, base, NewCachedTaskStore(base, client, time.Hour), task
}

func TestCachedTaskStoreReadThrough(t *testing.T) {
	m, base, cache, task := newCacheFixture(t)
	ctx := context.Background()

	got, err := cache.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.True(t, m.Exists("task:"+task.ID.Hex()))
	assert.Equal(t, time.Hour, m.TTL("task:"+task.ID.Hex()))

	got, err = cache.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, base.finds, "second read should be served by redis")
	assert.Equal(t, task.Board, got.Board)
	assert.Equal(t, []string{"docs"}, got.Tags)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
}

func TestCachedTaskStoreEvictsOnSave(t *testing.T) {
	m, base, cache, task := newCacheFixture(t)
	ctx := context.Background()

	_, err := cache.FindByID(ctx, task.ID)
	require.NoError(t, err)

	task.Title = "Write better docs"
	require.NoError(t, cache.Save(ctx, &task))
	assert.False(t, m.Exists("task:"+task.ID.Hex()))

	got, err := cache.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write better docs", got.Title)
	assert.Equal(t, 2, base.finds)
}

func TestCachedTaskStoreEvictsOnMarkReminded(t *testing.T) {
	m, _, cache, task := newCacheFixture(t)
	ctx := context.Background()

	_, err := cache.FindByID(ctx, task.ID)
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, cache.MarkReminded(ctx, task.ID, ReminderOverdue, at))
	assert.False(t, m.Exists("task:"+task.ID.Hex()))

	got, err := cache.FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OverdueRemindedAt)
	assert.True(t, at.Equal(*got.OverdueRemindedAt))
}

func TestCachedTaskStoreEvictsBoardCascade(t *testing.T) {
	m, _, cache, task := newCacheFixture(t)
	ctx := context.Background()

	_, err := cache.FindByID(ctx, task.ID)
	require.NoError(t, err)

	ids, err := cache.DeleteByBoard(ctx, task.Board)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{task.ID}, ids)
	assert.False(t, m.Exists("task:"+task.ID.Hex()))

	_, err = cache.FindByID(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedTaskStoreNotFoundIsNotCached(t *testing.T) {
	m, _, cache, _ := newCacheFixture(t)

	missing := primitive.NewObjectID()
	_, err := cache.FindByID(context.Background(), missing)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, m.Exists("task:"+missing.Hex()))
}

func TestCachedTaskStoreSurvivesRedisOutage(t *testing.T) {
	m, base, cache, task := newCacheFixture(t)
	m.Close()

	got, err := cache.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, 1, base.finds)
}
