package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vortexboard/internal/models"
	"vortexboard/pkg/logger"
)

// CachedTaskStore membungkus TaskStore dengan cache Redis untuk FindByID.
// Semua mutasi menghapus key yang terkait; error Redis tidak pernah
// menggagalkan request.
type CachedTaskStore struct {
	TaskStore
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedTaskStore(base TaskStore, client *redis.Client, ttl time.Duration) *CachedTaskStore {
	if base == nil {
		panic("repository.NewCachedTaskStore: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CachedTaskStore{TaskStore: base, redis: client, ttl: ttl}
}

func taskCacheKey(id primitive.ObjectID) string {
	return fmt.Sprintf("task:%s", id.Hex())
}

func (c *CachedTaskStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	if task, ok := c.load(ctx, id); ok {
		return task, nil
	}

	task, err := c.TaskStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, task)
	return task, nil
}

func (c *CachedTaskStore) Save(ctx context.Context, task *models.Task) error {
	if err := c.TaskStore.Save(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.ID)
	return nil
}

func (c *CachedTaskStore) MarkReminded(ctx context.Context, id primitive.ObjectID, kind string, at time.Time) error {
	if err := c.TaskStore.MarkReminded(ctx, id, kind, at); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *CachedTaskStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := c.TaskStore.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *CachedTaskStore) DeleteByBoard(ctx context.Context, boardID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ids, err := c.TaskStore.DeleteByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, ids...)
	return ids, nil
}

func (c *CachedTaskStore) load(ctx context.Context, id primitive.ObjectID) (*models.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	key := taskCacheKey(id)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.ErrorLogger.Warn("Redis get failed, falling back to MongoDB", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var task models.Task
	if err := bson.Unmarshal(data, &task); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return &task, true
}

func (c *CachedTaskStore) store(ctx context.Context, task *models.Task) {
	if c.redis == nil {
		return
	}
	data, err := bson.Marshal(task)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task for cache", zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, taskCacheKey(task.ID), data, c.ttl).Err(); err != nil {
		logger.ErrorLogger.Warn("Error caching task in Redis", zap.String("task_id", task.ID.Hex()), zap.Error(err))
	}
}

func (c *CachedTaskStore) evict(ctx context.Context, ids ...primitive.ObjectID) {
	if c.redis == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, taskCacheKey(id))
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		logger.ErrorLogger.Warn("Error evicting tasks from Redis", zap.Strings("keys", keys), zap.Error(err))
	}
}
