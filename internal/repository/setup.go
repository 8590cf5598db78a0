package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"vortexboard/internal/models"
	"vortexboard/pkg/auth"
	"vortexboard/pkg/logger"
)

// Retention controls the TTL indexes.
type Retention struct {
	Activity      time.Duration
	Notifications time.Duration
}

func indexModels(ret Retention) map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		BoardsCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "collaborators.user", Value: 1}}},
		},
		TasksCollection: {
			{Keys: bson.D{{Key: "board", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "board", Value: 1}, {Key: "priority", Value: 1}}},
			{Keys: bson.D{{Key: "board", Value: 1}, {Key: "position", Value: 1}}},
			{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
			{Keys: bson.D{{Key: "dueDate", Value: 1}}},
			{Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "tags", Value: "text"},
			}},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "task", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "parentComment", Value: 1}}},
		},
		AttachmentsCollection: {
			{Keys: bson.D{{Key: "task", Value: 1}}},
		},
		NotificationsCollection: {
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "isRead", Value: 1}, {Key: "createdAt", Value: -1}}},
			{
				Keys: bson.D{{Key: "readAt", Value: 1}},
				Options: options.Index().
					SetExpireAfterSeconds(int32(ret.Notifications.Seconds())).
					SetPartialFilterExpression(bson.M{"isRead": true}),
			},
		},
		ActivityCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "entityType", Value: 1}, {Key: "entityId", Value: 1}}},
			{
				Keys:    bson.D{{Key: "timestamp", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(int32(ret.Activity.Seconds())),
			},
		},
	}
}

// EnsureIndexes membuat semua index yang dibutuhkan. Aman dipanggil berulang.
func EnsureIndexes(ctx context.Context, db *mongo.Database, ret Retention) error {
	for coll, idx := range indexModels(ret) {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	logger.SystemLogger.Info("MongoDB indexes are ready")
	return nil
}

// SeedAdmin creates an admin account when no user owns the email yet.
func SeedAdmin(ctx context.Context, users UserStore, name, email, password string) error {
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.User{Name: name, Email: email, Password: hashed, Role: models.RoleAdmin}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.AuditLogger.Info("Admin user is created", zap.String("email", admin.Email))
	return nil
}

// DropAll menghapus semua collection milik aplikasi.
func DropAll(ctx context.Context, db *mongo.Database) error {
	for _, coll := range []string{
		UsersCollection, BoardsCollection, TasksCollection, CommentsCollection,
		NotificationsCollection, ActivityCollection, AttachmentsCollection,
	} {
		if err := db.Collection(coll).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", coll, err)
		}
	}
	return nil
}
