package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vortexboard/internal/models"
)

type NotificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{coll: db.Collection(NotificationsCollection)}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (err error) {
	ctx, span := startSpan(ctx, NotificationsCollection, "insert")
	defer func() { endSpan(span, err) }()

	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now().UTC()
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	_, err = r.coll.InsertOne(ctx, n)
	return err
}

func (r *NotificationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (_ *models.Notification, err error) {
	ctx, span := startSpan(ctx, NotificationsCollection, "findOne")
	defer func() { endSpan(span, err) }()

	var n models.Notification
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// List returns the recipient's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, page Page) (_ []models.Notification, _ int64, err error) {
	ctx, span := startSpan(ctx, NotificationsCollection, "find")
	defer func() { endSpan(span, err) }()

	filter := bson.M{"recipient": recipient}
	if unreadOnly {
		filter["isRead"] = false
	}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.coll.Find(ctx, filter, page.findOptions().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	out := []models.Notification{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipient primitive.ObjectID) (_ int64, err error) {
	ctx, span := startSpan(ctx, NotificationsCollection, "count")
	defer func() { endSpan(span, err) }()

	return r.coll.CountDocuments(ctx, bson.M{"recipient": recipient, "isRead": false})
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipient primitive.ObjectID, now time.Time) (_ *models.Notification, err error) {
	ctx, span := startSpan(ctx, NotificationsCollection, "findOneAndUpdate")
	defer func() { endSpan(span, err) }()

	var n models.Notification
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "recipient": recipient, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": now.UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err == nil {
		return &n, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// Already read, or not the caller's.
	if err = r.coll.FindOne(ctx, bson.M{"_id": id, "recipient": recipient}).Decode(&n); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipient primitive.ObjectID, now time.Time) (_ int64, err error) {
	ctx, span := startSpan(ctx, NotificationsCollection, "updateMany")
	defer func() { endSpan(span, err) }()

	res, err := r.coll.UpdateMany(ctx,
		bson.M{"recipient": recipient, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": now.UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id, recipient primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, NotificationsCollection, "delete")
	defer func() { endSpan(span, err) }()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "recipient": recipient})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
