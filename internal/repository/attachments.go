package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vortexboard/internal/models"
)

type AttachmentRepository struct {
	coll *mongo.Collection
}

func NewAttachmentRepository(db *mongo.Database) *AttachmentRepository {
	return &AttachmentRepository{coll: db.Collection(AttachmentsCollection)}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *models.Attachment) (err error) {
	ctx, span := startSpan(ctx, AttachmentsCollection, "insert")
	defer func() { endSpan(span, err) }()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.CreatedAt = time.Now().UTC()
	_, err = r.coll.InsertOne(ctx, a)
	return err
}

func (r *AttachmentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (_ *models.Attachment, err error) {
	ctx, span := startSpan(ctx, AttachmentsCollection, "findOne")
	defer func() { endSpan(span, err) }()

	var a models.Attachment
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ListByTask returns newest uploads first.
func (r *AttachmentRepository) ListByTask(ctx context.Context, taskID primitive.ObjectID) (_ []models.Attachment, err error) {
	ctx, span := startSpan(ctx, AttachmentsCollection, "find")
	defer func() { endSpan(span, err) }()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"task": taskID}, opts)
	if err != nil {
		return nil, err
	}
	out := []models.Attachment{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, AttachmentsCollection, "delete")
	defer func() { endSpan(span, err) }()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AttachmentRepository) DeleteByTasks(ctx context.Context, taskIDs []primitive.ObjectID) (_ []models.Attachment, err error) {
	ctx, span := startSpan(ctx, AttachmentsCollection, "deleteMany")
	defer func() { endSpan(span, err) }()

	out := []models.Attachment{}
	if len(taskIDs) == 0 {
		return out, nil
	}
	filter := bson.M{"task": bson.M{"$in": taskIDs}}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if _, err = r.coll.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return out, nil
}
