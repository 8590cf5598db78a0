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

type CommentRepository struct {
	coll *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) *CommentRepository {
	return &CommentRepository{coll: db.Collection(CommentsCollection)}
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) (err error) {
	ctx, span := startSpan(ctx, CommentsCollection, "insert")
	defer func() { endSpan(span, err) }()

	now := time.Now().UTC()
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt, comment.UpdatedAt = now, now
	if comment.Mentions == nil {
		comment.Mentions = []primitive.ObjectID{}
	}
	_, err = r.coll.InsertOne(ctx, comment)
	return err
}

func (r *CommentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (_ *models.Comment, err error) {
	ctx, span := startSpan(ctx, CommentsCollection, "findOne")
	defer func() { endSpan(span, err) }()

	var comment models.Comment
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

// ListByTask returns the task's comments oldest first.
func (r *CommentRepository) ListByTask(ctx context.Context, taskID primitive.ObjectID) (_ []models.Comment, err error) {
	ctx, span := startSpan(ctx, CommentsCollection, "find")
	defer func() { endSpan(span, err) }()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"task": taskID}, opts)
	if err != nil {
		return nil, err
	}
	comments := []models.Comment{}
	if err = cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *CommentRepository) Save(ctx context.Context, comment *models.Comment) (err error) {
	ctx, span := startSpan(ctx, CommentsCollection, "replace")
	defer func() { endSpan(span, err) }()

	comment.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": comment.ID}, comment)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CommentRepository) DeleteWithReplies(ctx context.Context, id primitive.ObjectID) (_ int64, err error) {
	ctx, span := startSpan(ctx, CommentsCollection, "deleteMany")
	defer func() { endSpan(span, err) }()

	filter := bson.M{"$or": bson.A{bson.M{"_id": id}, bson.M{"parentComment": id}}}
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	if res.DeletedCount == 0 {
		return 0, ErrNotFound
	}
	return res.DeletedCount, nil
}

func (r *CommentRepository) DeleteByTasks(ctx context.Context, taskIDs []primitive.ObjectID) (_ int64, err error) {
	ctx, span := startSpan(ctx, CommentsCollection, "deleteMany")
	defer func() { endSpan(span, err) }()

	if len(taskIDs) == 0 {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"task": bson.M{"$in": taskIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
