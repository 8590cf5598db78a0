package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"vortexboard/internal/models"
)

// MetadataBoardKey is the metadata field linking an activity entry to its board.
const MetadataBoardKey = "boardId"

// ActivityFilter scopes an activity listing. Board matches entries on the
// board itself or carrying its id in metadata.
type ActivityFilter struct {
	User  *primitive.ObjectID
	Board *primitive.ObjectID
	Since *time.Time
}

func (f ActivityFilter) query() bson.M {
	q := bson.M{}
	if f.User != nil {
		q["user"] = *f.User
	}
	if f.Board != nil {
		q["$or"] = bson.A{
			bson.M{"entityId": *f.Board},
			bson.M{"metadata." + MetadataBoardKey: f.Board.Hex()},
		}
	}
	if f.Since != nil {
		q["timestamp"] = bson.M{"$gte": *f.Since}
	}
	return q
}

type ActivityRepository struct {
	coll *mongo.Collection
}

func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{coll: db.Collection(ActivityCollection)}
}

func (r *ActivityRepository) Insert(ctx context.Context, entry *models.ActivityLog) (err error) {
	ctx, span := startSpan(ctx, ActivityCollection, "insert")
	defer func() { endSpan(span, err) }()

	entry.ID = primitive.NewObjectID()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]interface{}{}
	}
	_, err = r.coll.InsertOne(ctx, entry)
	return err
}

// List returns entries newest first.
func (r *ActivityRepository) List(ctx context.Context, filter ActivityFilter, page Page) (_ []models.ActivityLog, _ int64, err error) {
	ctx, span := startSpan(ctx, ActivityCollection, "find")
	defer func() { endSpan(span, err) }()

	q := filter.query()
	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.coll.Find(ctx, q, page.findOptions().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	out := []models.ActivityLog{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
