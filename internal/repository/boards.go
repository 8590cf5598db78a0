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

type BoardRepository struct {
	coll *mongo.Collection
}

func NewBoardRepository(db *mongo.Database) *BoardRepository {
	return &BoardRepository{coll: db.Collection(BoardsCollection)}
}

// accessibleFilter matches boards the user owns or collaborates on.
func accessibleFilter(userID primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"owner": userID},
		bson.M{"collaborators.user": userID},
	}}
}

func (r *BoardRepository) Create(ctx context.Context, board *models.Board) (err error) {
	ctx, span := startSpan(ctx, BoardsCollection, "insert")
	defer func() { endSpan(span, err) }()

	now := time.Now().UTC()
	board.ID = primitive.NewObjectID()
	board.CreatedAt, board.UpdatedAt = now, now
	if board.Collaborators == nil {
		board.Collaborators = []models.Collaborator{}
	}
	_, err = r.coll.InsertOne(ctx, board)
	return err
}

func (r *BoardRepository) FindByID(ctx context.Context, id primitive.ObjectID) (_ *models.Board, err error) {
	ctx, span := startSpan(ctx, BoardsCollection, "findOne")
	defer func() { endSpan(span, err) }()

	var board models.Board
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&board); err != nil {
		return nil, notFound(err)
	}
	return &board, nil
}

// ListAccessible returns the user's boards, newest first.
func (r *BoardRepository) ListAccessible(ctx context.Context, userID primitive.ObjectID, page Page) (_ []models.Board, _ int64, err error) {
	ctx, span := startSpan(ctx, BoardsCollection, "find")
	defer func() { endSpan(span, err) }()

	filter := accessibleFilter(userID)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.coll.Find(ctx, filter, page.findOptions().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	boards := []models.Board{}
	if err = cur.All(ctx, &boards); err != nil {
		return nil, 0, err
	}
	return boards, total, nil
}

func (r *BoardRepository) AccessibleIDs(ctx context.Context, userID primitive.ObjectID) (_ []primitive.ObjectID, err error) {
	ctx, span := startSpan(ctx, BoardsCollection, "find")
	defer func() { endSpan(span, err) }()

	cur, err := r.coll.Find(ctx, accessibleFilter(userID), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (r *BoardRepository) Save(ctx context.Context, board *models.Board) (err error) {
	ctx, span := startSpan(ctx, BoardsCollection, "replace")
	defer func() { endSpan(span, err) }()

	board.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": board.ID}, board)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BoardRepository) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, BoardsCollection, "delete")
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
