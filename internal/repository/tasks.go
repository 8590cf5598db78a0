package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vortexboard/internal/models"
)

// Task list orderings.
const (
	SortPosition = "position"
	SortNewest   = "-createdAt"
	SortDueDate  = "dueDate"
	SortPriority = "priority"
)

// Reminder kinds, stored as per-task markers.
const (
	ReminderDueSoon = "dueSoon"
	ReminderOverdue = "overdue"
)

func reminderField(kind string) (string, error) {
	switch kind {
	case ReminderDueSoon:
		return "dueSoonRemindedAt", nil
	case ReminderOverdue:
		return "overdueRemindedAt", nil
	default:
		return "", fmt.Errorf("unknown reminder kind %q", kind)
	}
}

func ValidTaskSort(s string) bool {
	switch s {
	case SortPosition, SortNewest, SortDueDate, SortPriority:
		return true
	default:
		return false
	}
}

// TaskFilter narrows a task listing. A nil Boards matches every board,
// an empty non-nil Boards matches nothing.
type TaskFilter struct {
	Boards        []primitive.ObjectID
	Status        string
	ExcludeStatus string
	Priority      string
	AssignedTo    *primitive.ObjectID

	// Involving keeps tasks the user created or is assigned to.
	Involving *primitive.ObjectID
	Search    string
	DueAfter  *time.Time
	DueBefore *time.Time

	// NotReminded keeps tasks that have not had this reminder kind yet.
	NotReminded string
	Sort        string
}

func (f TaskFilter) query() bson.M {
	q := bson.M{}
	if f.Boards != nil {
		q["board"] = bson.M{"$in": f.Boards}
	}
	switch {
	case f.Status != "":
		q["status"] = f.Status
	case f.ExcludeStatus != "":
		q["status"] = bson.M{"$ne": f.ExcludeStatus}
	}
	if f.Priority != "" {
		q["priority"] = f.Priority
	}
	if f.AssignedTo != nil {
		q["assignedTo"] = *f.AssignedTo
	}
	if f.Involving != nil {
		q["$or"] = bson.A{bson.M{"assignedTo": *f.Involving}, bson.M{"createdBy": *f.Involving}}
	}
	if f.Search != "" {
		q["$text"] = bson.M{"$search": f.Search}
	}
	if f.DueAfter != nil || f.DueBefore != nil {
		due := bson.M{}
		if f.DueAfter != nil {
			due["$gte"] = *f.DueAfter
		}
		if f.DueBefore != nil {
			due["$lt"] = *f.DueBefore
		}
		q["dueDate"] = due
	}
	if field, err := reminderField(f.NotReminded); err == nil {
		q[field] = nil
	}
	return q
}

// sortStages orders by the requested field; priority ranks high before low.
func (f TaskFilter) sortStages() bson.A {
	switch f.Sort {
	case SortNewest:
		return bson.A{bson.M{"$sort": bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}}
	case SortDueDate:
		return bson.A{bson.M{"$sort": bson.D{{Key: "dueDate", Value: 1}, {Key: "position", Value: 1}}}}
	case SortPriority:
		rank := bson.M{"$switch": bson.M{
			"branches": bson.A{
				bson.M{"case": bson.M{"$eq": bson.A{"$priority", models.PriorityHigh}}, "then": 0},
				bson.M{"case": bson.M{"$eq": bson.A{"$priority", models.PriorityMedium}}, "then": 1},
			},
			"default": 2,
		}}
		return bson.A{
			bson.M{"$addFields": bson.M{"_priorityRank": rank}},
			bson.M{"$sort": bson.D{{Key: "_priorityRank", Value: 1}, {Key: "position", Value: 1}}},
			bson.M{"$project": bson.M{"_priorityRank": 0}},
		}
	default:
		return bson.A{bson.M{"$sort": bson.D{{Key: "position", Value: 1}, {Key: "createdAt", Value: 1}}}}
	}
}

type TaskRepository struct {
	coll *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{coll: db.Collection(TasksCollection)}
}

// nextPosition is max(position)+1 on the board, or 0 when it has no tasks.
func (r *TaskRepository) nextPosition(ctx context.Context, boardID primitive.ObjectID) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "position", Value: -1}}).
		SetProjection(bson.M{"position": 1})
	var last struct {
		Position int `bson:"position"`
	}
	err := r.coll.FindOne(ctx, bson.M{"board": boardID}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Position + 1, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) (err error) {
	ctx, span := startSpan(ctx, TasksCollection, "insert")
	defer func() { endSpan(span, err) }()

	if task.Position, err = r.nextPosition(ctx, task.Board); err != nil {
		return err
	}
	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.CreatedAt, task.UpdatedAt = now, now
	if task.Tags == nil {
		task.Tags = []string{}
	}
	_, err = r.coll.InsertOne(ctx, task)
	return err
}

func (r *TaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (_ *models.Task, err error) {
	ctx, span := startSpan(ctx, TasksCollection, "findOne")
	defer func() { endSpan(span, err) }()

	var task models.Task
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, filter TaskFilter, page Page) (_ []models.Task, _ int64, err error) {
	ctx, span := startSpan(ctx, TasksCollection, "aggregate")
	defer func() { endSpan(span, err) }()

	match := filter.query()
	total, err := r.coll.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, err
	}

	pipeline := bson.A{bson.M{"$match": match}}
	pipeline = append(pipeline, filter.sortStages()...)
	if page.Limit > 0 {
		pipeline = append(pipeline, bson.M{"$skip": page.Skip()}, bson.M{"$limit": page.Limit})
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	tasks := []models.Task{}
	if err = cur.All(ctx, &tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *TaskRepository) ListByBoards(ctx context.Context, boardIDs []primitive.ObjectID) (_ []models.Task, err error) {
	ctx, span := startSpan(ctx, TasksCollection, "find")
	defer func() { endSpan(span, err) }()

	tasks := []models.Task{}
	if len(boardIDs) == 0 {
		return tasks, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"board": bson.M{"$in": boardIDs}})
	if err != nil {
		return nil, err
	}
	if err = cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) Save(ctx context.Context, task *models.Task) (err error) {
	ctx, span := startSpan(ctx, TasksCollection, "replace")
	defer func() { endSpan(span, err) }()

	task.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReminded sets the reminder marker without touching updatedAt.
func (r *TaskRepository) MarkReminded(ctx context.Context, id primitive.ObjectID, kind string, at time.Time) (err error) {
	ctx, span := startSpan(ctx, TasksCollection, "update")
	defer func() { endSpan(span, err) }()

	field, err := reminderField(kind)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{field: at.UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, TasksCollection, "delete")
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

func (r *TaskRepository) DeleteByBoard(ctx context.Context, boardID primitive.ObjectID) (_ []primitive.ObjectID, err error) {
	ctx, span := startSpan(ctx, TasksCollection, "deleteMany")
	defer func() { endSpan(span, err) }()

	filter := bson.M{"board": boardID}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	if _, err = r.coll.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}
