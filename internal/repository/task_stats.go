package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vortexboard/internal/models"
)

// TaskStatsQuery scopes TaskStore.Stats to a set of boards. User is the
// viewer for the assigned/created counters.
type TaskStatsQuery struct {
	Boards     []primitive.ObjectID
	User       primitive.ObjectID
	Now        time.Time
	TrendSince time.Time
}

// TaskStats is computed by the database instead of loading every task.
// Overdue and DueThisWeek only count open tasks; DueThisWeek spans
// [Now, Now+7d]. CreatedPerDay is keyed by UTC day (2006-01-02).
type TaskStats struct {
	Total         int
	Completed     int
	Overdue       int
	DueThisWeek   int
	AssignedTo    int
	CreatedBy     int
	ByStatus      map[string]int
	ByPriority    map[string]int
	CreatedPerDay map[string]int
}

func emptyTaskStats() *TaskStats {
	return &TaskStats{ByStatus: map[string]int{}, ByPriority: map[string]int{}, CreatedPerDay: map[string]int{}}
}

func countIf(cond interface{}) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{cond, 1, 0}}}
}

func groupCount(field string) bson.A {
	return bson.A{
		bson.M{"$match": bson.M{field: bson.M{"$nin": bson.A{"", nil}}}},
		bson.M{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}},
	}
}

// statsPipeline returns one document with a facet per counter group.
func (q TaskStatsQuery) statsPipeline() bson.A {
	open := bson.M{"$ne": bson.A{"$status", models.StatusDone}}
	hasDue := bson.M{"$eq": bson.A{bson.M{"$type": "$dueDate"}, "date"}}
	now, week := q.Now.UTC(), q.Now.UTC().AddDate(0, 0, 7)

	return bson.A{
		bson.M{"$match": bson.M{"board": bson.M{"$in": q.Boards}}},
		bson.M{"$facet": bson.M{
			"totals": bson.A{bson.M{"$group": bson.M{
				"_id":       nil,
				"total":     bson.M{"$sum": 1},
				"completed": countIf(bson.M{"$eq": bson.A{"$status", models.StatusDone}}),
				"overdue": countIf(bson.M{"$and": bson.A{
					open, hasDue, bson.M{"$lt": bson.A{"$dueDate", now}},
				}}),
				"dueThisWeek": countIf(bson.M{"$and": bson.A{
					open, hasDue,
					bson.M{"$gte": bson.A{"$dueDate", now}},
					bson.M{"$lte": bson.A{"$dueDate", week}},
				}}),
				"assignedTo": countIf(bson.M{"$eq": bson.A{"$assignedTo", q.User}}),
				"createdBy":  countIf(bson.M{"$eq": bson.A{"$createdBy", q.User}}),
			}}},
			"byStatus":   groupCount("status"),
			"byPriority": groupCount("priority"),
			"createdPerDay": bson.A{
				bson.M{"$match": bson.M{"createdAt": bson.M{"$gte": q.TrendSince.UTC()}}},
				bson.M{"$group": bson.M{
					"_id": bson.M{"$dateToString": bson.M{
						"format": "%Y-%m-%d", "date": "$createdAt", "timezone": "UTC",
					}},
					"count": bson.M{"$sum": 1},
				}},
			},
		}},
	}
}

type keyCount struct {
	Key   string `bson:"_id"`
	Count int    `bson:"count"`
}

type statsFacets struct {
	Totals []struct {
		Total       int `bson:"total"`
		Completed   int `bson:"completed"`
		Overdue     int `bson:"overdue"`
		DueThisWeek int `bson:"dueThisWeek"`
		AssignedTo  int `bson:"assignedTo"`
		CreatedBy   int `bson:"createdBy"`
	} `bson:"totals"`
	ByStatus      []keyCount `bson:"byStatus"`
	ByPriority    []keyCount `bson:"byPriority"`
	CreatedPerDay []keyCount `bson:"createdPerDay"`
}

func (f statsFacets) stats() *TaskStats {
	s := emptyTaskStats()
	if len(f.Totals) > 0 {
		t := f.Totals[0]
		s.Total, s.Completed, s.Overdue, s.DueThisWeek = t.Total, t.Completed, t.Overdue, t.DueThisWeek
		s.AssignedTo, s.CreatedBy = t.AssignedTo, t.CreatedBy
	}
	for _, kc := range f.ByStatus {
		s.ByStatus[kc.Key] = kc.Count
	}
	for _, kc := range f.ByPriority {
		s.ByPriority[kc.Key] = kc.Count
	}
	for _, kc := range f.CreatedPerDay {
		s.CreatedPerDay[kc.Key] = kc.Count
	}
	return s
}

func (r *TaskRepository) Stats(ctx context.Context, q TaskStatsQuery) (_ *TaskStats, err error) {
	ctx, span := startSpan(ctx, TasksCollection, "aggregate")
	defer func() { endSpan(span, err) }()

	if len(q.Boards) == 0 {
		return emptyTaskStats(), nil
	}
	cur, err := r.coll.Aggregate(ctx, q.statsPipeline())
	if err != nil {
		return nil, err
	}
	var rows []statsFacets
	if err = cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return emptyTaskStats(), nil
	}
	return rows[0].stats(), nil
}
