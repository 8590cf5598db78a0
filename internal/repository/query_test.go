package repository

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vortexboard/internal/models"
)

func TestNewPage(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Limit: 50}, NewPage(0, 0, 50))
	assert.Equal(t, Page{Number: 3, Limit: 10}, NewPage(3, 10, 50))
	assert.Equal(t, Page{Number: 1, Limit: MaxPageLimit}, NewPage(-2, 1000, 50))
	assert.Equal(t, int64(20), NewPage(3, 10, 50).Skip())
}

func TestNewPageClampsHugePageNumber(t *testing.T) {
	p := NewPage(math.MaxInt, MaxPageLimit, 20)
	assert.Equal(t, MaxPageNumber, p.Number)
	assert.Equal(t, int64(MaxPageNumber-1)*MaxPageLimit, p.Skip())
	assert.Positive(t, p.Skip())
}

func TestPagePages(t *testing.T) {
	p := NewPage(1, 10, 10)
	assert.Equal(t, int64(0), p.Pages(0))
	assert.Equal(t, int64(1), p.Pages(10))
	assert.Equal(t, int64(2), p.Pages(11))
}

func TestTaskFilterQuery(t *testing.T) {
	board := primitive.NewObjectID()
	user := primitive.NewObjectID()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	q := TaskFilter{
		Boards:        []primitive.ObjectID{board},
		ExcludeStatus: models.StatusDone,
		Priority:      models.PriorityHigh,
		AssignedTo:    &user,
		Search:        "launch",
		DueBefore:     &now,
	}.query()

	assert.Equal(t, bson.M{"$in": []primitive.ObjectID{board}}, q["board"])
	assert.Equal(t, bson.M{"$ne": models.StatusDone}, q["status"])
	assert.Equal(t, models.PriorityHigh, q["priority"])
	assert.Equal(t, user, q["assignedTo"])
	assert.Equal(t, bson.M{"$search": "launch"}, q["$text"])
	assert.Equal(t, bson.M{"$lt": now}, q["dueDate"])
	assert.NotContains(t, q, "overdueRemindedAt")

	q = TaskFilter{NotReminded: ReminderOverdue}.query()
	assert.Contains(t, q, "overdueRemindedAt")
	assert.Nil(t, q["overdueRemindedAt"])
}

func TestTaskFilterQueryScopes(t *testing.T) {
	assert.NotContains(t, TaskFilter{}.query(), "board")
	assert.Equal(t, bson.M{"$in": []primitive.ObjectID{}}, TaskFilter{Boards: []primitive.ObjectID{}}.query()["board"])
	assert.Equal(t, models.StatusTodo, TaskFilter{Status: models.StatusTodo, ExcludeStatus: models.StatusDone}.query()["status"])
}

func TestTaskFilterInvolving(t *testing.T) {
	user := primitive.NewObjectID()
	q := TaskFilter{Involving: &user}.query()
	assert.Equal(t, bson.A{bson.M{"assignedTo": user}, bson.M{"createdBy": user}}, q["$or"])
	assert.NotContains(t, TaskFilter{}.query(), "$or")
}

func TestTaskStatsPipelineScopesBoards(t *testing.T) {
	board := primitive.NewObjectID()
	pipeline := TaskStatsQuery{Boards: []primitive.ObjectID{board}, Now: time.Now()}.statsPipeline()
	require.Len(t, pipeline, 2)
	assert.Equal(t, bson.M{"$match": bson.M{"board": bson.M{"$in": []primitive.ObjectID{board}}}}, pipeline[0])
	facets := pipeline[1].(bson.M)["$facet"].(bson.M)
	for _, key := range []string{"totals", "byStatus", "byPriority", "createdPerDay"} {
		assert.Contains(t, facets, key)
	}
}

func TestTaskFilterSortStages(t *testing.T) {
	assert.Len(t, TaskFilter{}.sortStages(), 1)
	assert.Len(t, TaskFilter{Sort: SortPriority}.sortStages(), 3)
	assert.True(t, ValidTaskSort(SortNewest))
	assert.False(t, ValidTaskSort("title"))
}

func TestActivityFilterQuery(t *testing.T) {
	board := primitive.NewObjectID()
	q := ActivityFilter{Board: &board}.query()
	assert.Equal(t, bson.A{
		bson.M{"entityId": board},
		bson.M{"metadata.boardId": board.Hex()},
	}, q["$or"])
}
