package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Task{Status: StatusTodo}).IsOverdue(now), "no due date")
	assert.True(t, (&Task{Status: StatusTodo, DueDate: &past}).IsOverdue(now))
	assert.True(t, (&Task{Status: StatusInProgress, DueDate: &past}).IsOverdue(now))
	assert.False(t, (&Task{Status: StatusDone, DueDate: &past}).IsOverdue(now), "done is never overdue")
	assert.False(t, (&Task{Status: StatusTodo, DueDate: &future}).IsOverdue(now))
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" backend", "api", "", "backend ", "api", "ui"})
	assert.Equal(t, []string{"backend", "api", "ui"}, got)
	assert.Empty(t, NormalizeTags(nil))
}

func TestEnumValidators(t *testing.T) {
	assert.True(t, ValidStatus("in-progress"))
	assert.False(t, ValidStatus("pending"))
	assert.True(t, ValidPriority("high"))
	assert.False(t, ValidPriority("urgent"))
	assert.True(t, ValidPermission("write"))
	assert.False(t, ValidPermission("admin"))
	assert.True(t, ValidNotificationType(NotificationCommentMention))
	assert.False(t, ValidNotificationType("task_deleted"))
	assert.True(t, ValidAction(ActionTaskComplete))
	assert.False(t, ValidAction("task.archive"))
	assert.True(t, ValidEntityType(EntityComment))
	assert.True(t, ValidRole(RoleAdmin))
}

func TestUserSummaryHasNoPassword(t *testing.T) {
	u := &User{ID: primitive.NewObjectID(), Name: "Ana", Email: "ana@example.com", Password: "hash", Role: RoleUser}
	s := u.Summary()
	assert.Equal(t, u.ID, s.ID)
	assert.Equal(t, "ana@example.com", s.Email)
}

func TestParseMentions(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	content := "hey @[Ana](" + a.Hex() + ") and @[Budi](" + b.Hex() + "), ping @[Ana again](" + a.Hex() + ")" +
		" but not @[bad](1234) or @plain"

	got := ParseMentions(content)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0])
	assert.Equal(t, b, got[1])

	assert.Empty(t, ParseMentions("no mentions here"))
}

func TestThread(t *testing.T) {
	root1 := Comment{ID: primitive.NewObjectID(), Content: "root 1"}
	root2 := Comment{ID: primitive.NewObjectID(), Content: "root 2"}
	reply := Comment{ID: primitive.NewObjectID(), Content: "reply", ParentComment: &root1.ID}
	missing := primitive.NewObjectID()
	orphan := Comment{ID: primitive.NewObjectID(), Content: "orphan", ParentComment: &missing}

	threads := Thread([]Comment{root1, reply, root2, orphan})
	require.Len(t, threads, 3)
	assert.Equal(t, "root 1", threads[0].Content)
	require.Len(t, threads[0].Replies, 1)
	assert.Equal(t, "reply", threads[0].Replies[0].Content)
	assert.Equal(t, "root 2", threads[1].Content)
	assert.Empty(t, threads[1].Replies)
	assert.Equal(t, "orphan", threads[2].Content)
}

func TestNotificationMarkReadIsOneWay(t *testing.T) {
	n := &Notification{}
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n.MarkRead(first)
	require.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)

	n.MarkRead(first.Add(time.Hour))
	assert.Equal(t, first, *n.ReadAt)
}

func TestAttachmentDerivedFields(t *testing.T) {
	a := &Attachment{OriginalName: "Report.Final.PDF", MimeType: "application/pdf", Size: 1536}
	v := a.View()
	assert.Equal(t, "pdf", v.Extension)
	assert.Equal(t, "1.5 KiB", v.FormattedSize)
	assert.True(t, v.IsDocument)
	assert.False(t, v.IsImage)

	img := &Attachment{OriginalName: "x.png", MimeType: "image/png; charset=binary"}
	assert.True(t, img.IsImage())
	assert.Equal(t, "0 B", img.FormattedSize())

	assert.True(t, AllowedUpload("image/jpeg"))
	assert.True(t, AllowedUpload("text/plain; charset=utf-8"))
	assert.False(t, AllowedUpload("application/x-msdownload"))
}
