// Package repository menyimpan semua entitas di MongoDB. Setiap store
// dipakai lewat interface supaya handler bisa diuji dengan fake.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vortexboard/internal/models"
	"vortexboard/pkg/tracing"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Collection names.
const (
	UsersCollection         = "users"
	BoardsCollection        = "boards"
	TasksCollection         = "tasks"
	CommentsCollection      = "comments"
	NotificationsCollection = "notifications"
	ActivityCollection      = "activitylogs"
	AttachmentsCollection   = "attachments"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	// List pages through every user, newest first.
	List(ctx context.Context, page Page) ([]models.User, int64, error)
	Save(ctx context.Context, user *models.User) error
}

type BoardStore interface {
	Create(ctx context.Context, board *models.Board) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Board, error)
	ListAccessible(ctx context.Context, userID primitive.ObjectID, page Page) ([]models.Board, int64, error)
	AccessibleIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	Save(ctx context.Context, board *models.Board) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type TaskStore interface {
	// Create assigns the next position on the task's board.
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	List(ctx context.Context, filter TaskFilter, page Page) ([]models.Task, int64, error)
	ListByBoards(ctx context.Context, boardIDs []primitive.ObjectID) ([]models.Task, error)
	// Stats aggregates counters over the boards without loading the tasks.
	Stats(ctx context.Context, q TaskStatsQuery) (*TaskStats, error)
	Save(ctx context.Context, task *models.Task) error
	// MarkReminded records that the given reminder kind went out for the task.
	MarkReminded(ctx context.Context, id primitive.ObjectID, kind string, at time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DeleteByBoard removes every task of the board and returns their ids.
	DeleteByBoard(ctx context.Context, boardID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ListByTask(ctx context.Context, taskID primitive.ObjectID) ([]models.Comment, error)
	Save(ctx context.Context, comment *models.Comment) error
	// DeleteWithReplies removes the comment and its direct replies.
	DeleteWithReplies(ctx context.Context, id primitive.ObjectID) (int64, error)
	DeleteByTasks(ctx context.Context, taskIDs []primitive.ObjectID) (int64, error)
}

type AttachmentStore interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Attachment, error)
	ListByTask(ctx context.Context, taskID primitive.ObjectID) ([]models.Attachment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DeleteByTasks returns the removed records so their files can be cleaned up.
	DeleteByTasks(ctx context.Context, taskIDs []primitive.ObjectID) ([]models.Attachment, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, page Page) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	// MarkRead is scoped to the recipient; an already read notification keeps its readAt.
	MarkRead(ctx context.Context, id, recipient primitive.ObjectID, now time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID, now time.Time) (int64, error)
	Delete(ctx context.Context, id, recipient primitive.ObjectID) error
}

type ActivityStore interface {
	Insert(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityFilter, page Page) ([]models.ActivityLog, int64, error)
}

// Stores groups every store the API needs.
type Stores struct {
	Users         UserStore
	Boards        BoardStore
	Tasks         TaskStore
	Comments      CommentStore
	Attachments   AttachmentStore
	Notifications NotificationStore
	Activity      ActivityStore
}

// NewMongoStores builds Mongo-backed stores over db.
func NewMongoStores(db *mongo.Database) Stores {
	return Stores{
		Users:         NewUserRepository(db),
		Boards:        NewBoardRepository(db),
		Tasks:         NewTaskRepository(db),
		Comments:      NewCommentRepository(db),
		Attachments:   NewAttachmentRepository(db),
		Notifications: NewNotificationRepository(db),
		Activity:      NewActivityRepository(db),
	}
}

func startSpan(ctx context.Context, collection, op string) (context.Context, trace.Span) {
	return tracing.Tracer().Start(ctx, collection+"."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.collection.name", collection),
			attribute.String("db.operation.name", op),
		),
	)
}

// endSpan records err on span (ErrNotFound is not a failure) and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
