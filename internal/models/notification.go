package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationTaskAssigned      = "task_assigned"
	NotificationTaskCompleted     = "task_completed"
	NotificationTaskDueSoon       = "task_due_soon"
	NotificationTaskOverdue       = "task_overdue"
	NotificationBoardShared       = "board_shared"
	NotificationCommentAdded      = "comment_added"
	NotificationCommentMention    = "comment_mention"
	NotificationCollaboratorAdded = "collaborator_added"
	NotificationTaskUpdated       = "task_updated"
)

const (
	EntityUser       = "user"
	EntityBoard      = "board"
	EntityTask       = "task"
	EntityComment    = "comment"
	EntityAttachment = "attachment"
)

type Notification struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Recipient     primitive.ObjectID  `json:"recipient" bson:"recipient"`
	Sender        *primitive.ObjectID `json:"sender,omitempty" bson:"sender,omitempty"`
	Type          string              `json:"type" bson:"type"`
	Title         string              `json:"title" bson:"title"`
	Message       string              `json:"message" bson:"message"`
	RelatedEntity EntityRef           `json:"relatedEntity" bson:"relatedEntity"`
	IsRead        bool                `json:"isRead" bson:"isRead"`
	ReadAt        *time.Time          `json:"readAt,omitempty" bson:"readAt,omitempty"`
	Priority      string              `json:"priority" bson:"priority"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
}

type EntityRef struct {
	EntityType string             `json:"entityType" bson:"entityType"`
	EntityID   primitive.ObjectID `json:"entityId" bson:"entityId"`
}

// MarkRead moves the notification to the read state. A notification that is
// already read keeps its original readAt.
func (n *Notification) MarkRead(now time.Time) {
	if n.IsRead && n.ReadAt != nil {
		return
	}
	n.IsRead = true
	n.ReadAt = &now
}

func ValidNotificationType(t string) bool {
	switch t {
	case NotificationTaskAssigned, NotificationTaskCompleted, NotificationTaskDueSoon,
		NotificationTaskOverdue, NotificationBoardShared, NotificationCommentAdded,
		NotificationCommentMention, NotificationCollaboratorAdded, NotificationTaskUpdated:
		return true
	default:
		return false
	}
}

func ValidEntityType(t string) bool {
	switch t {
	case EntityUser, EntityBoard, EntityTask, EntityComment, EntityAttachment:
		return true
	default:
		return false
	}
}
