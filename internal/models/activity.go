package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActionUserRegister  = "user.register"
	ActionUserLogin     = "user.login"
	ActionUserLogout    = "user.logout"
	ActionUserUpdate    = "user.update"
	ActionBoardCreate   = "board.create"
	ActionBoardUpdate   = "board.update"
	ActionBoardDelete   = "board.delete"
	ActionBoardShare    = "board.share"
	ActionBoardUnshare  = "board.unshare"
	ActionTaskCreate    = "task.create"
	ActionTaskUpdate    = "task.update"
	ActionTaskDelete    = "task.delete"
	ActionTaskAssign    = "task.assign"
	ActionTaskComplete  = "task.complete"
	ActionCommentCreate = "comment.create"
	ActionCommentUpdate = "comment.update"
	ActionCommentDelete = "comment.delete"

	ActionAttachmentUpload = "attachment.upload"
	ActionAttachmentDelete = "attachment.delete"
)

// ActivityLog is written once and never updated; the store expires entries
// after the retention window.
type ActivityLog struct {
	ID         primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	User       primitive.ObjectID     `json:"user" bson:"user"`
	Action     string                 `json:"action" bson:"action"`
	EntityType string                 `json:"entityType" bson:"entityType"`
	EntityID   primitive.ObjectID     `json:"entityId" bson:"entityId"`
	Metadata   map[string]interface{} `json:"metadata" bson:"metadata"`
	IPAddress  string                 `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent  string                 `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	Timestamp  time.Time              `json:"timestamp" bson:"timestamp"`
}

func ValidAction(a string) bool {
	switch a {
	case ActionUserRegister, ActionUserLogin, ActionUserLogout, ActionUserUpdate,
		ActionBoardCreate, ActionBoardUpdate, ActionBoardDelete, ActionBoardShare, ActionBoardUnshare,
		ActionTaskCreate, ActionTaskUpdate, ActionTaskDelete, ActionTaskAssign, ActionTaskComplete,
		ActionCommentCreate, ActionCommentUpdate, ActionCommentDelete,
		ActionAttachmentUpload, ActionAttachmentDelete:
		return true
	default:
		return false
	}
}
