package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const DefaultBoardColor = "#3B82F6"

type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	Role      string             `json:"role" bson:"role"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the public projection of a user. It never carries the
// password hash.
type UserSummary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  string             `json:"role,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type Board struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Description   string             `json:"description" bson:"description"`
	Color         string             `json:"color" bson:"color"`
	Owner         primitive.ObjectID `json:"owner" bson:"owner"`
	Collaborators []Collaborator     `json:"collaborators" bson:"collaborators"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type Collaborator struct {
	User       primitive.ObjectID `json:"user" bson:"user"`
	Permission string             `json:"permission" bson:"permission"`
}

type Task struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Title       string              `json:"title" bson:"title"`
	Description string              `json:"description" bson:"description"`
	Board       primitive.ObjectID  `json:"board" bson:"board"`
	CreatedBy   primitive.ObjectID  `json:"createdBy" bson:"createdBy"`
	AssignedTo  *primitive.ObjectID `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	Status      string              `json:"status" bson:"status"`
	Priority    string              `json:"priority" bson:"priority"`
	DueDate     *time.Time          `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	Tags        []string            `json:"tags" bson:"tags"`
	Position    int                 `json:"position" bson:"position"`
	CompletedAt *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updatedAt"`

	// Diisi oleh job reminder supaya reminder yang sama tidak dikirim ulang.
	DueSoonRemindedAt *time.Time `json:"-" bson:"dueSoonRemindedAt,omitempty"`
	OverdueRemindedAt *time.Time `json:"-" bson:"overdueRemindedAt,omitempty"`
}

// ClearReminders resets the reminder markers, e.g. after the due date moved.
func (t *Task) ClearReminders() {
	t.DueSoonRemindedAt = nil
	t.OverdueRemindedAt = nil
}

// IsOverdue reports whether the task has a due date before now and is not done.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(now) && t.Status != StatusDone
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusDone
}

// NormalizeTags trims tags and drops empties and duplicates, keeping the
// first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}
