package models

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Content       string               `json:"content" bson:"content"`
	Task          primitive.ObjectID   `json:"task" bson:"task"`
	Author        primitive.ObjectID   `json:"author" bson:"author"`
	ParentComment *primitive.ObjectID  `json:"parentComment" bson:"parentComment"`
	Mentions      []primitive.ObjectID `json:"mentions" bson:"mentions"`
	IsEdited      bool                 `json:"isEdited" bson:"isEdited"`
	EditedAt      *time.Time           `json:"editedAt,omitempty" bson:"editedAt,omitempty"`
	CreatedAt     time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// @[display name](24 hex id)
var mentionPattern = regexp.MustCompile(`@\[([^\]]+)\]\(([a-fA-F0-9]{24})\)`)

// ParseMentions extracts the distinct user ids referenced by mention tokens,
// in order of first appearance.
func ParseMentions(content string) []primitive.ObjectID {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	ids := make([]primitive.ObjectID, 0, len(matches))
	seen := make(map[primitive.ObjectID]struct{}, len(matches))
	for _, m := range matches {
		id, err := primitive.ObjectIDFromHex(m[2])
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// IsReply reports whether the comment hangs off another comment.
func (c *Comment) IsReply() bool {
	return c.ParentComment != nil && !c.ParentComment.IsZero()
}

// ThreadedComment is a top-level comment with its direct replies.
type ThreadedComment struct {
	Comment
	Replies []Comment `json:"replies"`
}

// Thread groups comments into single-level threads. Replies whose parent is
// missing from the input are promoted to the top level. Input order is
// preserved within each level.
func Thread(comments []Comment) []ThreadedComment {
	index := make(map[primitive.ObjectID]int, len(comments))
	out := make([]ThreadedComment, 0, len(comments))
	for _, c := range comments {
		if c.IsReply() {
			continue
		}
		index[c.ID] = len(out)
		out = append(out, ThreadedComment{Comment: c, Replies: []Comment{}})
	}
	for _, c := range comments {
		if !c.IsReply() {
			continue
		}
		if i, ok := index[*c.ParentComment]; ok {
			out[i].Replies = append(out[i].Replies, c)
			continue
		}
		out = append(out, ThreadedComment{Comment: c, Replies: []Comment{}})
	}
	return out
}
