package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

// Access levels a user can hold on a board.
const (
	AccessNone  = "none"
	AccessRead  = "read"
	AccessWrite = "write"
	AccessOwner = "owner"
)

func ValidPermission(p string) bool {
	return p == PermissionRead || p == PermissionWrite
}

// Permissions indexes the collaborator list by user id. When a user is listed
// more than once the first entry wins.
func (b *Board) Permissions() map[primitive.ObjectID]string {
	perms := make(map[primitive.ObjectID]string, len(b.Collaborators))
	for _, c := range b.Collaborators {
		if _, ok := perms[c.User]; !ok {
			perms[c.User] = c.Permission
		}
	}
	return perms
}

func (b *Board) IsOwner(userID primitive.ObjectID) bool {
	return !userID.IsZero() && b.Owner == userID
}

// RoleOf returns the access level userID holds on the board.
func (b *Board) RoleOf(userID primitive.ObjectID) string {
	if b.IsOwner(userID) {
		return AccessOwner
	}
	perm, ok := b.Permissions()[userID]
	if !ok {
		return AccessNone
	}
	if perm == PermissionWrite {
		return AccessWrite
	}
	return AccessRead
}

// HasAccess is true for the owner and for any collaborator regardless of
// permission.
func (b *Board) HasAccess(userID primitive.ObjectID) bool {
	return b.RoleOf(userID) != AccessNone
}

// CanEdit is true for the owner and for collaborators holding write permission.
func (b *Board) CanEdit(userID primitive.ObjectID) bool {
	switch b.RoleOf(userID) {
	case AccessOwner, AccessWrite:
		return true
	default:
		return false
	}
}

func (b *Board) IsCollaborator(userID primitive.ObjectID) bool {
	_, ok := b.Permissions()[userID]
	return ok
}

// WithoutCollaborator returns the collaborator list minus userID.
func (b *Board) WithoutCollaborator(userID primitive.ObjectID) []Collaborator {
	out := make([]Collaborator, 0, len(b.Collaborators))
	for _, c := range b.Collaborators {
		if c.User != userID {
			out = append(out, c)
		}
	}
	return out
}

// Participants lists the owner followed by every collaborator.
func (b *Board) Participants() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(b.Collaborators)+1)
	ids = append(ids, b.Owner)
	for _, c := range b.Collaborators {
		ids = append(ids, c.User)
	}
	return ids
}
