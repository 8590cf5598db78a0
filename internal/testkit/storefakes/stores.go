// Package storefakes provides in-memory repository stores for tests. Every
// store is safe for concurrent use.
package storefakes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vortexboard/internal/models"
	"vortexboard/internal/repository"
)

// New returns a full set of empty in-memory stores.
func New() (*Stores, repository.Stores) {
	s := &Stores{
		Users:         &UserStore{Users: map[primitive.ObjectID]models.User{}},
		Boards:        &BoardStore{Boards: map[primitive.ObjectID]models.Board{}},
		Tasks:         &TaskStore{Tasks: map[primitive.ObjectID]models.Task{}},
		Comments:      &CommentStore{Comments: map[primitive.ObjectID]models.Comment{}},
		Attachments:   &AttachmentStore{Attachments: map[primitive.ObjectID]models.Attachment{}},
		Notifications: &NotificationStore{Notifications: map[primitive.ObjectID]models.Notification{}},
		Activity:      &ActivityStore{},
	}
	return s, repository.Stores{
		Users:         s.Users,
		Boards:        s.Boards,
		Tasks:         s.Tasks,
		Comments:      s.Comments,
		Attachments:   s.Attachments,
		Notifications: s.Notifications,
		Activity:      s.Activity,
	}
}

// Stores exposes the concrete fakes so tests can seed and inspect state.
type Stores struct {
	Users         *UserStore
	Boards        *BoardStore
	Tasks         *TaskStore
	Comments      *CommentStore
	Attachments   *AttachmentStore
	Notifications *NotificationStore
	Activity      *ActivityStore
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Limit <= 0 {
		return items
	}
	start := int(page.Skip())
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type UserStore struct {
	mu    sync.Mutex
	Users map[primitive.ObjectID]models.User
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.Users {
		if u.Email == email {
			return repository.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.Email = email
	user.CreatedAt, user.UpdatedAt = now, now
	s.Users[user.ID] = *user
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.Users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := s.Users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserStore) List(_ context.Context, page repository.Page) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.User, 0, len(s.Users))
	for _, u := range s.Users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.Hex() > all[j].ID.Hex()
	})
	return paginate(all, page), int64(len(all)), nil
}

func (s *UserStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for id, u := range s.Users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.UpdatedAt = time.Now().UTC()
	s.Users[user.ID] = *user
	return nil
}

// Count returns the number of stored users.
func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Users)
}

type BoardStore struct {
	mu     sync.Mutex
	Boards map[primitive.ObjectID]models.Board
}

func (s *BoardStore) Create(_ context.Context, board *models.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	board.ID = primitive.NewObjectID()
	board.CreatedAt, board.UpdatedAt = now, now
	if board.Collaborators == nil {
		board.Collaborators = []models.Collaborator{}
	}
	s.Boards[board.ID] = *board
	return nil
}

func (s *BoardStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Boards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b.Collaborators = append([]models.Collaborator{}, b.Collaborators...)
	return &b, nil
}

func (s *BoardStore) accessible(userID primitive.ObjectID) []models.Board {
	out := []models.Board{}
	for _, b := range s.Boards {
		b := b
		if b.HasAccess(userID) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

func (s *BoardStore) ListAccessible(_ context.Context, userID primitive.ObjectID, page repository.Page) ([]models.Board, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.accessible(userID)
	return paginate(all, page), int64(len(all)), nil
}

func (s *BoardStore) AccessibleIDs(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []primitive.ObjectID{}
	for _, b := range s.accessible(userID) {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (s *BoardStore) Save(_ context.Context, board *models.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Boards[board.ID]; !ok {
		return repository.ErrNotFound
	}
	board.UpdatedAt = time.Now().UTC()
	s.Boards[board.ID] = *board
	return nil
}

func (s *BoardStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Boards[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.Boards, id)
	return nil
}

type TaskStore struct {
	mu    sync.Mutex
	Tasks map[primitive.ObjectID]models.Task
}

func (s *TaskStore) Create(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 0
	for _, t := range s.Tasks {
		if t.Board == task.Board && t.Position+1 > next {
			next = t.Position + 1
		}
	}
	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.Position = next
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	s.Tasks[task.ID] = *task
	return nil
}

func (s *TaskStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func matchesTask(t *models.Task, f repository.TaskFilter) bool {
	if f.Boards != nil && !containsID(f.Boards, t.Board) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Status == "" && f.ExcludeStatus != "" && t.Status == f.ExcludeStatus {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo) {
		return false
	}
	if f.Involving != nil && t.CreatedBy != *f.Involving && (t.AssignedTo == nil || *t.AssignedTo != *f.Involving) {
		return false
	}
	if f.Search != "" {
		haystack := strings.ToLower(t.Title + " " + t.Description + " " + strings.Join(t.Tags, " "))
		if !strings.Contains(haystack, strings.ToLower(f.Search)) {
			return false
		}
	}
	switch f.NotReminded {
	case repository.ReminderDueSoon:
		if t.DueSoonRemindedAt != nil {
			return false
		}
	case repository.ReminderOverdue:
		if t.OverdueRemindedAt != nil {
			return false
		}
	}
	if f.DueAfter != nil || f.DueBefore != nil {
		if t.DueDate == nil {
			return false
		}
		if f.DueAfter != nil && t.DueDate.Before(*f.DueAfter) {
			return false
		}
		if f.DueBefore != nil && !t.DueDate.Before(*f.DueBefore) {
			return false
		}
	}
	return true
}

var priorityRank = map[string]int{models.PriorityHigh: 0, models.PriorityMedium: 1, models.PriorityLow: 2}

func sortTasks(tasks []models.Task, by string) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch by {
		case repository.SortNewest:
			return a.CreatedAt.After(b.CreatedAt)
		case repository.SortDueDate:
			switch {
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			default:
				return a.DueDate.Before(*b.DueDate)
			}
		case repository.SortPriority:
			if priorityRank[a.Priority] != priorityRank[b.Priority] {
				return priorityRank[a.Priority] < priorityRank[b.Priority]
			}
			return a.Position < b.Position
		default:
			return a.Position < b.Position
		}
	})
}

func (s *TaskStore) List(_ context.Context, filter repository.TaskFilter, page repository.Page) ([]models.Task, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Task{}
	for _, t := range s.Tasks {
		t := t
		if matchesTask(&t, filter) {
			out = append(out, t)
		}
	}
	sortTasks(out, filter.Sort)
	return paginate(out, page), int64(len(out)), nil
}

func (s *TaskStore) ListByBoards(_ context.Context, boardIDs []primitive.ObjectID) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Task{}
	for _, t := range s.Tasks {
		if containsID(boardIDs, t.Board) {
			out = append(out, t)
		}
	}
	sortTasks(out, repository.SortPosition)
	return out, nil
}

// Stats mirrors the aggregation pipeline of the Mongo store.
func (s *TaskStore) Stats(_ context.Context, q repository.TaskStatsQuery) (*repository.TaskStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := &repository.TaskStats{ByStatus: map[string]int{}, ByPriority: map[string]int{}, CreatedPerDay: map[string]int{}}
	week := q.Now.AddDate(0, 0, 7)
	for _, t := range s.Tasks {
		if !containsID(q.Boards, t.Board) {
			continue
		}
		out.Total++
		if t.Status != "" {
			out.ByStatus[t.Status]++
		}
		if t.Priority != "" {
			out.ByPriority[t.Priority]++
		}
		if t.AssignedTo != nil && *t.AssignedTo == q.User {
			out.AssignedTo++
		}
		if t.CreatedBy == q.User {
			out.CreatedBy++
		}
		if !t.CreatedAt.Before(q.TrendSince) {
			out.CreatedPerDay[t.CreatedAt.UTC().Format("2006-01-02")]++
		}
		if t.IsCompleted() {
			out.Completed++
			continue
		}
		if t.IsOverdue(q.Now) {
			out.Overdue++
		}
		if t.DueDate != nil && !t.DueDate.Before(q.Now) && !t.DueDate.After(week) {
			out.DueThisWeek++
		}
	}
	return out, nil
}

func (s *TaskStore) Save(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	s.Tasks[task.ID] = *task
	return nil
}

func (s *TaskStore) MarkReminded(_ context.Context, id primitive.ObjectID, kind string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Tasks[id]
	if !ok {
		return repository.ErrNotFound
	}
	at = at.UTC()
	switch kind {
	case repository.ReminderDueSoon:
		t.DueSoonRemindedAt = &at
	case repository.ReminderOverdue:
		t.OverdueRemindedAt = &at
	default:
		return fmt.Errorf("unknown reminder kind %q", kind)
	}
	s.Tasks[id] = t
	return nil
}

func (s *TaskStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.Tasks, id)
	return nil
}

func (s *TaskStore) DeleteByBoard(_ context.Context, boardID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []primitive.ObjectID{}
	for id, t := range s.Tasks {
		if t.Board == boardID {
			ids = append(ids, id)
			delete(s.Tasks, id)
		}
	}
	return ids, nil
}

type CommentStore struct {
	mu       sync.Mutex
	Comments map[primitive.ObjectID]models.Comment
}

func (s *CommentStore) Create(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Mentions == nil {
		c.Mentions = []primitive.ObjectID{}
	}
	s.Comments[c.ID] = *c
	return nil
}

func (s *CommentStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *CommentStore) ListByTask(_ context.Context, taskID primitive.ObjectID) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Comment{}
	for _, c := range s.Comments {
		if c.Task == taskID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *CommentStore) Save(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Comments[c.ID]; !ok {
		return repository.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	s.Comments[c.ID] = *c
	return nil
}

func (s *CommentStore) DeleteWithReplies(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for cid, c := range s.Comments {
		if cid == id || (c.ParentComment != nil && *c.ParentComment == id) {
			delete(s.Comments, cid)
			n++
		}
	}
	if n == 0 {
		return 0, repository.ErrNotFound
	}
	return n, nil
}

func (s *CommentStore) DeleteByTasks(_ context.Context, taskIDs []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.Comments {
		if containsID(taskIDs, c.Task) {
			delete(s.Comments, id)
			n++
		}
	}
	return n, nil
}

type AttachmentStore struct {
	mu          sync.Mutex
	Attachments map[primitive.ObjectID]models.Attachment
}

func (s *AttachmentStore) Create(_ context.Context, a *models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.CreatedAt = time.Now().UTC()
	s.Attachments[a.ID] = *a
	return nil
}

func (s *AttachmentStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.Attachments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s *AttachmentStore) ListByTask(_ context.Context, taskID primitive.ObjectID) ([]models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Attachment{}
	for _, a := range s.Attachments {
		if a.Task == taskID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	return out, nil
}

func (s *AttachmentStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Attachments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.Attachments, id)
	return nil
}

func (s *AttachmentStore) DeleteByTasks(_ context.Context, taskIDs []primitive.ObjectID) ([]models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Attachment{}
	for id, a := range s.Attachments {
		if containsID(taskIDs, a.Task) {
			out = append(out, a)
			delete(s.Attachments, id)
		}
	}
	return out, nil
}

type NotificationStore struct {
	mu            sync.Mutex
	Notifications map[primitive.ObjectID]models.Notification
}

func (s *NotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now().UTC()
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	s.Notifications[n.ID] = *n
	return nil
}

func (s *NotificationStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.Notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (s *NotificationStore) List(_ context.Context, recipient primitive.ObjectID, unreadOnly bool, page repository.Page) ([]models.Notification, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Notification{}
	for _, n := range s.Notifications {
		if n.Recipient != recipient || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	return paginate(out, page), int64(len(out)), nil
}

func (s *NotificationStore) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.Notifications {
		if v.Recipient == recipient && !v.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *NotificationStore) MarkRead(_ context.Context, id, recipient primitive.ObjectID, now time.Time) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.Notifications[id]
	if !ok || n.Recipient != recipient {
		return nil, repository.ErrNotFound
	}
	n.MarkRead(now.UTC())
	s.Notifications[id] = n
	return &n, nil
}

func (s *NotificationStore) MarkAllRead(_ context.Context, recipient primitive.ObjectID, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, n := range s.Notifications {
		if n.Recipient != recipient || n.IsRead {
			continue
		}
		n.MarkRead(now.UTC())
		s.Notifications[id] = n
		count++
	}
	return count, nil
}

func (s *NotificationStore) Delete(_ context.Context, id, recipient primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.Notifications[id]
	if !ok || n.Recipient != recipient {
		return repository.ErrNotFound
	}
	delete(s.Notifications, id)
	return nil
}

// ForRecipient returns every stored notification addressed to recipient.
func (s *NotificationStore) ForRecipient(recipient primitive.ObjectID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Notification{}
	for _, n := range s.Notifications {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out
}

type ActivityStore struct {
	mu      sync.Mutex
	Entries []models.ActivityLog
}

func (s *ActivityStore) Insert(_ context.Context, entry *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = primitive.NewObjectID()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.Entries = append(s.Entries, *entry)
	return nil
}

func (s *ActivityStore) List(_ context.Context, filter repository.ActivityFilter, page repository.Page) ([]models.ActivityLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ActivityLog{}
	for i := len(s.Entries) - 1; i >= 0; i-- {
		e := s.Entries[i]
		if filter.User != nil && e.User != *filter.User {
			continue
		}
		if filter.Board != nil && e.EntityID != *filter.Board && e.Metadata[repository.MetadataBoardKey] != filter.Board.Hex() {
			continue
		}
		if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
			continue
		}
		out = append(out, e)
	}
	return paginate(out, page), int64(len(out)), nil
}

// Snapshot returns a copy of every recorded entry in insertion order.
func (s *ActivityStore) Snapshot() []models.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActivityLog(nil), s.Entries...)
}
