package activity

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vortexboard/internal/models"
	"vortexboard/internal/repository"
)

// Entry describes one mutation to log.
type Entry struct {
	Actor      primitive.ObjectID
	Action     string
	EntityType string
	EntityID   primitive.ObjectID
	Metadata   map[string]interface{}
	IPAddress  string
	UserAgent  string
}

// Recorder appends activity entries asynchronously.
type Recorder struct {
	store    repository.ActivityStore
	dispatch *Dispatcher
}

func NewRecorder(store repository.ActivityStore, dispatch *Dispatcher) *Recorder {
	return &Recorder{store: store, dispatch: dispatch}
}

// Record queues exactly one activity insert for e.
func (r *Recorder) Record(e Entry) {
	log := &models.ActivityLog{
		User:       e.Actor,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Metadata:   e.Metadata,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
	}
	_ = r.dispatch.Submit(Job{
		Name: "activity:" + e.Action,
		Run: func(ctx context.Context) error {
			return r.store.Insert(ctx, log)
		},
	})
}
