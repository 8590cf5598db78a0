package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vortexboard/internal/models"
	"vortexboard/internal/repository"
	"vortexboard/pkg/logger"
	"vortexboard/pkg/mailer"
)

// errEmail marks failures after the notification itself was stored.
var errEmail = errors.New("notification email")

// Pusher delivers a realtime payload to a connected user.
type Pusher interface {
	SendToUser(userID string, payload []byte)
}

// EmailFunc renders the email for the resolved recipient.
type EmailFunc func(recipient *models.User) (mailer.Message, error)

// Notice is a notification to deliver to one recipient.
type Notice struct {
	Recipient primitive.ObjectID
	Sender    *primitive.ObjectID
	Type      string
	Title     string
	Message   string
	Entity    models.EntityRef
	Priority  string
	// Email is optional.
	Email EmailFunc
}

type pushMessage struct {
	Type string               `json:"type"`
	Data *models.Notification `json:"data"`
}

// Notifier stores notifications, pushes them over websocket and sends the
// optional email, all in the background.
type Notifier struct {
	store    repository.NotificationStore
	users    repository.UserStore
	pusher   Pusher
	mail     mailer.Mailer
	dispatch *Dispatcher
}

func NewNotifier(store repository.NotificationStore, users repository.UserStore, pusher Pusher, mail mailer.Mailer, dispatch *Dispatcher) *Notifier {
	return &Notifier{store: store, users: users, pusher: pusher, mail: mail, dispatch: dispatch}
}

func skip(notice Notice) bool {
	return notice.Recipient.IsZero() || (notice.Sender != nil && *notice.Sender == notice.Recipient)
}

// Notify queues delivery of n. Users are never notified about their own actions.
func (n *Notifier) Notify(notice Notice) {
	if skip(notice) {
		return
	}
	_ = n.dispatch.Submit(Job{
		Name: "notify:" + notice.Type,
		Run: func(ctx context.Context) error {
			return n.deliver(ctx, notice)
		},
	})
}

// Deliver is the synchronous form of Notify, for batch jobs that must not
// drop notifications when the queue is full.
func (n *Notifier) Deliver(ctx context.Context, notice Notice) error {
	if skip(notice) {
		return nil
	}
	return n.deliver(ctx, notice)
}

func (n *Notifier) deliver(ctx context.Context, notice Notice) error {
	record := &models.Notification{
		Recipient:     notice.Recipient,
		Sender:        notice.Sender,
		Type:          notice.Type,
		Title:         notice.Title,
		Message:       notice.Message,
		RelatedEntity: notice.Entity,
		Priority:      notice.Priority,
	}
	if err := n.store.Create(ctx, record); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if n.pusher != nil {
		payload, err := sonic.Marshal(pushMessage{Type: "notification", Data: record})
		if err != nil {
			logger.ErrorLogger.Error("Error encoding notification push", zap.Error(err))
		} else {
			n.pusher.SendToUser(notice.Recipient.Hex(), payload)
		}
	}

	if notice.Email == nil || n.mail == nil {
		return nil
	}
	recipient, err := n.users.FindByID(ctx, notice.Recipient)
	if err != nil {
		return fmt.Errorf("%w: load recipient: %w", errEmail, err)
	}
	msg, err := notice.Email(recipient)
	if err != nil {
		return fmt.Errorf("%w: render %s: %w", errEmail, notice.Type, err)
	}
	if err := n.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: send %s: %w", errEmail, notice.Type, err)
	}
	return nil
}

// SendEmail queues a standalone email such as the welcome message.
func (n *Notifier) SendEmail(name string, msg mailer.Message) {
	if n.mail == nil {
		return
	}
	_ = n.dispatch.Submit(Job{
		Name: "email:" + name,
		Run: func(ctx context.Context) error {
			return n.mail.Send(ctx, msg)
		},
	})
}
