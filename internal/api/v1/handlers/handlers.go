// Package handlers berisi HTTP handler API v1. Semua handler memakai
// dependency yang diinjeksi lewat Handler, tidak ada state global.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vortexboard/internal/activity"
	"vortexboard/internal/config"
	"vortexboard/internal/middleware"
	"vortexboard/internal/models"
	"vortexboard/internal/repository"
	"vortexboard/pkg/logger"
)

type Handler struct {
	*config.Dependencies
	now func() time.Time
}

func New(deps *config.Dependencies) *Handler {
	return &Handler{Dependencies: deps, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) clock() time.Time {
	return h.now().UTC()
}

// list is the paging envelope shared by every list endpoint.
func list(key string, items interface{}, count int, total int64, page repository.Page) fiber.Map {
	return fiber.Map{
		"success":     true,
		"count":       count,
		"total":       total,
		"totalPages":  page.Pages(total),
		"currentPage": page.Number,
		key:           items,
	}
}

func pageFrom(c *fiber.Ctx, defaultLimit int) repository.Page {
	return repository.NewPage(c.QueryInt("page", 1), c.QueryInt("limit", defaultLimit), defaultLimit)
}

func paramID(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(name))
	if err != nil {
		return primitive.NilObjectID, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name+" format")
	}
	return id, nil
}

// bind decodes the JSON body into dst and validates it.
func (h *Handler) bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(dst); err != nil {
		return validationError(dst, err)
	}
	return nil
}

// validationError joins every field failure into one 400 message.
func validationError(dst interface{}, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fieldLabel(dst, fe), fe))
	}
	return fiber.NewError(fiber.StatusBadRequest, strings.Join(messages, ", "))
}

// fieldLabel prefers the `label` tag over the json name.
func fieldLabel(dst interface{}, fe validator.FieldError) string {
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if label := f.Tag.Get("label"); label != "" {
				return label
			}
		}
	}
	name := fe.Field()
	if name == "" {
		return "Field"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func fieldMessage(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Valid " + strings.ToLower(label) + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "hexcolor":
		return label + " must be a valid hex color"
	default:
		return label + " is invalid"
	}
}

func (h *Handler) loadBoard(ctx context.Context, id primitive.ObjectID) (*models.Board, error) {
	board, err := h.Stores.Boards.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Board not found")
	}
	return board, err
}

// loadTask returns the task together with its board.
func (h *Handler) loadTask(ctx context.Context, id primitive.ObjectID) (*models.Task, *models.Board, error) {
	task, err := h.Stores.Tasks.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fiber.NewError(fiber.StatusNotFound, "Task not found")
	}
	if err != nil {
		return nil, nil, err
	}
	board, err := h.loadBoard(ctx, task.Board)
	if err != nil {
		return nil, nil, err
	}
	return task, board, nil
}

func forbidden(message string) error {
	return fiber.NewError(fiber.StatusForbidden, message)
}

// record queues one activity entry for the authenticated user.
func (h *Handler) record(c *fiber.Ctx, action, entityType string, entityID primitive.ObjectID, metadata map[string]interface{}) {
	h.recordAs(c, middleware.UserID(c), action, entityType, entityID, metadata)
}

func (h *Handler) recordAs(c *fiber.Ctx, actor primitive.ObjectID, action, entityType string, entityID primitive.ObjectID, metadata map[string]interface{}) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	h.Recorder.Record(activity.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		IPAddress:  c.IP(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	})
}

// userNames resolves display names; unknown ids are absent from the map.
func (h *Handler) userNames(ctx context.Context, ids ...primitive.ObjectID) map[primitive.ObjectID]models.User {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	users, err := h.Stores.Users.FindByIDs(ctx, ids)
	if err != nil {
		logger.ErrorLogger.Error("Error resolving users", zap.Error(err))
		return out
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}

func senderOf(c *fiber.Ctx) *primitive.ObjectID {
	id := middleware.UserID(c)
	return &id
}
