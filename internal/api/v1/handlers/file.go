package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vortexboard/internal/middleware"
	"vortexboard/internal/models"
	"vortexboard/internal/repository"
	"vortexboard/pkg/logger"
)

// File Handling
// Fungsi untuk validasi file: ukuran dan tipe konten hasil sniffing, bukan
// header Content-Type dari client.
func (h *Handler) validateFile(file *multipart.FileHeader) (string, error) {
	if file.Size > h.Config.MaxUploadSize {
		return "", fiber.NewError(fiber.StatusBadRequest,
			"File size exceeds the limit of "+humanize.IBytes(uint64(h.Config.MaxUploadSize)))
	}
	if file.Size == 0 {
		return "", fiber.NewError(fiber.StatusBadRequest, "File is empty")
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	if !models.AllowedUpload(mtype.String()) {
		logger.SecurityLogger.Warn("Rejected upload", zap.String("filename", file.Filename), zap.String("mime", mtype.String()))
		return "", fiber.NewError(fiber.StatusBadRequest, "File type not allowed")
	}
	return mtype.String(), nil
}

func (h *Handler) loadAttachment(ctx context.Context, id primitive.ObjectID) (*models.Attachment, error) {
	attachment, err := h.Stores.Attachments.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Attachment not found")
	}
	return attachment, err
}

// UploadAttachment menyimpan file ke UploadDir dengan nama acak lalu mencatat
// metadatanya.
func (h *Handler) UploadAttachment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	task, board, err := h.loadTask(ctx, id)
	if err != nil {
		return err
	}
	actorID := middleware.UserID(c)
	if !board.CanEdit(actorID) {
		return forbidden("Not authorized to upload to this task")
	}

	// Ambil file dari form-data
	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Please upload a file")
	}
	mimeType, err := h.validateFile(file)
	if err != nil {
		return err
	}

	// Pastikan folder uploads sudah ada
	if err := os.MkdirAll(h.Config.UploadDir, 0o755); err != nil {
		logger.ErrorLogger.Error("Error creating upload directory", zap.Error(err))
		return err
	}

	attachment := &models.Attachment{
		ID:           primitive.NewObjectID(),
		Filename:     uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename)),
		OriginalName: filepath.Base(file.Filename),
		MimeType:     mimeType,
		Size:         file.Size,
		Task:         task.ID,
		UploadedBy:   actorID,
	}
	attachment.Path = filepath.Join(h.Config.UploadDir, attachment.Filename)
	attachment.URL = "/api/attachments/" + attachment.ID.Hex() + "/download"

	if err := c.SaveFile(file, attachment.Path); err != nil {
		logger.ErrorLogger.Error("Error saving file", zap.Error(err))
		return err
	}
	if err := h.Stores.Attachments.Create(ctx, attachment); err != nil {
		removeFiles(*attachment)
		return err
	}

	logger.AuditLogger.Info("File uploaded", zap.String("filename", attachment.Filename), zap.Int64("size", attachment.Size))
	h.record(c, models.ActionAttachmentUpload, models.EntityAttachment, attachment.ID, map[string]interface{}{
		repository.MetadataBoardKey: board.ID.Hex(),
		"taskId":                    task.ID.Hex(),
		"filename":                  attachment.OriginalName,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"attachment": attachment.View(),
	})
}

func (h *Handler) GetAttachments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	task, board, err := h.loadTask(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !board.HasAccess(middleware.UserID(c)) {
		return forbidden("Not authorized to access this task")
	}
	attachments, err := h.Stores.Attachments.ListByTask(c.UserContext(), task.ID)
	if err != nil {
		return err
	}
	views := make([]models.AttachmentView, 0, len(attachments))
	for i := range attachments {
		views = append(views, attachments[i].View())
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"count":       len(views),
		"attachments": views,
	})
}

// Fungsi untuk mendapatkan file
func (h *Handler) DownloadAttachment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	attachment, err := h.loadAttachment(c.UserContext(), id)
	if err != nil {
		return err
	}
	_, board, err := h.loadTask(c.UserContext(), attachment.Task)
	if err != nil {
		return err
	}
	if !board.HasAccess(middleware.UserID(c)) {
		return forbidden("Not authorized to access this attachment")
	}
	if _, err := os.Stat(attachment.Path); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "File not found")
	}
	return c.Download(attachment.Path, attachment.OriginalName)
}

// DeleteAttachment is allowed for the uploader and board editors.
func (h *Handler) DeleteAttachment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	attachment, err := h.loadAttachment(ctx, id)
	if err != nil {
		return err
	}
	_, board, err := h.loadTask(ctx, attachment.Task)
	if err != nil {
		return err
	}
	actorID := middleware.UserID(c)
	if attachment.UploadedBy != actorID && !board.CanEdit(actorID) {
		return forbidden("Not authorized to delete this attachment")
	}

	if err := h.Stores.Attachments.Delete(ctx, attachment.ID); err != nil {
		return err
	}
	removeFiles(*attachment)
	h.record(c, models.ActionAttachmentDelete, models.EntityAttachment, attachment.ID, map[string]interface{}{
		repository.MetadataBoardKey: board.ID.Hex(),
		"taskId":                    attachment.Task.Hex(),
		"filename":                  attachment.OriginalName,
	})
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Attachment deleted",
	})
}
