package v1

import (
	"github.com/gofiber/fiber/v2"

	"vortexboard/internal/api/v1/handlers"
	"vortexboard/internal/middleware"
	"vortexboard/internal/models"
	"vortexboard/internal/websocket"
)

func RegisterRoutes(app *fiber.App, h *handlers.Handler) {
	app.Get("/", h.Welcome)
	app.Get("/health", h.Health)
	app.Get("/api-docs", h.Docs)

	// WebSocket notifikasi realtime, token lewat query string
	app.Get("/ws/notifications", websocket.Authenticate(h.Tokens), websocket.Serve(h.Hub))

	api := app.Group("/api")
	protected := middleware.UseToken(h.Tokens)
	id := middleware.ValidateObjectID("id")
	boardID := middleware.ValidateObjectID("boardId")

	// Auth
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)
	authRoutes.Post("/logout", protected, h.Logout)
	authRoutes.Get("/me", protected, h.GetMe)
	authRoutes.Put("/updatedetails", protected, h.UpdateDetails)
	authRoutes.Put("/updatepassword", protected, h.UpdatePassword)

	// User, khusus admin
	userRoutes := api.Group("/users", protected, middleware.RequireRole(models.RoleAdmin))
	userRoutes.Get("/", h.GetUsers)

	// Board
	boardRoutes := api.Group("/boards", protected)
	boardRoutes.Get("/", h.GetBoards)
	boardRoutes.Post("/", h.CreateBoard)
	boardRoutes.Get("/:id", id, h.GetBoard)
	boardRoutes.Put("/:id", id, h.UpdateBoard)
	boardRoutes.Delete("/:id", id, h.DeleteBoard)
	boardRoutes.Post("/:id/collaborators", id, h.AddCollaborator)
	boardRoutes.Delete("/:id/collaborators/:userId", middleware.ValidateObjectID("id", "userId"), h.RemoveCollaborator)
	boardRoutes.Get("/:id/activity", id, h.GetBoardActivity)

	// Task
	boardRoutes.Get("/:boardId/tasks", boardID, h.GetTasks)
	boardRoutes.Post("/:boardId/tasks", boardID, h.CreateTask)
	boardRoutes.Get("/:boardId/tasks/overdue", boardID, h.GetOverdueTasks)
	boardRoutes.Get("/:boardId/tasks/status/:status", boardID, h.GetTasksByStatus)

	taskRoutes := api.Group("/tasks", protected)
	taskRoutes.Get("/:id", id, h.GetTask)
	taskRoutes.Put("/:id", id, h.UpdateTask)
	taskRoutes.Delete("/:id", id, h.DeleteTask)

	// Comment
	taskRoutes.Get("/:id/comments", id, h.GetComments)
	taskRoutes.Post("/:id/comments", id, h.CreateComment)
	commentRoutes := api.Group("/comments", protected)
	commentRoutes.Put("/:id", id, h.UpdateComment)
	commentRoutes.Delete("/:id", id, h.DeleteComment)

	// File Upload
	taskRoutes.Get("/:id/attachments", id, h.GetAttachments)
	taskRoutes.Post("/:id/attachments", id, h.UploadAttachment)
	attachmentRoutes := api.Group("/attachments", protected)
	attachmentRoutes.Get("/:id/download", id, h.DownloadAttachment)
	attachmentRoutes.Delete("/:id", id, h.DeleteAttachment)

	// Notification
	notificationRoutes := api.Group("/notifications", protected)
	notificationRoutes.Get("/", h.GetNotifications)
	notificationRoutes.Get("/unread-count", h.GetUnreadCount)
	notificationRoutes.Put("/read-all", h.MarkAllNotificationsRead)
	notificationRoutes.Put("/:id/read", id, h.MarkNotificationRead)
	notificationRoutes.Delete("/:id", id, h.DeleteNotification)

	// Activity
	api.Get("/activity/me", protected, h.GetMyActivity)

	// Analytics
	analyticsRoutes := api.Group("/analytics", protected)
	analyticsRoutes.Get("/dashboard", h.GetDashboard)
	analyticsRoutes.Get("/boards/:boardId", boardID, h.GetBoardAnalytics)
	analyticsRoutes.Get("/productivity", h.GetProductivity)

	app.Use(h.NotFound)
}
