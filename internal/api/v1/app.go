package v1

import (
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"vortexboard/internal/api/v1/handlers"
	"vortexboard/internal/middleware"
)

// NewApp membangun aplikasi fiber lengkap dengan middleware dan semua route.
func NewApp(h *handlers.Handler) *fiber.App {
	cfg := h.Config
	app := fiber.New(fiber.Config{
		AppName:               "VortexBoard",
		ErrorHandler:          middleware.ErrorHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             int(cfg.MaxUploadSize) + 1<<20,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Recover())
	app.Use(middleware.Tracing())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	if cfg.RateLimitMax > 0 {
		app.Use("/api", limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later")
			},
		}))
	}

	RegisterRoutes(app, h)
	return app
}
