package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/edumark/edumark-api/internal/config"
	"github.com/edumark/edumark-api/internal/handler"
	"github.com/edumark/edumark-api/internal/middleware"
	"github.com/edumark/edumark-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuestionHandler     *handler.QuestionHandler
	SubmissionHandler   *handler.SubmissionHandler
	ReviewHandler       *handler.ReviewHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
	TeacherMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Students submit and check status over the public share link; no account.
	// The routes are anonymous, so they get a limiter keyed by email or IP.
	if deps.SubmissionHandler != nil {
		public := api.Group("/submissions", middleware.RateLimit("public_submissions", 30, time.Minute))
		deps.SubmissionHandler.Register(public)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	teacherMiddleware := deps.TeacherMiddleware
	if teacherMiddleware == nil {
		teacherMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	teacher := app.Group("/api/v1/teacher", jwtMiddleware, teacherMiddleware)

	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(teacher.Group("/questions"))
	}

	if deps.ReviewHandler != nil {
		deps.ReviewHandler.Register(teacher.Group("/submissions"))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(teacher.Group("/notifications"))
	}
}
