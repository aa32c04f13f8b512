package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/handler"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler     *handler.CourseHandler
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	EnrollmentHandler *handler.EnrollmentHandler
	GradebookHandler  *handler.GradebookHandler
	MetadataHandler   *handler.MetadataHandler
	ActivityHandler   *handler.ActivityHandler
	SeedHandler       *handler.SeedHandler
	HealthProbes      map[string]handler.HealthProbe
	JWTMiddleware     fiber.Handler
	ExposeMetrics     bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.ExposeMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	// Seeding authenticates with its own token, so it sits outside the JWT groups.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	courses := api.Group("/courses", jwtMiddleware)
	assignments := api.Group("/assignments", jwtMiddleware)

	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(courses)
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.RegisterCourseRoutes(courses)
		deps.AssignmentHandler.Register(assignments)
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.RegisterAssignmentRoutes(assignments, middleware.RateLimit("submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow))
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware))
	}

	if deps.EnrollmentHandler != nil {
		deps.EnrollmentHandler.RegisterCourseRoutes(courses)
		deps.EnrollmentHandler.Register(api.Group("/enrollments", jwtMiddleware))
	}

	if deps.GradebookHandler != nil {
		deps.GradebookHandler.RegisterCourseRoutes(courses)
	}

	if deps.MetadataHandler != nil {
		deps.MetadataHandler.Register(api.Group("/metadata", jwtMiddleware))
	}

	if deps.ActivityHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(lifecycle.RoleAdmin))
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
}
