package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// EnrollmentHandler wires enrollment routes.
type EnrollmentHandler struct {
	service service.EnrollmentService
	logger  zerolog.Logger
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(service service.EnrollmentService, logger zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		logger:  logger.With().Str("component", "enrollment_handler").Logger(),
	}
}

// RegisterCourseRoutes attaches enroll, cancel and roster endpoints to the
// courses group.
func (h *EnrollmentHandler) RegisterCourseRoutes(courses fiber.Router) {
	courses.Post("/:id/enrollments", h.enroll)
	courses.Delete("/:id/enrollments", h.cancel)
	courses.Get("/:id/enrollments", h.roster)
}

// Register attaches the caller scoped endpoints.
func (h *EnrollmentHandler) Register(router fiber.Router) {
	router.Get("/me", h.mine)
}

func (h *EnrollmentHandler) enroll(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	enrollment, err := h.service.Enroll(c.UserContext(), actor, courseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enrolled", enrollment)
}

func (h *EnrollmentHandler) cancel(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	enrollment, err := h.service.Cancel(c.UserContext(), actor, courseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "enrollment cancelled", enrollment)
}

func (h *EnrollmentHandler) roster(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	enrollments, err := h.service.ListForCourse(c.UserContext(), actor, courseID, strings.TrimSpace(c.Query("status")))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "enrollments retrieved", enrollments)
}

func (h *EnrollmentHandler) mine(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	enrollments, err := h.service.ListMine(c.UserContext(), actor)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "enrollments retrieved", enrollments)
}
