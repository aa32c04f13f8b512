package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// SubmissionHandler wires submission and grading routes.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// RegisterAssignmentRoutes attaches the submit endpoint to the assignments
// group. Extra handlers, such as a rate limiter, run before submit.
func (h *SubmissionHandler) RegisterAssignmentRoutes(assignments fiber.Router, guards ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, guards...), h.submit)
	assignments.Post("/:id/submissions", handlers...)
}

// Register attaches submission endpoints to the router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/grade", h.grade)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	submission, created, err := h.service.RequestSubmit(c.UserContext(), actor, assignmentID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if created {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission received", submission)
	}
	return utils.SendSuccess(c, "submission updated", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	submission, err := h.service.RequestGrade(c.UserContext(), actor, id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	submission, err := h.service.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	assignmentID, err := parseQueryUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment_id")
	}
	learnerID, err := parseQueryUint(c, "learner_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid learner_id")
	}

	req := dto.SubmissionListRequest{
		AssignmentID: assignmentID,
		LearnerID:    learnerID,
		Status:       strings.TrimSpace(c.Query("status")),
	}

	submissions, err := h.service.List(c.UserContext(), actor, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}
