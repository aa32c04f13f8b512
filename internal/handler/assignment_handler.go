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

// AssignmentHandler wires assignment HTTP routes.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// RegisterCourseRoutes attaches the course scoped endpoints to the courses group.
func (h *AssignmentHandler) RegisterCourseRoutes(courses fiber.Router) {
	courses.Get("/:id/assignments", h.list)
	courses.Post("/:id/assignments", h.create)
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Post("/:id/transitions", h.transition)
	router.Delete("/:id", h.delete)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	req := dto.AssignmentListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   strings.TrimSpace(c.Query("status")),
		Sort:     strings.TrimSpace(c.Query("sort")),
	}

	assignments, err := h.service.ListByCourse(c.UserContext(), actor, courseID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	assignment, err := h.service.Create(c.UserContext(), actor, courseID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	assignment, err := h.service.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	assignment, err := h.service.Update(c.UserContext(), actor, id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) transition(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	var payload dto.AssignmentTransitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	assignment, err := h.service.RequestTransition(c.UserContext(), actor, id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment status updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	if err := h.service.Delete(c.UserContext(), actor, id); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}
