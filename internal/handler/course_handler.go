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

// CourseHandler wires course HTTP routes.
type CourseHandler struct {
	service service.CourseService
	logger  zerolog.Logger
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(service service.CourseService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service: service,
		logger:  logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register attaches course endpoints to the router group.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Post("/:id/transitions", h.transition)
	router.Delete("/:id", h.delete)
}

func (h *CourseHandler) list(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}
	instructorID, err := parseQueryUint(c, "instructor_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid instructor_id")
	}

	req := dto.CourseListRequest{
		Page:         page,
		PageSize:     pageSize,
		Search:       strings.TrimSpace(c.Query("search")),
		Status:       strings.TrimSpace(c.Query("status")),
		InstructorID: instructorID,
	}

	courses, err := h.service.List(c.UserContext(), actor, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *CourseHandler) create(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var payload dto.CourseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	course, err := h.service.Create(c.UserContext(), actor, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CourseHandler) get(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	course, err := h.service.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) update(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	var payload dto.CourseUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	course, err := h.service.Update(c.UserContext(), actor, id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "course updated", course)
}

func (h *CourseHandler) transition(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	var payload dto.CourseTransitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	course, err := h.service.RequestTransition(c.UserContext(), actor, id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "course status updated", course)
}

func (h *CourseHandler) delete(c *fiber.Ctx) error {
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

	return utils.SendSuccess(c, "course deleted", fiber.Map{"id": id})
}
