package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// MetadataHandler exposes the course category and difficulty taxonomy.
type MetadataHandler struct {
	service service.MetadataService
	logger  zerolog.Logger
}

// NewMetadataHandler constructs the handler.
func NewMetadataHandler(service service.MetadataService, logger zerolog.Logger) *MetadataHandler {
	return &MetadataHandler{
		service: service,
		logger:  logger.With().Str("component", "metadata_handler").Logger(),
	}
}

// Register attaches metadata endpoints to the router group.
func (h *MetadataHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Patch("/:id", h.update)
}

func (h *MetadataHandler) list(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	entries, err := h.service.List(c.UserContext(), actor, c.Query("kind"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "metadata retrieved", entries)
}

func (h *MetadataHandler) create(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var payload dto.MetadataCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	entry, err := h.service.Create(c.UserContext(), actor, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "metadata created", entry)
}

func (h *MetadataHandler) update(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}

	var payload dto.MetadataUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	entry, err := h.service.Update(c.UserContext(), actor, id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "metadata updated", entry)
}
