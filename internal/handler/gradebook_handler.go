package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// GradebookHandler serves weighted gradebooks.
type GradebookHandler struct {
	service service.GradebookService
	logger  zerolog.Logger
}

// NewGradebookHandler constructs the handler.
func NewGradebookHandler(service service.GradebookService, logger zerolog.Logger) *GradebookHandler {
	return &GradebookHandler{
		service: service,
		logger:  logger.With().Str("component", "gradebook_handler").Logger(),
	}
}

// RegisterCourseRoutes attaches the gradebook endpoint to the courses group.
// Learners omit learner_id and receive their own gradebook.
func (h *GradebookHandler) RegisterCourseRoutes(courses fiber.Router) {
	courses.Get("/:id/gradebook", h.get)
}

func (h *GradebookHandler) get(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c, "id")
	}
	learnerID, err := parseQueryUint(c, "learner_id")
	if err != nil {
		return invalidIdentifier(c, "learner_id")
	}
	if learnerID == 0 {
		learnerID = actor.ID
	}

	gradebook, err := h.service.Get(c.UserContext(), actor, courseID, learnerID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "gradebook retrieved", gradebook)
}
