package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

func unauthorized(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
}

func invalidPayload(c *fiber.Ctx) error {
	return utils.SendRejection(c, fiber.StatusBadRequest, string(lifecycle.CodeInvalidInput), "invalid payload", nil)
}

func invalidIdentifier(c *fiber.Ctx, field string) error {
	return utils.SendRejection(c, fiber.StatusBadRequest, string(lifecycle.CodeInvalidInput), "invalid identifier", fiber.Map{field: "must be a positive integer"})
}

func statusForKind(kind lifecycle.Kind) int {
	switch kind {
	case lifecycle.KindValidation:
		return fiber.StatusBadRequest
	case lifecycle.KindPermission:
		return fiber.StatusForbidden
	case lifecycle.KindNotFound:
		return fiber.StatusNotFound
	case lifecycle.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusUnprocessableEntity
	}
}

// respondError maps service failures onto the response envelope. Anything
// that is not a rejection is logged and hidden behind a 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make(map[string]string, len(validationErrors))
		for _, fieldErr := range validationErrors {
			details[fieldErr.Field()] = "failed on " + fieldErr.Tag()
		}
		return utils.SendRejection(c, fiber.StatusBadRequest, string(lifecycle.CodeInvalidInput), "validation failed", details)
	}

	if rejection, ok := lifecycle.AsError(err); ok {
		var details interface{}
		if rejection.Field != "" {
			details = fiber.Map{rejection.Field: rejection.Message}
		}
		return utils.SendRejection(c, statusForKind(rejection.Kind), string(rejection.Code), rejection.Message, details)
	}

	log := middleware.RequestLogger(logger, c)
	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
