package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
)

const tracerName = "github.com/noah-isme/gema-lms-api/internal/service"

func startSpan(ctx context.Context, name string, actor lifecycle.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	span.SetAttributes(
		attribute.Int64("lms.actor_id", int64(actor.ID)),
		attribute.String("lms.actor_role", string(actor.Role)),
	)
	span.SetAttributes(attrs...)
	return ctx, span
}

// observeOutcome records err on the span and counts rejections per entity.
func observeOutcome(span trace.Span, entity string, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)

	if rejection, ok := lifecycle.AsError(err); ok {
		span.SetStatus(codes.Error, string(rejection.Code))
		observability.RecordRejection(entity, string(rejection.Code))
		return
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		span.SetStatus(codes.Error, string(lifecycle.CodeInvalidInput))
		observability.RecordRejection(entity, string(lifecycle.CodeInvalidInput))
		return
	}

	span.SetStatus(codes.Error, "internal_error")
}

// notFoundAs maps a missing row onto the given rejection code.
func notFoundAs(err error, code lifecycle.Code, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return lifecycle.NotFound(code, message)
	}
	return err
}

func newSanitizer() *bluemonday.Policy {
	return bluemonday.UGCPolicy()
}

func sanitizeText(policy *bluemonday.Policy, value string) string {
	if policy == nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(policy.Sanitize(value))
}

func parseTarget(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// newActivityLog builds the audit row for an accepted lifecycle action.
func newActivityLog(actor lifecycle.Actor, action, entityType string, entityID uint, metadata map[string]interface{}) *models.ActivityLog {
	id := entityID
	return &models.ActivityLog{
		ActorID:    actor.ID,
		ActorRole:  normalizeRole(string(actor.Role)),
		Action:     strings.ToLower(action),
		EntityType: strings.ToLower(entityType),
		EntityID:   &id,
		Metadata:   sanitizeMetadata(metadata),
	}
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return string(lifecycle.RoleSystem)
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
