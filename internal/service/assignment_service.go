package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// AssignmentService exposes the assignment lifecycle and the course weight budget.
type AssignmentService interface {
	Create(ctx context.Context, actor lifecycle.Actor, courseID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.AssignmentResponse, error)
	ListByCourse(ctx context.Context, actor lifecycle.Actor, courseID uint, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	RequestTransition(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.AssignmentTransitionRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor lifecycle.Actor, id uint) error
}

type assignmentService struct {
	store     *repository.Store
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	gradebook GradebookInvalidator
	events    eventEmitter
	logger    zerolog.Logger
	now       func() time.Time
}

// AssignmentServiceOption customises the assignment service.
type AssignmentServiceOption func(*assignmentService)

// WithCourseGradebookInvalidator wires the cache that must forget course
// gradebooks when an assignment's weight or visibility changes.
func WithCourseGradebookInvalidator(gradebook GradebookInvalidator) AssignmentServiceOption {
	return func(s *assignmentService) { s.gradebook = gradebook }
}

// NewAssignmentService builds the assignment orchestrator.
func NewAssignmentService(store *repository.Store, validate *validator.Validate, publisher EventPublisher, logger zerolog.Logger, opts ...AssignmentServiceOption) AssignmentService {
	logger = logger.With().Str("component", "assignment_service").Logger()
	svc := &assignmentService{
		store:     store,
		validator: validate,
		sanitizer: newSanitizer(),
		logger:    logger,
		now:       time.Now,
	}
	svc.events = eventEmitter{publisher: publisher, logger: logger, now: func() time.Time { return svc.now() }}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create adds an assignment to a course. The course row is locked for the
// duration of the budget check so concurrent creations serialise.
func (s *assignmentService) Create(ctx context.Context, actor lifecycle.Actor, courseID uint, payload dto.AssignmentCreateRequest) (result dto.AssignmentResponse, err error) {
	ctx, span := startSpan(ctx, "assignment.create", actor, attribute.Int64("lms.course_id", int64(courseID)))
	defer span.End()
	defer func() { observeOutcome(span, "assignment", err) }()

	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}
	dueDate, err := parseTimestamp("due_date", payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	weight, err := lifecycle.NormalizeWeight(*payload.PointsWeight, lifecycle.WeightUnit(payload.WeightUnit))
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	draft := lifecycle.AssignmentDraft{
		Title:             payload.Title,
		Description:       sanitizeText(s.sanitizer, payload.Description),
		Instructions:      sanitizeText(s.sanitizer, payload.Instructions),
		DueDate:           dueDate,
		PointsWeight:      weight,
		AllowLate:         payload.AllowLate,
		AllowResubmission: payload.AllowResubmission,
		Publish:           payload.Publish,
	}

	var assignment models.Assignment
	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		course, err := repos.Courses.GetForUpdate(ctx, courseID)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
		}
		if err := lifecycle.AuthorizeCourseOwner(actor, course); err != nil {
			return err
		}

		siblings, err := repos.Assignments.ListByCourse(ctx, courseID)
		if err != nil {
			return err
		}
		next, err := lifecycle.NewAssignment(course, draft, siblings, s.now())
		if err != nil {
			return err
		}
		if err := repos.Assignments.Create(ctx, &next); err != nil {
			return err
		}
		assignment = next

		return repos.Activity.Create(ctx, newActivityLog(actor, "assignment.created", "assignment", next.ID, map[string]interface{}{
			"course_id":     courseID,
			"points_weight": next.PointsWeight,
			"status":        string(next.Status),
		}))
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	observability.RecordTransition("assignment", "", string(assignment.Status))
	s.events.emit(ctx, actor, Event{Entity: "assignment", Action: "created", EntityID: assignment.ID, To: string(assignment.Status), Data: map[string]interface{}{"course_id": courseID}})
	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("course_id", courseID).Int("points_weight", assignment.PointsWeight).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.store.Assignments.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, notFoundAs(err, lifecycle.CodeAssignmentNotFound, "assignment not found")
	}
	course, err := s.store.Courses.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return dto.AssignmentResponse{}, notFoundAs(err, lifecycle.CodeAssignmentNotFound, "assignment not found")
	}
	if !canViewAssignment(actor, course, assignment) {
		return dto.AssignmentResponse{}, lifecycle.NotFound(lifecycle.CodeAssignmentNotFound, "assignment not found")
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListByCourse(ctx context.Context, actor lifecycle.Actor, courseID uint, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	course, err := s.store.Courses.GetByID(ctx, courseID)
	if err != nil {
		return dto.AssignmentListResponse{}, notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
	}
	if !canViewCourse(actor, course) {
		return dto.AssignmentListResponse{}, lifecycle.NotFound(lifecycle.CodeCourseNotFound, "course not found")
	}

	filter := repository.AssignmentFilter{
		CourseID:   courseID,
		PublicOnly: !canManageCourse(actor, course),
		Search:     strings.TrimSpace(req.Search),
		Sort:       req.Sort,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if status := models.AssignmentStatus(parseTarget(req.Status)); status != "" {
		if !status.Valid() {
			return dto.AssignmentListResponse{}, lifecycle.InvalidInput("status", "unknown assignment status")
		}
		filter.Status = &status
	}

	assignments, total, err := s.store.Assignments.ListWithFilter(ctx, filter)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}
	all, err := s.store.Assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	return dto.AssignmentListResponse{
		Items:           dto.NewAssignmentResponseSlice(assignments),
		RemainingWeight: lifecycle.RemainingBudget(all),
		Pagination:      dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *assignmentService) Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.AssignmentUpdateRequest) (result dto.AssignmentResponse, err error) {
	ctx, span := startSpan(ctx, "assignment.update", actor, attribute.Int64("lms.assignment_id", int64(id)))
	defer span.End()
	defer func() { observeOutcome(span, "assignment", err) }()

	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	update := lifecycle.AssignmentUpdate{
		Title:             payload.Title,
		AllowLate:         payload.AllowLate,
		AllowResubmission: payload.AllowResubmission,
	}
	if payload.Description != nil {
		description := sanitizeText(s.sanitizer, *payload.Description)
		update.Description = &description
	}
	if payload.Instructions != nil {
		instructions := sanitizeText(s.sanitizer, *payload.Instructions)
		update.Instructions = &instructions
	}
	if payload.DueDate != nil {
		dueDate, err := parseTimestamp("due_date", *payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		update.DueDate = &dueDate
	}
	if payload.PointsWeight != nil {
		weight, err := lifecycle.NormalizeWeight(*payload.PointsWeight, lifecycle.WeightUnit(payload.WeightUnit))
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		update.PointsWeight = &weight
	}

	var assignment models.Assignment
	err = s.withLockedAssignment(ctx, actor, id, func(repos repository.Repositories, course models.Course, current models.Assignment, siblings []models.Assignment) error {
		next, err := lifecycle.ApplyAssignmentUpdate(current, update, siblings, s.now())
		if err != nil {
			return err
		}
		if err := repos.Assignments.Update(ctx, &next); err != nil {
			return err
		}
		assignment = next

		return repos.Activity.Create(ctx, newActivityLog(actor, "assignment.updated", "assignment", next.ID, map[string]interface{}{
			"course_id":     course.ID,
			"points_weight": next.PointsWeight,
		}))
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.invalidateGradebooks(ctx, assignment.CourseID)
	s.events.emit(ctx, actor, Event{Entity: "assignment", Action: "updated", EntityID: assignment.ID})

	return dto.NewAssignmentResponse(assignment), nil
}

// RequestTransition publishes or closes an assignment.
func (s *assignmentService) RequestTransition(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.AssignmentTransitionRequest) (result dto.AssignmentResponse, err error) {
	ctx, span := startSpan(ctx, "assignment.transition", actor,
		attribute.Int64("lms.assignment_id", int64(id)),
		attribute.String("lms.target_status", payload.Status),
	)
	defer span.End()
	defer func() { observeOutcome(span, "assignment", err) }()

	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}
	target := models.AssignmentStatus(parseTarget(payload.Status))

	var (
		assignment models.Assignment
		from       models.AssignmentStatus
	)
	err = s.withLockedAssignment(ctx, actor, id, func(repos repository.Repositories, _ models.Course, current models.Assignment, siblings []models.Assignment) error {
		next, err := lifecycle.TransitionAssignment(current, target, siblings, s.now())
		if err != nil {
			return err
		}
		if err := repos.Assignments.Update(ctx, &next); err != nil {
			return err
		}
		from, assignment = current.Status, next

		return repos.Activity.Create(ctx, newActivityLog(actor, "assignment."+string(next.Status), "assignment", next.ID, map[string]interface{}{
			"from": string(current.Status),
			"to":   string(next.Status),
		}))
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.invalidateGradebooks(ctx, assignment.CourseID)
	observability.RecordTransition("assignment", string(from), string(assignment.Status))
	s.events.emit(ctx, actor, Event{Entity: "assignment", Action: string(assignment.Status), EntityID: assignment.ID, From: string(from), To: string(assignment.Status)})
	s.logger.Info().Uint("assignment_id", assignment.ID).Str("from", string(from)).Str("to", string(assignment.Status)).Msg("assignment status changed")

	return dto.NewAssignmentResponse(assignment), nil
}

// Delete soft-deletes an assignment, releasing its weight.
func (s *assignmentService) Delete(ctx context.Context, actor lifecycle.Actor, id uint) (err error) {
	ctx, span := startSpan(ctx, "assignment.delete", actor, attribute.Int64("lms.assignment_id", int64(id)))
	defer span.End()
	defer func() { observeOutcome(span, "assignment", err) }()

	var courseID uint
	err = s.withLockedAssignment(ctx, actor, id, func(repos repository.Repositories, course models.Course, current models.Assignment, _ []models.Assignment) error {
		submissions, err := repos.Submissions.CountByAssignment(ctx, current.ID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanDeleteAssignment(current, submissions); err != nil {
			return err
		}
		if err := repos.Assignments.Delete(ctx, current.ID); err != nil {
			return notFoundAs(err, lifecycle.CodeAssignmentNotFound, "assignment not found")
		}
		courseID = course.ID
		return repos.Activity.Create(ctx, newActivityLog(actor, "assignment.deleted", "assignment", current.ID, map[string]interface{}{
			"course_id":     course.ID,
			"points_weight": current.PointsWeight,
		}))
	})
	if err != nil {
		return err
	}

	s.invalidateGradebooks(ctx, courseID)
	s.events.emit(ctx, actor, Event{Entity: "assignment", Action: "deleted", EntityID: id})
	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

func (s *assignmentService) invalidateGradebooks(ctx context.Context, courseID uint) {
	if s.gradebook != nil {
		s.gradebook.InvalidateCourse(ctx, courseID)
	}
}

// withLockedAssignment loads an assignment and its course inside a
// transaction, locking the course before the assignment, and authorizes the
// course owner before calling fn with the live siblings.
func (s *assignmentService) withLockedAssignment(ctx context.Context, actor lifecycle.Actor, id uint, fn func(repos repository.Repositories, course models.Course, current models.Assignment, siblings []models.Assignment) error) error {
	return s.store.Transaction(ctx, func(repos repository.Repositories) error {
		probe, err := repos.Assignments.GetByID(ctx, id)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeAssignmentNotFound, "assignment not found")
		}
		course, err := repos.Courses.GetForUpdate(ctx, probe.CourseID)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
		}
		if err := lifecycle.AuthorizeCourseOwner(actor, course); err != nil {
			return err
		}
		current, err := repos.Assignments.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeAssignmentNotFound, "assignment not found")
		}
		siblings, err := repos.Assignments.ListByCourse(ctx, course.ID)
		if err != nil {
			return err
		}
		return fn(repos, course, current, siblings)
	})
}

// canManageCourse reports whether the actor sees drafts of the course.
func canManageCourse(actor lifecycle.Actor, course models.Course) bool {
	switch actor.Role {
	case lifecycle.RoleAdmin, lifecycle.RoleSystem:
		return true
	case lifecycle.RoleInstructor:
		return course.IsOwnedBy(actor.ID)
	default:
		return false
	}
}

func canViewAssignment(actor lifecycle.Actor, course models.Course, assignment models.Assignment) bool {
	if canManageCourse(actor, course) {
		return true
	}
	return course.Status != models.CourseStatusDraft && assignment.Status != models.AssignmentStatusDraft
}

func parseTimestamp(field, value string) (time.Time, error) {
	parsed, err := time.Parse(dto.TimestampLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, lifecycle.InvalidInput(field, field+" must be an ISO-8601 timestamp")
	}
	return parsed, nil
}
