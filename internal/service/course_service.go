package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// CourseService exposes the course lifecycle.
type CourseService interface {
	Create(ctx context.Context, actor lifecycle.Actor, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.CourseResponse, error)
	List(ctx context.Context, actor lifecycle.Actor, req dto.CourseListRequest) (dto.CourseListResponse, error)
	Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	RequestTransition(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.CourseTransitionRequest) (dto.CourseResponse, error)
	Delete(ctx context.Context, actor lifecycle.Actor, id uint) error
}

type courseService struct {
	store     *repository.Store
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	events    eventEmitter
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCourseService builds the course orchestrator.
func NewCourseService(store *repository.Store, validate *validator.Validate, publisher EventPublisher, logger zerolog.Logger) CourseService {
	logger = logger.With().Str("component", "course_service").Logger()
	svc := &courseService{
		store:     store,
		validator: validate,
		sanitizer: newSanitizer(),
		logger:    logger,
		now:       time.Now,
	}
	svc.events = eventEmitter{publisher: publisher, logger: logger, now: func() time.Time { return svc.now() }}
	return svc
}

func (s *courseService) Create(ctx context.Context, actor lifecycle.Actor, payload dto.CourseCreateRequest) (result dto.CourseResponse, err error) {
	ctx, span := startSpan(ctx, "course.create", actor)
	defer span.End()
	defer func() { observeOutcome(span, "course", err) }()

	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := lifecycle.NewCourse(actor, lifecycle.CourseDraft{
		Title:        payload.Title,
		Description:  sanitizeText(s.sanitizer, payload.Description),
		CategoryID:   payload.CategoryID,
		DifficultyID: payload.DifficultyID,
	}, s.now())
	if err != nil {
		return dto.CourseResponse{}, err
	}

	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		if err := ensureUniqueTitle(ctx, repos, course); err != nil {
			return err
		}
		if err := checkMetadataReferences(ctx, repos, course.CategoryID, course.DifficultyID); err != nil {
			return err
		}
		if err := repos.Courses.Create(ctx, &course); err != nil {
			return err
		}
		return repos.Activity.Create(ctx, newActivityLog(actor, "course.created", "course", course.ID, map[string]interface{}{
			"title": course.Title,
		}))
	})
	if err != nil {
		return dto.CourseResponse{}, err
	}

	observability.RecordTransition("course", "", string(course.Status))
	s.events.emit(ctx, actor, Event{Entity: "course", Action: "created", EntityID: course.ID, To: string(course.Status)})
	s.logger.Info().Uint("course_id", course.ID).Uint("instructor_id", course.InstructorID).Msg("course created")

	return dto.NewCourseResponse(course, lifecycle.AllowedCourseTransitions(course.Status)), nil
}

func (s *courseService) Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.CourseResponse, error) {
	course, err := s.store.Courses.GetByID(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
	}
	if !canViewCourse(actor, course) {
		return dto.CourseResponse{}, lifecycle.NotFound(lifecycle.CodeCourseNotFound, "course not found")
	}

	return dto.NewCourseResponse(course, lifecycle.AllowedCourseTransitions(course.Status)), nil
}

// List shows an instructor their own courses in every state; everybody else
// only sees published courses.
func (s *courseService) List(ctx context.Context, actor lifecycle.Actor, req dto.CourseListRequest) (dto.CourseListResponse, error) {
	filter := repository.CourseFilter{
		Search:   strings.TrimSpace(req.Search),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.InstructorID > 0 {
		filter.InstructorID = &req.InstructorID
	}

	ownListing := actor.Role == lifecycle.RoleInstructor && req.InstructorID == actor.ID
	if actor.Role != lifecycle.RoleAdmin && !ownListing {
		published := models.CourseStatusPublished
		filter.Status = &published
	} else if status := models.CourseStatus(parseTarget(req.Status)); status != "" {
		if !status.Valid() {
			return dto.CourseListResponse{}, lifecycle.InvalidInput("status", "unknown course status")
		}
		filter.Status = &status
	}

	courses, total, err := s.store.Courses.List(ctx, filter)
	if err != nil {
		return dto.CourseListResponse{}, err
	}

	items := make([]dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		items = append(items, dto.NewCourseResponse(course, lifecycle.AllowedCourseTransitions(course.Status)))
	}

	return dto.CourseListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *courseService) Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.CourseUpdateRequest) (result dto.CourseResponse, err error) {
	ctx, span := startSpan(ctx, "course.update", actor, attribute.Int64("lms.course_id", int64(id)))
	defer span.End()
	defer func() { observeOutcome(span, "course", err) }()

	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	update := lifecycle.CourseUpdate{
		Title:           payload.Title,
		CategoryID:      payload.CategoryID,
		DifficultyID:    payload.DifficultyID,
		ClearCategory:   payload.ClearCategory,
		ClearDifficulty: payload.ClearDifficulty,
	}
	if payload.Description != nil {
		description := sanitizeText(s.sanitizer, *payload.Description)
		update.Description = &description
	}

	var course models.Course
	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		current, err := repos.Courses.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
		}
		if err := lifecycle.AuthorizeCourseOwner(actor, current); err != nil {
			return err
		}

		next, err := lifecycle.ApplyCourseUpdate(current, update, s.now())
		if err != nil {
			return err
		}
		if next.Title != current.Title {
			if err := ensureUniqueTitle(ctx, repos, next); err != nil {
				return err
			}
		}
		var categoryRef, difficultyRef *uint
		if !update.ClearCategory {
			categoryRef = update.CategoryID
		}
		if !update.ClearDifficulty {
			difficultyRef = update.DifficultyID
		}
		if err := checkMetadataReferences(ctx, repos, categoryRef, difficultyRef); err != nil {
			return err
		}

		if err := repos.Courses.Update(ctx, &next); err != nil {
			return err
		}
		course = next
		return repos.Activity.Create(ctx, newActivityLog(actor, "course.updated", "course", next.ID, nil))
	})
	if err != nil {
		return dto.CourseResponse{}, err
	}

	s.events.emit(ctx, actor, Event{Entity: "course", Action: "updated", EntityID: course.ID})

	return dto.NewCourseResponse(course, lifecycle.AllowedCourseTransitions(course.Status)), nil
}

// RequestTransition moves a course through draft, published and archived.
func (s *courseService) RequestTransition(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.CourseTransitionRequest) (result dto.CourseResponse, err error) {
	ctx, span := startSpan(ctx, "course.transition", actor,
		attribute.Int64("lms.course_id", int64(id)),
		attribute.String("lms.target_status", payload.Status),
	)
	defer span.End()
	defer func() { observeOutcome(span, "course", err) }()

	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}
	target := models.CourseStatus(parseTarget(payload.Status))

	var (
		course models.Course
		from   models.CourseStatus
	)
	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		current, err := repos.Courses.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
		}
		if err := lifecycle.AuthorizeCourseOwner(actor, current); err != nil {
			return err
		}

		next, err := lifecycle.TransitionCourse(current, target, s.now())
		if err != nil {
			return err
		}
		from, course = current.Status, next
		if next.Status == current.Status {
			return nil
		}

		if err := repos.Courses.Update(ctx, &next); err != nil {
			return err
		}
		return repos.Activity.Create(ctx, newActivityLog(actor, "course."+string(next.Status), "course", next.ID, map[string]interface{}{
			"from": string(current.Status),
			"to":   string(next.Status),
		}))
	})
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if from != course.Status {
		observability.RecordTransition("course", string(from), string(course.Status))
		s.events.emit(ctx, actor, Event{Entity: "course", Action: string(course.Status), EntityID: course.ID, From: string(from), To: string(course.Status)})
		s.logger.Info().Uint("course_id", course.ID).Str("from", string(from)).Str("to", string(course.Status)).Msg("course status changed")
	}

	return dto.NewCourseResponse(course, lifecycle.AllowedCourseTransitions(course.Status)), nil
}

// Delete soft-deletes a course nobody is enrolled in.
func (s *courseService) Delete(ctx context.Context, actor lifecycle.Actor, id uint) (err error) {
	ctx, span := startSpan(ctx, "course.delete", actor, attribute.Int64("lms.course_id", int64(id)))
	defer span.End()
	defer func() { observeOutcome(span, "course", err) }()

	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		course, err := repos.Courses.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
		}
		if err := lifecycle.AuthorizeCourseOwner(actor, course); err != nil {
			return err
		}
		if err := lifecycle.CanDeleteCourse(course); err != nil {
			return err
		}
		if err := repos.Courses.Delete(ctx, id); err != nil {
			return notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
		}
		return repos.Activity.Create(ctx, newActivityLog(actor, "course.deleted", "course", id, nil))
	})
	if err != nil {
		return err
	}

	s.events.emit(ctx, actor, Event{Entity: "course", Action: "deleted", EntityID: id})
	s.logger.Info().Uint("course_id", id).Msg("course deleted")
	return nil
}

func canViewCourse(actor lifecycle.Actor, course models.Course) bool {
	return canManageCourse(actor, course) || course.Status != models.CourseStatusDraft
}

func ensureUniqueTitle(ctx context.Context, repos repository.Repositories, course models.Course) error {
	if strings.TrimSpace(course.Title) == "" {
		return nil
	}
	exists, err := repos.Courses.TitleExists(ctx, course.InstructorID, course.Title, course.ID)
	if err != nil {
		return err
	}
	if exists {
		return lifecycle.Conflict(lifecycle.CodeCourseTitleExists, "you already have a course with this title")
	}
	return nil
}

func checkMetadataReferences(ctx context.Context, repos repository.Repositories, categoryID, difficultyID *uint) error {
	refs := []struct {
		field string
		ref   *uint
		kind  models.MetadataKind
	}{
		{"category_id", categoryID, models.MetadataKindCategory},
		{"difficulty_id", difficultyID, models.MetadataKindDifficulty},
	}

	for _, item := range refs {
		if item.ref == nil {
			continue
		}
		var entry *models.CourseMetadata
		found, err := repos.Metadata.GetByID(ctx, *item.ref)
		switch {
		case err == nil:
			entry = &found
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if err := lifecycle.ValidateMetadataReference(item.field, item.ref, item.kind, entry); err != nil {
			return err
		}
	}
	return nil
}
