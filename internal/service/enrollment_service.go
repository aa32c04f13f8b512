package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

const enrollAttempts = 2

// EnrollmentService manages learner enrollments.
type EnrollmentService interface {
	Enroll(ctx context.Context, actor lifecycle.Actor, courseID uint) (dto.EnrollmentResponse, error)
	Cancel(ctx context.Context, actor lifecycle.Actor, courseID uint) (dto.EnrollmentResponse, error)
	ListForCourse(ctx context.Context, actor lifecycle.Actor, courseID uint, status string) ([]dto.EnrollmentResponse, error)
	ListMine(ctx context.Context, actor lifecycle.Actor) ([]dto.EnrollmentResponse, error)
}

type enrollmentService struct {
	store  *repository.Store
	events eventEmitter
	logger zerolog.Logger
	now    func() time.Time
}

// NewEnrollmentService builds the enrollment orchestrator.
func NewEnrollmentService(store *repository.Store, publisher EventPublisher, logger zerolog.Logger) EnrollmentService {
	logger = logger.With().Str("component", "enrollment_service").Logger()
	svc := &enrollmentService{store: store, logger: logger, now: time.Now}
	svc.events = eventEmitter{publisher: publisher, logger: logger, now: func() time.Time { return svc.now() }}
	return svc
}

// Enroll joins the acting learner to a published course, reactivating a
// cancelled row when one exists.
func (s *enrollmentService) Enroll(ctx context.Context, actor lifecycle.Actor, courseID uint) (result dto.EnrollmentResponse, err error) {
	ctx, span := startSpan(ctx, "enrollment.enroll", actor, attribute.Int64("lms.course_id", int64(courseID)))
	defer span.End()
	defer func() { observeOutcome(span, "enrollment", err) }()

	if err := lifecycle.AuthorizeLearner(actor, actor.ID); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	var (
		enrollment  models.Enrollment
		from        models.EnrollmentStatus
		reactivated bool
	)
	for attempt := 1; attempt <= enrollAttempts; attempt++ {
		err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
			course, err := repos.Courses.GetForUpdate(ctx, courseID)
			if err != nil {
				return notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
			}
			existing, err := findEnrollment(ctx, repos, actor.ID, courseID)
			if err != nil {
				return err
			}
			next, err := lifecycle.Enroll(course, existing, actor.ID, s.now())
			if err != nil {
				return err
			}

			if existing == nil {
				if err := repos.Enrollments.Create(ctx, &next); err != nil {
					return err
				}
				from, reactivated = "", false
			} else {
				if err := repos.Enrollments.Update(ctx, &next); err != nil {
					return err
				}
				from, reactivated = existing.Status, true
			}
			enrollment = next

			return repos.Activity.Create(ctx, newActivityLog(actor, "enrollment.enrolled", "enrollment", next.ID, map[string]interface{}{
				"course_id":   courseID,
				"reactivated": reactivated,
			}))
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		s.logger.Debug().Uint("course_id", courseID).Uint("learner_id", actor.ID).Int("attempt", attempt).Msg("concurrent enrollment, retrying")
	}
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	observability.RecordTransition("enrollment", string(from), string(enrollment.Status))
	s.events.emit(ctx, actor, Event{
		Entity:   "enrollment",
		Action:   "enrolled",
		EntityID: enrollment.ID,
		From:     string(from),
		To:       string(enrollment.Status),
		Data:     map[string]interface{}{"course_id": courseID},
	})
	s.logger.Info().Uint("enrollment_id", enrollment.ID).Uint("course_id", courseID).Bool("reactivated", reactivated).Msg("learner enrolled")

	return dto.NewEnrollmentResponse(enrollment), nil
}

// Cancel withdraws the acting learner from a course.
func (s *enrollmentService) Cancel(ctx context.Context, actor lifecycle.Actor, courseID uint) (result dto.EnrollmentResponse, err error) {
	ctx, span := startSpan(ctx, "enrollment.cancel", actor, attribute.Int64("lms.course_id", int64(courseID)))
	defer span.End()
	defer func() { observeOutcome(span, "enrollment", err) }()

	if err := lifecycle.AuthorizeLearner(actor, actor.ID); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	var enrollment models.Enrollment
	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Courses.GetForUpdate(ctx, courseID); err != nil {
			return notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
		}
		current, err := repos.Enrollments.GetByLearnerAndCourse(ctx, actor.ID, courseID)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeEnrollmentNotFound, "enrollment not found")
		}
		next, err := lifecycle.CancelEnrollment(current, s.now())
		if err != nil {
			return err
		}
		if err := repos.Enrollments.Update(ctx, &next); err != nil {
			return err
		}
		enrollment = next

		return repos.Activity.Create(ctx, newActivityLog(actor, "enrollment.cancelled", "enrollment", next.ID, map[string]interface{}{
			"course_id": courseID,
		}))
	})
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	observability.RecordTransition("enrollment", string(models.EnrollmentStatusActive), string(enrollment.Status))
	s.events.emit(ctx, actor, Event{
		Entity:   "enrollment",
		Action:   "cancelled",
		EntityID: enrollment.ID,
		From:     string(models.EnrollmentStatusActive),
		To:       string(enrollment.Status),
		Data:     map[string]interface{}{"course_id": courseID},
	})
	s.logger.Info().Uint("enrollment_id", enrollment.ID).Uint("course_id", courseID).Msg("enrollment cancelled")

	return dto.NewEnrollmentResponse(enrollment), nil
}

// ListForCourse shows the roster of a course to its instructor.
func (s *enrollmentService) ListForCourse(ctx context.Context, actor lifecycle.Actor, courseID uint, status string) ([]dto.EnrollmentResponse, error) {
	course, err := s.store.Courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
	}
	if !canManageCourse(actor, course) {
		return nil, lifecycle.Forbidden("only the course instructor may view the roster")
	}

	filter := repository.EnrollmentFilter{CourseID: &courseID}
	if target := models.EnrollmentStatus(parseTarget(status)); target != "" {
		if target != models.EnrollmentStatusActive && target != models.EnrollmentStatusCancelled {
			return nil, lifecycle.InvalidInput("status", "status must be active or cancelled")
		}
		filter.Status = &target
	}

	enrollments, err := s.store.Enrollments.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return dto.NewEnrollmentResponseSlice(enrollments), nil
}

func (s *enrollmentService) ListMine(ctx context.Context, actor lifecycle.Actor) ([]dto.EnrollmentResponse, error) {
	if err := lifecycle.AuthorizeLearner(actor, actor.ID); err != nil {
		return nil, err
	}
	learnerID := actor.ID
	enrollments, err := s.store.Enrollments.List(ctx, repository.EnrollmentFilter{LearnerID: &learnerID})
	if err != nil {
		return nil, err
	}
	return dto.NewEnrollmentResponseSlice(enrollments), nil
}
