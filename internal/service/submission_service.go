package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// submitAttempts bounds the retry taken when two first submissions race on
// the (assignment, learner) unique key.
const submitAttempts = 2

// GradebookInvalidator drops cached gradebooks whose inputs changed. Invalidate
// covers one learner; InvalidateCourse covers every learner of a course.
type GradebookInvalidator interface {
	Invalidate(ctx context.Context, courseID, learnerID uint)
	InvalidateCourse(ctx context.Context, courseID uint)
}

// SubmissionService exposes the submission and grading lifecycle.
type SubmissionService interface {
	RequestSubmit(ctx context.Context, actor lifecycle.Actor, assignmentID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, bool, error)
	RequestGrade(ctx context.Context, actor lifecycle.Actor, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, actor lifecycle.Actor, req dto.SubmissionListRequest) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	store       *repository.Store
	validator   *validator.Validate
	gradebook   GradebookInvalidator
	maxFeedback int
	events      eventEmitter
	logger      zerolog.Logger
	now         func() time.Time
}

// SubmissionServiceOption customises the submission service.
type SubmissionServiceOption func(*submissionService)

// WithGradebookInvalidator wires the cache that must forget grades on change.
func WithGradebookInvalidator(gradebook GradebookInvalidator) SubmissionServiceOption {
	return func(s *submissionService) { s.gradebook = gradebook }
}

// WithMaxFeedbackLength tightens the feedback limit below the engine maximum.
func WithMaxFeedbackLength(limit int) SubmissionServiceOption {
	return func(s *submissionService) {
		if limit > 0 && limit < lifecycle.MaxFeedbackLength {
			s.maxFeedback = limit
		}
	}
}

// NewSubmissionService builds the submission orchestrator.
func NewSubmissionService(store *repository.Store, validate *validator.Validate, publisher EventPublisher, logger zerolog.Logger, opts ...SubmissionServiceOption) SubmissionService {
	logger = logger.With().Str("component", "submission_service").Logger()
	svc := &submissionService{
		store:       store,
		validator:   validate,
		maxFeedback: lifecycle.MaxFeedbackLength,
		logger:      logger,
		now:         time.Now,
	}
	svc.events = eventEmitter{publisher: publisher, logger: logger, now: func() time.Time { return svc.now() }}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RequestSubmit records learner work. The bool result reports whether a new
// row was created (false for a resubmission).
func (s *submissionService) RequestSubmit(ctx context.Context, actor lifecycle.Actor, assignmentID uint, payload dto.SubmitRequest) (result dto.SubmissionResponse, created bool, err error) {
	ctx, span := startSpan(ctx, "submission.submit", actor, attribute.Int64("lms.assignment_id", int64(assignmentID)))
	defer span.End()
	defer func() { observeOutcome(span, "submission", err) }()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, false, err
	}
	// Content and feedback are plain text stored as sent; clients escape on render.
	input := lifecycle.SubmitInput{
		LearnerID: actor.ID,
		Content:   payload.Content,
		Link:      payload.Link,
	}

	var (
		submission models.Submission
		from       models.SubmissionStatus
	)
	for attempt := 1; attempt <= submitAttempts; attempt++ {
		err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
			assignment, err := repos.Assignments.GetByID(ctx, assignmentID)
			if err != nil {
				return notFoundAs(err, lifecycle.CodeAssignmentNotFound, "assignment not found")
			}
			enrollment, err := findEnrollment(ctx, repos, actor.ID, assignment.CourseID)
			if err != nil {
				return err
			}
			if err := lifecycle.AuthorizeEnrolledLearner(actor, actor.ID, enrollment); err != nil {
				return err
			}

			existing, err := findSubmission(ctx, repos, assignmentID, actor.ID)
			if err != nil {
				return err
			}
			next, err := lifecycle.Submit(assignment, existing, input, s.now())
			if err != nil {
				return err
			}

			if existing == nil {
				if err := repos.Submissions.Create(ctx, &next); err != nil {
					return err
				}
				from, created = "", true
			} else {
				if err := repos.Submissions.Update(ctx, &next); err != nil {
					return err
				}
				from, created = existing.Status, false
			}
			submission = next

			action := "submission.submitted"
			if !created {
				action = "submission.resubmitted"
			}
			return repos.Activity.Create(ctx, newActivityLog(actor, action, "submission", next.ID, map[string]interface{}{
				"assignment_id": assignmentID,
				"is_late":       next.IsLate,
			}))
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		s.logger.Debug().Uint("assignment_id", assignmentID).Uint("learner_id", actor.ID).Int("attempt", attempt).Msg("concurrent first submission, retrying as update")
	}
	if err != nil {
		return dto.SubmissionResponse{}, false, err
	}

	if s.gradebook != nil {
		s.gradebook.Invalidate(ctx, submission.CourseID, submission.LearnerID)
	}
	observability.RecordTransition("submission", string(from), string(submission.Status))
	action := "submitted"
	if !created {
		action = "resubmitted"
	}
	s.events.emit(ctx, actor, Event{
		Entity:   "submission",
		Action:   action,
		EntityID: submission.ID,
		From:     string(from),
		To:       string(submission.Status),
		Data:     map[string]interface{}{"assignment_id": assignmentID, "is_late": submission.IsLate},
	})
	s.logger.Info().Uint("submission_id", submission.ID).Uint("assignment_id", assignmentID).Bool("is_late", submission.IsLate).Msg(action)

	return dto.NewSubmissionResponse(submission), created, nil
}

// RequestGrade grades a submission on behalf of the course instructor.
// Re-grading overwrites the previous result and appends to the history.
func (s *submissionService) RequestGrade(ctx context.Context, actor lifecycle.Actor, submissionID uint, payload dto.GradeRequest) (result dto.SubmissionResponse, err error) {
	ctx, span := startSpan(ctx, "submission.grade", actor, attribute.Int64("lms.submission_id", int64(submissionID)))
	defer span.End()
	defer func() { observeOutcome(span, "submission", err) }()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	feedback := strings.TrimSpace(payload.Feedback)
	if utf8.RuneCountInString(feedback) > s.maxFeedback {
		return dto.SubmissionResponse{}, lifecycle.InvalidInput("feedback", fmt.Sprintf("feedback must be at most %d characters", s.maxFeedback))
	}
	input := lifecycle.GradeInput{
		GraderID: actor.ID,
		Score:    *payload.Score,
		Feedback: feedback,
		Status:   models.SubmissionStatus(parseTarget(payload.Status)),
	}

	var (
		submission models.Submission
		from       models.SubmissionStatus
	)
	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		current, err := repos.Submissions.GetForUpdate(ctx, submissionID)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeSubmissionNotFound, "submission not found")
		}
		assignment, err := repos.Assignments.GetByID(ctx, current.AssignmentID)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeAssignmentNotFound, "assignment not found")
		}
		course, err := repos.Courses.GetByID(ctx, assignment.CourseID)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
		}
		if err := lifecycle.AuthorizeCourseOwner(actor, course); err != nil {
			return err
		}

		next, history, err := lifecycle.Grade(current, assignment, input, s.now())
		if err != nil {
			return err
		}
		if err := repos.Submissions.Update(ctx, &next); err != nil {
			return err
		}
		if err := repos.Submissions.CreateHistory(ctx, &history); err != nil {
			return err
		}
		from, submission = current.Status, next

		return repos.Activity.Create(ctx, newActivityLog(actor, "submission.graded", "submission", next.ID, map[string]interface{}{
			"assignment_id": next.AssignmentID,
			"learner_id":    next.LearnerID,
			"score":         *next.Score,
			"status":        string(next.Status),
		}))
	})
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if s.gradebook != nil {
		s.gradebook.Invalidate(ctx, submission.CourseID, submission.LearnerID)
	}
	span.SetAttributes(
		attribute.Float64("grading.score", *submission.Score),
		attribute.String("grading.status", string(submission.Status)),
	)
	observability.RecordTransition("submission", string(from), string(submission.Status))
	s.events.emit(ctx, actor, Event{
		Entity:   "submission",
		Action:   "graded",
		EntityID: submission.ID,
		From:     string(from),
		To:       string(submission.Status),
		Data:     map[string]interface{}{"score": *submission.Score, "learner_id": submission.LearnerID},
	})

	return dto.NewSubmissionResponse(submission), nil
}

// Get returns a submission with its grading history to its learner or the
// course instructor.
func (s *submissionService) Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.store.Submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, notFoundAs(err, lifecycle.CodeSubmissionNotFound, "submission not found")
	}

	if lifecycle.AuthorizeLearner(actor, submission.LearnerID) != nil {
		course, err := s.store.Courses.GetByID(ctx, submission.CourseID)
		if err != nil {
			return dto.SubmissionResponse{}, notFoundAs(err, lifecycle.CodeSubmissionNotFound, "submission not found")
		}
		if !canManageCourse(actor, course) {
			return dto.SubmissionResponse{}, lifecycle.Forbidden("")
		}
	}

	history, err := s.store.Submissions.ListHistory(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	submission.History = history

	return dto.NewSubmissionResponse(submission), nil
}

// List returns the learner's own submissions, or every submission of an
// assignment to its course instructor.
func (s *submissionService) List(ctx context.Context, actor lifecycle.Actor, req dto.SubmissionListRequest) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	filter := repository.SubmissionFilter{}
	if req.Status != "" {
		status := models.SubmissionStatus(req.Status)
		filter.Status = &status
	}
	if req.AssignmentID > 0 {
		filter.AssignmentID = &req.AssignmentID
	}

	if actor.Role == lifecycle.RoleLearner {
		learnerID := actor.ID
		filter.LearnerID = &learnerID
	} else {
		if req.AssignmentID == 0 {
			return nil, lifecycle.InvalidInput("assignment_id", "assignment_id is required")
		}
		assignment, err := s.store.Assignments.GetByID(ctx, req.AssignmentID)
		if err != nil {
			return nil, notFoundAs(err, lifecycle.CodeAssignmentNotFound, "assignment not found")
		}
		course, err := s.store.Courses.GetByID(ctx, assignment.CourseID)
		if err != nil {
			return nil, notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
		}
		if !canManageCourse(actor, course) {
			return nil, lifecycle.Forbidden("")
		}
		if req.LearnerID > 0 {
			filter.LearnerID = &req.LearnerID
		}
	}

	submissions, err := s.store.Submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

func findEnrollment(ctx context.Context, repos repository.Repositories, learnerID, courseID uint) (*models.Enrollment, error) {
	enrollment, err := repos.Enrollments.GetByLearnerAndCourse(ctx, learnerID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func findSubmission(ctx context.Context, repos repository.Repositories, assignmentID, learnerID uint) (*models.Submission, error) {
	submission, err := repos.Submissions.GetByAssignmentAndLearner(ctx, assignmentID, learnerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}
