package lifecycle

import (
	"strings"
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// SubmitInput is the learner supplied part of a submission.
type SubmitInput struct {
	LearnerID uint
	Content   string
	Link      string
}

// GradeInput is the grader supplied part of a grading call. An empty Status
// means graded.
type GradeInput struct {
	GraderID uint
	Score    float64
	Feedback string
	Status   models.SubmissionStatus
}

// checkSubmittable applies the submission policy and reports whether the
// attempt is late.
func checkSubmittable(existing *models.Submission, assignment models.Assignment, now time.Time) (bool, error) {
	if assignment.IsDeleted() {
		return false, NotFound(CodeAssignmentNotFound, "assignment not found")
	}
	if assignment.Status == models.AssignmentStatusDraft {
		return false, conflict(CodeAssignmentNotPublished, "assignment is not open for submissions yet")
	}

	if existing != nil {
		switch existing.Status {
		case models.SubmissionStatusGraded:
			return false, conflict(CodeSubmissionAlreadyGraded, "submission has already been graded")
		case models.SubmissionStatusSubmitted:
			return false, conflict(CodeSubmissionPendingReview, "submission is awaiting review")
		case models.SubmissionStatusResubmissionRequired:
			if !CanResubmit(existing, assignment.AllowResubmission) {
				return false, conflict(CodeResubmissionNotAllowed, "assignment does not accept resubmissions")
			}
			return assignment.IsPastDue(now), nil
		default:
			return false, conflict(CodeInvalidStatusTransition, "submission is in an unknown state")
		}
	}

	if assignment.Status == models.AssignmentStatusClosed {
		return false, conflict(CodeAssignmentClosed, "assignment is closed")
	}
	if assignment.IsPastDue(now) {
		if !assignment.AllowLate {
			return false, conflict(CodeAssignmentPastDeadline, "assignment deadline has passed")
		}
		return true, nil
	}
	return false, nil
}

// CanSubmit reports whether a learner holding existing (nil when absent) may
// submit to assignment right now. Closed assignments only accept work that is
// mid-resubmission, regardless of AllowLate.
func CanSubmit(existing *models.Submission, assignment models.Assignment, now time.Time) bool {
	_, err := checkSubmittable(existing, assignment, now)
	return err == nil
}

// CanResubmit is true only for a resubmission_required row on an assignment
// that allows resubmission.
func CanResubmit(existing *models.Submission, allowResubmission bool) bool {
	return allowResubmission && existing != nil && existing.Status == models.SubmissionStatusResubmissionRequired
}

// Submit returns the row to persist for a submit call: a new row on first
// submission, or existing updated in place on resubmission.
func Submit(assignment models.Assignment, existing *models.Submission, input SubmitInput, now time.Time) (models.Submission, error) {
	late, err := checkSubmittable(existing, assignment, now)
	if err != nil {
		return models.Submission{}, err
	}
	if err := ValidateSubmissionContent(input.Content, input.Link); err != nil {
		return models.Submission{}, err
	}

	var next models.Submission
	if existing != nil {
		next = *existing
	} else {
		next = models.Submission{
			AssignmentID: assignment.ID,
			CourseID:     assignment.CourseID,
			LearnerID:    input.LearnerID,
			CreatedAt:    now,
		}
	}

	next.Content = strings.TrimSpace(input.Content)
	next.Link = strings.TrimSpace(input.Link)
	next.Status = models.SubmissionStatusSubmitted
	next.IsLate = late
	next.SubmittedAt = now
	next.GradedAt = nil
	next.UpdatedAt = now

	return next, nil
}

// Grade applies a grading call. Re-grading overwrites the previous score,
// feedback and timestamp; the returned history entry records this call.
func Grade(submission models.Submission, assignment models.Assignment, input GradeInput, now time.Time) (models.Submission, models.SubmissionGradeHistory, error) {
	if err := ValidateScore(input.Score); err != nil {
		return models.Submission{}, models.SubmissionGradeHistory{}, err
	}
	if err := ValidateFeedback(input.Feedback); err != nil {
		return models.Submission{}, models.SubmissionGradeHistory{}, err
	}

	status := input.Status
	if status == "" {
		status = models.SubmissionStatusGraded
	}
	switch status {
	case models.SubmissionStatusGraded:
	case models.SubmissionStatusResubmissionRequired:
		if !assignment.AllowResubmission {
			return models.Submission{}, models.SubmissionGradeHistory{}, conflict(CodeResubmissionNotAllowed, "assignment does not accept resubmissions")
		}
	default:
		return models.Submission{}, models.SubmissionGradeHistory{}, InvalidInput("status", "status must be graded or resubmission_required")
	}

	score := input.Score
	feedback := strings.TrimSpace(input.Feedback)
	gradedAt := now
	graderID := input.GraderID

	next := submission
	next.Score = &score
	next.Feedback = &feedback
	next.Status = status
	next.GradedAt = &gradedAt
	next.GradedBy = &graderID
	next.UpdatedAt = now

	history := models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Score:        score,
		Feedback:     feedback,
		Status:       status,
		GradedBy:     graderID,
		GradedAt:     gradedAt,
	}

	return next, history, nil
}
