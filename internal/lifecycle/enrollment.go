package lifecycle

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// Enroll returns the enrollment row to persist. existing is the row already
// held for the (learner, course) pair, if any; a cancelled row is reactivated.
func Enroll(course models.Course, existing *models.Enrollment, learnerID uint, now time.Time) (models.Enrollment, error) {
	switch course.Status {
	case models.CourseStatusPublished:
	case models.CourseStatusArchived:
		return models.Enrollment{}, conflict(CodeCourseArchived, "course is archived and no longer accepts enrollments")
	default:
		return models.Enrollment{}, conflict(CodeCourseNotPublished, "course is not published")
	}

	if existing != nil {
		if existing.IsActive() {
			return models.Enrollment{}, conflict(CodeAlreadyEnrolled, "learner is already enrolled in this course")
		}
		next := *existing
		next.Status = models.EnrollmentStatusActive
		next.EnrolledAt = now
		next.CancelledAt = nil
		next.UpdatedAt = now
		return next, nil
	}

	return models.Enrollment{
		LearnerID:  learnerID,
		CourseID:   course.ID,
		Status:     models.EnrollmentStatusActive,
		EnrolledAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CancelEnrollment marks an active enrollment as cancelled.
func CancelEnrollment(enrollment models.Enrollment, now time.Time) (models.Enrollment, error) {
	if !enrollment.IsActive() {
		return models.Enrollment{}, conflict(CodeEnrollmentAlreadyCancelled, "enrollment is already cancelled")
	}
	cancelledAt := now
	enrollment.Status = models.EnrollmentStatusCancelled
	enrollment.CancelledAt = &cancelledAt
	enrollment.UpdatedAt = now
	return enrollment, nil
}
