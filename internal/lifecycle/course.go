package lifecycle

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// CourseDraft carries the fields accepted when an instructor creates a course.
type CourseDraft struct {
	Title        string
	Description  string
	CategoryID   *uint
	DifficultyID *uint
}

// CourseUpdate enumerates the mutable course fields. Nil leaves a field as is.
type CourseUpdate struct {
	Title           *string
	Description     *string
	CategoryID      *uint
	DifficultyID    *uint
	ClearCategory   bool
	ClearDifficulty bool
}

// NewCourse builds a draft course owned by the acting instructor. Drafts may
// be untitled; publishing requires a title.
func NewCourse(actor Actor, draft CourseDraft, now time.Time) (models.Course, error) {
	if err := AuthorizeInstructor(actor); err != nil {
		return models.Course{}, err
	}

	title := strings.TrimSpace(draft.Title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return models.Course{}, InvalidInput("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}

	return models.Course{
		InstructorID: actor.ID,
		Title:        title,
		Description:  strings.TrimSpace(draft.Description),
		CategoryID:   draft.CategoryID,
		DifficultyID: draft.DifficultyID,
		Status:       models.CourseStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ApplyCourseUpdate returns the course with update applied. A course that has
// left draft must keep a non-empty title.
func ApplyCourseUpdate(course models.Course, update CourseUpdate, now time.Time) (models.Course, error) {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if course.Status != models.CourseStatusDraft {
			if err := ValidateTitle(title); err != nil {
				return models.Course{}, err
			}
		} else if utf8.RuneCountInString(title) > MaxTitleLength {
			return models.Course{}, InvalidInput("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
		}
		course.Title = title
	}
	if update.Description != nil {
		course.Description = strings.TrimSpace(*update.Description)
	}

	switch {
	case update.ClearCategory:
		course.CategoryID = nil
	case update.CategoryID != nil:
		id := *update.CategoryID
		course.CategoryID = &id
	}
	switch {
	case update.ClearDifficulty:
		course.DifficultyID = nil
	case update.DifficultyID != nil:
		id := *update.DifficultyID
		course.DifficultyID = &id
	}

	course.UpdatedAt = now
	return course, nil
}

// TransitionCourse moves a course to target, applying the timestamp side
// effects. published->published is a no-op; archived->published must go
// through draft.
func TransitionCourse(course models.Course, target models.CourseStatus, now time.Time) (models.Course, error) {
	if !target.Valid() {
		return models.Course{}, invalid(CodeCourseStatusChange, "status", fmt.Sprintf("unknown course status %q", target))
	}

	from := course.Status
	switch {
	case from == models.CourseStatusPublished && target == models.CourseStatusPublished:
		return course, nil

	case from == models.CourseStatusDraft && target == models.CourseStatusPublished:
		if strings.TrimSpace(course.Title) == "" {
			return models.Course{}, invalid(CodeCoursePublishValidation, "title", "a course needs a title before it can be published")
		}
		course.Status = models.CourseStatusPublished
		if course.PublishedAt == nil {
			publishedAt := now
			course.PublishedAt = &publishedAt
		}

	case from == models.CourseStatusPublished && target == models.CourseStatusArchived:
		course.Status = models.CourseStatusArchived
		archivedAt := now
		course.ArchivedAt = &archivedAt

	case from == models.CourseStatusArchived && target == models.CourseStatusDraft:
		course.Status = models.CourseStatusDraft
		course.ArchivedAt = nil

	case from == models.CourseStatusArchived && target == models.CourseStatusPublished:
		return models.Course{}, conflict(CodeInvalidStatusTransition, "an archived course must be moved back to draft before publishing")

	default:
		return models.Course{}, conflict(CodeInvalidStatusTransition, fmt.Sprintf("cannot change course status from %s to %s", from, target))
	}

	course.UpdatedAt = now
	return course, nil
}

// CanDeleteCourse allows soft deletion only while nobody is enrolled.
func CanDeleteCourse(course models.Course) error {
	if course.EnrollmentCount > 0 {
		return conflict(CodeCourseHasActiveEnrollments, fmt.Sprintf("course has %d active enrollments", course.EnrollmentCount))
	}
	return nil
}

// AllowedCourseTransitions lists the targets reachable from a status.
func AllowedCourseTransitions(from models.CourseStatus) []models.CourseStatus {
	switch from {
	case models.CourseStatusDraft:
		return []models.CourseStatus{models.CourseStatusPublished}
	case models.CourseStatusPublished:
		return []models.CourseStatus{models.CourseStatusArchived}
	case models.CourseStatusArchived:
		return []models.CourseStatus{models.CourseStatusDraft}
	default:
		return nil
	}
}
