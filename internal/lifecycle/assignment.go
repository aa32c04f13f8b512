package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// AssignmentDraft carries the fields accepted when creating an assignment.
// Publish requests a direct draft->published transition on creation.
type AssignmentDraft struct {
	Title             string
	Description       string
	Instructions      string
	DueDate           time.Time
	PointsWeight      int
	AllowLate         bool
	AllowResubmission bool
	Publish           bool
}

// AssignmentUpdate enumerates the mutable assignment fields.
type AssignmentUpdate struct {
	Title             *string
	Description       *string
	Instructions      *string
	DueDate           *time.Time
	PointsWeight      *int
	AllowLate         *bool
	AllowResubmission *bool
}

// NewAssignment validates a draft against the course and its live siblings
// and returns the assignment to persist.
func NewAssignment(course models.Course, draft AssignmentDraft, siblings []models.Assignment, now time.Time) (models.Assignment, error) {
	if course.Status == models.CourseStatusArchived {
		return models.Assignment{}, conflict(CodeCourseArchived, "assignments cannot be added to an archived course")
	}
	if err := ValidateTitle(draft.Title); err != nil {
		return models.Assignment{}, err
	}
	if err := ValidateWeight(draft.PointsWeight); err != nil {
		return models.Assignment{}, err
	}
	if err := ValidateDueDate(draft.DueDate, now); err != nil {
		return models.Assignment{}, err
	}
	if err := CheckBudget(SiblingWeights(siblings, 0), draft.PointsWeight); err != nil {
		return models.Assignment{}, err
	}

	assignment := models.Assignment{
		CourseID:          course.ID,
		Title:             strings.TrimSpace(draft.Title),
		Description:       strings.TrimSpace(draft.Description),
		Instructions:      strings.TrimSpace(draft.Instructions),
		DueDate:           draft.DueDate,
		PointsWeight:      draft.PointsWeight,
		Status:            models.AssignmentStatusDraft,
		AllowLate:         draft.AllowLate,
		AllowResubmission: draft.AllowResubmission,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if draft.Publish {
		assignment.Status = models.AssignmentStatusPublished
	}

	return assignment, nil
}

// ApplyAssignmentUpdate returns the assignment with update applied. The budget
// is re-checked only when the weight actually changes; closed assignments may
// move their deadline freely.
func ApplyAssignmentUpdate(current models.Assignment, update AssignmentUpdate, siblings []models.Assignment, now time.Time) (models.Assignment, error) {
	next := current

	if update.Title != nil {
		if err := ValidateTitle(*update.Title); err != nil {
			return models.Assignment{}, err
		}
		next.Title = strings.TrimSpace(*update.Title)
	}
	if update.Description != nil {
		next.Description = strings.TrimSpace(*update.Description)
	}
	if update.Instructions != nil {
		next.Instructions = strings.TrimSpace(*update.Instructions)
	}

	if update.DueDate != nil {
		if current.Status == models.AssignmentStatusClosed {
			if update.DueDate.IsZero() {
				return models.Assignment{}, InvalidInput("due_date", "due date is required")
			}
		} else if err := ValidateDueDate(*update.DueDate, now); err != nil {
			return models.Assignment{}, err
		}
		next.DueDate = *update.DueDate
	}

	if update.PointsWeight != nil && *update.PointsWeight != current.PointsWeight {
		if err := ValidateWeight(*update.PointsWeight); err != nil {
			return models.Assignment{}, err
		}
		if err := CheckBudget(SiblingWeights(siblings, current.ID), *update.PointsWeight); err != nil {
			return models.Assignment{}, err
		}
		next.PointsWeight = *update.PointsWeight
	}

	if update.AllowLate != nil {
		next.AllowLate = *update.AllowLate
	}
	if update.AllowResubmission != nil {
		next.AllowResubmission = *update.AllowResubmission
	}

	next.UpdatedAt = now
	return next, nil
}

// TransitionAssignment moves an assignment forward. Publishing re-validates
// the deadline and the course budget; closing has no extra guard. There are
// no reverse transitions.
func TransitionAssignment(current models.Assignment, target models.AssignmentStatus, siblings []models.Assignment, now time.Time) (models.Assignment, error) {
	if !target.Valid() {
		return models.Assignment{}, InvalidInput("status", fmt.Sprintf("unknown assignment status %q", target))
	}

	next := current
	switch {
	case current.Status == models.AssignmentStatusDraft && target == models.AssignmentStatusPublished:
		if err := ValidateDueDate(current.DueDate, now); err != nil {
			return models.Assignment{}, err
		}
		if err := CheckBudget(SiblingWeights(siblings, current.ID), current.PointsWeight); err != nil {
			return models.Assignment{}, err
		}
	case current.Status == models.AssignmentStatusPublished && target == models.AssignmentStatusClosed:
	default:
		return models.Assignment{}, conflict(CodeInvalidStatusTransition, fmt.Sprintf("cannot change assignment status from %s to %s", current.Status, target))
	}

	next.Status = target
	next.UpdatedAt = now
	return next, nil
}

// CanDeleteAssignment refuses to drop a closed assignment that already holds
// learner work, so its weight stays accounted for.
func CanDeleteAssignment(assignment models.Assignment, submissionCount int64) error {
	if assignment.Status == models.AssignmentStatusClosed && submissionCount > 0 {
		return conflict(CodeAssignmentHasSubmissions, "a closed assignment with submissions cannot be deleted")
	}
	return nil
}

// ShouldAutoClose reports whether a published assignment is past due plus
// grace and does not accept late work.
func ShouldAutoClose(assignment models.Assignment, grace time.Duration, now time.Time) bool {
	if assignment.Status != models.AssignmentStatusPublished || assignment.AllowLate {
		return false
	}
	return now.After(assignment.DueDate.Add(grace))
}
