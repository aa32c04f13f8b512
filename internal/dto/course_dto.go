package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// CourseCreateRequest describes the payload for creating a course. Drafts may
// be created without a title.
type CourseCreateRequest struct {
	Title        string `json:"title" validate:"omitempty,max=255"`
	Description  string `json:"description" validate:"omitempty,max=5000"`
	CategoryID   *uint  `json:"category_id" validate:"omitempty,gt=0"`
	DifficultyID *uint  `json:"difficulty_id" validate:"omitempty,gt=0"`
}

// CourseUpdateRequest enumerates the mutable course fields.
type CourseUpdateRequest struct {
	Title           *string `json:"title" validate:"omitempty,max=255"`
	Description     *string `json:"description" validate:"omitempty,max=5000"`
	CategoryID      *uint   `json:"category_id" validate:"omitempty,gt=0"`
	DifficultyID    *uint   `json:"difficulty_id" validate:"omitempty,gt=0"`
	ClearCategory   bool    `json:"clear_category"`
	ClearDifficulty bool    `json:"clear_difficulty"`
}

// CourseTransitionRequest asks for a course status change.
type CourseTransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// CourseListRequest captures query filters for listing courses.
type CourseListRequest struct {
	Page         int
	PageSize     int
	Search       string
	Status       string
	InstructorID uint
}

// CourseResponse is the serialized representation of a course.
type CourseResponse struct {
	ID                 uint       `json:"id"`
	InstructorID       uint       `json:"instructor_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	CategoryID         *uint      `json:"category_id"`
	DifficultyID       *uint      `json:"difficulty_id"`
	Status             string     `json:"status"`
	EnrollmentCount    int64      `json:"enrollment_count"`
	AllowedTransitions []string   `json:"allowed_transitions"`
	PublishedAt        *time.Time `json:"published_at"`
	ArchivedAt         *time.Time `json:"archived_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CourseListResponse wraps a paginated course listing.
type CourseListResponse struct {
	Items      []CourseResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// NewCourseResponse converts a model into a DTO. allowed lists the statuses
// the course may move to next.
func NewCourseResponse(model models.Course, allowed []models.CourseStatus) CourseResponse {
	transitions := make([]string, 0, len(allowed))
	for _, status := range allowed {
		transitions = append(transitions, string(status))
	}

	return CourseResponse{
		ID:                 model.ID,
		InstructorID:       model.InstructorID,
		Title:              model.Title,
		Description:        model.Description,
		CategoryID:         model.CategoryID,
		DifficultyID:       model.DifficultyID,
		Status:             string(model.Status),
		EnrollmentCount:    model.EnrollmentCount,
		AllowedTransitions: transitions,
		PublishedAt:        model.PublishedAt,
		ArchivedAt:         model.ArchivedAt,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}
