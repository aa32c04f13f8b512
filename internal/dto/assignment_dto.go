package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
// PointsWeight is read in WeightUnit, percent unless stated otherwise.
type AssignmentCreateRequest struct {
	Title             string   `json:"title" validate:"required,max=255"`
	Description       string   `json:"description" validate:"omitempty,max=5000"`
	Instructions      string   `json:"instructions" validate:"omitempty,max=10000"`
	DueDate           string   `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	PointsWeight      *float64 `json:"points_weight" validate:"required"`
	WeightUnit        string   `json:"weight_unit" validate:"omitempty,oneof=percent fraction"`
	AllowLate         bool     `json:"allow_late"`
	AllowResubmission bool     `json:"allow_resubmission"`
	Publish           bool     `json:"publish"`
}

// AssignmentUpdateRequest enumerates the mutable assignment fields.
type AssignmentUpdateRequest struct {
	Title             *string  `json:"title" validate:"omitempty,max=255"`
	Description       *string  `json:"description" validate:"omitempty,max=5000"`
	Instructions      *string  `json:"instructions" validate:"omitempty,max=10000"`
	DueDate           *string  `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	PointsWeight      *float64 `json:"points_weight"`
	WeightUnit        string   `json:"weight_unit" validate:"omitempty,oneof=percent fraction"`
	AllowLate         *bool    `json:"allow_late"`
	AllowResubmission *bool    `json:"allow_resubmission"`
}

// AssignmentTransitionRequest asks for an assignment status change.
type AssignmentTransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// AssignmentListRequest captures query filters for course assignments.
type AssignmentListRequest struct {
	Page     int
	PageSize int
	Search   string
	Status   string
	Sort     string
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID                uint      `json:"id"`
	CourseID          uint      `json:"course_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Instructions      string    `json:"instructions"`
	DueDate           time.Time `json:"due_date"`
	PointsWeight      int       `json:"points_weight"`
	Status            string    `json:"status"`
	AllowLate         bool      `json:"allow_late"`
	AllowResubmission bool      `json:"allow_resubmission"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AssignmentListResponse wraps course assignments together with the unused
// share of the weight budget.
type AssignmentListResponse struct {
	Items           []AssignmentResponse `json:"items"`
	RemainingWeight int                  `json:"remaining_weight"`
	Pagination      PaginationMeta       `json:"pagination"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                model.ID,
		CourseID:          model.CourseID,
		Title:             model.Title,
		Description:       model.Description,
		Instructions:      model.Instructions,
		DueDate:           model.DueDate,
		PointsWeight:      model.PointsWeight,
		Status:            string(model.Status),
		AllowLate:         model.AllowLate,
		AllowResubmission: model.AllowResubmission,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
