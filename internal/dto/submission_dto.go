package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// SubmitRequest carries learner work. At least one of content or link is required.
type SubmitRequest struct {
	Content string `json:"content" validate:"omitempty,max=20000"`
	Link    string `json:"link" validate:"omitempty,max=2048"`
}

// GradeRequest grades a submission. Status defaults to graded.
type GradeRequest struct {
	Score    *float64 `json:"score" validate:"required"`
	Feedback string   `json:"feedback" validate:"required"`
	Status   string   `json:"status" validate:"omitempty,oneof=graded resubmission_required"`
}

// SubmissionListRequest describes query string filters for listing submissions.
type SubmissionListRequest struct {
	AssignmentID uint   `query:"assignment_id"`
	LearnerID    uint   `query:"learner_id"`
	Status       string `query:"status" validate:"omitempty,oneof=submitted graded resubmission_required"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint                             `json:"id"`
	AssignmentID uint                             `json:"assignment_id"`
	CourseID     uint                             `json:"course_id"`
	LearnerID    uint                             `json:"learner_id"`
	Content      string                           `json:"content"`
	Link         string                           `json:"link"`
	Status       string                           `json:"status"`
	IsLate       bool                             `json:"is_late"`
	Score        *float64                         `json:"score"`
	Feedback     *string                          `json:"feedback"`
	GradedBy     *uint                            `json:"graded_by"`
	SubmittedAt  time.Time                        `json:"submitted_at"`
	GradedAt     *time.Time                       `json:"graded_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
	History      []SubmissionGradeHistoryResponse `json:"history,omitempty"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Score    float64   `json:"score"`
	Feedback string    `json:"feedback"`
	Status   string    `json:"status"`
	GradedBy uint      `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		CourseID:     model.CourseID,
		LearnerID:    model.LearnerID,
		Content:      model.Content,
		Link:         model.Link,
		Status:       string(model.Status),
		IsLate:       model.IsLate,
		Score:        model.Score,
		Feedback:     model.Feedback,
		GradedBy:     model.GradedBy,
		SubmittedAt:  model.SubmittedAt,
		GradedAt:     model.GradedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if len(model.History) > 0 {
		history := make([]SubmissionGradeHistoryResponse, 0, len(model.History))
		for _, entry := range model.History {
			history = append(history, SubmissionGradeHistoryResponse{
				Score:    entry.Score,
				Feedback: entry.Feedback,
				Status:   string(entry.Status),
				GradedBy: entry.GradedBy,
				GradedAt: entry.GradedAt,
			})
		}
		response.History = history
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
