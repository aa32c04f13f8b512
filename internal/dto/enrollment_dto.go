package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// EnrollmentResponse serializes an enrollment row.
type EnrollmentResponse struct {
	ID          uint       `json:"id"`
	LearnerID   uint       `json:"learner_id"`
	CourseID    uint       `json:"course_id"`
	Status      string     `json:"status"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

// NewEnrollmentResponse converts a model into a DTO.
func NewEnrollmentResponse(model models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:          model.ID,
		LearnerID:   model.LearnerID,
		CourseID:    model.CourseID,
		Status:      string(model.Status),
		EnrolledAt:  model.EnrolledAt,
		CancelledAt: model.CancelledAt,
	}
}

// NewEnrollmentResponseSlice converts enrollment models into DTOs.
func NewEnrollmentResponseSlice(enrollments []models.Enrollment) []EnrollmentResponse {
	responses := make([]EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, NewEnrollmentResponse(enrollment))
	}
	return responses
}
