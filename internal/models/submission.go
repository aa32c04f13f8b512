package models

import "time"

// SubmissionStatus enumerates the grading states of a submission row.
type SubmissionStatus string

const (
	// SubmissionStatusSubmitted indicates the submission awaits grading.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded SubmissionStatus = "graded"
	// SubmissionStatusResubmissionRequired sends the work back to the learner.
	SubmissionStatusResubmissionRequired SubmissionStatus = "resubmission_required"
)

// Submission is the single row a learner holds for one assignment.
type Submission struct {
	ID           uint                     `gorm:"primaryKey" json:"id"`
	AssignmentID uint                     `gorm:"not null;uniqueIndex:idx_submission_assignment_learner" json:"assignment_id"`
	CourseID     uint                     `gorm:"not null;index" json:"course_id"`
	LearnerID    uint                     `gorm:"not null;uniqueIndex:idx_submission_assignment_learner;index" json:"learner_id"`
	Content      string                   `gorm:"type:text" json:"content"`
	Link         string                   `gorm:"size:2048" json:"link"`
	Status       SubmissionStatus         `gorm:"size:32;not null" json:"status"`
	IsLate       bool                     `gorm:"not null;default:false" json:"is_late"`
	Score        *float64                 `json:"score"`
	Feedback     *string                  `gorm:"type:text" json:"feedback"`
	GradedBy     *uint                    `json:"graded_by"`
	SubmittedAt  time.Time                `gorm:"not null" json:"submitted_at"`
	GradedAt     *time.Time               `json:"graded_at"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
	Assignment   Assignment               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	History      []SubmissionGradeHistory `json:"-"`
}

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// SubmissionGradeHistory is an append-only record of every grading call.
type SubmissionGradeHistory struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	SubmissionID uint             `gorm:"not null;index" json:"submission_id"`
	Score        float64          `gorm:"not null" json:"score"`
	Feedback     string           `gorm:"type:text" json:"feedback"`
	Status       SubmissionStatus `gorm:"size:32;not null" json:"status"`
	GradedBy     uint             `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time        `gorm:"not null" json:"graded_at"`
}
