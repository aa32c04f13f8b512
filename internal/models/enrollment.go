package models

import "time"

// EnrollmentStatus enumerates the states of an enrollment row.
type EnrollmentStatus string

const (
	// EnrollmentStatusActive grants the learner access to the course.
	EnrollmentStatusActive EnrollmentStatus = "active"
	// EnrollmentStatusCancelled keeps the row for reactivation.
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// Enrollment links a learner to a course. One row exists per pair; a
// re-enrollment reactivates it.
type Enrollment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	LearnerID   uint             `gorm:"not null;uniqueIndex:idx_enrollment_learner_course" json:"learner_id"`
	CourseID    uint             `gorm:"not null;uniqueIndex:idx_enrollment_learner_course;index" json:"course_id"`
	Status      EnrollmentStatus `gorm:"size:32;not null" json:"status"`
	EnrolledAt  time.Time        `gorm:"not null" json:"enrolled_at"`
	CancelledAt *time.Time       `json:"cancelled_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// IsActive reports whether the enrollment currently grants access.
func (e Enrollment) IsActive() bool {
	return e.Status == EnrollmentStatusActive
}
