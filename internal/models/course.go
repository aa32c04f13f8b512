package models

import (
	"time"

	"gorm.io/gorm"
)

// CourseStatus enumerates the lifecycle states of a course.
type CourseStatus string

const (
	// CourseStatusDraft is the initial state; only the owner sees the course.
	CourseStatusDraft CourseStatus = "draft"
	// CourseStatusPublished marks a course open for enrollment.
	CourseStatusPublished CourseStatus = "published"
	// CourseStatusArchived blocks new enrollments.
	CourseStatusArchived CourseStatus = "archived"
)

// Valid reports whether the status is one of the known course states.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusDraft, CourseStatusPublished, CourseStatusArchived:
		return true
	}
	return false
}

// Course is owned by a single instructor and groups assignments and enrollments.
type Course struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	InstructorID uint           `gorm:"not null;index" json:"instructor_id"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	CategoryID   *uint          `json:"category_id"`
	DifficultyID *uint          `json:"difficulty_id"`
	Status       CourseStatus   `gorm:"size:32;not null;default:draft" json:"status"`
	PublishedAt  *time.Time     `json:"published_at"`
	ArchivedAt   *time.Time     `json:"archived_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// EnrollmentCount is derived from active enrollments and never persisted.
	EnrollmentCount int64 `gorm:"-" json:"enrollment_count"`
}

// IsOwnedBy reports whether the given user is the course instructor.
func (c Course) IsOwnedBy(userID uint) bool {
	return userID != 0 && c.InstructorID == userID
}

// AcceptsEnrollments reports whether learners may currently join the course.
func (c Course) AcceptsEnrollments() bool {
	return c.Status == CourseStatusPublished
}
