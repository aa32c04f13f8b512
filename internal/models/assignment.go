package models

import (
	"time"

	"gorm.io/gorm"
)

// AssignmentStatus enumerates the lifecycle states of an assignment.
type AssignmentStatus string

const (
	// AssignmentStatusDraft is the creation state.
	AssignmentStatusDraft AssignmentStatus = "draft"
	// AssignmentStatusPublished accepts submissions.
	AssignmentStatusPublished AssignmentStatus = "published"
	// AssignmentStatusClosed rejects first-time submissions.
	AssignmentStatusClosed AssignmentStatus = "closed"
)

// Valid reports whether the status is one of the known assignment states.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusDraft, AssignmentStatusPublished, AssignmentStatusClosed:
		return true
	}
	return false
}

// Assignment is a weighted piece of coursework. PointsWeight is a whole
// percentage of the course grade (0-100).
type Assignment struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	CourseID          uint             `gorm:"not null;index" json:"course_id"`
	Title             string           `gorm:"size:255;not null" json:"title"`
	Description       string           `gorm:"type:text" json:"description"`
	Instructions      string           `gorm:"type:text" json:"instructions"`
	DueDate           time.Time        `gorm:"not null" json:"due_date"`
	PointsWeight      int              `gorm:"not null;default:0" json:"points_weight"`
	Status            AssignmentStatus `gorm:"size:32;not null;default:draft" json:"status"`
	AllowLate         bool             `gorm:"not null;default:false" json:"allow_late"`
	AllowResubmission bool             `gorm:"not null;default:false" json:"allow_resubmission"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `gorm:"index" json:"-"`
	Course            Course           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// IsDeleted reports whether the assignment carries a soft-delete marker.
func (a Assignment) IsDeleted() bool {
	return a.DeletedAt.Valid
}
