package models

import "time"

// MetadataKind distinguishes the moderated course taxonomies.
type MetadataKind string

const (
	MetadataKindCategory   MetadataKind = "category"
	MetadataKindDifficulty MetadataKind = "difficulty"
)

// CourseMetadata is an operator-moderated taxonomy entry referenced by courses.
type CourseMetadata struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Kind      MetadataKind `gorm:"size:32;not null;uniqueIndex:idx_metadata_kind_name" json:"kind"`
	Name      string       `gorm:"size:120;not null;uniqueIndex:idx_metadata_kind_name" json:"name"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
