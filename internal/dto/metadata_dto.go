package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// MetadataCreateRequest creates a category or difficulty entry.
type MetadataCreateRequest struct {
	Kind string `json:"kind" validate:"required,oneof=category difficulty"`
	Name string `json:"name" validate:"required,min=2,max=120"`
}

// MetadataUpdateRequest renames or (de)activates an entry.
type MetadataUpdateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=120"`
	Active *bool   `json:"active"`
}

// MetadataResponse serializes a taxonomy entry.
type MetadataResponse struct {
	ID        uint      `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMetadataResponse converts a model into a DTO.
func NewMetadataResponse(model models.CourseMetadata) MetadataResponse {
	return MetadataResponse{
		ID:        model.ID,
		Kind:      string(model.Kind),
		Name:      model.Name,
		Active:    model.Active,
		UpdatedAt: model.UpdatedAt,
	}
}
