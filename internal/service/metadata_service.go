package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// MetadataService moderates the category and difficulty taxonomies.
type MetadataService interface {
	List(ctx context.Context, actor lifecycle.Actor, kind string) ([]dto.MetadataResponse, error)
	Create(ctx context.Context, actor lifecycle.Actor, payload dto.MetadataCreateRequest) (dto.MetadataResponse, error)
	Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.MetadataUpdateRequest) (dto.MetadataResponse, error)
}

type metadataService struct {
	store     *repository.Store
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewMetadataService builds the metadata moderation service.
func NewMetadataService(store *repository.Store, validate *validator.Validate, logger zerolog.Logger) MetadataService {
	return &metadataService{
		store:     store,
		validator: validate,
		logger:    logger.With().Str("component", "metadata_service").Logger(),
		now:       time.Now,
	}
}

// List returns active entries to everyone and inactive ones to operators too.
func (s *metadataService) List(ctx context.Context, actor lifecycle.Actor, kind string) ([]dto.MetadataResponse, error) {
	target := models.MetadataKind(parseTarget(kind))
	if target != "" && target != models.MetadataKindCategory && target != models.MetadataKindDifficulty {
		return nil, lifecycle.InvalidInput("kind", "kind must be category or difficulty")
	}

	activeOnly := lifecycle.AuthorizeOperator(actor) != nil
	entries, err := s.store.Metadata.List(ctx, target, activeOnly)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.MetadataResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewMetadataResponse(entry))
	}
	return responses, nil
}

func (s *metadataService) Create(ctx context.Context, actor lifecycle.Actor, payload dto.MetadataCreateRequest) (dto.MetadataResponse, error) {
	if err := lifecycle.AuthorizeOperator(actor); err != nil {
		return dto.MetadataResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.MetadataResponse{}, err
	}

	entry := models.CourseMetadata{
		Kind:   models.MetadataKind(parseTarget(payload.Kind)),
		Name:   strings.TrimSpace(payload.Name),
		Active: true,
	}
	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		if err := repos.Metadata.Create(ctx, &entry); err != nil {
			return duplicateName(err)
		}
		return repos.Activity.Create(ctx, newActivityLog(actor, "metadata.created", "metadata", entry.ID, map[string]interface{}{
			"kind": string(entry.Kind),
			"name": entry.Name,
		}))
	})
	if err != nil {
		return dto.MetadataResponse{}, err
	}

	s.logger.Info().Uint("metadata_id", entry.ID).Str("kind", string(entry.Kind)).Msg("metadata entry created")
	return dto.NewMetadataResponse(entry), nil
}

// Update renames or (de)activates an entry. Deactivation does not detach
// courses already referencing it; it only blocks new references.
func (s *metadataService) Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.MetadataUpdateRequest) (dto.MetadataResponse, error) {
	if err := lifecycle.AuthorizeOperator(actor); err != nil {
		return dto.MetadataResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.MetadataResponse{}, err
	}

	var entry models.CourseMetadata
	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		current, err := repos.Metadata.GetByID(ctx, id)
		if err != nil {
			return notFoundAs(err, lifecycle.CodeMetadataNotFound, "metadata entry not found")
		}
		if payload.Name != nil {
			current.Name = strings.TrimSpace(*payload.Name)
		}
		if payload.Active != nil {
			current.Active = *payload.Active
		}
		current.UpdatedAt = s.now()
		if err := repos.Metadata.Update(ctx, &current); err != nil {
			return duplicateName(err)
		}
		entry = current

		return repos.Activity.Create(ctx, newActivityLog(actor, "metadata.updated", "metadata", entry.ID, map[string]interface{}{
			"name":   entry.Name,
			"active": entry.Active,
		}))
	})
	if err != nil {
		return dto.MetadataResponse{}, err
	}

	s.logger.Info().Uint("metadata_id", entry.ID).Bool("active", entry.Active).Msg("metadata entry updated")
	return dto.NewMetadataResponse(entry), nil
}

func duplicateName(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return lifecycle.InvalidInput("name", "an entry with this name already exists")
	}
	return err
}
