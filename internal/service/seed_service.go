package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService bootstraps the course taxonomy on fresh environments.
type SeedService interface {
	SeedMetadata(ctx context.Context, token string, items []dto.MetadataCreateRequest) (int64, error)
}

type seedService struct {
	repo      repository.MetadataRepository
	validator *validator.Validate
	enabled   bool
	token     string
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(repo repository.MetadataRepository, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:      repo,
		validator: validate,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedMetadata(ctx context.Context, token string, items []dto.MetadataCreateRequest) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}

	entries := make([]models.CourseMetadata, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := s.validator.Struct(item); err != nil {
			return 0, err
		}
		entry := models.CourseMetadata{
			Kind:   models.MetadataKind(parseTarget(item.Kind)),
			Name:   strings.TrimSpace(item.Name),
			Active: true,
		}
		key := string(entry.Kind) + "/" + strings.ToLower(entry.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, entry)
	}

	affected, err := s.repo.UpsertBatch(ctx, entries)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("affected", affected).Msg("course metadata seeded")
	return affected, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
