package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

func TestSeedServiceTokenGuard(t *testing.T) {
	db := setupTestDB(t)
	validate := utils.NewValidator()
	repo := repository.NewMetadataRepository(db)
	items := []dto.MetadataCreateRequest{
		{Kind: "category", Name: "Mathematics"},
		{Kind: "category", Name: "mathematics"},
		{Kind: "difficulty", Name: "Beginner"},
	}

	disabled := NewSeedService(repo, validate, false, "secret", testLogger())
	_, err := disabled.SeedMetadata(context.Background(), "secret", items)
	require.ErrorIs(t, err, ErrSeedDisabled)

	svc := NewSeedService(repo, validate, true, "secret", testLogger())
	_, err = svc.SeedMetadata(context.Background(), "wrong", items)
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	affected, err := svc.SeedMetadata(context.Background(), "secret", items)
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)

	var count int64
	require.NoError(t, db.Model(&models.CourseMetadata{}).Count(&count).Error)
	require.Equal(t, int64(2), count)

	_, err = svc.SeedMetadata(context.Background(), "secret", items)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.CourseMetadata{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}
