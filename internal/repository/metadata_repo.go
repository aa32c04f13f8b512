package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// MetadataRepository stores moderated course taxonomy entries.
type MetadataRepository interface {
	GetByID(ctx context.Context, id uint) (models.CourseMetadata, error)
	List(ctx context.Context, kind models.MetadataKind, activeOnly bool) ([]models.CourseMetadata, error)
	Create(ctx context.Context, entry *models.CourseMetadata) error
	Update(ctx context.Context, entry *models.CourseMetadata) error
	UpsertBatch(ctx context.Context, entries []models.CourseMetadata) (int64, error)
}

type metadataRepository struct {
	db *gorm.DB
}

// NewMetadataRepository constructs the metadata repository.
func NewMetadataRepository(db *gorm.DB) MetadataRepository {
	return &metadataRepository{db: db}
}

func (r *metadataRepository) GetByID(ctx context.Context, id uint) (models.CourseMetadata, error) {
	var entry models.CourseMetadata
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return models.CourseMetadata{}, err
	}
	return entry, nil
}

func (r *metadataRepository) List(ctx context.Context, kind models.MetadataKind, activeOnly bool) ([]models.CourseMetadata, error) {
	query := r.db.WithContext(ctx).Model(&models.CourseMetadata{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var entries []models.CourseMetadata
	if err := query.Order("kind ASC, name ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *metadataRepository) Create(ctx context.Context, entry *models.CourseMetadata) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *metadataRepository) Update(ctx context.Context, entry *models.CourseMetadata) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// UpsertBatch inserts entries keyed by (kind, name), refreshing the active
// flag of existing ones.
func (r *metadataRepository) UpsertBatch(ctx context.Context, entries []models.CourseMetadata) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "updated_at"}),
	})

	result := tx.Create(&entries)
	return result.RowsAffected, result.Error
}
