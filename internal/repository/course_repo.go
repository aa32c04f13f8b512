package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// CourseFilter narrows course listings.
type CourseFilter struct {
	InstructorID *uint
	Status       *models.CourseStatus
	Search       string
	Page         int
	PageSize     int
}

// CourseRepository defines persistence operations for courses.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
	GetForUpdate(ctx context.Context, id uint) (models.Course, error)
	List(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error)
	TitleExists(ctx context.Context, instructorID uint, title string, excludeID uint) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	return r.load(ctx, r.db.WithContext(ctx), id)
}

func (r *courseRepository) GetForUpdate(ctx context.Context, id uint) (models.Course, error) {
	return r.load(ctx, forUpdate(r.db.WithContext(ctx)), id)
}

func (r *courseRepository) load(ctx context.Context, query *gorm.DB, id uint) (models.Course, error) {
	var course models.Course
	if err := query.First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	count, err := countActiveEnrollments(r.db.WithContext(ctx), course.ID)
	if err != nil {
		return models.Course{}, err
	}
	course.EnrollmentCount = count

	return course, nil
}

func (r *courseRepository) List(ctx context.Context, filter CourseFilter) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{})

	if filter.InstructorID != nil {
		query = query.Where("instructor_id = ?", *filter.InstructorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []models.Course
	if err := paginate(query.Order("created_at DESC"), filter.Page, filter.PageSize).Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	for i := range courses {
		count, err := countActiveEnrollments(r.db.WithContext(ctx), courses[i].ID)
		if err != nil {
			return nil, 0, err
		}
		courses[i].EnrollmentCount = count
	}

	return courses, total, nil
}

func (r *courseRepository) TitleExists(ctx context.Context, instructorID uint, title string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{}).
		Where("instructor_id = ?", instructorID).
		Where("LOWER(title) = ?", strings.ToLower(strings.TrimSpace(title)))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Course{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func countActiveEnrollments(db *gorm.DB, courseID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, models.EnrollmentStatusActive).
		Count(&count).Error
	return count, err
}
