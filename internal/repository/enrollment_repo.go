package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// EnrollmentFilter narrows enrollment listings.
type EnrollmentFilter struct {
	CourseID  *uint
	LearnerID *uint
	Status    *models.EnrollmentStatus
}

// EnrollmentRepository persists learner enrollments.
type EnrollmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Enrollment, error)
	GetByLearnerAndCourse(ctx context.Context, learnerID, courseID uint) (models.Enrollment, error)
	CountActiveByCourse(ctx context.Context, courseID uint) (int64, error)
	List(ctx context.Context, filter EnrollmentFilter) ([]models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs the enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := forUpdate(r.db.WithContext(ctx)).First(&enrollment, id).Error; err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

func (r *enrollmentRepository) GetByLearnerAndCourse(ctx context.Context, learnerID, courseID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		First(&enrollment).Error; err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

func (r *enrollmentRepository) CountActiveByCourse(ctx context.Context, courseID uint) (int64, error) {
	return countActiveEnrollments(r.db.WithContext(ctx), courseID)
}

func (r *enrollmentRepository) List(ctx context.Context, filter EnrollmentFilter) ([]models.Enrollment, error) {
	query := r.db.WithContext(ctx).Model(&models.Enrollment{})
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.LearnerID != nil {
		query = query.Where("learner_id = ?", *filter.LearnerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var enrollments []models.Enrollment
	if err := query.Order("enrolled_at DESC").Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Save(enrollment).Error
}
