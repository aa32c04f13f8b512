package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	CourseID     *uint
	LearnerID    *uint
	Status       *models.SubmissionStatus
}

// SubmissionRepository defines data operations for submissions and their
// grading history.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetForUpdate(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndLearner(ctx context.Context, assignmentID, learnerID uint) (models.Submission, error)
	CountByAssignment(ctx context.Context, assignmentID uint) (int64, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error
	ListHistory(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.LearnerID != nil {
		query = query.Where("learner_id = ?", *filter.LearnerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetForUpdate(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := forUpdate(r.db.WithContext(ctx)).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndLearner(ctx context.Context, assignmentID, learnerID uint) (models.Submission, error) {
	var submission models.Submission
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("assignment_id = ? AND learner_id = ?", assignmentID, learnerID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) CountByAssignment(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "History").Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "History").Save(submission).Error
}

func (r *submissionRepository) CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *submissionRepository) ListHistory(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error) {
	var history []models.SubmissionGradeHistory
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("graded_at DESC, id DESC").
		Find(&history).Error; err != nil {
		return nil, err
	}

	return history, nil
}
