package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.Assignment{},
		&models.Submission{},
		&models.SubmissionGradeHistory{},
		&models.Enrollment{},
		&models.CourseMetadata{},
		&models.ActivityLog{},
	))
	return db
}

func seedCourse(t *testing.T, db *gorm.DB, instructorID uint, title string) models.Course {
	t.Helper()
	course := models.Course{InstructorID: instructorID, Title: title, Status: models.CourseStatusPublished}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func TestCourseRepositoryDerivesEnrollmentCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	course := seedCourse(t, db, 1, "Intro")
	now := time.Now()

	require.NoError(t, db.Create(&models.Enrollment{LearnerID: 5, CourseID: course.ID, Status: models.EnrollmentStatusActive, EnrolledAt: now}).Error)
	require.NoError(t, db.Create(&models.Enrollment{LearnerID: 6, CourseID: course.ID, Status: models.EnrollmentStatusCancelled, EnrolledAt: now}).Error)

	loaded, err := repo.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), loaded.EnrollmentCount)
}

func TestCourseRepositoryTitleExistsIsPerOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	course := seedCourse(t, db, 1, "Intro to Go")
	ctx := context.Background()

	exists, err := repo.TitleExists(ctx, 1, "intro to go", 0)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.TitleExists(ctx, 1, "Intro to Go", course.ID)
	require.NoError(t, err)
	require.False(t, exists, "a course never conflicts with itself")

	exists, err = repo.TitleExists(ctx, 2, "Intro to Go", 0)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCourseRepositorySoftDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	course := seedCourse(t, db, 1, "Intro")
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, course.ID))
	_, err := repo.GetByID(ctx, course.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.ErrorIs(t, repo.Delete(ctx, course.ID), gorm.ErrRecordNotFound)

	var raw models.Course
	require.NoError(t, db.Unscoped().First(&raw, course.ID).Error)
	require.True(t, raw.DeletedAt.Valid)
}

func TestAssignmentRepositoryHidesDeletedRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	course := seedCourse(t, db, 1, "Intro")
	ctx := context.Background()
	due := time.Now().Add(24 * time.Hour)

	kept := models.Assignment{CourseID: course.ID, Title: "Kept", DueDate: due, PointsWeight: 40, Status: models.AssignmentStatusDraft}
	dropped := models.Assignment{CourseID: course.ID, Title: "Dropped", DueDate: due, PointsWeight: 60, Status: models.AssignmentStatusDraft}
	require.NoError(t, repo.Create(ctx, &kept))
	require.NoError(t, repo.Create(ctx, &dropped))
	require.NoError(t, repo.Delete(ctx, dropped.ID))

	assignments, err := repo.ListByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Equal(t, "Kept", assignments[0].Title)

	listed, total, err := repo.ListWithFilter(ctx, AssignmentFilter{CourseID: course.ID, Sort: "-weight", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, listed, 1)
}

func TestAssignmentRepositoryListDueForClose(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	course := seedCourse(t, db, 1, "Intro")
	ctx := context.Background()
	now := time.Now()

	overdue := models.Assignment{CourseID: course.ID, Title: "Overdue", DueDate: now.Add(-2 * time.Hour), Status: models.AssignmentStatusPublished}
	lenient := models.Assignment{CourseID: course.ID, Title: "Lenient", DueDate: now.Add(-2 * time.Hour), Status: models.AssignmentStatusPublished, AllowLate: true}
	future := models.Assignment{CourseID: course.ID, Title: "Future", DueDate: now.Add(2 * time.Hour), Status: models.AssignmentStatusPublished}
	for _, a := range []*models.Assignment{&overdue, &lenient, &future} {
		require.NoError(t, repo.Create(ctx, a))
	}

	due, err := repo.ListDueForClose(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, overdue.ID, due[0].ID)
}

func TestSubmissionRepositoryEnforcesOneRowPerPair(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	course := seedCourse(t, db, 1, "Intro")
	ctx := context.Background()
	now := time.Now()

	assignment := models.Assignment{CourseID: course.ID, Title: "A", DueDate: now.Add(time.Hour), Status: models.AssignmentStatusPublished}
	require.NoError(t, db.Create(&assignment).Error)

	first := models.Submission{AssignmentID: assignment.ID, CourseID: course.ID, LearnerID: 7, Content: "one", Status: models.SubmissionStatusSubmitted, SubmittedAt: now}
	require.NoError(t, repo.Create(ctx, &first))

	second := models.Submission{AssignmentID: assignment.ID, CourseID: course.ID, LearnerID: 7, Content: "two", Status: models.SubmissionStatusSubmitted, SubmittedAt: now}
	err := repo.Create(ctx, &second)
	require.Error(t, err)
	require.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	found, err := repo.GetByAssignmentAndLearner(ctx, assignment.ID, 7)
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)

	count, err := repo.CountByAssignment(ctx, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestSubmissionRepositoryHistoryNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.CreateHistory(ctx, &models.SubmissionGradeHistory{SubmissionID: 3, Score: 70, Status: models.SubmissionStatusGraded, GradedBy: 1, GradedAt: now}))
	require.NoError(t, repo.CreateHistory(ctx, &models.SubmissionGradeHistory{SubmissionID: 3, Score: 90, Status: models.SubmissionStatusGraded, GradedBy: 1, GradedAt: now.Add(time.Minute)}))

	history, err := repo.ListHistory(ctx, 3)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 90.0, history[0].Score)
}

func TestEnrollmentRepositoryUniquePair(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrollmentRepository(db)
	course := seedCourse(t, db, 1, "Intro")
	ctx := context.Background()
	now := time.Now()

	enrollment := models.Enrollment{LearnerID: 4, CourseID: course.ID, Status: models.EnrollmentStatusActive, EnrolledAt: now}
	require.NoError(t, repo.Create(ctx, &enrollment))

	duplicate := models.Enrollment{LearnerID: 4, CourseID: course.ID, Status: models.EnrollmentStatusActive, EnrolledAt: now}
	require.ErrorIs(t, repo.Create(ctx, &duplicate), gorm.ErrDuplicatedKey)

	count, err := repo.CountActiveByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	learner := uint(4)
	listed, err := repo.List(ctx, EnrollmentFilter{LearnerID: &learner})
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestMetadataRepositoryListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMetadataRepository(db)
	ctx := context.Background()

	active := models.CourseMetadata{Kind: models.MetadataKindCategory, Name: "Programming", Active: true}
	retired := models.CourseMetadata{Kind: models.MetadataKindCategory, Name: "Legacy", Active: true}
	require.NoError(t, repo.Create(ctx, &active))
	require.NoError(t, repo.Create(ctx, &retired))
	retired.Active = false
	require.NoError(t, repo.Update(ctx, &retired))

	entries, err := repo.List(ctx, models.MetadataKindCategory, true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Programming", entries[0].Name)
}

func TestMetadataRepositoryUpsertBatchReactivates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMetadataRepository(db)
	ctx := context.Background()

	existing := models.CourseMetadata{Kind: models.MetadataKindCategory, Name: "Programming", Active: true}
	require.NoError(t, repo.Create(ctx, &existing))
	existing.Active = false
	require.NoError(t, repo.Update(ctx, &existing))

	_, err := repo.UpsertBatch(ctx, []models.CourseMetadata{
		{Kind: models.MetadataKindCategory, Name: "Programming", Active: true},
		{Kind: models.MetadataKindDifficulty, Name: "Beginner", Active: true},
	})
	require.NoError(t, err)

	entries, err := repo.List(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	reloaded, err := repo.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	require.True(t, reloaded.Active)
}

func TestStoreTransactionRollsBack(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(repos Repositories) error {
		if err := repos.Courses.Create(ctx, &models.Course{InstructorID: 1, Title: "Rolled back", Status: models.CourseStatusDraft}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	courses, total, err := store.Courses.List(ctx, CourseFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, courses)
}

func TestActivityLogRepositoryFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()
	entityID := uint(9)

	require.NoError(t, repo.Create(ctx, &models.ActivityLog{ActorID: 1, ActorRole: "instructor", Action: "course.published", EntityType: "course", EntityID: &entityID, Metadata: datatypes.JSONMap{"from": "draft"}}))
	require.NoError(t, repo.Create(ctx, &models.ActivityLog{ActorID: 2, ActorRole: "learner", Action: "submission.submitted", EntityType: "submission"}))

	entries, total, err := repo.List(ctx, ActivityLogFilter{EntityType: "course", EntityID: &entityID, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "course.published", entries[0].Action)
	require.Equal(t, "draft", entries[0].Metadata["from"])
}
