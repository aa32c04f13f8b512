package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

var (
	instructor      = lifecycle.Actor{ID: 1, Role: lifecycle.RoleInstructor}
	otherInstructor = lifecycle.Actor{ID: 2, Role: lifecycle.RoleInstructor}
	learner         = lifecycle.Actor{ID: 10, Role: lifecycle.RoleLearner}
	otherLearner    = lifecycle.Actor{ID: 11, Role: lifecycle.RoleLearner}
	operator        = lifecycle.Actor{ID: 99, Role: lifecycle.RoleAdmin}
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

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

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) subjects(prefix string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	subjects := make([]string, 0, len(p.events))
	for _, event := range p.events {
		subjects = append(subjects, event.Subject(prefix))
	}
	return subjects
}

type recordingInvalidator struct {
	calls   [][2]uint
	courses []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, courseID, learnerID uint) {
	r.calls = append(r.calls, [2]uint{courseID, learnerID})
}

func (r *recordingInvalidator) InvalidateCourse(_ context.Context, courseID uint) {
	r.courses = append(r.courses, courseID)
}

// fixture wires every orchestrator against one sqlite store and a fixed clock.
type fixture struct {
	db          *gorm.DB
	store       *repository.Store
	publisher   *recordingPublisher
	invalidator *recordingInvalidator
	now         time.Time

	courses     CourseService
	assignments AssignmentService
	submissions SubmissionService
	enrollments EnrollmentService
	gradebook   GradebookService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return buildFixture(t, nil)
}

// newCachedFixture wires a redis backed gradebook as the invalidator of every
// orchestrator instead of the recording stub.
func newCachedFixture(t *testing.T, cache *redis.Client) *fixture {
	t.Helper()
	return buildFixture(t, cache)
}

func buildFixture(t *testing.T, cache *redis.Client) *fixture {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewStore(db)
	validate := utils.NewValidator()

	f := &fixture{
		db:          db,
		store:       store,
		publisher:   &recordingPublisher{},
		invalidator: &recordingInvalidator{},
		now:         time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.gradebook = NewGradebookService(store, cache, time.Minute, testLogger())
	var invalidator GradebookInvalidator = f.invalidator
	if cache != nil {
		invalidator = f.gradebook
	}

	courses := NewCourseService(store, validate, f.publisher, testLogger())
	courses.(*courseService).now = clock
	assignments := NewAssignmentService(store, validate, f.publisher, testLogger(), WithCourseGradebookInvalidator(invalidator))
	assignments.(*assignmentService).now = clock
	submissions := NewSubmissionService(store, validate, f.publisher, testLogger(), WithGradebookInvalidator(invalidator))
	submissions.(*submissionService).now = clock
	enrollments := NewEnrollmentService(store, f.publisher, testLogger())
	enrollments.(*enrollmentService).now = clock

	f.courses = courses
	f.assignments = assignments
	f.submissions = submissions
	f.enrollments = enrollments
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) publishedCourse(t *testing.T, owner lifecycle.Actor, title string) dto.CourseResponse {
	t.Helper()
	ctx := context.Background()
	course, err := f.courses.Create(ctx, owner, dto.CourseCreateRequest{Title: title})
	require.NoError(t, err)
	course, err = f.courses.RequestTransition(ctx, owner, course.ID, dto.CourseTransitionRequest{Status: "published"})
	require.NoError(t, err)
	return course
}

func (f *fixture) assignment(t *testing.T, courseID uint, weight float64, due time.Duration, mutate func(*dto.AssignmentCreateRequest)) dto.AssignmentResponse {
	t.Helper()
	payload := dto.AssignmentCreateRequest{
		Title:        fmt.Sprintf("Assignment %.0f", weight),
		DueDate:      f.now.Add(due).Format(time.RFC3339),
		PointsWeight: &weight,
		Publish:      true,
	}
	if mutate != nil {
		mutate(&payload)
	}
	assignment, err := f.assignments.Create(context.Background(), instructor, courseID, payload)
	require.NoError(t, err)
	return assignment
}

func requireCode(t *testing.T, err error, code lifecycle.Code) {
	t.Helper()
	require.Error(t, err)
	rejection, ok := lifecycle.AsError(err)
	require.True(t, ok, "expected lifecycle rejection, got %v", err)
	require.Equal(t, code, rejection.Code)
}

func requireKind(t *testing.T, err error, kind lifecycle.Kind) {
	t.Helper()
	var rejection *lifecycle.Error
	require.True(t, errors.As(err, &rejection), "expected lifecycle rejection, got %v", err)
	require.Equal(t, kind, rejection.Kind)
}

func floatPtr(v float64) *float64 {
	return &v
}

func stringPtr(v string) *string {
	return &v
}

// simulateStaleRead makes the next lookup against table report no row, the
// view a concurrent caller has before the competing insert commits.
func simulateStaleRead(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	fired := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:stale_read_"+table, func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		tx.Statement.RowsAffected = 0
		tx.Error = gorm.ErrRecordNotFound
	}))
}
