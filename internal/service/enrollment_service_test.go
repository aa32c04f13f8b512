package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
)

func TestEnrollmentServiceCancelAndReactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.publishedCourse(t, instructor, "Calculus")

	first, err := f.enrollments.Enroll(ctx, learner, course.ID)
	require.NoError(t, err)
	require.Equal(t, "active", first.Status)

	_, err = f.enrollments.Enroll(ctx, learner, course.ID)
	requireCode(t, err, lifecycle.CodeAlreadyEnrolled)

	cancelled, err := f.enrollments.Cancel(ctx, learner, course.ID)
	require.NoError(t, err)
	require.Equal(t, "cancelled", cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = f.enrollments.Cancel(ctx, learner, course.ID)
	requireCode(t, err, lifecycle.CodeEnrollmentAlreadyCancelled)

	again, err := f.enrollments.Enroll(ctx, learner, course.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, "active", again.Status)
	require.Nil(t, again.CancelledAt)

	var rows int64
	require.NoError(t, f.db.Model(&models.Enrollment{}).Where("course_id = ?", course.ID).Count(&rows).Error)
	require.Equal(t, int64(1), rows)
}

func TestEnrollmentServiceCourseStatusGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.courses.Create(ctx, instructor, dto.CourseCreateRequest{Title: "Soon"})
	require.NoError(t, err)
	_, err = f.enrollments.Enroll(ctx, learner, draft.ID)
	requireCode(t, err, lifecycle.CodeCourseNotPublished)

	archived := f.publishedCourse(t, instructor, "Old")
	_, err = f.courses.RequestTransition(ctx, instructor, archived.ID, dto.CourseTransitionRequest{Status: "archived"})
	require.NoError(t, err)
	_, err = f.enrollments.Enroll(ctx, learner, archived.ID)
	requireCode(t, err, lifecycle.CodeCourseArchived)

	_, err = f.enrollments.Enroll(ctx, learner, 5050)
	requireCode(t, err, lifecycle.CodeCourseNotFound)

	_, err = f.enrollments.Cancel(ctx, learner, draft.ID)
	requireCode(t, err, lifecycle.CodeEnrollmentNotFound)
}

func TestEnrollmentServiceOnlyLearnersEnroll(t *testing.T) {
	f := newFixture(t)
	course := f.publishedCourse(t, instructor, "Ethics")

	_, err := f.enrollments.Enroll(context.Background(), instructor, course.ID)
	requireCode(t, err, lifecycle.CodeInsufficientPermissions)
}

func TestEnrollmentServiceListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.publishedCourse(t, instructor, "Logic")

	_, err := f.enrollments.Enroll(ctx, learner, course.ID)
	require.NoError(t, err)
	_, err = f.enrollments.Enroll(ctx, otherLearner, course.ID)
	require.NoError(t, err)
	_, err = f.enrollments.Cancel(ctx, otherLearner, course.ID)
	require.NoError(t, err)

	roster, err := f.enrollments.ListForCourse(ctx, instructor, course.ID, "active")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, learner.ID, roster[0].LearnerID)

	all, err := f.enrollments.ListForCourse(ctx, instructor, course.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = f.enrollments.ListForCourse(ctx, learner, course.ID, "")
	requireCode(t, err, lifecycle.CodeInsufficientPermissions)

	mine, err := f.enrollments.ListMine(ctx, otherLearner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "cancelled", mine[0].Status)

	loaded, err := f.courses.Get(ctx, learner, course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), loaded.EnrollmentCount)
}

func TestEnrollmentServiceConcurrentEnrollKeepsOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.publishedCourse(t, instructor, "Linear Algebra")

	first, err := f.enrollments.Enroll(ctx, learner, course.ID)
	require.NoError(t, err)

	simulateStaleRead(t, f.db, "enrollments")
	_, err = f.enrollments.Enroll(ctx, learner, course.ID)
	requireCode(t, err, lifecycle.CodeAlreadyEnrolled)

	var rows []models.Enrollment
	require.NoError(t, f.db.Where("course_id = ? AND learner_id = ?", course.ID, learner.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, first.ID, rows[0].ID)
}
