package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
)

func TestActivityServiceListsAuditTrailForOperators(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewActivityService(f.store.Activity, testLogger())

	course := f.publishedCourse(t, instructor, "Audit")
	_, err := f.enrollments.Enroll(ctx, learner, course.ID)
	require.NoError(t, err)

	_, err = svc.List(ctx, instructor, dto.ActivityListRequest{})
	requireCode(t, err, lifecycle.CodeInsufficientPermissions)

	all, err := svc.List(ctx, operator, dto.ActivityListRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.Equal(t, int64(3), all.Pagination.TotalItems)
	require.Equal(t, 2, all.Pagination.TotalPages)

	byLearner, err := svc.List(ctx, operator, dto.ActivityListRequest{ActorID: learner.ID})
	require.NoError(t, err)
	require.Len(t, byLearner.Items, 1)
	require.Equal(t, "enrollment.enrolled", byLearner.Items[0].Action)
	require.Equal(t, "learner", byLearner.Items[0].ActorRole)

	courseEntries, err := svc.List(ctx, operator, dto.ActivityListRequest{EntityType: "Course", EntityID: course.ID})
	require.NoError(t, err)
	require.Len(t, courseEntries.Items, 2)
}
