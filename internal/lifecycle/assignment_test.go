package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
)

func publishedCourse() models.Course {
	return models.Course{ID: 1, InstructorID: 9, Title: "Intro", Status: models.CourseStatusPublished}
}

func TestNewAssignmentStartsAsDraft(t *testing.T) {
	assignment, err := lifecycle.NewAssignment(publishedCourse(), lifecycle.AssignmentDraft{
		Title:        "Essay",
		DueDate:      baseTime.Add(48 * time.Hour),
		PointsWeight: 60,
	}, nil, baseTime)
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusDraft, assignment.Status)
	require.Equal(t, uint(1), assignment.CourseID)
	require.Equal(t, 60, assignment.PointsWeight)
}

func TestNewAssignmentDirectPublish(t *testing.T) {
	assignment, err := lifecycle.NewAssignment(publishedCourse(), lifecycle.AssignmentDraft{
		Title:        "Quiz",
		DueDate:      baseTime.Add(time.Hour),
		PointsWeight: 10,
		Publish:      true,
	}, nil, baseTime)
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusPublished, assignment.Status)
}

func TestNewAssignmentWeightExceeded(t *testing.T) {
	siblings := []models.Assignment{{ID: 1, CourseID: 1, PointsWeight: 60}}
	_, err := lifecycle.NewAssignment(publishedCourse(), lifecycle.AssignmentDraft{
		Title:        "B",
		DueDate:      baseTime.Add(time.Hour),
		PointsWeight: 50,
	}, siblings, baseTime)
	requireCode(t, err, lifecycle.CodeAssignmentWeightExceeded)

	_, err = lifecycle.NewAssignment(publishedCourse(), lifecycle.AssignmentDraft{
		Title:        "B",
		DueDate:      baseTime.Add(time.Hour),
		PointsWeight: 40,
	}, siblings, baseTime)
	require.NoError(t, err)
}

func TestNewAssignmentGuards(t *testing.T) {
	_, err := lifecycle.NewAssignment(publishedCourse(), lifecycle.AssignmentDraft{Title: "", DueDate: baseTime.Add(time.Hour)}, nil, baseTime)
	requireCode(t, err, lifecycle.CodeInvalidInput)

	_, err = lifecycle.NewAssignment(publishedCourse(), lifecycle.AssignmentDraft{Title: "Late", DueDate: baseTime.Add(-time.Hour)}, nil, baseTime)
	requireCode(t, err, lifecycle.CodeAssignmentPastDeadline)

	_, err = lifecycle.NewAssignment(publishedCourse(), lifecycle.AssignmentDraft{Title: "Heavy", DueDate: baseTime.Add(time.Hour), PointsWeight: 101}, nil, baseTime)
	requireCode(t, err, lifecycle.CodeInvalidInput)

	archived := publishedCourse()
	archived.Status = models.CourseStatusArchived
	_, err = lifecycle.NewAssignment(archived, lifecycle.AssignmentDraft{Title: "Any", DueDate: baseTime.Add(time.Hour)}, nil, baseTime)
	requireCode(t, err, lifecycle.CodeCourseArchived)
}

func TestApplyAssignmentUpdateBudgetOnlyOnWeightChange(t *testing.T) {
	current := models.Assignment{ID: 2, CourseID: 1, Title: "B", PointsWeight: 40, Status: models.AssignmentStatusPublished, DueDate: baseTime.Add(time.Hour)}
	siblings := []models.Assignment{{ID: 1, CourseID: 1, PointsWeight: 60}, current}

	same := 40
	title := "B revised"
	next, err := lifecycle.ApplyAssignmentUpdate(current, lifecycle.AssignmentUpdate{PointsWeight: &same, Title: &title}, siblings, baseTime)
	require.NoError(t, err)
	require.Equal(t, "B revised", next.Title)

	over := 41
	_, err = lifecycle.ApplyAssignmentUpdate(current, lifecycle.AssignmentUpdate{PointsWeight: &over}, siblings, baseTime)
	requireCode(t, err, lifecycle.CodeAssignmentWeightExceeded)

	under := 30
	next, err = lifecycle.ApplyAssignmentUpdate(current, lifecycle.AssignmentUpdate{PointsWeight: &under}, siblings, baseTime)
	require.NoError(t, err)
	require.Equal(t, 30, next.PointsWeight)
}

func TestApplyAssignmentUpdateDueDate(t *testing.T) {
	past := baseTime.Add(-time.Hour)

	published := models.Assignment{ID: 1, Title: "A", Status: models.AssignmentStatusPublished, DueDate: baseTime.Add(time.Hour)}
	_, err := lifecycle.ApplyAssignmentUpdate(published, lifecycle.AssignmentUpdate{DueDate: &past}, nil, baseTime)
	requireCode(t, err, lifecycle.CodeAssignmentPastDeadline)

	closed := published
	closed.Status = models.AssignmentStatusClosed
	next, err := lifecycle.ApplyAssignmentUpdate(closed, lifecycle.AssignmentUpdate{DueDate: &past}, nil, baseTime)
	require.NoError(t, err)
	require.True(t, next.DueDate.Equal(past))
}

func TestAssignmentTransitions(t *testing.T) {
	draft := models.Assignment{ID: 2, CourseID: 1, Title: "B", PointsWeight: 40, Status: models.AssignmentStatusDraft, DueDate: baseTime.Add(time.Hour)}

	published, err := lifecycle.TransitionAssignment(draft, models.AssignmentStatusPublished, []models.Assignment{draft}, baseTime)
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusPublished, published.Status)

	closed, err := lifecycle.TransitionAssignment(published, models.AssignmentStatusClosed, nil, baseTime)
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusClosed, closed.Status)

	_, err = lifecycle.TransitionAssignment(closed, models.AssignmentStatusPublished, nil, baseTime)
	requireCode(t, err, lifecycle.CodeInvalidStatusTransition)
	_, err = lifecycle.TransitionAssignment(published, models.AssignmentStatusDraft, nil, baseTime)
	requireCode(t, err, lifecycle.CodeInvalidStatusTransition)
	_, err = lifecycle.TransitionAssignment(draft, models.AssignmentStatusClosed, nil, baseTime)
	requireCode(t, err, lifecycle.CodeInvalidStatusTransition)
	_, err = lifecycle.TransitionAssignment(draft, "archived", nil, baseTime)
	requireCode(t, err, lifecycle.CodeInvalidInput)
}

func TestAssignmentPublishRevalidates(t *testing.T) {
	stale := models.Assignment{ID: 2, Title: "B", PointsWeight: 40, Status: models.AssignmentStatusDraft, DueDate: baseTime.Add(-time.Minute)}
	_, err := lifecycle.TransitionAssignment(stale, models.AssignmentStatusPublished, nil, baseTime)
	requireCode(t, err, lifecycle.CodeAssignmentPastDeadline)

	heavy := models.Assignment{ID: 2, Title: "B", PointsWeight: 50, Status: models.AssignmentStatusDraft, DueDate: baseTime.Add(time.Hour)}
	siblings := []models.Assignment{{ID: 1, PointsWeight: 60}, heavy}
	_, err = lifecycle.TransitionAssignment(heavy, models.AssignmentStatusPublished, siblings, baseTime)
	requireCode(t, err, lifecycle.CodeAssignmentWeightExceeded)
}

func TestCanDeleteAssignment(t *testing.T) {
	closed := models.Assignment{Status: models.AssignmentStatusClosed}
	require.NoError(t, lifecycle.CanDeleteAssignment(closed, 0))
	requireCode(t, lifecycle.CanDeleteAssignment(closed, 3), lifecycle.CodeAssignmentHasSubmissions)
	require.NoError(t, lifecycle.CanDeleteAssignment(models.Assignment{Status: models.AssignmentStatusPublished}, 3))
}

func TestShouldAutoClose(t *testing.T) {
	due := baseTime.Add(-2 * time.Hour)
	assignment := models.Assignment{Status: models.AssignmentStatusPublished, DueDate: due}
	require.True(t, lifecycle.ShouldAutoClose(assignment, time.Hour, baseTime))
	require.False(t, lifecycle.ShouldAutoClose(assignment, 3*time.Hour, baseTime))

	assignment.AllowLate = true
	require.False(t, lifecycle.ShouldAutoClose(assignment, 0, baseTime))

	assignment.AllowLate = false
	assignment.Status = models.AssignmentStatusDraft
	require.False(t, lifecycle.ShouldAutoClose(assignment, 0, baseTime))
}
