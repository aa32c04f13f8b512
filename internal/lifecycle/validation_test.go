package lifecycle_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
)

func requireCode(t *testing.T, err error, code lifecycle.Code) {
	t.Helper()
	require.Error(t, err)
	rejection, ok := lifecycle.AsError(err)
	require.True(t, ok, "expected lifecycle rejection, got %v", err)
	require.Equal(t, code, rejection.Code)
}

func TestValidateTitle(t *testing.T) {
	require.NoError(t, lifecycle.ValidateTitle("Intro to Go"))
	require.NoError(t, lifecycle.ValidateTitle(strings.Repeat("a", 255)))
	requireCode(t, lifecycle.ValidateTitle("   "), lifecycle.CodeInvalidInput)
	requireCode(t, lifecycle.ValidateTitle(strings.Repeat("a", 256)), lifecycle.CodeInvalidInput)
}

func TestValidateScore(t *testing.T) {
	for _, score := range []float64{0, 50.5, 100} {
		require.NoError(t, lifecycle.ValidateScore(score))
	}
	for _, score := range []float64{-0.1, 100.01, math.NaN(), math.Inf(1)} {
		requireCode(t, lifecycle.ValidateScore(score), lifecycle.CodeInvalidScore)
	}
}

func TestValidateFeedback(t *testing.T) {
	require.NoError(t, lifecycle.ValidateFeedback("Good"))
	require.NoError(t, lifecycle.ValidateFeedback(strings.Repeat("x", 1000)))
	requireCode(t, lifecycle.ValidateFeedback(" "), lifecycle.CodeInvalidInput)
	requireCode(t, lifecycle.ValidateFeedback(strings.Repeat("x", 1001)), lifecycle.CodeInvalidInput)
}

func TestValidateSubmissionContent(t *testing.T) {
	cases := []struct {
		name    string
		content string
		link    string
		ok      bool
	}{
		{name: "content only", content: "answer", ok: true},
		{name: "link only", link: "https://example.com/work", ok: true},
		{name: "both", content: "answer", link: "http://example.com", ok: true},
		{name: "neither", ok: false},
		{name: "whitespace", content: "  ", link: " ", ok: false},
		{name: "relative link", link: "/work/1", ok: false},
		{name: "bad link with content", content: "answer", link: "not a url", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := lifecycle.ValidateSubmissionContent(tc.content, tc.link)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			requireCode(t, err, lifecycle.CodeInvalidInput)
		})
	}
}

func TestNormalizeWeight(t *testing.T) {
	weight, err := lifecycle.NormalizeWeight(60, lifecycle.WeightUnitPercent)
	require.NoError(t, err)
	require.Equal(t, 60, weight)

	weight, err = lifecycle.NormalizeWeight(0.25, lifecycle.WeightUnitFraction)
	require.NoError(t, err)
	require.Equal(t, 25, weight)

	weight, err = lifecycle.NormalizeWeight(40, "")
	require.NoError(t, err)
	require.Equal(t, 40, weight)

	_, err = lifecycle.NormalizeWeight(-1, lifecycle.WeightUnitPercent)
	requireCode(t, err, lifecycle.CodeInvalidInput)
	_, err = lifecycle.NormalizeWeight(101, lifecycle.WeightUnitPercent)
	requireCode(t, err, lifecycle.CodeInvalidInput)
	_, err = lifecycle.NormalizeWeight(1.5, lifecycle.WeightUnitFraction)
	requireCode(t, err, lifecycle.CodeInvalidInput)
	_, err = lifecycle.NormalizeWeight(12.5, lifecycle.WeightUnitPercent)
	requireCode(t, err, lifecycle.CodeInvalidInput)
	_, err = lifecycle.NormalizeWeight(10, "points")
	requireCode(t, err, lifecycle.CodeInvalidInput)
}

func TestValidateDueDate(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, lifecycle.ValidateDueDate(now.Add(time.Minute), now))
	requireCode(t, lifecycle.ValidateDueDate(now, now), lifecycle.CodeAssignmentPastDeadline)
	requireCode(t, lifecycle.ValidateDueDate(now.Add(-time.Hour), now), lifecycle.CodeAssignmentPastDeadline)
	requireCode(t, lifecycle.ValidateDueDate(time.Time{}, now), lifecycle.CodeInvalidInput)
}

func TestValidateMetadataReference(t *testing.T) {
	id := uint(3)
	active := &models.CourseMetadata{ID: 3, Kind: models.MetadataKindCategory, Active: true}
	inactive := &models.CourseMetadata{ID: 3, Kind: models.MetadataKindCategory, Active: false}
	wrongKind := &models.CourseMetadata{ID: 3, Kind: models.MetadataKindDifficulty, Active: true}

	require.NoError(t, lifecycle.ValidateMetadataReference("category_id", nil, models.MetadataKindCategory, nil))
	require.NoError(t, lifecycle.ValidateMetadataReference("category_id", &id, models.MetadataKindCategory, active))
	requireCode(t, lifecycle.ValidateMetadataReference("category_id", &id, models.MetadataKindCategory, inactive), lifecycle.CodeInvalidMetadataReference)
	requireCode(t, lifecycle.ValidateMetadataReference("category_id", &id, models.MetadataKindCategory, wrongKind), lifecycle.CodeInvalidMetadataReference)
	requireCode(t, lifecycle.ValidateMetadataReference("category_id", &id, models.MetadataKindCategory, nil), lifecycle.CodeInvalidMetadataReference)
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := lifecycle.CheckBudget([]int{90}, 20)
	require.ErrorIs(t, err, &lifecycle.Error{Code: lifecycle.CodeAssignmentWeightExceeded})
	require.NotErrorIs(t, err, &lifecycle.Error{Code: lifecycle.CodeInvalidScore})
	require.True(t, lifecycle.HasCode(err, lifecycle.CodeAssignmentWeightExceeded))
}
