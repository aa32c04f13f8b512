package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestCourseLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	instructorToken := tokenFor(t, 1, "instructor")
	learnerToken := tokenFor(t, 10, "student")

	course := app.publishedCourse(t, instructorToken, "Distributed Systems")
	require.Equal(t, "published", course.Status)

	resp, body := app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/courses/%d", course.ID), learnerToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	resp, body = app.do(t, http.MethodGet, "/api/v1/courses?page=1&page_size=10", learnerToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listing struct {
		Items []courseBody `json:"items"`
	}
	decodeData(t, body, &listing)
	require.Len(t, listing.Items, 1)
	require.Equal(t, "Distributed Systems", listing.Items[0].Title)

	resp, body = app.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/transitions", course.ID), instructorToken, map[string]string{"status": "archived"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, body, &course)
	require.Equal(t, "archived", course.Status)

	resp, body = app.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/transitions", course.ID), instructorToken, map[string]string{"status": "published"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "INVALID_STATUS_TRANSITION", body.Code)
}

func TestCourseRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, http.MethodGet, "/api/v1/courses", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.False(t, body.Success)
}

func TestLearnerCannotCreateCourse(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, http.MethodPost, "/api/v1/courses", tokenFor(t, 10, "learner"), map[string]string{"title": "Mine"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "INSUFFICIENT_PERMISSIONS", body.Code)
}

func TestCourseRejectsMalformedRequests(t *testing.T) {
	app := newTestApp(t)
	token := tokenFor(t, 1, "instructor")

	resp, body := app.do(t, http.MethodGet, "/api/v1/courses/abc", token, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_INPUT", body.Code)
	require.Contains(t, body.Details, "id")

	resp, body = app.do(t, http.MethodGet, "/api/v1/courses/404", token, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "COURSE_NOT_FOUND", body.Code)

	resp, body = app.do(t, http.MethodPost, "/api/v1/courses/1/transitions", token, map[string]string{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_INPUT", body.Code)
	require.Contains(t, body.Details, "status")
}

func TestCourseTitleConflict(t *testing.T) {
	app := newTestApp(t)
	token := tokenFor(t, 1, "instructor")
	app.publishedCourse(t, token, "Compilers")

	resp, body := app.do(t, http.MethodPost, "/api/v1/courses", token, map[string]string{"title": "Compilers"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "COURSE_TITLE_EXISTS", body.Code)
}

func TestCourseDeleteBlockedByEnrollment(t *testing.T) {
	app := newTestApp(t)
	instructorToken := tokenFor(t, 1, "instructor")
	course := app.publishedCourse(t, instructorToken, "Databases")

	resp, _ := app.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/enrollments", course.ID), tokenFor(t, 10, "learner"), nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := app.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/courses/%d", course.ID), instructorToken, nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "COURSE_HAS_ACTIVE_ENROLLMENTS", body.Code)
}
