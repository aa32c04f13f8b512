package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/handler"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/router"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

const testSecret = "secret"

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

type testApp struct {
	app *fiber.App
}

type appOption func(*config.Config)

func withSeed(token string) appOption {
	return func(cfg *config.Config) {
		cfg.SeedEnabled = true
		cfg.SeedToken = token
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()
	cfg := config.Config{
		AppName:           "Test",
		AppEnv:            "test",
		JWTSecret:         testSecret,
		SubmitRateLimit:   100,
		SubmitRateWindow:  time.Minute,
		MaxFeedbackLength: 1000,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := zerolog.New(io.Discard)
	db := setupTestDB(t)
	store := repository.NewStore(db)
	validate := utils.NewValidator()

	gradebook := service.NewGradebookService(store, nil, time.Minute, logger)
	courses := service.NewCourseService(store, validate, nil, logger)
	assignments := service.NewAssignmentService(store, validate, nil, logger,
		service.WithCourseGradebookInvalidator(gradebook),
	)
	submissions := service.NewSubmissionService(store, validate, nil, logger,
		service.WithGradebookInvalidator(gradebook),
		service.WithMaxFeedbackLength(cfg.MaxFeedbackLength),
	)
	enrollments := service.NewEnrollmentService(store, nil, logger)
	metadata := service.NewMetadataService(store, validate, logger)
	activity := service.NewActivityService(store.Activity, logger)
	seed := service.NewSeedService(store.Metadata, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler:     handler.NewCourseHandler(courses, logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignments, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissions, logger),
		EnrollmentHandler: handler.NewEnrollmentHandler(enrollments, logger),
		GradebookHandler:  handler.NewGradebookHandler(gradebook, logger),
		MetadataHandler:   handler.NewMetadataHandler(metadata, logger),
		ActivityHandler:   handler.NewActivityHandler(activity, logger),
		SeedHandler:       handler.NewSeedHandler(seed, logger),
	})

	return &testApp{app: app}
}

func tokenFor(t *testing.T, id uint, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(id), 10),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return a.send(t, method, path, headers, body)
}

func (a *testApp) seed(t *testing.T, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	return a.send(t, http.MethodPost, "/api/v1/seed/metadata", map[string]string{"X-Seed-Token": token}, body)
}

func (a *testApp) send(t *testing.T, method, path string, headers map[string]string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	var decoded envelope
	decodeResponse(t, resp, &decoded)
	return resp, decoded
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func decodeData(t *testing.T, body envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body.Data, target))
}

type courseBody struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// publishedCourse creates and publishes a course as the token holder.
func (a *testApp) publishedCourse(t *testing.T, instructorToken, title string) courseBody {
	t.Helper()
	resp, body := a.do(t, http.MethodPost, "/api/v1/courses", instructorToken, map[string]interface{}{"title": title})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body.Message)

	var course courseBody
	decodeData(t, body, &course)

	resp, body = a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/transitions", course.ID), instructorToken, map[string]string{"status": "published"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body.Message)
	decodeData(t, body, &course)
	return course
}
