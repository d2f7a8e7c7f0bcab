package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/config"
	"github.com/noah-isme/gema-evaluation-api/internal/database"
	"github.com/noah-isme/gema-evaluation-api/internal/events"
	"github.com/noah-isme/gema-evaluation-api/internal/handler"
	"github.com/noah-isme/gema-evaluation-api/internal/middleware"
	"github.com/noah-isme/gema-evaluation-api/internal/models"
	"github.com/noah-isme/gema-evaluation-api/internal/repository"
	"github.com/noah-isme/gema-evaluation-api/internal/router"
	"github.com/noah-isme/gema-evaluation-api/internal/service"
)

const testSecret = "router-test-secret"

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Details map[string]interface{} `json:"details"`
	Meta    map[string]interface{} `json:"meta"`
}

type testAPI struct {
	t         *testing.T
	app       *fiber.App
	publisher *events.MemoryPublisher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	seedDirectory(t, db)

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	cache := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	cfg := config.Config{
		AppName:           "evaluation-test",
		AppEnv:            "test",
		JWTSecret:         testSecret,
		CatalogCacheTTL:   time.Minute,
		AnalyticsCacheTTL: time.Minute,
		WizardDraftTTL:    time.Hour,
		SubmitRateLimit:   100,
		SubmitRateWindow:  time.Minute,
	}
	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	publisher := &events.MemoryPublisher{}

	sessionRepo := repository.NewEvaluationSessionRepository(db)
	submissionRepo := repository.NewEvaluationSubmissionRepository(db)
	catalogRepo := repository.NewEvaluationCatalogRepository(db)
	directory := repository.NewCourseDirectoryRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	catalog := service.NewCatalogService(catalogRepo, cache, cfg.CatalogCacheTTL, logger)
	sessions := service.NewSessionService(sessionRepo, directory, activity, publisher, validate, logger)
	analytics := service.NewAnalyticsService(submissionRepo, directory, catalog, cache, cfg.AnalyticsCacheTTL, logger)
	submissions := service.NewSubmissionService(submissionRepo, sessionRepo, directory, catalog, analytics, validate, logger)
	wizard := service.NewWizardService(cache, cfg.WizardDraftTTL, sessionRepo, catalog, submissions, validate, logger)
	seed := service.NewSeedService(catalogRepo, catalog, activity, false, "", logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CatalogHandler:    handler.NewEvaluationCatalogHandler(catalog, logger),
		SessionHandler:    handler.NewEvaluationSessionHandler(sessions, submissions, logger),
		SubmissionHandler: handler.NewEvaluationSubmissionHandler(submissions, wizard, logger),
		AnalyticsHandler:  handler.NewEvaluationAnalyticsHandler(analytics, logger),
		ActivityHandler:   handler.NewAdminActivityHandler(activity, logger),
		SeedHandler:       handler.NewSeedHandler(seed, logger),
		RateLimitStorage:  middleware.NewRedisStorage(cache, "gema:ratelimit:"),
	})

	return &testAPI{t: t, app: app, publisher: publisher}
}

func seedDirectory(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.Department{ID: 1, Name: "Computer Science"}).Error)
	require.NoError(t, db.Create(&models.CourseSession{
		ID: 10, CourseCode: "CS101", CourseName: "Introduction to Programming", DepartmentID: 1,
		Lecturers: []models.CourseLecturer{{LecturerID: 3, LecturerName: "Dr. Ada"}, {LecturerID: 4, LecturerName: "Dr. Grace"}},
	}).Error)
	require.NoError(t, db.Create(&[]models.EvaluationCategory{
		{ID: 1, Name: "Teaching Methodology"},
		{ID: 2, Name: "Communication"},
	}).Error)
	require.NoError(t, db.Omit("Category").Create(&[]models.EvaluationQuestion{
		{ID: 1, Question: "Explains concepts clearly", CategoryID: 1},
		{ID: 2, Question: "Uses relevant examples", CategoryID: 1},
		{ID: 3, Question: "Responds to questions", CategoryID: 2},
		{ID: 4, Question: "Gives useful feedback", CategoryID: 2},
	}).Error)
}

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprint(userID),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (a *testAPI) do(method, path, bearer string, body interface{}) (*http.Response, []byte) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	require.NoError(a.t, resp.Body.Close())
	return resp, raw
}

func (a *testAPI) call(method, path, bearer string, body interface{}, status int) envelope {
	a.t.Helper()
	resp, raw := a.do(method, path, bearer, body)
	require.Equal(a.t, status, resp.StatusCode, string(raw))
	var out envelope
	require.NoError(a.t, json.Unmarshal(raw, &out))
	return out
}

func answers(rating int, ids ...uint) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]interface{}{"question_id": id, "rating": rating})
	}
	return out
}

func TestEvaluationLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := token(t, 1, "admin")
	student := token(t, 7, "student")
	otherStudent := token(t, 8, "student")
	lecturer := token(t, 3, "lecturer")
	otherLecturer := token(t, 4, "lecturer")
	now := time.Now().UTC()

	categories := api.call(http.MethodGet, "/api/v1/evaluation/categories", "", nil, fiber.StatusOK)
	require.Contains(t, string(categories.Data), "Teaching Methodology")

	createBody := map[string]interface{}{
		"course_session_id": 10,
		"department_id":     1,
		"start_date":        now.Add(-time.Hour),
		"end_date":          now.Add(24 * time.Hour),
	}
	api.call(http.MethodPost, "/api/v1/evaluation/session", "", createBody, fiber.StatusUnauthorized)
	api.call(http.MethodPost, "/api/v1/evaluation/session", student, createBody, fiber.StatusForbidden)

	created := api.call(http.MethodPost, "/api/v1/evaluation/session", admin, createBody, fiber.StatusCreated)
	var session struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(created.Data, &session))
	require.Equal(t, "PENDING", session.Status)
	sessionPath := fmt.Sprintf("/api/v1/evaluation/session/%d", session.ID)

	api.call(http.MethodPost, "/api/v1/evaluation/submit", student, map[string]interface{}{
		"session_id": session.ID, "course_session_id": 10, "lecturer_id": 3, "answers": answers(4, 1, 2, 3, 4),
	}, fiber.StatusUnprocessableEntity)

	api.call(http.MethodPost, sessionPath+"/activate", admin, nil, fiber.StatusOK)
	conflict := api.call(http.MethodPost, sessionPath+"/activate", admin, nil, fiber.StatusConflict)
	require.Equal(t, "ACTIVATION_CONFLICT", conflict.Details["code"])
	require.Len(t, api.publisher.Events(), 2)

	status := api.call(http.MethodGet, sessionPath+"/status", student, nil, fiber.StatusOK)
	require.Contains(t, string(status.Data), `"ACTIVE"`)

	// Wizard flow for student 7.
	state := api.call(http.MethodGet, sessionPath+"/wizard", student, nil, fiber.StatusOK)
	require.Contains(t, string(state.Data), `"current_category_index":0`)
	api.call(http.MethodPost, sessionPath+"/wizard/next", student, nil, fiber.StatusBadRequest)
	api.call(http.MethodPut, sessionPath+"/wizard/answers", student, map[string]interface{}{"answers": answers(4, 1, 2, 3, 4)}, fiber.StatusOK)
	next := api.call(http.MethodPost, sessionPath+"/wizard/next", student, nil, fiber.StatusOK)
	require.Contains(t, string(next.Data), `"can_submit":true`)
	api.call(http.MethodPost, sessionPath+"/wizard/submit", student, map[string]interface{}{"course_session_id": 10, "lecturer_id": 3}, fiber.StatusCreated)

	// Direct submission for student 8, then a duplicate and an incomplete one.
	full := map[string]interface{}{"session_id": session.ID, "course_session_id": 10, "lecturer_id": 3, "answers": answers(5, 1, 2, 3, 4)}
	api.call(http.MethodPost, "/api/v1/evaluation/submit", otherStudent, full, fiber.StatusCreated)
	duplicate := api.call(http.MethodPost, "/api/v1/evaluation/submit", otherStudent, full, fiber.StatusConflict)
	require.Equal(t, "DUPLICATE_SUBMISSION", duplicate.Details["code"])

	incomplete := api.call(http.MethodPost, "/api/v1/evaluation/submit", token(t, 9, "student"), map[string]interface{}{
		"session_id": session.ID, "course_session_id": 10, "lecturer_id": 3, "answers": answers(5, 1, 2),
	}, fiber.StatusBadRequest)
	require.Equal(t, "INCOMPLETE_ANSWERS", incomplete.Details["code"])
	require.Equal(t, []interface{}{float64(3), float64(4)}, incomplete.Details["missing_question_ids"])

	api.call(http.MethodPost, "/api/v1/evaluation/submit", lecturer, full, fiber.StatusForbidden)

	submissions := api.call(http.MethodGet, sessionPath+"/submissions", admin, nil, fiber.StatusOK)
	require.Equal(t, float64(2), submissions.Meta["count"])
	var stored []struct {
		StudentID       uint               `json:"student_id"`
		CategoryRatings map[string]float64 `json:"category_ratings"`
	}
	require.NoError(t, json.Unmarshal(submissions.Data, &stored))
	require.Len(t, stored, 2)
	require.Equal(t, uint(7), stored[0].StudentID)
	require.Equal(t, map[string]float64{"1": 4, "2": 4}, stored[0].CategoryRatings)
	require.Equal(t, uint(8), stored[1].StudentID)
	require.Equal(t, map[string]float64{"1": 5, "2": 5}, stored[1].CategoryRatings)

	// Analytics.
	analyticsPath := "/api/v1/evaluation/analytics/course/10/lecturer/3"
	api.call(http.MethodGet, analyticsPath, otherLecturer, nil, fiber.StatusForbidden)
	api.call(http.MethodGet, analyticsPath, student, nil, fiber.StatusForbidden)

	resp, raw := api.do(http.MethodGet, analyticsPath, lecturer, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	validateAnalyticsContract(t, raw)

	var analytics struct {
		Data struct {
			TotalSubmissions int                `json:"total_submissions"`
			OverallRating    float64            `json:"overall_rating"`
			CategoryRatings  map[string]float64 `json:"category_ratings"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &analytics))
	require.Equal(t, 2, analytics.Data.TotalSubmissions)
	require.InDelta(t, 4.5, analytics.Data.OverallRating, 1e-9)
	require.Len(t, analytics.Data.CategoryRatings, 2)
	require.InDelta(t, 4.5, analytics.Data.CategoryRatings["1"], 1e-9)
	require.InDelta(t, 4.5, analytics.Data.CategoryRatings["2"], 1e-9)

	cached := api.call(http.MethodGet, analyticsPath, admin, nil, fiber.StatusOK)
	require.Equal(t, true, cached.Meta["cache_hit"])

	exportResp, exportBody := api.do(http.MethodGet, analyticsPath+"/export", admin, nil)
	require.Equal(t, fiber.StatusOK, exportResp.StatusCode)
	require.Equal(t, service.XLSXContentType, exportResp.Header.Get(fiber.HeaderContentType))
	require.Contains(t, exportResp.Header.Get(fiber.HeaderContentDisposition), "evaluation-course-10-lecturer-3.xlsx")
	require.NotEmpty(t, exportBody)

	department := api.call(http.MethodGet, "/api/v1/evaluation/analytics/department/1", admin, nil, fiber.StatusOK)
	require.Contains(t, string(department.Data), `"lecturer_id":4`)
	api.call(http.MethodGet, "/api/v1/evaluation/analytics/department/404", admin, nil, fiber.StatusNotFound)
	api.call(http.MethodGet, "/api/v1/evaluation/analytics/department/1", lecturer, nil, fiber.StatusForbidden)

	// Audit trail and tooling.
	activity := api.call(http.MethodGet, "/api/v1/admin/activities?action=evaluation_session.activated", admin, nil, fiber.StatusOK)
	require.Contains(t, string(activity.Data), `"actor_id":1`)
	api.call(http.MethodGet, "/api/v1/admin/activities", student, nil, fiber.StatusForbidden)
	api.call(http.MethodPost, "/api/v1/admin/seed/evaluation-catalog", admin, map[string]interface{}{}, fiber.StatusForbidden)
}

func TestSessionLookupsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := token(t, 1, "admin")

	missing := api.call(http.MethodGet, "/api/v1/evaluation/session/999", admin, nil, fiber.StatusNotFound)
	require.Equal(t, "SESSION_NOT_FOUND", missing.Details["code"])

	api.call(http.MethodGet, "/api/v1/evaluation/session/abc", admin, nil, fiber.StatusBadRequest)
	api.call(http.MethodGet, "/api/v1/evaluation/sessions/department/77", admin, nil, fiber.StatusNotFound)

	invalid := api.call(http.MethodPost, "/api/v1/evaluation/session", admin, map[string]interface{}{
		"course_session_id": 10,
		"department_id":     1,
		"start_date":        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		"end_date":          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, fiber.StatusBadRequest)
	require.Equal(t, "INVALID_WINDOW", invalid.Details["code"])

	api.call(http.MethodGet, "/api/v1/evaluation/questions/category/9", "", nil, fiber.StatusNotFound)
	questions := api.call(http.MethodGet, "/api/v1/evaluation/questions/category/2", "", nil, fiber.StatusOK)
	require.Contains(t, string(questions.Data), "Responds to questions")

	health := api.call(http.MethodGet, "/api/v1/health", "", nil, fiber.StatusOK)
	require.Contains(t, string(health.Data), `"status":"ok"`)

	_, metrics := api.do(http.MethodGet, "/api/v1/metrics", "", nil)
	require.Contains(t, string(metrics), "evaluation_api_requests_total")
}

func validateAnalyticsContract(t *testing.T, body []byte) {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "course_analytics.schema.json"))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
