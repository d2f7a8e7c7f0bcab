package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/database"
	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/events"
	"github.com/noah-isme/gema-evaluation-api/internal/models"
	"github.com/noah-isme/gema-evaluation-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

var fixtureNow = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

type evaluationFixture struct {
	db          *gorm.DB
	redisServer *miniredis.Miniredis
	redis       *redis.Client
	publisher   *events.MemoryPublisher

	sessionRepo    repository.EvaluationSessionRepository
	submissionRepo repository.EvaluationSubmissionRepository

	activity    ActivityService
	catalog     CatalogService
	sessions    SessionService
	analytics   AnalyticsService
	submissions SubmissionService
	wizard      WizardService
}

func newEvaluationFixture(t *testing.T) *evaluationFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	seedEvaluationDirectory(t, db)

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	clock := func() time.Time { return fixtureNow }

	f := &evaluationFixture{
		db:             db,
		redisServer:    server,
		redis:          client,
		publisher:      &events.MemoryPublisher{},
		sessionRepo:    repository.NewEvaluationSessionRepository(db),
		submissionRepo: repository.NewEvaluationSubmissionRepository(db),
	}
	directory := repository.NewCourseDirectoryRepository(db)

	f.activity = NewActivityService(repository.NewActivityLogRepository(db), testLogger())
	f.catalog = NewCatalogService(repository.NewEvaluationCatalogRepository(db), client, time.Minute, testLogger())

	f.sessions = NewSessionService(f.sessionRepo, directory, f.activity, f.publisher, validate, testLogger())
	f.sessions.(*sessionService).now = clock

	f.analytics = NewAnalyticsService(f.submissionRepo, directory, f.catalog, client, time.Minute, testLogger())
	f.analytics.(*analyticsService).now = clock

	f.submissions = NewSubmissionService(f.submissionRepo, f.sessionRepo, directory, f.catalog, f.analytics, validate, testLogger())
	f.submissions.(*submissionService).now = clock

	f.wizard = NewWizardService(client, 2*time.Hour, f.sessionRepo, f.catalog, f.submissions, validate, testLogger())
	return f
}

// seedEvaluationDirectory loads two departments, three course offerings and a
// two-category, six-question catalog.
func seedEvaluationDirectory(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&[]models.Department{
		{ID: 1, Name: "Computer Science"},
		{ID: 2, Name: "Mathematics"},
	}).Error)
	require.NoError(t, db.Create(&[]models.CourseSession{
		{ID: 10, CourseCode: "CS101", CourseName: "Introduction to Programming", DepartmentID: 1, Lecturers: []models.CourseLecturer{
			{LecturerID: 3, LecturerName: "Dr. Ada"},
			{LecturerID: 4, LecturerName: "Dr. Grace"},
		}},
		{ID: 11, CourseCode: "CS201", CourseName: "Data Structures", DepartmentID: 1, Lecturers: []models.CourseLecturer{
			{LecturerID: 3, LecturerName: "Dr. Ada"},
		}},
		{ID: 20, CourseCode: "MA101", CourseName: "Calculus", DepartmentID: 2, Lecturers: []models.CourseLecturer{
			{LecturerID: 5, LecturerName: "Dr. Emmy"},
		}},
	}).Error)
	require.NoError(t, db.Create(&[]models.EvaluationCategory{
		{ID: 1, Name: "Teaching Methodology"},
		{ID: 2, Name: "Communication"},
	}).Error)
	require.NoError(t, db.Omit("Category").Create(&[]models.EvaluationQuestion{
		{ID: 1, Question: "Explains concepts clearly", CategoryID: 1},
		{ID: 2, Question: "Uses relevant examples", CategoryID: 1},
		{ID: 3, Question: "Structures lectures well", CategoryID: 1},
		{ID: 4, Question: "Responds to questions", CategoryID: 2},
		{ID: 5, Question: "Is approachable", CategoryID: 2},
		{ID: 6, Question: "Gives useful feedback", CategoryID: 2},
	}).Error)
}

// activeSession creates and activates a session on course 10 spanning January 2024.
func (f *evaluationFixture) activeSession(t *testing.T) dto.SessionResponse {
	t.Helper()
	created := f.createSession(t, 10, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC))
	activated, err := f.sessions.ActivateSession(context.Background(), created.ID, ActivityActor{ID: 99, Role: "admin"})
	require.NoError(t, err)
	return activated
}

func (f *evaluationFixture) createSession(t *testing.T, courseSessionID, departmentID uint, start, end time.Time) dto.SessionResponse {
	t.Helper()
	created, err := f.sessions.CreateSession(context.Background(), ActivityActor{ID: 99, Role: "admin"}, dto.CreateSessionRequest{
		CourseSessionID: courseSessionID,
		DepartmentID:    departmentID,
		StartDate:       start,
		EndDate:         end,
	})
	require.NoError(t, err)
	return created
}

func uniformAnswers(rating int) []dto.AnswerRequest {
	answers := make([]dto.AnswerRequest, 0, 6)
	for id := uint(1); id <= 6; id++ {
		answers = append(answers, dto.AnswerRequest{QuestionID: id, Rating: rating})
	}
	return answers
}

func submitRequest(sessionID uint, answers []dto.AnswerRequest) dto.SubmitEvaluationRequest {
	return dto.SubmitEvaluationRequest{
		SessionID:       sessionID,
		CourseSessionID: 10,
		LecturerID:      3,
		Answers:         answers,
	}
}
