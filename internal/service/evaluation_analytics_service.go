package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/evaluation"
	"github.com/noah-isme/gema-evaluation-api/internal/models"
	"github.com/noah-isme/gema-evaluation-api/internal/observability"
	"github.com/noah-isme/gema-evaluation-api/internal/repository"
)

// AnalyticsService recomputes evaluation snapshots from stored submissions.
type AnalyticsService interface {
	AnalyticsInvalidator
	CourseAnalytics(ctx context.Context, courseSessionID, lecturerID uint) (dto.CourseAnalyticsResponse, error)
	LecturerAnalytics(ctx context.Context, lecturerID uint) (dto.LecturerAnalyticsResponse, error)
	DepartmentAnalytics(ctx context.Context, departmentID uint) (dto.DepartmentAnalyticsResponse, error)
	ExportCourseAnalytics(ctx context.Context, courseSessionID, lecturerID uint) (AnalyticsExport, error)
}

type analyticsService struct {
	submissions repository.EvaluationSubmissionRepository
	directory   repository.CourseDirectoryRepository
	catalog     CatalogService
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAnalyticsService constructs the analytics service. cache may be nil.
func NewAnalyticsService(
	submissions repository.EvaluationSubmissionRepository,
	directory repository.CourseDirectoryRepository,
	catalog CatalogService,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) AnalyticsService {
	return &analyticsService{
		submissions: submissions,
		directory:   directory,
		catalog:     catalog,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "analytics_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-evaluation-api/internal/service/evaluation_analytics"),
		now:         time.Now,
	}
}

func courseAnalyticsCacheKey(courseSessionID, lecturerID uint) string {
	return fmt.Sprintf("evaluation:analytics:course:%d:lecturer:%d", courseSessionID, lecturerID)
}

func (s *analyticsService) CourseAnalytics(ctx context.Context, courseSessionID, lecturerID uint) (dto.CourseAnalyticsResponse, error) {
	cacheKey := courseAnalyticsCacheKey(courseSessionID, lecturerID)
	ctx, span := s.tracer.Start(ctx, "evaluation.analytics.course")
	span.SetAttributes(attribute.String("analytics.cache_key", cacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var response dto.CourseAnalyticsResponse
			if unmarshalErr := json.Unmarshal(cached, &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
				observability.AnalyticsCacheLookups().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
			span.RecordError(err)
		}
		observability.AnalyticsCacheLookups().WithLabelValues("miss").Inc()
	}

	course, err := s.courseSession(ctx, courseSessionID)
	if err != nil {
		span.RecordError(err)
		return dto.CourseAnalyticsResponse{}, err
	}

	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_catalog_failed")
		return dto.CourseAnalyticsResponse{}, err
	}

	submissions, err := s.submissions.List(ctx, repository.EvaluationSubmissionFilter{
		CourseSessionID: &courseSessionID,
		LecturerID:      &lecturerID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_submissions_failed")
		return dto.CourseAnalyticsResponse{}, err
	}

	response := s.courseResponse(course, lecturerID, evaluation.BuildSnapshot(catalog, submissions))
	span.SetAttributes(attribute.Int("analytics.submission_count", len(submissions)))

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store analytics cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

func (s *analyticsService) LecturerAnalytics(ctx context.Context, lecturerID uint) (dto.LecturerAnalyticsResponse, error) {
	courses, err := s.directory.ListCourseSessionsByLecturer(ctx, lecturerID)
	if err != nil {
		return dto.LecturerAnalyticsResponse{}, err
	}

	response := dto.LecturerAnalyticsResponse{
		LecturerID: lecturerID,
		Courses:    make([]dto.CourseAnalyticsResponse, 0, len(courses)),
	}
	for _, course := range courses {
		analytics, err := s.CourseAnalytics(ctx, course.ID, lecturerID)
		if err != nil {
			return dto.LecturerAnalyticsResponse{}, err
		}
		response.Courses = append(response.Courses, analytics)
	}
	return response, nil
}

type coursePair struct {
	courseSessionID uint
	lecturerID      uint
}

// DepartmentAnalytics builds one snapshot per course and lecturer pair, including
// assigned pairs that have not received any submission yet.
func (s *analyticsService) DepartmentAnalytics(ctx context.Context, departmentID uint) (dto.DepartmentAnalyticsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.analytics.department")
	span.SetAttributes(attribute.Int64("analytics.department_id", int64(departmentID)))
	defer span.End()

	exists, err := s.directory.DepartmentExists(ctx, departmentID)
	if err != nil {
		span.RecordError(err)
		return dto.DepartmentAnalyticsResponse{}, err
	}
	if !exists {
		return dto.DepartmentAnalyticsResponse{}, evaluation.ErrDepartmentNotFound.With("department_id", departmentID)
	}

	courses, err := s.directory.ListCourseSessionsByDepartment(ctx, departmentID)
	if err != nil {
		span.RecordError(err)
		return dto.DepartmentAnalyticsResponse{}, err
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		span.RecordError(err)
		return dto.DepartmentAnalyticsResponse{}, err
	}
	submissions, err := s.submissions.List(ctx, repository.EvaluationSubmissionFilter{DepartmentID: &departmentID})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_submissions_failed")
		return dto.DepartmentAnalyticsResponse{}, err
	}

	grouped := make(map[coursePair][]models.EvaluationSubmission)
	for _, course := range courses {
		for _, lecturer := range course.Lecturers {
			grouped[coursePair{course.ID, lecturer.LecturerID}] = nil
		}
	}
	for _, submission := range submissions {
		pair := coursePair{submission.CourseSessionID, submission.LecturerID}
		grouped[pair] = append(grouped[pair], submission)
	}

	pairs := make([]coursePair, 0, len(grouped))
	for pair := range grouped {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].courseSessionID != pairs[j].courseSessionID {
			return pairs[i].courseSessionID < pairs[j].courseSessionID
		}
		return pairs[i].lecturerID < pairs[j].lecturerID
	})

	byID := make(map[uint]models.CourseSession, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}

	response := dto.DepartmentAnalyticsResponse{
		DepartmentID: departmentID,
		Courses:      make([]dto.CourseAnalyticsResponse, 0, len(pairs)),
	}
	for _, pair := range pairs {
		course, ok := byID[pair.courseSessionID]
		if !ok {
			course = models.CourseSession{ID: pair.courseSessionID, DepartmentID: departmentID}
		}
		snapshot := evaluation.BuildSnapshot(catalog, grouped[pair])
		response.Courses = append(response.Courses, s.courseResponse(course, pair.lecturerID, snapshot))
	}
	span.SetAttributes(attribute.Int("analytics.submission_count", len(submissions)))

	return response, nil
}

func (s *analyticsService) Invalidate(ctx context.Context, courseSessionID, lecturerID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, courseAnalyticsCacheKey(courseSessionID, lecturerID)).Err(); err != nil {
		s.logger.Warn().Err(err).
			Uint("course_session_id", courseSessionID).
			Uint("lecturer_id", lecturerID).
			Msg("failed to invalidate analytics cache")
	}
}

func (s *analyticsService) courseSession(ctx context.Context, courseSessionID uint) (models.CourseSession, error) {
	course, err := s.directory.GetCourseSession(ctx, courseSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseSession{}, evaluation.ErrCourseNotFound.With("course_session_id", courseSessionID)
		}
		return models.CourseSession{}, err
	}
	return course, nil
}

func (s *analyticsService) courseResponse(course models.CourseSession, lecturerID uint, snapshot evaluation.Snapshot) dto.CourseAnalyticsResponse {
	return dto.CourseAnalyticsResponse{
		CourseSessionID: course.ID,
		CourseCode:      course.CourseCode,
		CourseName:      course.CourseName,
		LecturerID:      lecturerID,
		LecturerName:    course.LecturerName(lecturerID),
		Snapshot:        snapshot,
		GeneratedAt:     s.now().UTC(),
	}
}
