package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
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

// SubmissionInput is a fully identified evaluation ready to be recorded.
type SubmissionInput struct {
	StudentID       uint
	SessionID       uint
	CourseSessionID uint
	LecturerID      uint
	Answers         []evaluation.Answer
}

// AnalyticsInvalidator drops cached analytics after new submissions land.
type AnalyticsInvalidator interface {
	Invalidate(ctx context.Context, courseSessionID, lecturerID uint)
}

// SubmissionService records and lists finalized evaluations.
type SubmissionService interface {
	RecordSubmission(ctx context.Context, studentID uint, req dto.SubmitEvaluationRequest) (dto.SubmissionResponse, error)
	Record(ctx context.Context, input SubmissionInput) (dto.SubmissionResponse, error)
	ListSubmissions(ctx context.Context, sessionID uint) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	repo        repository.EvaluationSubmissionRepository
	sessions    repository.EvaluationSessionRepository
	directory   repository.CourseDirectoryRepository
	catalog     CatalogService
	invalidator AnalyticsInvalidator
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs the submission service. invalidator may be nil.
func NewSubmissionService(
	repo repository.EvaluationSubmissionRepository,
	sessions repository.EvaluationSessionRepository,
	directory repository.CourseDirectoryRepository,
	catalog CatalogService,
	invalidator AnalyticsInvalidator,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		repo:        repo,
		sessions:    sessions,
		directory:   directory,
		catalog:     catalog,
		invalidator: invalidator,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-evaluation-api/internal/service/evaluation_submission"),
		now:         time.Now,
	}
}

func (s *submissionService) RecordSubmission(ctx context.Context, studentID uint, req dto.SubmitEvaluationRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return s.Record(ctx, SubmissionInput{
		StudentID:       studentID,
		SessionID:       req.SessionID,
		CourseSessionID: req.CourseSessionID,
		LecturerID:      req.LecturerID,
		Answers:         dto.DomainAnswers(req.Answers),
	})
}

// Record checks, in order: the session exists, it accepts submissions, the
// course and lecturer match, the student has not submitted yet, and the answers
// cover the catalog exactly. Only then are derived scores frozen and the row written.
func (s *submissionService) Record(ctx context.Context, input SubmissionInput) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.submission.record", trace.WithAttributes(
		attribute.Int64("evaluation.session_id", int64(input.SessionID)),
		attribute.Int64("evaluation.course_session_id", int64(input.CourseSessionID)),
		attribute.Int64("evaluation.lecturer_id", int64(input.LecturerID)),
	))
	defer span.End()

	response, err := s.record(ctx, input)
	if err != nil {
		var domainErr *evaluation.Error
		switch {
		case errors.Is(err, evaluation.ErrDuplicateSubmission):
			observability.Submissions().WithLabelValues("duplicate").Inc()
		case errors.As(err, &domainErr):
			observability.Submissions().WithLabelValues("rejected").Inc()
		default:
			observability.Submissions().WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "record_submission_failed")
		}
		return dto.SubmissionResponse{}, err
	}

	observability.Submissions().WithLabelValues("recorded").Inc()
	return response, nil
}

func (s *submissionService) record(ctx context.Context, input SubmissionInput) (dto.SubmissionResponse, error) {
	session, err := s.sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, evaluation.ErrSessionNotFound.With("session_id", input.SessionID)
		}
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	if status := evaluation.StatusOf(session, now); status != evaluation.StatusActive {
		return dto.SubmissionResponse{}, evaluation.ErrSessionNotActive.
			With("session_id", input.SessionID).
			With("status", string(status))
	}

	if input.CourseSessionID != session.CourseSessionID {
		return dto.SubmissionResponse{}, evaluation.ErrCourseMismatch.
			With("session_id", input.SessionID).
			With("course_session_id", input.CourseSessionID)
	}

	course, err := s.directory.GetCourseSession(ctx, input.CourseSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, evaluation.ErrCourseNotFound.With("course_session_id", input.CourseSessionID)
		}
		return dto.SubmissionResponse{}, err
	}
	if !course.HasLecturer(input.LecturerID) {
		return dto.SubmissionResponse{}, evaluation.ErrLecturerNotAssigned.
			With("course_session_id", input.CourseSessionID).
			With("lecturer_id", input.LecturerID)
	}

	exists, err := s.repo.Exists(ctx, input.SessionID, input.StudentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if exists {
		return dto.SubmissionResponse{}, evaluation.ErrDuplicateSubmission.
			With("session_id", input.SessionID).
			With("student_id", input.StudentID)
	}

	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	answers, err := evaluation.AnswerSet(input.Answers)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := evaluation.ValidateAnswers(catalog, answers); err != nil {
		return dto.SubmissionResponse{}, err
	}

	scores := evaluation.Score(catalog, answers)
	submission := models.EvaluationSubmission{
		StudentID:       input.StudentID,
		SessionID:       input.SessionID,
		LecturerID:      input.LecturerID,
		CourseSessionID: input.CourseSessionID,
		SubmittedAt:     now.UTC(),
		OverallRating:   scores.Overall,
		CategoryRatings: models.CategoryRatingsJSON(scores.Categories),
	}
	for _, answer := range evaluation.OrderedAnswers(answers) {
		submission.Answers = append(submission.Answers, models.EvaluationAnswer{QuestionID: answer.QuestionID, Rating: answer.Rating})
	}

	if err := s.repo.Create(ctx, &submission); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return dto.SubmissionResponse{}, evaluation.ErrDuplicateSubmission.
				With("session_id", input.SessionID).
				With("student_id", input.StudentID)
		}
		s.logger.Error().Err(err).Uint("session_id", input.SessionID).Msg("failed to store evaluation submission")
		return dto.SubmissionResponse{}, err
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, submission.CourseSessionID, submission.LecturerID)
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("session_id", submission.SessionID).
		Float64("overall_rating", submission.OverallRating).
		Msg("evaluation submission recorded")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) ListSubmissions(ctx context.Context, sessionID uint) ([]dto.SubmissionResponse, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, evaluation.ErrSessionNotFound.With("session_id", sessionID)
		}
		return nil, err
	}

	submissions, err := s.repo.List(ctx, repository.EvaluationSubmissionFilter{SessionID: &sessionID})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.NewSubmissionResponse(submission))
	}
	return responses, nil
}
