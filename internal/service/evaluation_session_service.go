package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/evaluation"
	"github.com/noah-isme/gema-evaluation-api/internal/events"
	"github.com/noah-isme/gema-evaluation-api/internal/models"
	"github.com/noah-isme/gema-evaluation-api/internal/observability"
	"github.com/noah-isme/gema-evaluation-api/internal/repository"
)

// SessionService manages evaluation windows and their activation.
type SessionService interface {
	CreateSession(ctx context.Context, actor ActivityActor, req dto.CreateSessionRequest) (dto.SessionResponse, error)
	ActivateSession(ctx context.Context, sessionID uint, actor ActivityActor) (dto.SessionResponse, error)
	SessionStatus(ctx context.Context, sessionID uint) (dto.SessionStatusResponse, error)
	GetSession(ctx context.Context, sessionID uint) (dto.SessionResponse, error)
	ListSessions(ctx context.Context, departmentID uint) ([]dto.SessionResponse, error)
}

type sessionService struct {
	repo      repository.EvaluationSessionRepository
	directory repository.CourseDirectoryRepository
	activity  ActivityRecorder
	publisher events.Publisher
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSessionService constructs the session service. activity and publisher may be nil.
func NewSessionService(
	repo repository.EvaluationSessionRepository,
	directory repository.CourseDirectoryRepository,
	activity ActivityRecorder,
	publisher events.Publisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) SessionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &sessionService{
		repo:      repo,
		directory: directory,
		activity:  activity,
		publisher: publisher,
		validator: validate,
		logger:    logger.With().Str("component", "session_service").Logger(),
		now:       time.Now,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, actor ActivityActor, req dto.CreateSessionRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SessionResponse{}, err
	}
	if err := evaluation.ValidateWindow(req.StartDate, req.EndDate); err != nil {
		return dto.SessionResponse{}, err
	}

	course, err := s.courseSession(ctx, req.CourseSessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	if course.DepartmentID != req.DepartmentID {
		return dto.SessionResponse{}, evaluation.ErrDepartmentMismatch.
			With("course_session_id", req.CourseSessionID).
			With("department_id", req.DepartmentID)
	}

	session := models.EvaluationSession{
		CourseSessionID: req.CourseSessionID,
		DepartmentID:    req.DepartmentID,
		StartDate:       req.StartDate.UTC(),
		EndDate:         req.EndDate.UTC(),
		IsActive:        false,
	}
	if err := s.repo.Create(ctx, &session); err != nil {
		s.logger.Error().Err(err).Uint("course_session_id", req.CourseSessionID).Msg("failed to create evaluation session")
		return dto.SessionResponse{}, err
	}

	s.audit(ctx, actor, ActionSessionCreated, session.ID, map[string]interface{}{
		"course_session_id": session.CourseSessionID,
		"department_id":     session.DepartmentID,
	})
	s.publish(ctx, events.SessionCreated(session.ID, session.CourseSessionID, session.DepartmentID, session.StartDate, session.EndDate))

	s.logger.Info().Uint("session_id", session.ID).Uint("course_session_id", session.CourseSessionID).Msg("evaluation session created")
	return dto.NewSessionResponse(session, &course, evaluation.StatusOf(session, s.now())), nil
}

// ActivateSession switches is_active on at most once. Expiry is judged on the
// loaded row because end_date never changes after creation; the flag itself is
// flipped with a conditional update so concurrent admins cannot both succeed.
func (s *sessionService) ActivateSession(ctx context.Context, sessionID uint, actor ActivityActor) (dto.SessionResponse, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	now := s.now()
	if session.IsExpired(now) {
		return dto.SessionResponse{}, evaluation.ErrSessionExpired.
			With("session_id", sessionID).
			With("end_date", session.EndDate.UTC().Format(time.RFC3339))
	}
	if session.IsActive {
		return dto.SessionResponse{}, evaluation.ErrActivationConflict.With("session_id", sessionID)
	}

	activated, err := s.repo.Activate(ctx, sessionID, actor.ID, now.UTC())
	if err != nil {
		s.logger.Error().Err(err).Uint("session_id", sessionID).Msg("failed to activate evaluation session")
		return dto.SessionResponse{}, err
	}
	if !activated {
		if _, err := s.session(ctx, sessionID); err != nil {
			return dto.SessionResponse{}, err
		}
		return dto.SessionResponse{}, evaluation.ErrActivationConflict.With("session_id", sessionID)
	}

	session, err = s.session(ctx, sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	observability.SessionsActivated().Inc()
	s.audit(ctx, actor, ActionSessionActivated, session.ID, map[string]interface{}{
		"course_session_id": session.CourseSessionID,
		"department_id":     session.DepartmentID,
	})
	s.publish(ctx, events.SessionActivated(session.ID, actor.ID, now))

	s.logger.Info().Uint("session_id", session.ID).Uint("admin_id", actor.ID).Msg("evaluation session activated")
	return s.response(ctx, session, now), nil
}

func (s *sessionService) SessionStatus(ctx context.Context, sessionID uint) (dto.SessionStatusResponse, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return dto.SessionStatusResponse{}, err
	}
	return dto.SessionStatusResponse{SessionID: session.ID, Status: evaluation.StatusOf(session, s.now())}, nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID uint) (dto.SessionResponse, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return s.response(ctx, session, s.now()), nil
}

func (s *sessionService) ListSessions(ctx context.Context, departmentID uint) ([]dto.SessionResponse, error) {
	exists, err := s.directory.DepartmentExists(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, evaluation.ErrDepartmentNotFound.With("department_id", departmentID)
	}

	sessions, err := s.repo.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	courses, err := s.directory.ListCourseSessionsByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.CourseSession, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}

	now := s.now()
	responses := make([]dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		var course *models.CourseSession
		if found, ok := byID[session.CourseSessionID]; ok {
			course = &found
		}
		responses = append(responses, dto.NewSessionResponse(session, course, evaluation.StatusOf(session, now)))
	}
	return responses, nil
}

func (s *sessionService) session(ctx context.Context, sessionID uint) (models.EvaluationSession, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.EvaluationSession{}, evaluation.ErrSessionNotFound.With("session_id", sessionID)
		}
		return models.EvaluationSession{}, err
	}
	return session, nil
}

func (s *sessionService) courseSession(ctx context.Context, courseSessionID uint) (models.CourseSession, error) {
	course, err := s.directory.GetCourseSession(ctx, courseSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseSession{}, evaluation.ErrCourseNotFound.With("course_session_id", courseSessionID)
		}
		return models.CourseSession{}, err
	}
	return course, nil
}

func (s *sessionService) response(ctx context.Context, session models.EvaluationSession, now time.Time) dto.SessionResponse {
	var coursePtr *models.CourseSession
	course, err := s.directory.GetCourseSession(ctx, session.CourseSessionID)
	if err == nil {
		coursePtr = &course
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn().Err(err).Uint("course_session_id", session.CourseSessionID).Msg("failed to resolve course session")
	}
	return dto.NewSessionResponse(session, coursePtr, evaluation.StatusOf(session, now))
}

func (s *sessionService) audit(ctx context.Context, actor ActivityActor, action string, sessionID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	entityID := sessionID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: EntityEvaluationSession,
		EntityID:   &entityID,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (s *sessionService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("failed to publish evaluation event")
	}
}
