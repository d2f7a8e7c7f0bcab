package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/evaluation"
	"github.com/noah-isme/gema-evaluation-api/internal/repository"
)

// WizardService hosts one category-by-category evaluation draft per student
// and session. Every transition is applied server-side and the resulting
// state is returned; the client never advances on its own.
type WizardService interface {
	Get(ctx context.Context, sessionID, studentID uint) (dto.WizardResponse, error)
	Answer(ctx context.Context, sessionID, studentID uint, req dto.WizardAnswersRequest) (dto.WizardResponse, error)
	Next(ctx context.Context, sessionID, studentID uint) (dto.WizardResponse, error)
	Previous(ctx context.Context, sessionID, studentID uint) (dto.WizardResponse, error)
	Submit(ctx context.Context, sessionID, studentID uint, req dto.WizardSubmitRequest) (dto.SubmissionResponse, error)
	Discard(ctx context.Context, sessionID, studentID uint) error
}

type wizardService struct {
	drafts      *redis.Client
	draftTTL    time.Duration
	sessions    repository.EvaluationSessionRepository
	catalog     CatalogService
	submissions SubmissionService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewWizardService constructs the wizard host backed by Redis drafts.
func NewWizardService(
	drafts *redis.Client,
	draftTTL time.Duration,
	sessions repository.EvaluationSessionRepository,
	catalog CatalogService,
	submissions SubmissionService,
	validate *validator.Validate,
	logger zerolog.Logger,
) WizardService {
	return &wizardService{
		drafts:      drafts,
		draftTTL:    draftTTL,
		sessions:    sessions,
		catalog:     catalog,
		submissions: submissions,
		validator:   validate,
		logger:      logger.With().Str("component", "wizard_service").Logger(),
	}
}

func wizardDraftKey(sessionID, studentID uint) string {
	return fmt.Sprintf("evaluation:wizard:%d:%d", sessionID, studentID)
}

func (s *wizardService) Get(ctx context.Context, sessionID, studentID uint) (dto.WizardResponse, error) {
	catalog, wizard, err := s.load(ctx, sessionID, studentID)
	if err != nil {
		return dto.WizardResponse{}, err
	}
	return dto.NewWizardResponse(sessionID, catalog, wizard), nil
}

// Answer applies every rating or none of them.
func (s *wizardService) Answer(ctx context.Context, sessionID, studentID uint, req dto.WizardAnswersRequest) (dto.WizardResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.WizardResponse{}, err
	}

	return s.apply(ctx, sessionID, studentID, func(wizard *evaluation.Wizard) error {
		for _, answer := range req.Answers {
			if err := wizard.Answer(answer.QuestionID, answer.Rating); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *wizardService) Next(ctx context.Context, sessionID, studentID uint) (dto.WizardResponse, error) {
	return s.apply(ctx, sessionID, studentID, func(wizard *evaluation.Wizard) error {
		return wizard.Next()
	})
}

func (s *wizardService) Previous(ctx context.Context, sessionID, studentID uint) (dto.WizardResponse, error) {
	return s.apply(ctx, sessionID, studentID, func(wizard *evaluation.Wizard) error {
		return wizard.Previous()
	})
}

// Submit records the draft through the submission service. The draft survives
// any failure so the student can correct it and retry.
func (s *wizardService) Submit(ctx context.Context, sessionID, studentID uint, req dto.WizardSubmitRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, err
	}

	_, wizard, err := s.load(ctx, sessionID, studentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	var recorded dto.SubmissionResponse
	err = wizard.Submit(func(answers map[uint]int) error {
		response, recordErr := s.submissions.Record(ctx, SubmissionInput{
			StudentID:       studentID,
			SessionID:       sessionID,
			CourseSessionID: req.CourseSessionID,
			LecturerID:      req.LecturerID,
			Answers:         evaluation.OrderedAnswers(answers),
		})
		if recordErr != nil {
			return recordErr
		}
		recorded = response
		return nil
	})
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.Discard(ctx, sessionID, studentID); err != nil {
		s.logger.Warn().Err(err).Uint("session_id", sessionID).Uint("student_id", studentID).Msg("failed to discard submitted draft")
	}
	return recorded, nil
}

func (s *wizardService) Discard(ctx context.Context, sessionID, studentID uint) error {
	return s.drafts.Del(ctx, wizardDraftKey(sessionID, studentID)).Err()
}

func (s *wizardService) apply(ctx context.Context, sessionID, studentID uint, transition func(*evaluation.Wizard) error) (dto.WizardResponse, error) {
	catalog, wizard, err := s.load(ctx, sessionID, studentID)
	if err != nil {
		return dto.WizardResponse{}, err
	}

	if err := transition(wizard); err != nil {
		return dto.WizardResponse{}, err
	}

	if err := s.save(ctx, sessionID, studentID, wizard.State()); err != nil {
		return dto.WizardResponse{}, err
	}
	return dto.NewWizardResponse(sessionID, catalog, wizard), nil
}

func (s *wizardService) load(ctx context.Context, sessionID, studentID uint) (evaluation.Catalog, *evaluation.Wizard, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return evaluation.Catalog{}, nil, evaluation.ErrSessionNotFound.With("session_id", sessionID)
		}
		return evaluation.Catalog{}, nil, err
	}

	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return evaluation.Catalog{}, nil, err
	}

	raw, err := s.drafts.Get(ctx, wizardDraftKey(sessionID, studentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return catalog, evaluation.NewWizard(catalog), nil
	}
	if err != nil {
		return evaluation.Catalog{}, nil, fmt.Errorf("failed to load evaluation draft: %w", err)
	}

	var state evaluation.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn().Err(err).Uint("session_id", sessionID).Uint("student_id", studentID).Msg("discarding unreadable evaluation draft")
		return catalog, evaluation.NewWizard(catalog), nil
	}
	return catalog, evaluation.RestoreWizard(catalog, state), nil
}

func (s *wizardService) save(ctx context.Context, sessionID, studentID uint, state evaluation.WizardState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.drafts.Set(ctx, wizardDraftKey(sessionID, studentID), payload, s.draftTTL).Err(); err != nil {
		return fmt.Errorf("failed to store evaluation draft: %w", err)
	}
	return nil
}
