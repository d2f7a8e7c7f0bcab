package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/models"
	"github.com/noah-isme/gema-evaluation-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
	// ErrSeedInvalid indicates the catalog payload cannot be stored as given.
	ErrSeedInvalid = errors.New("invalid catalog seed")
)

// SeedService loads the evaluation question catalog.
type SeedService interface {
	SeedCatalog(ctx context.Context, token string, req dto.CatalogSeedRequest) (dto.CatalogSeedResponse, error)
	ImportCatalog(ctx context.Context, req dto.CatalogSeedRequest) (dto.CatalogSeedResponse, error)
}

type seedService struct {
	repo      repository.EvaluationCatalogRepository
	catalog   CatalogService
	activity  ActivityRecorder
	enabled   bool
	token     string
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service. catalog and activity may be nil.
func NewSeedService(repo repository.EvaluationCatalogRepository, catalog CatalogService, activity ActivityRecorder, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:      repo,
		catalog:   catalog,
		activity:  activity,
		enabled:   enabled,
		token:     token,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

// SeedCatalog is the token-gated HTTP entry point.
func (s *seedService) SeedCatalog(ctx context.Context, token string, req dto.CatalogSeedRequest) (dto.CatalogSeedResponse, error) {
	if !s.enabled {
		return dto.CatalogSeedResponse{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.CatalogSeedResponse{}, ErrSeedUnauthorized
	}
	return s.ImportCatalog(ctx, req)
}

// ImportCatalog upserts categories then questions. Text is stripped of markup;
// every question must reference a category present in the payload or already stored.
func (s *seedService) ImportCatalog(ctx context.Context, req dto.CatalogSeedRequest) (dto.CatalogSeedResponse, error) {
	categories, err := s.normalizeCategories(req.Categories)
	if err != nil {
		return dto.CatalogSeedResponse{}, err
	}

	known := make(map[uint]struct{}, len(categories))
	for _, category := range categories {
		known[category.ID] = struct{}{}
	}
	stored, err := s.repo.ListCategories(ctx)
	if err != nil {
		return dto.CatalogSeedResponse{}, err
	}
	for _, category := range stored {
		known[category.ID] = struct{}{}
	}

	questions, err := s.normalizeQuestions(req.Questions, known)
	if err != nil {
		return dto.CatalogSeedResponse{}, err
	}

	var response dto.CatalogSeedResponse
	if len(categories) > 0 {
		if response.Categories, err = s.repo.UpsertCategories(ctx, categories); err != nil {
			return dto.CatalogSeedResponse{}, err
		}
	}
	if len(questions) > 0 {
		if response.Questions, err = s.repo.UpsertQuestions(ctx, questions); err != nil {
			return dto.CatalogSeedResponse{}, err
		}
	}

	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			Action:     ActionCatalogSeeded,
			EntityType: EntityEvaluationCatalog,
			Metadata: map[string]interface{}{
				"categories": response.Categories,
				"questions":  response.Questions,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record catalog seed activity")
		}
	}

	s.logger.Info().
		Int64("categories", response.Categories).
		Int64("questions", response.Questions).
		Msg("evaluation catalog seeded")
	return response, nil
}

func (s *seedService) normalizeCategories(items []models.EvaluationCategory) ([]models.EvaluationCategory, error) {
	result := make([]models.EvaluationCategory, 0, len(items))
	for _, item := range items {
		if item.ID == 0 {
			return nil, fmt.Errorf("%w: category id is required", ErrSeedInvalid)
		}
		item.Name = s.clean(item.Name)
		item.Description = s.clean(item.Description)
		if item.Name == "" {
			return nil, fmt.Errorf("%w: category %d has no name", ErrSeedInvalid, item.ID)
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *seedService) normalizeQuestions(items []models.EvaluationQuestion, categories map[uint]struct{}) ([]models.EvaluationQuestion, error) {
	result := make([]models.EvaluationQuestion, 0, len(items))
	for _, item := range items {
		if item.ID == 0 {
			return nil, fmt.Errorf("%w: question id is required", ErrSeedInvalid)
		}
		if _, ok := categories[item.CategoryID]; !ok {
			return nil, fmt.Errorf("%w: question %d references unknown category %d", ErrSeedInvalid, item.ID, item.CategoryID)
		}
		item.Question = s.clean(item.Question)
		if item.Question == "" {
			return nil, fmt.Errorf("%w: question %d has no text", ErrSeedInvalid, item.ID)
		}
		item.Category = models.EvaluationCategory{}
		result = append(result, item)
	}
	return result, nil
}

// clean strips markup but keeps entities such as apostrophes readable.
func (s *seedService) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
