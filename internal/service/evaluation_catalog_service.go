package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/evaluation"
	"github.com/noah-isme/gema-evaluation-api/internal/models"
	"github.com/noah-isme/gema-evaluation-api/internal/repository"
)

const catalogCacheKey = "evaluation:catalog"

// CatalogService serves the read-only question catalog.
type CatalogService interface {
	Catalog(ctx context.Context) (evaluation.Catalog, error)
	FetchCategories(ctx context.Context) ([]dto.CategoryResponse, error)
	FetchQuestions(ctx context.Context) ([]dto.QuestionResponse, error)
	FetchQuestionsByCategory(ctx context.Context, categoryID uint) ([]dto.QuestionResponse, error)
	Invalidate(ctx context.Context)
}

type catalogService struct {
	repo     repository.EvaluationCatalogRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

type cachedCatalog struct {
	Categories []models.EvaluationCategory `json:"categories"`
	Questions  []models.EvaluationQuestion `json:"questions"`
}

// NewCatalogService constructs the catalog service. cache may be nil.
func NewCatalogService(repo repository.EvaluationCatalogRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) CatalogService {
	return &catalogService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "catalog_service").Logger(),
	}
}

func (s *catalogService) Catalog(ctx context.Context) (evaluation.Catalog, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, catalogCacheKey).Bytes()
		if err == nil {
			var payload cachedCatalog
			if unmarshalErr := json.Unmarshal(cached, &payload); unmarshalErr == nil {
				return evaluation.NewCatalog(payload.Categories, payload.Questions), nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read catalog cache")
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return evaluation.Catalog{}, err
	}
	questions, err := s.repo.ListQuestions(ctx)
	if err != nil {
		return evaluation.Catalog{}, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(cachedCatalog{Categories: categories, Questions: questions})
		if err == nil {
			if err := s.cache.Set(ctx, catalogCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store catalog cache")
			}
		}
	}

	return evaluation.NewCatalog(categories, questions), nil
}

func (s *catalogService) FetchCategories(ctx context.Context) ([]dto.CategoryResponse, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewCategoryResponses(catalog.Categories()), nil
}

func (s *catalogService) FetchQuestions(ctx context.Context) ([]dto.QuestionResponse, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewQuestionResponses(catalog, catalog.Questions()), nil
}

func (s *catalogService) FetchQuestionsByCategory(ctx context.Context, categoryID uint) ([]dto.QuestionResponse, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := catalog.QuestionsByCategory(categoryID)
	if err != nil {
		return nil, err
	}
	return dto.NewQuestionResponses(catalog, questions), nil
}

func (s *catalogService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, catalogCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}
