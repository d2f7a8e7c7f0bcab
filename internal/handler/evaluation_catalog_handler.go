package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/service"
	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

// EvaluationCatalogHandler exposes the read-only question catalog.
type EvaluationCatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewEvaluationCatalogHandler constructs the catalog handler.
func NewEvaluationCatalogHandler(service service.CatalogService, logger zerolog.Logger) *EvaluationCatalogHandler {
	return &EvaluationCatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_catalog_handler").Logger(),
	}
}

// Register wires catalog routes.
func (h *EvaluationCatalogHandler) Register(router fiber.Router) {
	router.Get("/categories", h.categories)
	router.Get("/questions", h.questions)
	router.Get("/questions/category/:categoryId", h.questionsByCategory)
}

func (h *EvaluationCatalogHandler) categories(c *fiber.Ctx) error {
	categories, err := h.service.FetchCategories(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch categories")
	}
	return utils.SendSuccess(c, "evaluation categories retrieved", categories)
}

func (h *EvaluationCatalogHandler) questions(c *fiber.Ctx) error {
	questions, err := h.service.FetchQuestions(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch questions")
	}
	return utils.SendSuccess(c, "evaluation questions retrieved", questions)
}

func (h *EvaluationCatalogHandler) questionsByCategory(c *fiber.Ctx) error {
	categoryID, err := parseIDParam(c, "categoryId")
	if err != nil {
		return respondError(c, h.logger, err, "invalid category")
	}

	questions, err := h.service.FetchQuestionsByCategory(c.UserContext(), categoryID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch questions")
	}
	return utils.SendSuccess(c, "evaluation questions retrieved", questions)
}
