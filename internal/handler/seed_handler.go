package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/middleware"
	"github.com/noah-isme/gema-evaluation-api/internal/service"
	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for seeding the evaluation catalog.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/evaluation-catalog", h.catalog)
}

func (h *SeedHandler) catalog(c *fiber.Ctx) error {
	token := c.Get(middleware.HeaderSeedToken)
	var payload dto.CatalogSeedRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}

	result, err := h.service.SeedCatalog(c.UserContext(), token, payload)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "evaluation catalog seeded", result)
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSeedDisabled):
		return utils.Fail(c, fiber.StatusForbidden, "seeding disabled", nil)
	case errors.Is(err, service.ErrSeedUnauthorized):
		return utils.Fail(c, fiber.StatusForbidden, "invalid token", nil)
	case errors.Is(err, service.ErrSeedInvalid):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("seed operation failed")
		return utils.Fail(c, fiber.StatusInternalServerError, "seed operation failed", nil)
	}
}
