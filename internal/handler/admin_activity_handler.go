package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/service"
	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

// AdminActivityHandler exposes the evaluation audit trail.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid page", fiber.Map{"field": "page"})
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid page size", fiber.Map{"field": "page_size"})
	}
	if pageSize <= 0 {
		pageSize = 25
	} else if pageSize > 200 {
		pageSize = 200
	}

	actorID, err := parseQueryInt(c, "actor_id")
	if err != nil || actorID < 0 {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid actor id", fiber.Map{"field": "actor_id"})
	}
	entityID, err := parseQueryInt(c, "entity_id")
	if err != nil || entityID < 0 {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid entity id", fiber.Map{"field": "entity_id"})
	}

	from, err := parseQueryTime(c, "from")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid from", fiber.Map{"field": "from"})
	}
	to, err := parseQueryTime(c, "to")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid to", fiber.Map{"field": "to"})
	}

	response, err := h.service.List(c.UserContext(), dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		ActorID:    uint(actorID),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   uint(entityID),
		From:       from,
		To:         to,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to list activity logs")
	}

	return utils.OK(c, response.Items, "activity logs", fiber.Map{"pagination": response.Pagination})
}
