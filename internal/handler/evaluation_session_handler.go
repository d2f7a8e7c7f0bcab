package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/middleware"
	"github.com/noah-isme/gema-evaluation-api/internal/service"
	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

// EvaluationSessionHandler exposes session administration and status endpoints.
type EvaluationSessionHandler struct {
	sessions    service.SessionService
	submissions service.SubmissionService
	logger      zerolog.Logger
}

// NewEvaluationSessionHandler constructs the session handler.
func NewEvaluationSessionHandler(sessions service.SessionService, submissions service.SubmissionService, logger zerolog.Logger) *EvaluationSessionHandler {
	return &EvaluationSessionHandler{
		sessions:    sessions,
		submissions: submissions,
		logger:      logger.With().Str("component", "evaluation_session_handler").Logger(),
	}
}

// Register wires session routes. Status is open to any authenticated caller;
// everything else requires an admin.
func (h *EvaluationSessionHandler) Register(router fiber.Router) {
	admin := middleware.AuthOptions{Roles: []string{middleware.AuthRoleAdmin}}

	router.Post("/session", middleware.WithAuth(h.create, admin))
	router.Get("/sessions/department/:departmentId", middleware.WithAuth(h.listByDepartment, admin))
	router.Get("/session/:id", middleware.WithAuth(h.get, admin))
	router.Post("/session/:id/activate", middleware.WithAuth(h.activate, admin))
	router.Get("/session/:id/submissions", middleware.WithAuth(h.listSubmissions, admin))
	router.Get("/session/:id/status", middleware.WithAuth(h.status, middleware.AuthOptions{RequireUser: true}))
}

func (h *EvaluationSessionHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}

	session, err := h.sessions.CreateSession(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create evaluation session")
	}
	return utils.Created(c, "evaluation session created", session)
}

func (h *EvaluationSessionHandler) activate(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, "invalid session")
	}

	session, err := h.sessions.ActivateSession(c.UserContext(), sessionID, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to activate evaluation session")
	}
	return utils.SendSuccess(c, "evaluation session activated", session)
}

func (h *EvaluationSessionHandler) get(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, "invalid session")
	}

	session, err := h.sessions.GetSession(c.UserContext(), sessionID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch evaluation session")
	}
	return utils.SendSuccess(c, "evaluation session retrieved", session)
}

func (h *EvaluationSessionHandler) status(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, "invalid session")
	}

	status, err := h.sessions.SessionStatus(c.UserContext(), sessionID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch evaluation session status")
	}
	return utils.SendSuccess(c, "evaluation session status", status)
}

func (h *EvaluationSessionHandler) listByDepartment(c *fiber.Ctx) error {
	departmentID, err := parseIDParam(c, "departmentId")
	if err != nil {
		return respondError(c, h.logger, err, "invalid department")
	}

	sessions, err := h.sessions.ListSessions(c.UserContext(), departmentID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list evaluation sessions")
	}
	return utils.OK(c, sessions, "evaluation sessions retrieved", fiber.Map{"count": len(sessions)})
}

func (h *EvaluationSessionHandler) listSubmissions(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, "invalid session")
	}

	submissions, err := h.submissions.ListSubmissions(c.UserContext(), sessionID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list evaluation submissions")
	}
	return utils.OK(c, submissions, "evaluation submissions retrieved", fiber.Map{"count": len(submissions)})
}
