package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/middleware"
	"github.com/noah-isme/gema-evaluation-api/internal/service"
	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

// EvaluationSubmissionHandler exposes the student-facing submission and wizard endpoints.
type EvaluationSubmissionHandler struct {
	submissions service.SubmissionService
	wizard      service.WizardService
	logger      zerolog.Logger
}

// NewEvaluationSubmissionHandler constructs the submission handler.
func NewEvaluationSubmissionHandler(submissions service.SubmissionService, wizard service.WizardService, logger zerolog.Logger) *EvaluationSubmissionHandler {
	return &EvaluationSubmissionHandler{
		submissions: submissions,
		wizard:      wizard,
		logger:      logger.With().Str("component", "evaluation_submission_handler").Logger(),
	}
}

// Register wires student routes. submitLimiter, when set, guards both submit endpoints.
func (h *EvaluationSubmissionHandler) Register(router fiber.Router, submitLimiter fiber.Handler) {
	student := middleware.AuthOptions{Roles: []string{middleware.AuthRoleStudent}}
	guard := func(next fiber.Handler) fiber.Handler {
		return middleware.WithAuth(next, student)
	}
	if submitLimiter == nil {
		submitLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Post("/submit", submitLimiter, guard(h.submit))

	router.Get("/session/:id/wizard", guard(h.wizardState))
	router.Put("/session/:id/wizard/answers", guard(h.wizardAnswers))
	router.Post("/session/:id/wizard/next", guard(h.wizardNext))
	router.Post("/session/:id/wizard/previous", guard(h.wizardPrevious))
	router.Post("/session/:id/wizard/submit", submitLimiter, guard(h.wizardSubmit))
	router.Delete("/session/:id/wizard", guard(h.wizardDiscard))
}

func (h *EvaluationSubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitEvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}

	studentID, _ := middleware.Principal(c)
	submission, err := h.submissions.RecordSubmission(c.UserContext(), studentID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to record evaluation")
	}
	return utils.Created(c, "evaluation submitted", submission)
}

func (h *EvaluationSubmissionHandler) wizardState(c *fiber.Ctx) error {
	return h.wizardStep(c, func(sessionID, studentID uint) (dto.WizardResponse, error) {
		return h.wizard.Get(c.UserContext(), sessionID, studentID)
	})
}

func (h *EvaluationSubmissionHandler) wizardAnswers(c *fiber.Ctx) error {
	var payload dto.WizardAnswersRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}
	return h.wizardStep(c, func(sessionID, studentID uint) (dto.WizardResponse, error) {
		return h.wizard.Answer(c.UserContext(), sessionID, studentID, payload)
	})
}

func (h *EvaluationSubmissionHandler) wizardNext(c *fiber.Ctx) error {
	return h.wizardStep(c, func(sessionID, studentID uint) (dto.WizardResponse, error) {
		return h.wizard.Next(c.UserContext(), sessionID, studentID)
	})
}

func (h *EvaluationSubmissionHandler) wizardPrevious(c *fiber.Ctx) error {
	return h.wizardStep(c, func(sessionID, studentID uint) (dto.WizardResponse, error) {
		return h.wizard.Previous(c.UserContext(), sessionID, studentID)
	})
}

func (h *EvaluationSubmissionHandler) wizardSubmit(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, "invalid session")
	}
	var payload dto.WizardSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}

	studentID, _ := middleware.Principal(c)
	submission, err := h.wizard.Submit(c.UserContext(), sessionID, studentID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to record evaluation")
	}
	return utils.Created(c, "evaluation submitted", submission)
}

func (h *EvaluationSubmissionHandler) wizardDiscard(c *fiber.Ctx) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, "invalid session")
	}

	studentID, _ := middleware.Principal(c)
	if err := h.wizard.Discard(c.UserContext(), sessionID, studentID); err != nil {
		return respondError(c, h.logger, err, "failed to discard evaluation draft")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *EvaluationSubmissionHandler) wizardStep(c *fiber.Ctx, step func(sessionID, studentID uint) (dto.WizardResponse, error)) error {
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, "invalid session")
	}

	studentID, _ := middleware.Principal(c)
	state, err := step(sessionID, studentID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update evaluation draft")
	}
	return utils.SendSuccess(c, "evaluation wizard state", state)
}
