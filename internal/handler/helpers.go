package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/evaluation"
	"github.com/noah-isme/gema-evaluation-api/internal/middleware"
	"github.com/noah-isme/gema-evaluation-api/internal/service"
	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

// parseQueryTime accepts an RFC 3339 timestamp or a plain date, read as UTC midnight.
func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseIDParam reads a positive numeric route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || value == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(value), nil
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	id, role := middleware.Principal(c)
	return service.ActivityActor{ID: id, Role: role}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

func evaluationStatus(code evaluation.Code) int {
	switch code {
	case evaluation.CodeSessionNotFound, evaluation.CodeCourseNotFound,
		evaluation.CodeCategoryNotFound, evaluation.CodeDepartmentNotFound:
		return fiber.StatusNotFound
	case evaluation.CodeActivationConflict, evaluation.CodeDuplicateSubmission:
		return fiber.StatusConflict
	case evaluation.CodeSessionExpired:
		return fiber.StatusGone
	case evaluation.CodeSessionNotActive, evaluation.CodeCourseMismatch,
		evaluation.CodeLecturerNotAssigned, evaluation.CodeDepartmentMismatch:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusBadRequest
	}
}

// respondError renders domain and validation failures with their context and
// logs anything else as an internal error.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var domainErr *evaluation.Error
	if errors.As(err, &domainErr) {
		details := fiber.Map{"code": domainErr.Code}
		for key, value := range domainErr.Context {
			details[key] = value
		}
		return utils.Fail(c, evaluationStatus(domainErr.Code), domainErr.Message, details)
	}

	if isValidationError(err) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return utils.Fail(c, fiberErr.Code, fiberErr.Message, nil)
	}

	requestLogger(logger, c).Error().Err(err).Str("route", c.Path()).Msg(fallback)
	return utils.Fail(c, fiber.StatusInternalServerError, fallback, nil)
}
