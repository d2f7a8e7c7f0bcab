package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/middleware"
	"github.com/noah-isme/gema-evaluation-api/internal/service"
	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

// EvaluationAnalyticsHandler exposes recomputed evaluation analytics.
type EvaluationAnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewEvaluationAnalyticsHandler constructs the analytics handler.
func NewEvaluationAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *EvaluationAnalyticsHandler {
	return &EvaluationAnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_analytics_handler").Logger(),
	}
}

// Register wires analytics routes. Admins see everything; lecturers only their own results.
func (h *EvaluationAnalyticsHandler) Register(router fiber.Router) {
	admin := middleware.AuthOptions{Roles: []string{middleware.AuthRoleAdmin}}
	staff := middleware.AuthOptions{Roles: []string{middleware.AuthRoleAdmin, middleware.AuthRoleLecturer}}

	router.Get("/course/:courseSessionId/lecturer/:lecturerId", middleware.WithAuth(h.course, staff))
	router.Get("/course/:courseSessionId/lecturer/:lecturerId/export", middleware.WithAuth(h.export, staff))
	router.Get("/lecturer/:lecturerId", middleware.WithAuth(h.lecturer, staff))
	router.Get("/department/:departmentId", middleware.WithAuth(h.department, admin))
}

func (h *EvaluationAnalyticsHandler) course(c *fiber.Ctx) error {
	courseSessionID, lecturerID, err := h.courseParams(c)
	if err != nil {
		return respondError(c, h.logger, err, "invalid analytics request")
	}

	analytics, err := h.service.CourseAnalytics(c.UserContext(), courseSessionID, lecturerID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute evaluation analytics")
	}
	return utils.OK(c, analytics, "evaluation analytics retrieved", fiber.Map{"cache_hit": analytics.CacheHit})
}

func (h *EvaluationAnalyticsHandler) export(c *fiber.Ctx) error {
	courseSessionID, lecturerID, err := h.courseParams(c)
	if err != nil {
		return respondError(c, h.logger, err, "invalid analytics request")
	}

	export, err := h.service.ExportCourseAnalytics(c.UserContext(), courseSessionID, lecturerID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to export evaluation analytics")
	}

	return utils.Attachment(c, export.FileName, service.XLSXContentType, export.Content)
}

func (h *EvaluationAnalyticsHandler) lecturer(c *fiber.Ctx) error {
	lecturerID, err := parseIDParam(c, "lecturerId")
	if err != nil {
		return respondError(c, h.logger, err, "invalid lecturer")
	}
	if err := ensureOwnLecturer(c, lecturerID); err != nil {
		return respondError(c, h.logger, err, "invalid lecturer")
	}

	analytics, err := h.service.LecturerAnalytics(c.UserContext(), lecturerID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute evaluation analytics")
	}
	return utils.SendSuccess(c, "lecturer analytics retrieved", analytics)
}

func (h *EvaluationAnalyticsHandler) department(c *fiber.Ctx) error {
	departmentID, err := parseIDParam(c, "departmentId")
	if err != nil {
		return respondError(c, h.logger, err, "invalid department")
	}

	analytics, err := h.service.DepartmentAnalytics(c.UserContext(), departmentID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute evaluation analytics")
	}
	return utils.SendSuccess(c, "department analytics retrieved", analytics)
}

func (h *EvaluationAnalyticsHandler) courseParams(c *fiber.Ctx) (uint, uint, error) {
	courseSessionID, err := parseIDParam(c, "courseSessionId")
	if err != nil {
		return 0, 0, err
	}
	lecturerID, err := parseIDParam(c, "lecturerId")
	if err != nil {
		return 0, 0, err
	}
	if err := ensureOwnLecturer(c, lecturerID); err != nil {
		return 0, 0, err
	}
	return courseSessionID, lecturerID, nil
}

func ensureOwnLecturer(c *fiber.Ctx, lecturerID uint) error {
	userID, role := middleware.Principal(c)
	if role == middleware.AuthRoleLecturer && userID != lecturerID {
		return fiber.NewError(fiber.StatusForbidden, "lecturers may only view their own analytics")
	}
	return nil
}
