package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edumark/edumark-api/internal/dto"
	"github.com/edumark/edumark-api/internal/service"
	"github.com/edumark/edumark-api/internal/utils"
)

// ReviewHandler manages the teacher review surface: the grading queue,
// accepting or declining AI evaluations, and dashboard stats.
type ReviewHandler struct {
	submissions service.SubmissionService
	workflow    service.SubmissionWorkflow
	stats       service.StatsService
	logger      zerolog.Logger
}

// NewReviewHandler builds a review handler instance.
func NewReviewHandler(submissions service.SubmissionService, workflow service.SubmissionWorkflow, stats service.StatsService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		submissions: submissions,
		workflow:    workflow,
		stats:       stats,
		logger:      logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/stats", h.getStats)
	router.Get("/:id", h.get)
	router.Post("/:id/accept", h.accept)
	router.Post("/:id/decline", h.decline)
}

func (h *ReviewHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{}
	if questionID, err := parseQueryUint(c, "question_id"); err == nil && questionID != nil {
		filter.QuestionID = questionID
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	submissions, err := h.submissions.ListForReview(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *ReviewHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.submissions.GetForReview(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *ReviewHandler) accept(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AcceptGradeRequest
	if err := c.BodyParser(&payload); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.SubmissionID = id

	submission, err := h.workflow.Accept(c.Context(), payload, reviewActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade accepted", submission)
}

func (h *ReviewHandler) decline(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.DeclineGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.SubmissionID = id

	submission, err := h.workflow.Decline(c.Context(), payload, reviewActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade declined; submission re-graded", submission)
}

func (h *ReviewHandler) getStats(c *fiber.Ctx) error {
	stats, err := h.stats.ReviewStats(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "review stats retrieved", stats)
}

func (h *ReviewHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrNotReviewer):
		return utils.SendError(c, fiber.StatusForbidden, "reviewer role required")
	case errors.Is(err, service.ErrAlreadyFinalized):
		return utils.SendError(c, fiber.StatusConflict, "final grade already set")
	case errors.Is(err, service.ErrNotAwaitingReview):
		return utils.SendError(c, fiber.StatusConflict, "submission is not awaiting review")
	case errors.Is(err, service.ErrGradingInFlight):
		return utils.SendError(c, fiber.StatusConflict, "grading already in progress")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
