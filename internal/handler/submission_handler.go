package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edumark/edumark-api/internal/dto"
	"github.com/edumark/edumark-api/internal/service"
	"github.com/edumark/edumark-api/internal/utils"
	"github.com/edumark/edumark-api/pkg/extract"
)

// SubmissionHandler manages the public submission endpoints: students submit
// answers and check their status without an account.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.status)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	questionID, err := parseFormUint(c, "question_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.SubmissionCreateRequest{
		QuestionID:   questionID,
		StudentName:  strings.TrimSpace(c.FormValue("student_name")),
		StudentEmail: strings.TrimSpace(c.FormValue("student_email")),
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	submission, err := h.service.Submit(c.Context(), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission received", submission)
}

func (h *SubmissionHandler) status(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "email is required")
	}

	submission, err := h.service.StudentStatus(c.Context(), id, email)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrDeadlinePassed):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "submission deadline has passed")
	case errors.Is(err, service.ErrAttemptsExhausted):
		return utils.SendError(c, fiber.StatusConflict, "maximum submission attempts reached")
	case errors.Is(err, service.ErrSubmissionTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "file exceeds maximum allowed size")
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "file type not supported")
	case errors.Is(err, service.ErrEmptyAnswer):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "no text could be extracted from the file")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func parseFormUint(c *fiber.Ctx, key string) (uint, error) {
	value := c.FormValue(key)
	if value == "" {
		return 0, errors.New("missing " + key)
	}
	parsed, err := parseUintString(value)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}
