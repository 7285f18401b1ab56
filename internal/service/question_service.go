package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/edumark/edumark-api/internal/dto"
	"github.com/edumark/edumark-api/internal/models"
	"github.com/edumark/edumark-api/internal/repository"
)

// ErrNotQuestionOwner indicates a teacher touched a question they don't own.
var ErrNotQuestionOwner = errors.New("question belongs to another teacher")

// QuestionService manages teacher-authored questions and their rubrics.
type QuestionService interface {
	Create(ctx context.Context, payload dto.QuestionCreateRequest, teacherID uint) (dto.QuestionResponse, error)
	List(ctx context.Context, teacherID uint) ([]dto.QuestionResponse, error)
	GetByID(ctx context.Context, id uint) (dto.QuestionResponse, error)
	Delete(ctx context.Context, id, teacherID uint) error
}

type questionService struct {
	repo      repository.QuestionRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuestionService constructs a question service.
func NewQuestionService(repo repository.QuestionRepository, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Create(ctx context.Context, payload dto.QuestionCreateRequest, teacherID uint) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	rubric := buildRubric(payload.Rubric)
	if err := validateRubric(rubric); err != nil {
		return dto.QuestionResponse{}, err
	}

	settings := models.QuestionSettings{RequireTeacherReview: true}
	if payload.Settings != nil {
		settings.Deadline = payload.Settings.Deadline
		settings.AllowLateSubmissions = payload.Settings.AllowLateSubmissions
		settings.MaxAttempts = payload.Settings.MaxAttempts
		if payload.Settings.RequireTeacherReview != nil {
			settings.RequireTeacherReview = *payload.Settings.RequireTeacherReview
		}
	}

	question := models.Question{
		TeacherID:   teacherID,
		Title:       payload.Title,
		Description: payload.Description,
		Rubric:      datatypes.NewJSONType(rubric),
		AIModel:     payload.AIModel,
		Settings:    datatypes.NewJSONType(settings),
	}

	if err := s.repo.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().
		Uint("question_id", question.ID).
		Uint("teacher_id", teacherID).
		Int("max_marks", question.MaxMarks()).
		Msg("question created")

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) List(ctx context.Context, teacherID uint) ([]dto.QuestionResponse, error) {
	questions, err := s.repo.List(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) GetByID(ctx context.Context, id uint) (dto.QuestionResponse, error) {
	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Delete(ctx context.Context, id, teacherID uint) error {
	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	if question.TeacherID != teacherID {
		return ErrNotQuestionOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Uint("question_id", id).Uint("teacher_id", teacherID).Msg("question deleted")
	return nil
}

func buildRubric(payload dto.RubricRequest) models.Rubric {
	sections := make([]models.RubricSection, 0, len(payload.Sections))
	for _, section := range payload.Sections {
		criteria := make([]models.RubricCriterion, 0, len(section.Criteria))
		for _, criterion := range section.Criteria {
			criteria = append(criteria, models.RubricCriterion{
				Description: criterion.Description,
				Marks:       criterion.Marks,
				Guidance:    criterion.Guidance,
			})
		}
		sections = append(sections, models.RubricSection{
			Name:       section.Name,
			TotalMarks: section.TotalMarks,
			Criteria:   criteria,
		})
	}

	return models.Rubric{
		TotalMarks:          payload.TotalMarks,
		Sections:            sections,
		GradingInstructions: payload.GradingInstructions,
	}
}

func validateRubric(rubric models.Rubric) error {
	sum := 0
	for _, section := range rubric.Sections {
		sum += section.TotalMarks
	}
	if len(rubric.Sections) > 0 && sum != rubric.TotalMarks {
		return errors.New("rubric section marks do not add up to the total")
	}
	return nil
}
