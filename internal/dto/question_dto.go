package dto

import (
	"time"

	"github.com/edumark/edumark-api/internal/models"
)

// RubricCriterionRequest describes one gradeable point in a create payload.
type RubricCriterionRequest struct {
	Description string `json:"description" validate:"required,min=3"`
	Marks       int    `json:"marks" validate:"required,gt=0"`
	Guidance    string `json:"guidance"`
}

// RubricSectionRequest describes one rubric section in a create payload.
type RubricSectionRequest struct {
	Name       string                   `json:"name" validate:"required,min=2"`
	TotalMarks int                      `json:"total_marks" validate:"required,gt=0"`
	Criteria   []RubricCriterionRequest `json:"criteria" validate:"omitempty,dive"`
}

// RubricRequest is the grading specification in a create payload.
type RubricRequest struct {
	TotalMarks          int                    `json:"total_marks" validate:"required,gt=0"`
	Sections            []RubricSectionRequest `json:"sections" validate:"omitempty,dive"`
	GradingInstructions string                 `json:"grading_instructions"`
}

// QuestionSettingsRequest controls submission acceptance for a question.
type QuestionSettingsRequest struct {
	Deadline             *time.Time `json:"deadline"`
	AllowLateSubmissions bool       `json:"allow_late_submissions"`
	MaxAttempts          int        `json:"max_attempts" validate:"omitempty,gte=0"`
	RequireTeacherReview *bool      `json:"require_teacher_review"`
}

// QuestionCreateRequest is the payload for authoring a question.
type QuestionCreateRequest struct {
	Title       string                   `json:"title" validate:"required,min=3"`
	Description string                   `json:"description" validate:"required,min=3"`
	Rubric      RubricRequest            `json:"rubric" validate:"required"`
	AIModel     string                   `json:"ai_model" validate:"omitempty,oneof=gpt-4o-mini gpt-4o"`
	Settings    *QuestionSettingsRequest `json:"settings"`
}

// QuestionResponse is returned to API clients when viewing questions.
type QuestionResponse struct {
	ID          uint                    `json:"id"`
	TeacherID   uint                    `json:"teacher_id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Rubric      models.Rubric           `json:"rubric"`
	AIModel     string                  `json:"ai_model"`
	Settings    models.QuestionSettings `json:"settings"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewQuestionResponse converts a Question model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	return QuestionResponse{
		ID:          model.ID,
		TeacherID:   model.TeacherID,
		Title:       model.Title,
		Description: model.Description,
		Rubric:      model.Rubric.Data(),
		AIModel:     model.AIModel,
		Settings:    model.Settings.Data(),
		CreatedAt:   model.CreatedAt,
	}
}

// NewQuestionResponseSlice maps a slice of models to DTOs.
func NewQuestionResponseSlice(models []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(models))
	for _, model := range models {
		responses = append(responses, NewQuestionResponse(model))
	}
	return responses
}
