package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/edumark/edumark-api/internal/dto"
	"github.com/edumark/edumark-api/internal/models"
)

func questionPayload() dto.QuestionCreateRequest {
	return dto.QuestionCreateRequest{
		Title:       "Photosynthesis essay",
		Description: "Explain the light and dark reactions.",
		Rubric: dto.RubricRequest{
			TotalMarks: 100,
			Sections: []dto.RubricSectionRequest{
				{Name: "Light reactions", TotalMarks: 50},
				{Name: "Calvin cycle", TotalMarks: 50},
			},
		},
		AIModel: "gpt-4o-mini",
	}
}

func TestQuestionServiceCreate(t *testing.T) {
	repo := newFakeQuestionRepo()
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewQuestionService(repo, validate, testLogger())

	question, err := svc.Create(context.Background(), questionPayload(), 7)
	require.NoError(t, err)
	require.Equal(t, uint(7), question.TeacherID)
	require.Equal(t, 100, question.Rubric.TotalMarks)
	require.Len(t, question.Rubric.Sections, 2)
	require.True(t, question.Settings.RequireTeacherReview)
}

func TestQuestionServiceCreateRejectsMismatchedRubric(t *testing.T) {
	payload := questionPayload()
	payload.Rubric.TotalMarks = 90
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewQuestionService(newFakeQuestionRepo(), validate, testLogger())

	_, err := svc.Create(context.Background(), payload, 7)
	require.Error(t, err)
	require.Contains(t, err.Error(), "do not add up")
}

func TestQuestionServiceCreateHonoursSettings(t *testing.T) {
	deadline := time.Now().Add(48 * time.Hour)
	noReview := false
	payload := questionPayload()
	payload.Settings = &dto.QuestionSettingsRequest{
		Deadline:             &deadline,
		AllowLateSubmissions: true,
		MaxAttempts:          3,
		RequireTeacherReview: &noReview,
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewQuestionService(newFakeQuestionRepo(), validate, testLogger())

	question, err := svc.Create(context.Background(), payload, 7)
	require.NoError(t, err)
	require.NotNil(t, question.Settings.Deadline)
	require.True(t, question.Settings.AllowLateSubmissions)
	require.Equal(t, 3, question.Settings.MaxAttempts)
	require.False(t, question.Settings.RequireTeacherReview)
}

func TestQuestionServiceDeleteOwnerOnly(t *testing.T) {
	repo := newFakeQuestionRepo(models.Question{ID: 1, TeacherID: 7})
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewQuestionService(repo, validate, testLogger())

	err := svc.Delete(context.Background(), 1, 8)
	require.ErrorIs(t, err, ErrNotQuestionOwner)

	err = svc.Delete(context.Background(), 1, 7)
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), 1)
	require.ErrorIs(t, err, ErrQuestionNotFound)
}
