package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/edumark/edumark-api/internal/grading"
	"github.com/edumark/edumark-api/internal/models"
	"github.com/edumark/edumark-api/pkg/ai"
)

type stubEvaluator struct {
	report     string
	err        error
	lastPrompt string
	lastModel  string
}

func (s *stubEvaluator) Evaluate(ctx context.Context, req ai.Request) (string, error) {
	s.lastPrompt = req.Prompt
	s.lastModel = req.Model
	if s.err != nil {
		return "", s.err
	}
	return s.report, nil
}

func biologyQuestion() models.Question {
	return models.Question{
		ID:      1,
		Title:   "Photosynthesis",
		AIModel: "gpt-4o-mini",
		Rubric: datatypes.NewJSONType(models.Rubric{
			TotalMarks: 100,
			Sections: []models.RubricSection{
				{Name: "Light reactions", TotalMarks: 50, Criteria: []models.RubricCriterion{
					{Description: "Explains photolysis", Marks: 25},
					{Description: "Explains ATP synthesis", Marks: 25},
				}},
				{Name: "Calvin cycle", TotalMarks: 50},
			},
		}),
	}
}

func TestGradingServiceGradesSubmission(t *testing.T) {
	submissions := newFakeSubmissionRepo(models.Submission{
		ID:         5,
		QuestionID: 1,
		Content:    "Light splits water molecules in photolysis.",
	})
	questions := newFakeQuestionRepo(biologyQuestion())
	evaluator := &stubEvaluator{report: `Section 1 Total: 40/50
Section 2 Total: 30/50
Section 3 Total: 0/0
Total Score: 75/100`}

	svc := NewGradingService(submissions, questions, evaluator, nil, testLogger())

	result, err := svc.Grade(context.Background(), 5, nil)
	require.NoError(t, err)
	require.Equal(t, 70, result.Score)
	require.Len(t, result.Breakdown, 3)
	require.Contains(t, result.Feedback, "Total Score: 70/100")

	require.Equal(t, "gpt-4o-mini", evaluator.lastModel)
	require.Contains(t, evaluator.lastPrompt, "Section 1: Light reactions (50 marks)")
	require.Contains(t, evaluator.lastPrompt, "Light splits water molecules in photolysis.")
	require.Contains(t, evaluator.lastPrompt, "total score out of 100")
}

func TestGradingServicePassesRegradeContext(t *testing.T) {
	submissions := newFakeSubmissionRepo(models.Submission{ID: 5, QuestionID: 1, Content: "answer"})
	questions := newFakeQuestionRepo(biologyQuestion())
	evaluator := &stubEvaluator{report: "Final Score: 60/100"}

	svc := NewGradingService(submissions, questions, evaluator, nil, testLogger())

	_, err := svc.Grade(context.Background(), 5, &grading.RegradeContext{
		TeacherFeedback: "Be more generous on section 2",
		PreviousScore:   45,
	})
	require.NoError(t, err)
	require.Contains(t, evaluator.lastPrompt, "TEACHER FEEDBACK ON PREVIOUS GRADING")
	require.Contains(t, evaluator.lastPrompt, "Be more generous on section 2")
	require.Contains(t, evaluator.lastPrompt, "Previous attempt score: 45/100")
}

func TestGradingServiceUnknownSubmission(t *testing.T) {
	svc := NewGradingService(newFakeSubmissionRepo(), newFakeQuestionRepo(), &stubEvaluator{}, nil, testLogger())

	_, err := svc.Grade(context.Background(), 99, nil)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestGradingServiceUnknownQuestion(t *testing.T) {
	submissions := newFakeSubmissionRepo(models.Submission{ID: 5, QuestionID: 42, Content: "answer"})
	evaluator := &stubEvaluator{}
	svc := NewGradingService(submissions, newFakeQuestionRepo(), evaluator, nil, testLogger())

	_, err := svc.Grade(context.Background(), 5, nil)
	require.ErrorIs(t, err, ErrQuestionNotFound)
	require.Empty(t, evaluator.lastPrompt)
}

func TestGradingServiceNoEvaluator(t *testing.T) {
	svc := NewGradingService(newFakeSubmissionRepo(), newFakeQuestionRepo(), nil, nil, testLogger())

	_, err := svc.Grade(context.Background(), 5, nil)
	require.ErrorIs(t, err, ErrEvaluatorUnavailable)
}

func TestGradingServiceLowConfidenceReport(t *testing.T) {
	submissions := newFakeSubmissionRepo(models.Submission{ID: 5, QuestionID: 1, Content: "answer"})
	questions := newFakeQuestionRepo(biologyQuestion())
	evaluator := &stubEvaluator{report: "The rubric was not addressed at all."}

	svc := NewGradingService(submissions, questions, evaluator, nil, testLogger())

	result, err := svc.Grade(context.Background(), 5, nil)
	require.NoError(t, err)
	require.Equal(t, 0, result.Score)
	require.True(t, result.LowConfidence())
	require.Equal(t, strings.TrimSpace(evaluator.report), strings.TrimSpace(result.Feedback))
}
