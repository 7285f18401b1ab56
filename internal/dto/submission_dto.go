package dto

import (
	"time"

	"github.com/edumark/edumark-api/internal/grading"
	"github.com/edumark/edumark-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for the submit link.
type SubmissionCreateRequest struct {
	QuestionID   uint   `form:"question_id" validate:"required,gt=0"`
	StudentName  string `form:"student_name" validate:"required,min=2"`
	StudentEmail string `form:"student_email" validate:"required,email"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	QuestionID *uint   `query:"question_id"`
	Status     *string `query:"status" validate:"omitempty,oneof=pending grading teacher_review accepted declined regrading"`
}

// EvaluationResponse serializes the AI evaluation attached to a submission.
type EvaluationResponse struct {
	Score     int                    `json:"score"`
	Feedback  string                 `json:"feedback"`
	Breakdown []grading.SectionScore `json:"breakdown"`
	GradedAt  time.Time              `json:"graded_at"`
	Attempts  int                    `json:"attempts"`
}

// FinalGradeResponse serializes the released grade on an accepted submission.
type FinalGradeResponse struct {
	Score        int       `json:"score"`
	Feedback     string    `json:"feedback"`
	GradedAt     time.Time `json:"graded_at"`
	TeacherNotes string    `json:"teacher_notes,omitempty"`
}

// QuestionLite summarizes the question in submission responses.
type QuestionLite struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	MaxMarks int    `json:"max_marks"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
// Feedback fields are audience-filtered by the service before this DTO is
// built; the raw evaluator report is never serialized directly.
type SubmissionResponse struct {
	ID           uint                `json:"id"`
	QuestionID   uint                `json:"question_id"`
	StudentName  string              `json:"student_name"`
	StudentEmail string              `json:"student_email"`
	FileURL      string              `json:"file_url"`
	Status       string              `json:"status"`
	SubmittedAt  time.Time           `json:"submitted_at"`
	AIEvaluation *EvaluationResponse `json:"ai_evaluation,omitempty"`
	FinalGrade   *FinalGradeResponse `json:"final_grade,omitempty"`
	Question     QuestionLite        `json:"question"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		QuestionID:   model.QuestionID,
		StudentName:  model.StudentName,
		StudentEmail: model.StudentEmail,
		FileURL:      model.FileURL,
		Status:       model.Status,
		SubmittedAt:  model.SubmittedAt,
	}

	if evaluation, ok := model.Evaluation(); ok {
		response.AIEvaluation = &EvaluationResponse{
			Score:     evaluation.Score,
			Feedback:  evaluation.Feedback,
			Breakdown: evaluation.Breakdown,
			GradedAt:  evaluation.GradedAt,
			Attempts:  evaluation.Attempts,
		}
	}

	if grade, ok := model.Grade(); ok {
		response.FinalGrade = &FinalGradeResponse{
			Score:        grade.Score,
			Feedback:     grade.Feedback,
			GradedAt:     grade.GradedAt,
			TeacherNotes: grade.TeacherNotes,
		}
	}

	if model.Question.ID != 0 {
		response.Question = QuestionLite{
			ID:       model.Question.ID,
			Title:    model.Question.Title,
			MaxMarks: model.Question.MaxMarks(),
		}
	}

	return response
}

// NewSubmissionResponseSlice maps a slice of models to DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, model := range models {
		responses = append(responses, NewSubmissionResponse(model))
	}
	return responses
}
