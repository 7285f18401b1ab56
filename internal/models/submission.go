package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/edumark/edumark-api/internal/grading"
)

// Submission statuses persisted in the database. These values are a stored
// contract; do not rename them.
const (
	SubmissionStatusPending       = "pending"
	SubmissionStatusGrading       = "grading"
	SubmissionStatusTeacherReview = "teacher_review"
	SubmissionStatusAccepted      = "accepted"
	SubmissionStatusDeclined      = "declined"
	SubmissionStatusRegrading     = "regrading"
)

// Review decisions recorded on a teacher review.
const (
	ReviewDecisionAccepted = "accepted"
	ReviewDecisionDeclined = "declined"
)

// AIEvaluation is the machine grading attached to a submission. It is
// regenerated on every decline; only the final grade is set-once.
type AIEvaluation struct {
	Score     int                    `json:"score"`
	Feedback  string                 `json:"feedback"`
	Breakdown []grading.SectionScore `json:"breakdown"`
	GradedAt  time.Time              `json:"graded_at"`
	Attempts  int                    `json:"attempts"`
}

// TeacherReview records the most recent reviewer decision.
type TeacherReview struct {
	ReviewedBy uint      `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
	Decision   string    `json:"decision"`
	Notes      string    `json:"notes,omitempty"`
}

// FinalGrade is the accepted grade released to the student. Set once.
type FinalGrade struct {
	Score        int       `json:"score"`
	Feedback     string    `json:"feedback"`
	GradedAt     time.Time `json:"graded_at"`
	TeacherNotes string    `json:"teacher_notes,omitempty"`
}

// Submission is a student's answer to a question, together with the grading
// lifecycle state attached to it.
type Submission struct {
	ID            uint                               `gorm:"primaryKey" json:"id"`
	QuestionID    uint                               `gorm:"not null;index" json:"question_id"`
	StudentName   string                             `gorm:"size:255;not null" json:"student_name"`
	StudentEmail  string                             `gorm:"size:255;not null" json:"student_email"`
	FileURL       string                             `gorm:"size:512" json:"file_url"`
	FileName      string                             `gorm:"size:255" json:"file_name"`
	Content       string                             `gorm:"type:text" json:"content"`
	Status        string                             `gorm:"size:32;not null;index" json:"status"`
	AIEvaluation  *datatypes.JSONType[AIEvaluation]  `json:"ai_evaluation,omitempty"`
	TeacherReview *datatypes.JSONType[TeacherReview] `json:"teacher_review,omitempty"`
	FinalGrade    *datatypes.JSONType[FinalGrade]    `json:"final_grade,omitempty"`
	SubmittedAt   time.Time                          `json:"submitted_at"`
	CreatedAt     time.Time                          `json:"created_at"`
	UpdatedAt     time.Time                          `json:"updated_at"`
	Question      Question                           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
}

// NewJSON wraps a value for storage in one of the JSON columns above.
func NewJSON[T any](value T) *datatypes.JSONType[T] {
	wrapped := datatypes.NewJSONType(value)
	return &wrapped
}

// Evaluation returns the current AI evaluation, if any.
func (s Submission) Evaluation() (AIEvaluation, bool) {
	if s.AIEvaluation == nil {
		return AIEvaluation{}, false
	}
	return s.AIEvaluation.Data(), true
}

// Grade returns the final grade, if the submission has been accepted.
func (s Submission) Grade() (FinalGrade, bool) {
	if s.FinalGrade == nil {
		return FinalGrade{}, false
	}
	return s.FinalGrade.Data(), true
}

// IsFinalized reports whether a final grade has been released.
func (s Submission) IsFinalized() bool {
	_, ok := s.Grade()
	return ok
}
