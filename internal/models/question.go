package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// RubricCriterion is a single gradeable point inside a rubric section.
type RubricCriterion struct {
	Description string `json:"description"`
	Marks       int    `json:"marks"`
	Guidance    string `json:"guidance,omitempty"`
}

// RubricSection groups criteria under a named heading with a section maximum.
type RubricSection struct {
	Name       string            `json:"name"`
	TotalMarks int               `json:"total_marks"`
	Criteria   []RubricCriterion `json:"criteria"`
}

// Rubric is the grading specification attached to a question.
type Rubric struct {
	TotalMarks          int             `json:"total_marks"`
	Sections            []RubricSection `json:"sections"`
	GradingInstructions string          `json:"grading_instructions"`
}

// QuestionSettings controls submission acceptance and review behaviour.
type QuestionSettings struct {
	Deadline             *time.Time `json:"deadline,omitempty"`
	AllowLateSubmissions bool       `json:"allow_late_submissions"`
	MaxAttempts          int        `json:"max_attempts"`
	RequireTeacherReview bool       `json:"require_teacher_review"`
}

// MarkingScheme renders the rubric as the text block embedded in the grading
// prompt: structured sections and criteria first, free-text instructions last.
func (r Rubric) MarkingScheme() string {
	var b strings.Builder

	for i, section := range r.Sections {
		fmt.Fprintf(&b, "Section %d: %s (%d marks)\n", i+1, section.Name, section.TotalMarks)
		for _, criterion := range section.Criteria {
			fmt.Fprintf(&b, "- %s (%d marks)", criterion.Description, criterion.Marks)
			if criterion.Guidance != "" {
				fmt.Fprintf(&b, " [Guidance: %s]", criterion.Guidance)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if r.GradingInstructions != "" {
		b.WriteString(r.GradingInstructions)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

// Question is an assignment authored by a teacher, graded against its rubric.
type Question struct {
	ID          uint                                     `gorm:"primaryKey" json:"id"`
	TeacherID   uint                                     `gorm:"not null;index" json:"teacher_id"`
	Title       string                                   `gorm:"size:255;not null" json:"title"`
	Description string                                   `gorm:"type:text" json:"description"`
	Rubric      datatypes.JSONType[Rubric]               `json:"rubric"`
	AIModel     string                                   `gorm:"size:64" json:"ai_model"`
	Settings    datatypes.JSONType[QuestionSettings]     `json:"settings"`
	CreatedAt   time.Time                                `json:"created_at"`
	UpdatedAt   time.Time                                `json:"updated_at"`
	Teacher     User                                     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher"`
}

// MaxMarks returns the rubric total, defaulting to 100 when unset.
func (q Question) MaxMarks() int {
	if total := q.Rubric.Data().TotalMarks; total > 0 {
		return total
	}
	return 100
}

// AcceptsSubmissionAt reports whether a submission arriving at the given time
// is allowed by the question's deadline settings.
func (q Question) AcceptsSubmissionAt(at time.Time) bool {
	settings := q.Settings.Data()
	if settings.Deadline == nil {
		return true
	}
	if at.Before(*settings.Deadline) || at.Equal(*settings.Deadline) {
		return true
	}
	return settings.AllowLateSubmissions
}
