package models

import "time"

// Notification kinds emitted by the grading workflow. Stored contract values.
const (
	NotificationTeacherReviewNeeded = "teacher_review_needed"
	NotificationGradeFinalized      = "grade_finalized"
)

// Notification is a persisted outbound message tied to a submission event.
// Recipient is an email address for students and a user id for teachers.
type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Recipient    string    `gorm:"size:255;index" json:"recipient"`
	Kind         string    `gorm:"size:64;not null" json:"kind"`
	SubmissionID uint      `gorm:"index" json:"submission_id"`
	Subject      string    `gorm:"size:255" json:"subject"`
	Message      string    `gorm:"type:text" json:"message"`
	Read         bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
