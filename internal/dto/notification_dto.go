package dto

import (
	"time"

	"github.com/edumark/edumark-api/internal/models"
)

// NotificationResponse serializes a stored notification.
type NotificationResponse struct {
	ID           uint      `json:"id"`
	Recipient    string    `json:"recipient"`
	Kind         string    `json:"kind"`
	SubmissionID uint      `json:"submission_id"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewNotificationResponse converts a Notification model into a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:           model.ID,
		Recipient:    model.Recipient,
		Kind:         model.Kind,
		SubmissionID: model.SubmissionID,
		Subject:      model.Subject,
		Message:      model.Message,
		Read:         model.Read,
		CreatedAt:    model.CreatedAt,
	}
}

// NewNotificationResponseSlice maps a slice of models to DTOs.
func NewNotificationResponseSlice(models []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(models))
	for _, model := range models {
		responses = append(responses, NewNotificationResponse(model))
	}
	return responses
}
