package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/edumark/edumark-api/internal/models"
)

type fakeNotificationRepo struct {
	created []models.Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = uint(len(f.created) + 1)
	f.created = append(f.created, *notification)
	return nil
}

func (f *fakeNotificationRepo) ListByRecipient(ctx context.Context, recipient string, limit, offset int) ([]models.Notification, error) {
	result := make([]models.Notification, 0)
	for _, notification := range f.created {
		if notification.Recipient == recipient {
			result = append(result, notification)
		}
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id uint, recipient string) (models.Notification, error) {
	for i, notification := range f.created {
		if notification.ID == id && notification.Recipient == recipient {
			f.created[i].Read = true
			return f.created[i], nil
		}
	}
	return models.Notification{}, nil
}

func gradedSubmission() models.Submission {
	return models.Submission{
		ID:           3,
		QuestionID:   1,
		StudentName:  "Dewi",
		StudentEmail: "dewi@example.com",
		Status:       models.SubmissionStatusTeacherReview,
		AIEvaluation: models.NewJSON(models.AIEvaluation{Score: 45, Feedback: "<p>Report</p>", Attempts: 1}),
		Question: models.Question{
			ID:        1,
			TeacherID: 10,
			Title:     "Photosynthesis",
			Rubric:    datatypes.NewJSONType(models.Rubric{TotalMarks: 100}),
		},
	}
}

func TestNotifierReviewNeededAddressesTeacher(t *testing.T) {
	repo := &fakeNotificationRepo{}
	notifier := NewNotifier(repo, nil, "edumark", nil, testLogger())

	report := "<p>Good reasoning. (5/5 marks)</p>\n<p><strong>Total Score: 45/100</strong></p>"
	err := notifier.ReviewNeeded(context.Background(), gradedSubmission(), report)
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	require.Equal(t, "10", created.Recipient)
	require.Equal(t, models.NotificationTeacherReviewNeeded, created.Kind)
	require.Equal(t, uint(3), created.SubmissionID)
	require.Contains(t, created.Message, "45/100 on attempt 1")
	require.Contains(t, created.Message, "(5/5 marks)")
	require.NotContains(t, created.Message, "Total Score: 45/100")
}

func TestNotifierGradeFinalizedAddressesStudent(t *testing.T) {
	repo := &fakeNotificationRepo{}
	notifier := NewNotifier(repo, nil, "edumark", nil, testLogger())

	submission := gradedSubmission()
	submission.Status = models.SubmissionStatusAccepted
	submission.FinalGrade = models.NewJSON(models.FinalGrade{Score: 45, Feedback: "<p>Report</p>"})

	err := notifier.GradeFinalized(context.Background(), submission, "<p>Earned 5/5 marks on clarity.</p>", "Pak Budi")
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	require.Equal(t, "dewi@example.com", created.Recipient)
	require.Equal(t, models.NotificationGradeFinalized, created.Kind)
	require.Contains(t, created.Message, "graded by Pak Budi: 45/100")
	require.Contains(t, created.Message, "<mark>5/5 marks</mark>")
}

func TestNotifierBroadcastsToSubscribers(t *testing.T) {
	repo := &fakeNotificationRepo{}
	notifier := NewNotifier(repo, nil, "edumark", nil, testLogger())

	stream, cleanup := notifier.Subscribe("10")
	defer cleanup()

	err := notifier.ReviewNeeded(context.Background(), gradedSubmission(), "<p>Report</p>")
	require.NoError(t, err)

	select {
	case notification := <-stream:
		require.Equal(t, "10", notification.Recipient)
		require.Equal(t, models.NotificationTeacherReviewNeeded, notification.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a streamed notification")
	}
}

func TestNotifierMarkReadScopedToRecipient(t *testing.T) {
	repo := &fakeNotificationRepo{}
	notifier := NewNotifier(repo, nil, "edumark", nil, testLogger())

	require.NoError(t, notifier.ReviewNeeded(context.Background(), gradedSubmission(), "<p>Report</p>"))

	updated, err := notifier.MarkRead(context.Background(), 1, "10")
	require.NoError(t, err)
	require.True(t, updated.Read)
}
