package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/edumark/edumark-api/internal/dto"
	"github.com/edumark/edumark-api/internal/grading"
	"github.com/edumark/edumark-api/internal/models"
	"github.com/edumark/edumark-api/internal/observability"
	"github.com/edumark/edumark-api/internal/repository"
)

const notificationBufferSize = 16

// Notifier persists workflow notifications and streams them to connected
// clients via SSE. Teachers are addressed by user id, students by the email
// they submitted with.
type Notifier interface {
	ReviewNeeded(ctx context.Context, submission models.Submission, report string) error
	GradeFinalized(ctx context.Context, submission models.Submission, report string, teacherName string) error
	List(ctx context.Context, recipient string, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id uint, recipient string) (dto.NotificationResponse, error)
	Subscribe(recipient string) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notifier struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	formatter   *grading.StudentFormatter
	logger      zerolog.Logger
	tracer      trace.Tracer
	broker      *notificationBroker
	nodeID      string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.NotificationResponse]struct{}
}

// NewNotifier constructs the notifier. Redis and NATS are both optional;
// without them notifications still persist and reach local SSE subscribers.
func NewNotifier(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) Notifier {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notifier{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		formatter:   grading.NewStudentFormatter(),
		logger:      logger.With().Str("component", "notifier").Logger(),
		tracer:      otel.Tracer("github.com/edumark/edumark-api/internal/service/notifier"),
		broker: &notificationBroker{
			subscribers: make(map[string]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (n *notifier) Start(ctx context.Context) {
	if n.redis != nil && n.redisStream != "" {
		go n.consumeRedis(ctx)
	}
	if n.nats != nil && n.natsSubject != "" {
		go n.consumeNATS(ctx)
	}
}

// ReviewNeeded tells the question's teacher a freshly graded submission is
// waiting. The report is the teacher view: stated totals stripped so the
// reviewer judges the reasoning, not the number.
func (n *notifier) ReviewNeeded(ctx context.Context, submission models.Submission, report string) error {
	evaluation, ok := submission.Evaluation()
	if !ok {
		return errors.New("submission has no evaluation to review")
	}

	subject := fmt.Sprintf("Submission from %s needs review", submission.StudentName)
	message := fmt.Sprintf(
		"%s submitted an answer for %q. The AI scored it %d/%d on attempt %d.\n\n%s",
		submission.StudentName,
		submission.Question.Title,
		evaluation.Score,
		submission.Question.MaxMarks(),
		evaluation.Attempts,
		grading.TeacherView(report),
	)

	return n.deliver(ctx, models.Notification{
		Recipient:    strconv.FormatUint(uint64(submission.Question.TeacherID), 10),
		Kind:         models.NotificationTeacherReviewNeeded,
		SubmissionID: submission.ID,
		Subject:      subject,
		Message:      message,
	})
}

// GradeFinalized tells the student their grade is in. The report is rendered
// with the student formatter before it leaves the system.
func (n *notifier) GradeFinalized(ctx context.Context, submission models.Submission, report string, teacherName string) error {
	grade, ok := submission.Grade()
	if !ok {
		return errors.New("submission has no final grade")
	}

	subject := fmt.Sprintf("Your grade for %q is ready", submission.Question.Title)
	message := fmt.Sprintf(
		"Hi %s, your submission has been graded by %s: %d/%d.\n\n%s",
		submission.StudentName,
		teacherName,
		grade.Score,
		submission.Question.MaxMarks(),
		n.formatter.Render(report),
	)

	return n.deliver(ctx, models.Notification{
		Recipient:    submission.StudentEmail,
		Kind:         models.NotificationGradeFinalized,
		SubmissionID: submission.ID,
		Subject:      subject,
		Message:      message,
	})
}

func (n *notifier) deliver(ctx context.Context, model models.Notification) error {
	attrs := []attribute.KeyValue{
		attribute.String("notification.recipient", model.Recipient),
		attribute.String("notification.kind", model.Kind),
	}

	spanCtx, span := n.tracer.Start(ctx, "notifications.deliver", trace.WithAttributes(attrs...))
	defer span.End()

	if err := n.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return err
	}

	response := dto.NewNotificationResponse(model)
	n.broker.broadcast(response.Recipient, response)
	if err := n.publish(spanCtx, response); err != nil {
		n.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}

	observability.NotificationsPublishedTotal().WithLabelValues(response.Kind).Inc()

	return nil
}

func (n *notifier) List(ctx context.Context, recipient string, limit, offset int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(recipient) == "" {
		return nil, errors.New("recipient is required")
	}

	notifications, err := n.repo.ListByRecipient(ctx, recipient, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (n *notifier) MarkRead(ctx context.Context, id uint, recipient string) (dto.NotificationResponse, error) {
	spanCtx, span := n.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.String("notification.recipient", recipient),
	))
	defer span.End()

	notification, err := n.repo.MarkRead(spanCtx, id, recipient)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (n *notifier) Subscribe(recipient string) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	n.broker.subscribe(recipient, channel)
	observability.SSEClientsActive().Inc()

	cleanup := func() {
		n.broker.unsubscribe(recipient, channel)
		observability.SSEClientsActive().Dec()
	}

	return channel, cleanup
}

func (n *notifier) publish(ctx context.Context, notification dto.NotificationResponse) error {
	event := notificationEvent{
		Source:       n.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if n.redis != nil && n.redisStream != "" {
		if err := n.redis.Publish(ctx, n.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if n.nats != nil && n.natsSubject != "" {
		if err := n.nats.Publish(n.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (n *notifier) consumeRedis(ctx context.Context) {
	pubsub := n.redis.Subscribe(ctx, n.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			n.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		n.handleEvent([]byte(msg.Payload))
	}
}

func (n *notifier) consumeNATS(ctx context.Context) {
	sub, err := n.nats.QueueSubscribe(n.natsSubject, "edumark-notifications", func(msg *nats.Msg) {
		n.handleEvent(msg.Data)
	})
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			n.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (n *notifier) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		n.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == n.nodeID {
		return
	}

	n.broker.broadcast(event.Notification.Recipient, event.Notification)
}

func (b *notificationBroker) subscribe(recipient string, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[recipient]; !exists {
		b.subscribers[recipient] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[recipient][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(recipient string, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[recipient]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, recipient)
		}
	}
}

func (b *notificationBroker) broadcast(recipient string, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers := b.subscribers[recipient]
	for ch := range subscribers {
		select {
		case ch <- notification:
		default:
		}
	}
}
