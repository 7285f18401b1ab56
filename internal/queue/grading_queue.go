package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/edumark/edumark-api/internal/service"
)

const (
	workerQueueGroup   = "edumark-graders"
	defaultMaxAttempts = 3
	defaultJobTimeout  = 3 * time.Minute
	retryBackoff       = 5 * time.Second
)

// GradingJob is the message carried on the grading subject. Delivery is
// at-least-once; the workflow's per-submission lock absorbs duplicates.
type GradingJob struct {
	JobID        string    `json:"job_id"`
	SubmissionID uint      `json:"submission_id"`
	Attempt      int       `json:"attempt"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// GradingQueue publishes grading jobs and runs the consumer that drives them
// through the submission workflow.
type GradingQueue struct {
	nats        *nats.Conn
	subject     string
	workflow    service.SubmissionWorkflow
	logger      zerolog.Logger
	maxAttempts int
	jobTimeout  time.Duration
}

// New constructs a grading queue on the given subject.
func New(natsConn *nats.Conn, subject string, workflow service.SubmissionWorkflow, logger zerolog.Logger) *GradingQueue {
	return &GradingQueue{
		nats:        natsConn,
		subject:     subject,
		workflow:    workflow,
		logger:      logger.With().Str("component", "grading_queue").Logger(),
		maxAttempts: defaultMaxAttempts,
		jobTimeout:  defaultJobTimeout,
	}
}

// Enqueue publishes a first-attempt job for the submission.
func (q *GradingQueue) Enqueue(ctx context.Context, submissionID uint) error {
	return q.publish(GradingJob{
		JobID:        uuid.NewString(),
		SubmissionID: submissionID,
		Attempt:      1,
		EnqueuedAt:   time.Now().UTC(),
	})
}

func (q *GradingQueue) publish(job GradingJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.nats.Publish(q.subject, payload)
}

// Start subscribes the worker. Jobs are shared across nodes through the queue
// group; the subscription drains when ctx is cancelled.
func (q *GradingQueue) Start(ctx context.Context) error {
	sub, err := q.nats.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		q.handle(ctx, msg.Data)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			q.logger.Warn().Err(err).Msg("failed to drain grading subscription")
		}
	}()

	return nil
}

func (q *GradingQueue) handle(ctx context.Context, payload []byte) {
	var job GradingJob
	if err := json.Unmarshal(payload, &job); err != nil {
		q.logger.Warn().Err(err).Msg("invalid grading job payload")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	defer cancel()

	_, err := q.workflow.Process(jobCtx, job.SubmissionID)
	if err == nil {
		q.logger.Info().
			Str("job_id", job.JobID).
			Uint("submission_id", job.SubmissionID).
			Int("attempt", job.Attempt).
			Msg("grading job completed")
		return
	}

	if errors.Is(err, service.ErrSubmissionNotFound) || errors.Is(err, service.ErrGradingInFlight) {
		q.logger.Warn().Err(err).
			Str("job_id", job.JobID).
			Uint("submission_id", job.SubmissionID).
			Msg("grading job dropped")
		return
	}

	if job.Attempt >= q.maxAttempts {
		q.logger.Error().Err(err).
			Str("job_id", job.JobID).
			Uint("submission_id", job.SubmissionID).
			Int("attempt", job.Attempt).
			Msg("grading job exhausted retries")
		return
	}

	q.logger.Warn().Err(err).
		Str("job_id", job.JobID).
		Uint("submission_id", job.SubmissionID).
		Int("attempt", job.Attempt).
		Msg("grading job failed; retrying")

	job.Attempt++
	time.AfterFunc(retryBackoff, func() {
		if err := q.publish(job); err != nil {
			q.logger.Error().Err(err).Str("job_id", job.JobID).Msg("failed to re-enqueue grading job")
		}
	})
}
