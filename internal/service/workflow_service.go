package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/edumark/edumark-api/internal/dto"
	"github.com/edumark/edumark-api/internal/grading"
	"github.com/edumark/edumark-api/internal/models"
	"github.com/edumark/edumark-api/internal/repository"
)

// ErrUserNotFound indicates the reviewing user cannot be located.
var ErrUserNotFound = errors.New("user not found")

// ErrNotReviewer indicates the caller lacks the teacher role.
var ErrNotReviewer = errors.New("caller is not a reviewer")

// ErrGradingInFlight indicates a grading pass is already running for the
// submission. At most one pipeline may run per submission at a time.
var ErrGradingInFlight = errors.New("grading already in flight for submission")

// ErrAlreadyFinalized indicates the submission's final grade is already set.
var ErrAlreadyFinalized = errors.New("final grade already set")

// ErrNotAwaitingReview indicates the submission is not in teacher_review.
var ErrNotAwaitingReview = errors.New("submission is not awaiting review")

// ReviewActor identifies the authenticated caller of a review operation.
type ReviewActor struct {
	ID   uint
	Role string
}

// SubmissionWorkflow drives a submission through its grading lifecycle:
// pending -> grading -> teacher_review -> accepted, with declines looping
// through regrading back into teacher_review.
type SubmissionWorkflow interface {
	Process(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error)
	Accept(ctx context.Context, payload dto.AcceptGradeRequest, actor ReviewActor) (dto.SubmissionResponse, error)
	Decline(ctx context.Context, payload dto.DeclineGradeRequest, actor ReviewActor) (dto.SubmissionResponse, error)
}

type submissionWorkflow struct {
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	grader      GradingService
	notifier    Notifier
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	locks       *submissionLocks
	now         func() time.Time
}

// NewSubmissionWorkflow constructs the workflow orchestrator.
func NewSubmissionWorkflow(submissionRepo repository.SubmissionRepository, userRepo repository.UserRepository, grader GradingService, notifier Notifier, validate *validator.Validate, logger zerolog.Logger) SubmissionWorkflow {
	return &submissionWorkflow{
		submissions: submissionRepo,
		users:       userRepo,
		grader:      grader,
		notifier:    notifier,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_workflow").Logger(),
		tracer:      otel.Tracer("github.com/edumark/edumark-api/internal/service/workflow"),
		locks:       newSubmissionLocks(),
		now:         time.Now,
	}
}

// Process runs the initial grading pass: pending -> grading -> teacher_review.
// A failure after the transition to grading leaves the submission there; the
// queue worker owns retries.
func (w *submissionWorkflow) Process(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.process", trace.WithAttributes(
		attribute.Int64("submission_id", int64(submissionID)),
	))
	defer span.End()

	if !w.locks.acquire(submissionID) {
		return dto.SubmissionResponse{}, ErrGradingInFlight
	}
	defer w.locks.release(submissionID)

	submission, err := w.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	// Queue delivery is at-least-once; a duplicate arriving after the
	// pipeline finished must not restart it.
	switch submission.Status {
	case models.SubmissionStatusPending, models.SubmissionStatusGrading:
	default:
		return dto.NewSubmissionResponse(submission), nil
	}

	submission.Status = models.SubmissionStatusGrading
	submission.AIEvaluation = nil
	if err := w.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	result, err := w.grader.Grade(ctx, submissionID, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading_failed")
		w.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("grading pass failed; submission left in grading")
		return dto.SubmissionResponse{}, err
	}

	evaluation := models.AIEvaluation{
		Score:     result.Score,
		Feedback:  result.Feedback,
		Breakdown: result.Breakdown,
		GradedAt:  w.now(),
		Attempts:  1,
	}

	submission.Status = models.SubmissionStatusTeacherReview
	submission.AIEvaluation = models.NewJSON(evaluation)
	if err := w.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	w.notifyReviewNeeded(ctx, submission, result.Feedback)

	w.logger.Info().
		Uint("submission_id", submissionID).
		Int("score", result.Score).
		Msg("submission awaiting teacher review")

	return dto.NewSubmissionResponse(submission), nil
}

// Accept finalizes the current AI evaluation as the student's grade. The
// final grade is set once; repeat calls are rejected.
func (w *submissionWorkflow) Accept(ctx context.Context, payload dto.AcceptGradeRequest, actor ReviewActor) (dto.SubmissionResponse, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.accept", trace.WithAttributes(
		attribute.Int64("submission_id", int64(payload.SubmissionID)),
		attribute.Int64("actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := w.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	teacher, err := w.requireReviewer(ctx, actor)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !w.locks.acquire(payload.SubmissionID) {
		return dto.SubmissionResponse{}, ErrGradingInFlight
	}
	defer w.locks.release(payload.SubmissionID)

	submission, err := w.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.IsFinalized() {
		return dto.SubmissionResponse{}, ErrAlreadyFinalized
	}

	evaluation, ok := submission.Evaluation()
	if !ok || submission.Status != models.SubmissionStatusTeacherReview {
		return dto.SubmissionResponse{}, ErrNotAwaitingReview
	}

	grade := models.FinalGrade{
		Score:        evaluation.Score,
		Feedback:     evaluation.Feedback,
		GradedAt:     w.now(),
		TeacherNotes: payload.Notes,
	}

	submission.Status = models.SubmissionStatusAccepted
	submission.FinalGrade = models.NewJSON(grade)
	if err := w.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	w.notifyGradeFinalized(ctx, submission, evaluation.Feedback, teacher.Name)

	w.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("teacher_id", actor.ID).
		Int("score", grade.Score).
		Msg("grade accepted and finalized")

	return dto.NewSubmissionResponse(submission), nil
}

// Decline rejects the current AI evaluation and immediately re-grades with
// the teacher's objection as evaluator context, looping the submission back
// into teacher_review. The final grade is never touched.
func (w *submissionWorkflow) Decline(ctx context.Context, payload dto.DeclineGradeRequest, actor ReviewActor) (dto.SubmissionResponse, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.decline", trace.WithAttributes(
		attribute.Int64("submission_id", int64(payload.SubmissionID)),
		attribute.Int64("actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := w.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if _, err := w.requireReviewer(ctx, actor); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !w.locks.acquire(payload.SubmissionID) {
		return dto.SubmissionResponse{}, ErrGradingInFlight
	}
	defer w.locks.release(payload.SubmissionID)

	submission, err := w.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.IsFinalized() {
		return dto.SubmissionResponse{}, ErrAlreadyFinalized
	}

	previous, ok := submission.Evaluation()
	if !ok || submission.Status != models.SubmissionStatusTeacherReview {
		return dto.SubmissionResponse{}, ErrNotAwaitingReview
	}

	attempts := previous.Attempts + 1
	review := models.TeacherReview{
		ReviewedBy: actor.ID,
		ReviewedAt: w.now(),
		Decision:   models.ReviewDecisionDeclined,
		Notes:      payload.Reason,
	}

	submission.Status = models.SubmissionStatusRegrading
	submission.TeacherReview = models.NewJSON(review)
	if err := w.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	result, err := w.grader.Grade(ctx, submission.ID, &grading.RegradeContext{
		TeacherFeedback:  payload.Reason,
		PreviousScore:    previous.Score,
		PreviousFeedback: previous.Feedback,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "regrading_failed")
		w.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("re-grade failed; submission left in regrading")
		return dto.SubmissionResponse{}, err
	}

	evaluation := models.AIEvaluation{
		Score:     result.Score,
		Feedback:  result.Feedback,
		Breakdown: result.Breakdown,
		GradedAt:  w.now(),
		Attempts:  attempts,
	}

	submission.Status = models.SubmissionStatusTeacherReview
	submission.AIEvaluation = models.NewJSON(evaluation)
	if err := w.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	w.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("teacher_id", actor.ID).
		Int("attempt", attempts).
		Int("score", result.Score).
		Msg("submission re-graded after decline")

	return dto.NewSubmissionResponse(submission), nil
}

func (w *submissionWorkflow) requireReviewer(ctx context.Context, actor ReviewActor) (models.User, error) {
	user, err := w.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	if !user.IsReviewer() {
		return models.User{}, ErrNotReviewer
	}

	return user, nil
}

// Notification dispatch is best-effort: a failure is logged and never rolls
// back a transition that already happened.
func (w *submissionWorkflow) notifyReviewNeeded(ctx context.Context, submission models.Submission, report string) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.ReviewNeeded(ctx, submission, report); err != nil {
		w.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to notify teacher")
	}
}

func (w *submissionWorkflow) notifyGradeFinalized(ctx context.Context, submission models.Submission, report string, teacherName string) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.GradeFinalized(ctx, submission, report, teacherName); err != nil {
		w.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to notify student")
	}
}

// submissionLocks serializes grading pipelines per submission id. Acquire is
// try-only: a second concurrent pipeline is rejected, not queued.
type submissionLocks struct {
	mu   sync.Mutex
	held map[uint]struct{}
}

func newSubmissionLocks() *submissionLocks {
	return &submissionLocks{held: make(map[uint]struct{})}
}

func (l *submissionLocks) acquire(id uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[id]; taken {
		return false
	}
	l.held[id] = struct{}{}
	return true
}

func (l *submissionLocks) release(id uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
}
