package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/edumark/edumark-api/internal/grading"
	"github.com/edumark/edumark-api/internal/observability"
	"github.com/edumark/edumark-api/internal/repository"
	"github.com/edumark/edumark-api/pkg/ai"
)

// ErrQuestionNotFound indicates the question cannot be located.
var ErrQuestionNotFound = errors.New("question not found")

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrEvaluatorUnavailable indicates no evaluator is configured.
var ErrEvaluatorUnavailable = errors.New("evaluator unavailable")

// GradingService assembles the grading prompt for a submission, invokes the
// external evaluator once, and parses the returned report. It performs no
// state transitions; that is the workflow's job.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint, regrade *grading.RegradeContext) (grading.Result, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	evaluator   ai.Evaluator
	parser      grading.ReportParser
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGradingService constructs the grading service.
func NewGradingService(submissionRepo repository.SubmissionRepository, questionRepo repository.QuestionRepository, evaluator ai.Evaluator, parser grading.ReportParser, logger zerolog.Logger) GradingService {
	if parser == nil {
		parser = grading.NewMarkupReportParser()
	}

	return &gradingService{
		submissions: submissionRepo,
		questions:   questionRepo,
		evaluator:   evaluator,
		parser:      parser,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/edumark/edumark-api/internal/service/grading"),
	}
}

func (s *gradingService) Grade(ctx context.Context, submissionID uint, regrade *grading.RegradeContext) (grading.Result, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Bool("grading.regrade", regrade != nil),
	))
	defer span.End()

	if s.evaluator == nil {
		return grading.Result{}, ErrEvaluatorUnavailable
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return grading.Result{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return grading.Result{}, err
	}

	question, err := s.questions.GetByID(ctx, submission.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "question_not_found")
			return grading.Result{}, ErrQuestionNotFound
		}
		span.RecordError(err)
		return grading.Result{}, err
	}

	maxMarks := question.MaxMarks()
	prompt := grading.BuildGradingPrompt(grading.PromptInput{
		MarkingScheme: question.Rubric.Data().MarkingScheme(),
		StudentAnswer: submission.Content,
		MaxMarks:      maxMarks,
		Regrade:       regrade,
	})

	start := time.Now()
	report, err := s.evaluator.Evaluate(ctx, ai.Request{Model: question.AIModel, Prompt: prompt})
	observability.GradingDuration().Observe(time.Since(start).Seconds())
	if err != nil {
		observability.GradingsTotal().WithLabelValues("evaluator_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluator_failed")
		return grading.Result{}, err
	}

	result := s.parser.Parse(report, maxMarks)
	if result.LowConfidence() {
		observability.ParseLowConfidenceTotal().Inc()
		s.logger.Warn().
			Uint("submission_id", submissionID).
			Msg("report yielded no numeric signal; storing zero score")
	}

	observability.GradingsTotal().WithLabelValues("completed").Inc()
	span.SetAttributes(
		attribute.Int("grading.score", result.Score),
		attribute.Int("grading.sections", len(result.Breakdown)),
	)

	s.logger.Info().
		Uint("submission_id", submissionID).
		Int("score", result.Score).
		Int("max_marks", maxMarks).
		Int("sections", len(result.Breakdown)).
		Msg("submission graded")

	return result, nil
}
