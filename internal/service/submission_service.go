package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
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
	"github.com/edumark/edumark-api/pkg/extract"
)

var (
	// ErrSubmissionTooLarge indicates the uploaded answer exceeded the limit.
	ErrSubmissionTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrDeadlinePassed indicates the question no longer accepts submissions.
	ErrDeadlinePassed = errors.New("submission deadline has passed")
	// ErrAttemptsExhausted indicates the student hit the question's attempt cap.
	ErrAttemptsExhausted = errors.New("maximum submission attempts reached")
	// ErrEmptyAnswer indicates no usable text came out of the uploaded file.
	ErrEmptyAnswer = errors.New("submission contains no extractable text")
)

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// GradingEnqueuer hands a submission to the asynchronous grading pipeline.
type GradingEnqueuer interface {
	Enqueue(ctx context.Context, submissionID uint) error
}

// SubmissionService handles student intake and audience-filtered reads.
// Teachers see evaluations with stated totals stripped; students see nothing
// until a grade is finalized, then the student-rendered report.
type SubmissionService interface {
	Submit(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	ListForReview(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	GetForReview(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	StudentStatus(ctx context.Context, id uint, email string) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	storage     FileStorage
	extractor   extract.Extractor
	enqueuer    GradingEnqueuer
	formatter   *grading.StudentFormatter
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	maxSize     int64
	now         func() time.Time
}

// NewSubmissionService constructs a submission service.
func NewSubmissionService(submissionRepo repository.SubmissionRepository, questionRepo repository.QuestionRepository, storage FileStorage, extractor extract.Extractor, enqueuer GradingEnqueuer, maxSizeMB int, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &submissionService{
		submissions: submissionRepo,
		questions:   questionRepo,
		storage:     storage,
		extractor:   extractor,
		enqueuer:    enqueuer,
		formatter:   grading.NewStudentFormatter(),
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/edumark/edumark-api/internal/service/submission"),
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submissions.submit")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.SubmissionResponse{}, err
	}

	// Attempt counting and the stored row must agree on the address, or a
	// case-shuffled resubmission slips past the cap.
	studentEmail := strings.ToLower(strings.TrimSpace(payload.StudentEmail))

	if file == nil {
		err := errors.New("answer file is required")
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}
	if file.Size > s.maxSize {
		span.RecordError(ErrSubmissionTooLarge)
		return dto.SubmissionResponse{}, ErrSubmissionTooLarge
	}

	span.SetAttributes(
		attribute.Int64("submission.question_id", int64(payload.QuestionID)),
		attribute.String("submission.file_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("submission.file_size", file.Size),
	)

	question, err := s.questions.GetByID(ctx, payload.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrQuestionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submittedAt := s.now()
	if !question.AcceptsSubmissionAt(submittedAt) {
		span.RecordError(ErrDeadlinePassed)
		return dto.SubmissionResponse{}, ErrDeadlinePassed
	}

	if maxAttempts := question.Settings.Data().MaxAttempts; maxAttempts > 0 {
		count, err := s.submissions.CountByQuestionAndEmail(ctx, question.ID, studentEmail)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		if count >= int64(maxAttempts) {
			span.RecordError(ErrAttemptsExhausted)
			return dto.SubmissionResponse{}, ErrAttemptsExhausted
		}
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		span.RecordError(ErrSubmissionTooLarge)
		return dto.SubmissionResponse{}, ErrSubmissionTooLarge
	}

	content, err := s.extractor.Extract(file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return dto.SubmissionResponse{}, err
	}
	if strings.TrimSpace(content) == "" {
		span.RecordError(ErrEmptyAnswer)
		return dto.SubmissionResponse{}, ErrEmptyAnswer
	}

	fileURL := ""
	if s.storage != nil {
		fileURL, err = s.storage.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "storage failed")
			return dto.SubmissionResponse{}, err
		}
	}

	submission := models.Submission{
		QuestionID:   question.ID,
		StudentName:  payload.StudentName,
		StudentEmail: studentEmail,
		FileURL:      fileURL,
		FileName:     file.Filename,
		Content:      content,
		Status:       models.SubmissionStatusPending,
		SubmittedAt:  submittedAt,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if err := s.enqueuer.Enqueue(ctx, submission.ID); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to enqueue grading job; submission stays pending")
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("question_id", question.ID).
		Str("student_email", submission.StudentEmail).
		Msg("submission received")

	submission.Question = question
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) ListForReview(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		QuestionID: filter.QuestionID,
		Status:     filter.Status,
	})
	if err != nil {
		return nil, err
	}

	responses := dto.NewSubmissionResponseSlice(submissions)
	for i := range responses {
		filterForTeacher(&responses[i])
	}
	return responses, nil
}

func (s *submissionService) GetForReview(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	response := dto.NewSubmissionResponse(submission)
	filterForTeacher(&response)
	return response, nil
}

// StudentStatus returns a submission to the student who made it. The AI
// evaluation is never exposed; the final grade appears only once accepted,
// with its feedback rendered for students.
func (s *submissionService) StudentStatus(ctx context.Context, id uint, email string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !strings.EqualFold(submission.StudentEmail, strings.TrimSpace(email)) {
		return dto.SubmissionResponse{}, ErrSubmissionNotFound
	}

	response := dto.NewSubmissionResponse(submission)
	response.AIEvaluation = nil
	if response.FinalGrade != nil {
		response.FinalGrade.Feedback = s.formatter.Render(response.FinalGrade.Feedback)
	}
	return response, nil
}

// filterForTeacher strips stated totals out of evaluator feedback so the
// reviewer reads the reasoning before the number.
func filterForTeacher(response *dto.SubmissionResponse) {
	if response.AIEvaluation != nil {
		response.AIEvaluation.Feedback = grading.TeacherView(response.AIEvaluation.Feedback)
	}
}
