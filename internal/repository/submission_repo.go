package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/edumark/edumark-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	QuestionID *uint
	Status     *string
}

// StatusCounts aggregates submissions per lifecycle status.
type StatusCounts map[string]int64

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	CountByQuestionAndEmail(ctx context.Context, questionID uint, email string) (int64, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
	AverageFinalScore(ctx context.Context) (float64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Question").
		Preload("Question.Teacher")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.QuestionID != nil {
		query = query.Where("question_id = ?", *filter.QuestionID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) CountByQuestionAndEmail(ctx context.Context, questionID uint, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("question_id = ?", questionID).
		Where("student_email = ?", email).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) CountByStatus(ctx context.Context) (StatusCounts, error) {
	type row struct {
		Status string
		Total  int64
	}

	var rows []row
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(StatusCounts, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}

	return counts, nil
}

// AverageFinalScore averages accepted submissions' final scores. Final grades
// live in a JSON column, so the aggregation walks accepted rows in Go rather
// than relying on database-specific JSON operators.
func (r *submissionRepository) AverageFinalScore(ctx context.Context) (float64, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("status = ?", models.SubmissionStatusAccepted).
		Find(&submissions).Error; err != nil {
		return 0, err
	}

	if len(submissions) == 0 {
		return 0, nil
	}

	var sum int
	var graded int
	for _, submission := range submissions {
		if grade, ok := submission.Grade(); ok {
			sum += grade.Score
			graded++
		}
	}

	if graded == 0 {
		return 0, nil
	}

	return float64(sum) / float64(graded), nil
}
