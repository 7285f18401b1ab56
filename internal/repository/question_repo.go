package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edumark/edumark-api/internal/models"
)

// QuestionRepository defines data operations for questions.
type QuestionRepository interface {
	List(ctx context.Context, teacherID uint) ([]models.Question, error)
	GetByID(ctx context.Context, id uint) (models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) List(ctx context.Context, teacherID uint) ([]models.Question, error) {
	var questions []models.Question
	query := r.db.WithContext(ctx).Model(&models.Question{})
	if teacherID != 0 {
		query = query.Where("teacher_id = ?", teacherID)
	}
	if err := query.Order("created_at DESC").Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Question{}, id).Error
}
