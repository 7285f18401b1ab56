package service

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edumark/edumark-api/internal/models"
	"github.com/edumark/edumark-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fakeSubmissionRepo struct {
	submissions map[uint]models.Submission
	updateCalls int
	updateErr   error
}

func newFakeSubmissionRepo(submissions ...models.Submission) *fakeSubmissionRepo {
	repo := &fakeSubmissionRepo{submissions: make(map[uint]models.Submission)}
	for _, submission := range submissions {
		repo.submissions[submission.ID] = submission
	}
	return repo
}

func (f *fakeSubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	result := make([]models.Submission, 0, len(f.submissions))
	for _, submission := range f.submissions {
		if filter.QuestionID != nil && submission.QuestionID != *filter.QuestionID {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		result = append(result, submission)
	}
	return result, nil
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	submission, ok := f.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == 0 {
		submission.ID = uint(len(f.submissions) + 1)
	}
	f.submissions[submission.ID] = *submission
	return nil
}

func (f *fakeSubmissionRepo) Update(ctx context.Context, submission *models.Submission) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateCalls++
	f.submissions[submission.ID] = *submission
	return nil
}

func (f *fakeSubmissionRepo) CountByQuestionAndEmail(ctx context.Context, questionID uint, email string) (int64, error) {
	count := int64(0)
	for _, submission := range f.submissions {
		if submission.QuestionID == questionID && submission.StudentEmail == email {
			count++
		}
	}
	return count, nil
}

func (f *fakeSubmissionRepo) CountByStatus(ctx context.Context) (repository.StatusCounts, error) {
	counts := make(repository.StatusCounts)
	for _, submission := range f.submissions {
		counts[submission.Status]++
	}
	return counts, nil
}

func (f *fakeSubmissionRepo) AverageFinalScore(ctx context.Context) (float64, error) {
	sum := 0
	count := 0
	for _, submission := range f.submissions {
		if grade, ok := submission.Grade(); ok {
			sum += grade.Score
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return float64(sum) / float64(count), nil
}

type fakeUserRepo struct {
	users map[uint]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint]models.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

type fakeQuestionRepo struct {
	questions map[uint]models.Question
}

func newFakeQuestionRepo(questions ...models.Question) *fakeQuestionRepo {
	repo := &fakeQuestionRepo{questions: make(map[uint]models.Question)}
	for _, question := range questions {
		repo.questions[question.ID] = question
	}
	return repo
}

func (f *fakeQuestionRepo) List(ctx context.Context, teacherID uint) ([]models.Question, error) {
	result := make([]models.Question, 0, len(f.questions))
	for _, question := range f.questions {
		if teacherID != 0 && question.TeacherID != teacherID {
			continue
		}
		result = append(result, question)
	}
	return result, nil
}

func (f *fakeQuestionRepo) GetByID(ctx context.Context, id uint) (models.Question, error) {
	question, ok := f.questions[id]
	if !ok {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (f *fakeQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	if question.ID == 0 {
		question.ID = uint(len(f.questions) + 1)
	}
	f.questions[question.ID] = *question
	return nil
}

func (f *fakeQuestionRepo) Delete(ctx context.Context, id uint) error {
	delete(f.questions, id)
	return nil
}
