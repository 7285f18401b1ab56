package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/edumark/edumark-api/internal/dto"
	"github.com/edumark/edumark-api/internal/grading"
	"github.com/edumark/edumark-api/internal/handler"
	"github.com/edumark/edumark-api/internal/service"
)

type stubSubmissionService struct {
	submission dto.SubmissionResponse
}

func (s stubSubmissionService) Submit(context.Context, dto.SubmissionCreateRequest, *multipart.FileHeader) (dto.SubmissionResponse, error) {
	return s.submission, nil
}

func (s stubSubmissionService) ListForReview(context.Context, dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	return []dto.SubmissionResponse{s.submission}, nil
}

func (s stubSubmissionService) GetForReview(context.Context, uint) (dto.SubmissionResponse, error) {
	return s.submission, nil
}

func (s stubSubmissionService) StudentStatus(context.Context, uint, string) (dto.SubmissionResponse, error) {
	return s.submission, nil
}

type stubWorkflow struct {
	submission dto.SubmissionResponse
}

func (s stubWorkflow) Process(context.Context, uint) (dto.SubmissionResponse, error) {
	return s.submission, nil
}

func (s stubWorkflow) Accept(context.Context, dto.AcceptGradeRequest, service.ReviewActor) (dto.SubmissionResponse, error) {
	return s.submission, nil
}

func (s stubWorkflow) Decline(context.Context, dto.DeclineGradeRequest, service.ReviewActor) (dto.SubmissionResponse, error) {
	return s.submission, nil
}

type stubStatsService struct {
	stats dto.ReviewStatsResponse
}

func (s stubStatsService) ReviewStats(context.Context) (dto.ReviewStatsResponse, error) {
	return s.stats, nil
}

func reviewedSubmission() dto.SubmissionResponse {
	now := time.Now().UTC()
	return dto.SubmissionResponse{
		ID:           7,
		QuestionID:   3,
		StudentName:  "Dewi",
		StudentEmail: "dewi@example.com",
		FileURL:      "https://cdn.example.com/answers/7.pdf",
		Status:       "teacher_review",
		SubmittedAt:  now.Add(-time.Hour),
		AIEvaluation: &dto.EvaluationResponse{
			Score:    45,
			Feedback: "<p>Solid reasoning. (5/5 marks)</p>",
			Breakdown: []grading.SectionScore{
				{Label: "Section 1", Score: 20, Max: 25},
				{Label: "Section 2", Score: 25, Max: 75},
			},
			GradedAt: now,
			Attempts: 1,
		},
		Question: dto.QuestionLite{ID: 3, Title: "Photosynthesis", MaxMarks: 100},
	}
}

func newReviewApp(t *testing.T) *fiber.App {
	t.Helper()

	submission := reviewedSubmission()
	reviewHandler := handler.NewReviewHandler(
		stubSubmissionService{submission: submission},
		stubWorkflow{submission: submission},
		stubStatsService{stats: dto.ReviewStatsResponse{
			Total:             3,
			ByStatus:          map[string]int64{"teacher_review": 2, "accepted": 1},
			AverageFinalScore: 71.5,
			CacheHit:          true,
		}},
		zerolog.Nop(),
	)

	app := fiber.New()
	reviewHandler.Register(app.Group("/api/v1/teacher/submissions"))
	return app
}

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func TestReviewStatsContract(t *testing.T) {
	app := newReviewApp(t)
	schema := compileSchema(t, "review_stats.schema.json")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/teacher/submissions/stats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestReviewSubmissionContract(t *testing.T) {
	app := newReviewApp(t)
	schema := compileSchema(t, "review_submission.schema.json")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/teacher/submissions/7", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
