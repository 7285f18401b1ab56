package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "edumark",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of evaluator requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edumark",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of evaluator request failures",
	}, []string{"model"})
)

// Grading reports must be reproducible for a given submission, so requests
// pin a sampling seed and near-zero temperature.
const (
	defaultSeed        = 12345
	defaultTemperature = 0.1
)

// OpenAIConfig defines configuration options for the OpenAI evaluator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Seed        int
	Logger      zerolog.Logger
}

// OpenAIEvaluator implements Evaluator against the OpenAI chat completion API.
type OpenAIEvaluator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}

	if cfg.Seed == 0 {
		cfg.Seed = defaultSeed
	}

	tracer := otel.Tracer("github.com/edumark/edumark-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIEvaluator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Evaluate sends the grading prompt to OpenAI and returns the raw completion.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = e.cfg.Model
	}

	ctx, span := e.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	seed := e.cfg.Seed
	request := openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Seed:        &seed,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai evaluate: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
