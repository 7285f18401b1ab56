package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/edumark/edumark-api/internal/dto"
	"github.com/edumark/edumark-api/internal/repository"
)

// StatsService aggregates the grading queue for the teacher dashboard.
type StatsService interface {
	ReviewStats(ctx context.Context) (dto.ReviewStatsResponse, error)
}

type statsService struct {
	repo     repository.SubmissionRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewStatsService constructs the stats service. The cache is optional.
func NewStatsService(repo repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatsService {
	return &statsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "stats_service").Logger(),
	}
}

func (s *statsService) ReviewStats(ctx context.Context) (dto.ReviewStatsResponse, error) {
	const cacheKey = "edumark:stats:review"
	tracer := otel.Tracer("github.com/edumark/edumark-api/internal/service/stats")
	ctx, span := tracer.Start(ctx, "stats.review")
	span.SetAttributes(attribute.String("stats.cache_key", cacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.ReviewStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("stats.cache_hit", true))
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read stats cache")
			span.RecordError(err)
		}
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_by_status_failed")
		return dto.ReviewStatsResponse{}, err
	}

	average, err := s.repo.AverageFinalScore(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "average_score_failed")
		return dto.ReviewStatsResponse{}, err
	}

	total := int64(0)
	byStatus := make(map[string]int64, len(counts))
	for status, count := range counts {
		byStatus[status] = count
		total += count
	}

	stats := dto.ReviewStatsResponse{
		Total:             total,
		ByStatus:          byStatus,
		AverageFinalScore: average,
	}

	span.SetAttributes(attribute.Int64("stats.total_submissions", total))

	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store stats cache")
				span.RecordError(err)
			}
		}
	}

	return stats, nil
}
