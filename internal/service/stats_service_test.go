package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/edumark/edumark-api/internal/models"
)

func TestStatsServiceAggregatesQueue(t *testing.T) {
	repo := newFakeSubmissionRepo(
		models.Submission{ID: 1, Status: models.SubmissionStatusPending},
		models.Submission{ID: 2, Status: models.SubmissionStatusTeacherReview},
		models.Submission{ID: 3, Status: models.SubmissionStatusAccepted,
			FinalGrade: models.NewJSON(models.FinalGrade{Score: 80})},
		models.Submission{ID: 4, Status: models.SubmissionStatusAccepted,
			FinalGrade: models.NewJSON(models.FinalGrade{Score: 40})},
	)
	svc := NewStatsService(repo, nil, time.Minute, testLogger())

	stats, err := svc.ReviewStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), stats.Total)
	require.Equal(t, int64(2), stats.ByStatus[models.SubmissionStatusAccepted])
	require.Equal(t, int64(1), stats.ByStatus[models.SubmissionStatusTeacherReview])
	require.InDelta(t, 60.0, stats.AverageFinalScore, 0.001)
}

func TestStatsServiceUsesCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	repo := newFakeSubmissionRepo(models.Submission{ID: 1, Status: models.SubmissionStatusPending})
	svc := NewStatsService(repo, redisClient, time.Minute, testLogger())

	first, err := svc.ReviewStats(context.Background())
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Equal(t, int64(1), first.Total)

	// mutate repo to prove the cached aggregate is served
	require.NoError(t, repo.Create(context.Background(), &models.Submission{ID: 2, Status: models.SubmissionStatusPending}))

	cached, err := svc.ReviewStats(context.Background())
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, int64(1), cached.Total)
}
