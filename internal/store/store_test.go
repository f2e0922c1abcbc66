package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hothouse/hothouse/internal/logger"
	"github.com/hothouse/hothouse/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.New(client, logger.NewNop()), mr
}

func TestSeedAndGetCandidate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.SeedCandidate(ctx, &store.Candidate{ID: 7, JobID: 42, Name: "Ada Lovelace"})
	require.NoError(t, err)

	known, err := s.IsKnown(ctx, 42, 7)
	require.NoError(t, err)
	assert.True(t, known)

	c, err := s.GetCandidate(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, store.StatusUnrated, c.Status)
	assert.Equal(t, store.UnratedScore, c.Score)
	assert.Equal(t, "Ada Lovelace", c.Name)
}

func TestGetCandidateNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetCandidate(context.Background(), 42, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveRatingKeepsRankingAndDetailConsistent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedCandidate(ctx, &store.Candidate{ID: 7, JobID: 42, Name: "Ada"}))

	rated := &store.Candidate{ID: 7, JobID: 42, Name: "Ada", Score: 87, Notes: "strong systems background"}
	require.NoError(t, s.SaveRating(ctx, rated))

	c, err := s.GetCandidate(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRated, c.Status)
	assert.Equal(t, 87, c.Score)

	ranking, err := s.Ranking(ctx, 42)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	assert.Equal(t, int64(7), ranking[0].CandidateID)
	assert.Equal(t, c.Score, ranking[0].Score, "ranking score must equal detail score")
}

func TestRankingOrdersByScoreDescending(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, c := range []store.Candidate{
		{ID: 1, JobID: 42, Score: 40},
		{ID: 2, JobID: 42, Score: 95},
		{ID: 3, JobID: 42, Score: 71},
	} {
		c := c
		require.NoError(t, s.SaveRating(ctx, &c))
	}

	ranking, err := s.Ranking(ctx, 42)
	require.NoError(t, err)
	require.Len(t, ranking, 3)
	assert.Equal(t, int64(2), ranking[0].CandidateID)
	assert.Equal(t, int64(3), ranking[1].CandidateID)
	assert.Equal(t, int64(1), ranking[2].CandidateID)
}

func TestRefreshDiscardsPriorScore(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRating(ctx, &store.Candidate{ID: 7, JobID: 42, Score: 60}))
	require.NoError(t, s.SaveRating(ctx, &store.Candidate{ID: 7, JobID: 42, Score: 85}))

	c, err := s.GetCandidate(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, 85, c.Score)

	ranking, err := s.Ranking(ctx, 42)
	require.NoError(t, err)
	require.Len(t, ranking, 1, "candidate must appear in the ranking at most once")
	assert.Equal(t, 85, ranking[0].Score)
}

func TestRemoveCandidate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedCandidate(ctx, &store.Candidate{ID: 7, JobID: 42}))
	require.NoError(t, s.RemoveCandidate(ctx, 42, 7))

	known, err := s.IsKnown(ctx, 42, 7)
	require.NoError(t, err)
	assert.False(t, known)

	_, err = s.GetCandidate(ctx, 42, 7)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJobPostCacheExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CacheJobPost(ctx, 42, "Senior Go Engineer", time.Minute))

	desc, err := s.GetCachedJobPost(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", desc)

	mr.FastForward(2 * time.Minute)

	desc, err = s.GetCachedJobPost(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, desc, "expired cache entry must read as a miss")
}

func TestDetailCacheRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	blob, err := s.GetCachedDetail(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, blob)

	require.NoError(t, s.CacheDetail(ctx, 7, []byte(`{"id":7}`), 0))

	blob, err = s.GetCachedDetail(ctx, 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7}`, string(blob))
}
