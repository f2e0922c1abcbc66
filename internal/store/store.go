// Package store is the durable owner of candidate and job-posting state.
// Per job posting it keeps a sorted set of candidate IDs keyed by score and
// one JSON detail blob per candidate, plus bounded-TTL caches for job
// descriptions and raw candidate-detail fetches.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hothouse/hothouse/internal/logger"
)

// ErrNotFound is returned when a candidate has no detail record.
var ErrNotFound = errors.New("candidate not found")

// UnratedScore is the sentinel ranking score for candidates that have not
// been rated yet.
const UnratedScore = 0

// Store provides keyed access to candidate and job-posting state.
type Store struct {
	client redis.UniversalClient
	logger logger.Logger
}

// New creates a Store on top of an existing Redis client.
func New(client redis.UniversalClient, log logger.Logger) *Store {
	return &Store{client: client, logger: log}
}

// RankedCandidate is one ranking entry: a candidate ID and its score.
type RankedCandidate struct {
	CandidateID int64
	Score       int
}

// IsKnown reports whether the candidate is already a member of the job
// posting's ranking.
func (s *Store) IsKnown(ctx context.Context, jobID, candidateID int64) (bool, error) {
	err := s.client.ZScore(ctx, rankingKey(jobID), memberID(candidateID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ranking lookup: %w", err)
	}
	return true, nil
}

// SeedCandidate inserts an unrated stub: ranking membership at the sentinel
// score plus a minimal detail record.
func (s *Store) SeedCandidate(ctx context.Context, c *Candidate) error {
	c.Status = StatusUnrated
	c.Score = UnratedScore

	blob, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, rankingKey(c.JobID), redis.Z{Score: UnratedScore, Member: memberID(c.ID)})
	pipe.Set(ctx, candidateKey(c.JobID, c.ID), blob, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seed candidate %d: %w", c.ID, err)
	}

	s.publish(ctx, "candidate.seeded", c.JobID, c.ID)
	return nil
}

// GetCandidate loads a candidate detail record.
func (s *Store) GetCandidate(ctx context.Context, jobID, candidateID int64) (*Candidate, error) {
	blob, err := s.client.Get(ctx, candidateKey(jobID, candidateID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate %d: %w", candidateID, err)
	}

	var c Candidate
	if err := json.Unmarshal(blob, &c); err != nil {
		return nil, fmt.Errorf("decode candidate %d: %w", candidateID, err)
	}
	return &c, nil
}

// SetStatus updates only the lifecycle status on the detail record.
func (s *Store) SetStatus(ctx context.Context, jobID, candidateID int64, status Status) error {
	c, err := s.GetCandidate(ctx, jobID, candidateID)
	if err != nil {
		return err
	}
	c.Status = status

	blob, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}
	if err := s.client.Set(ctx, candidateKey(jobID, candidateID), blob, 0).Err(); err != nil {
		return fmt.Errorf("set status for candidate %d: %w", candidateID, err)
	}
	return nil
}

// SaveRating persists a rating result. The ranking score and the detail
// record are written in one transaction so the two never diverge on a
// successful write.
func (s *Store) SaveRating(ctx context.Context, c *Candidate) error {
	c.Status = StatusRated

	blob, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, rankingKey(c.JobID), redis.Z{Score: float64(c.Score), Member: memberID(c.ID)})
	pipe.Set(ctx, candidateKey(c.JobID, c.ID), blob, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save rating for candidate %d: %w", c.ID, err)
	}

	s.publish(ctx, "candidate.rated", c.JobID, c.ID)
	return nil
}

// RemoveCandidate deletes a candidate from both the ranking and the detail
// store. Used for explicit rejection and for purging malformed records.
func (s *Store) RemoveCandidate(ctx context.Context, jobID, candidateID int64) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, rankingKey(jobID), memberID(candidateID))
	pipe.Del(ctx, candidateKey(jobID, candidateID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove candidate %d: %w", candidateID, err)
	}

	s.publish(ctx, "candidate.removed", jobID, candidateID)
	return nil
}

// Ranking returns the job posting's candidates ordered by score descending.
func (s *Store) Ranking(ctx context.Context, jobID int64) ([]RankedCandidate, error) {
	entries, err := s.client.ZRevRangeWithScores(ctx, rankingKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ranking for job %d: %w", jobID, err)
	}

	ranked := make([]RankedCandidate, 0, len(entries))
	for _, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			s.logger.Warn("skipping non-numeric ranking member",
				logger.Int64("job_id", jobID),
				logger.String("member", member),
			)
			continue
		}
		ranked = append(ranked, RankedCandidate{CandidateID: id, Score: int(entry.Score)})
	}
	return ranked, nil
}

// GetCachedJobPost returns the cached job description, or "" on miss.
func (s *Store) GetCachedJobPost(ctx context.Context, jobID int64) (string, error) {
	val, err := s.client.Get(ctx, jobPostKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get cached job post %d: %w", jobID, err)
	}
	return val, nil
}

// CacheJobPost stores the job description with the given lifetime.
func (s *Store) CacheJobPost(ctx context.Context, jobID int64, description string, ttl time.Duration) error {
	if err := s.client.Set(ctx, jobPostKey(jobID), description, ttl).Err(); err != nil {
		return fmt.Errorf("cache job post %d: %w", jobID, err)
	}
	return nil
}

// GetCachedDetail returns a cached raw candidate-detail payload, or nil on
// miss.
func (s *Store) GetCachedDetail(ctx context.Context, candidateID int64) ([]byte, error) {
	blob, err := s.client.Get(ctx, detailCacheKey(candidateID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached detail %d: %w", candidateID, err)
	}
	return blob, nil
}

// CacheDetail stores a raw candidate-detail payload with the given lifetime.
func (s *Store) CacheDetail(ctx context.Context, candidateID int64, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, detailCacheKey(candidateID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache detail %d: %w", candidateID, err)
	}
	return nil
}

// publish emits a best-effort pub/sub event. Failures are logged, never
// propagated: events are advisory, the keyed state is the source of truth.
func (s *Store) publish(ctx context.Context, event string, jobID, candidateID int64) {
	payload, err := json.Marshal(map[string]any{
		"event":        event,
		"job_id":       jobID,
		"candidate_id": candidateID,
		"published_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		s.logger.Warn("event publish failed",
			logger.String("event", event),
			logger.Int64("candidate_id", candidateID),
			logger.Error(err),
		)
	}
}

func memberID(candidateID int64) string {
	return strconv.FormatInt(candidateID, 10)
}
