// Package rating drives the two-phase rating flow: a job-level task fans
// out into single-candidate tasks, and each candidate task converts the
// candidate's documents and asks the scorer for a structured rating.
package rating

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hothouse/hothouse/internal/greenhouse"
	"github.com/hothouse/hothouse/internal/logger"
	"github.com/hothouse/hothouse/internal/metrics"
	"github.com/hothouse/hothouse/internal/queue"
	"github.com/hothouse/hothouse/internal/scoring"
	"github.com/hothouse/hothouse/internal/store"
)

// TrackingAPI is the slice of the tracking service the engine consumes.
type TrackingAPI interface {
	GetCandidateRaw(ctx context.Context, candidateID int64) ([]byte, error)
	GetJobPostDescription(ctx context.Context, jobID int64) (string, error)
}

// Enqueuer enqueues follow-up tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *queue.Task) (string, error)
}

// PageConverter turns one attachment into ordered page-image files.
type PageConverter interface {
	Convert(ctx context.Context, candidateID int64, att *greenhouse.Attachment, attachmentType string) ([]string, error)
}

// Engine owns both rating phases.
type Engine struct {
	api        TrackingAPI
	store      *store.Store
	enqueuer   Enqueuer
	converter  PageConverter
	scorer     scoring.Scorer
	jobPostTTL time.Duration
	detailTTL  time.Duration
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// New creates an Engine.
func New(
	api TrackingAPI,
	st *store.Store,
	enq Enqueuer,
	conv PageConverter,
	scorer scoring.Scorer,
	jobPostTTL, detailTTL time.Duration,
	m *metrics.Metrics,
	log logger.Logger,
) *Engine {
	return &Engine{
		api:        api,
		store:      st,
		enqueuer:   enq,
		converter:  conv,
		scorer:     scorer,
		jobPostTTL: jobPostTTL,
		detailTTL:  detailTTL,
		metrics:    m,
		logger:     log,
	}
}

// HandleRateJob fans a job-level rating task out into one single-candidate
// task per ranking member that still needs a rating. With refresh set every
// member is re-queued regardless of status. The fan-out itself does no
// conversion or scoring, so re-delivery of the same task only re-enqueues
// candidates that are still not rated.
func (e *Engine) HandleRateJob(ctx context.Context, task *queue.Task) error {
	log := e.logger.With(logger.Int64("job_id", task.JobID))

	ranking, err := e.store.Ranking(ctx, task.JobID)
	if err != nil {
		return err
	}

	enqueued := 0
	for _, member := range ranking {
		c, err := e.store.GetCandidate(ctx, task.JobID, member.CandidateID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("ranking member has no detail record, skipping",
					logger.Int64("candidate_id", member.CandidateID))
				continue
			}
			return err
		}
		if c.Rated() && !task.Refresh {
			continue
		}

		follow := &queue.Task{
			Kind:        queue.KindRateCandidate,
			JobID:       task.JobID,
			CandidateID: member.CandidateID,
			Refresh:     task.Refresh,
		}
		if _, err := e.enqueuer.Enqueue(ctx, follow); err != nil {
			return fmt.Errorf("enqueue candidate rating: %w", err)
		}
		if err := e.store.SetStatus(ctx, task.JobID, member.CandidateID, store.StatusQueued); err != nil {
			return err
		}
		enqueued++
	}

	log.Info("rating fan-out complete",
		logger.Int("candidates", len(ranking)),
		logger.Int("enqueued", enqueued),
		logger.Bool("refresh", task.Refresh),
	)
	return nil
}

// HandleRateCandidate rates one candidate: fetch the job description and
// candidate detail (cache-first), convert the resume and cover letter to
// page images, score the pages against the description, and persist the
// result. Page images are transient and removed on every outcome.
//
// A candidate whose documents produce no pages is left unrated rather than
// scored blind. A detail record with no identity is treated as poisoned:
// the candidate is purged from the store and the task completes.
func (e *Engine) HandleRateCandidate(ctx context.Context, task *queue.Task) error {
	log := e.logger.With(
		logger.Int64("job_id", task.JobID),
		logger.Int64("candidate_id", task.CandidateID),
	)

	description, err := e.jobDescription(ctx, task.JobID)
	if err != nil {
		return err
	}

	detail, err := e.candidateDetail(ctx, task.CandidateID)
	if err != nil {
		return err
	}
	if detail.ID == 0 {
		log.Warn("malformed candidate detail, purging")
		return e.store.RemoveCandidate(ctx, task.JobID, task.CandidateID)
	}

	current, err := e.store.GetCandidate(ctx, task.JobID, task.CandidateID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		// Rejected between fan-out and processing. Rating anyway would
		// re-add the candidate; only an explicit refresh may do that.
		if !task.Refresh {
			log.Info("candidate no longer tracked, skipping")
			return nil
		}
	}
	if current != nil && current.Rated() && !task.Refresh {
		log.Debug("candidate already rated, skipping")
		return nil
	}

	app := detail.ActiveApplication()
	if app == nil || len(app.Attachments) == 0 {
		log.Info("candidate has no attachments, leaving unrated")
		return nil
	}

	var pagePaths []string
	defer func() { e.removePages(pagePaths) }()

	for _, attachmentType := range []string{greenhouse.AttachmentResume, greenhouse.AttachmentCoverLetter} {
		att := detail.FindAttachment(attachmentType)
		if att == nil {
			continue
		}
		paths, convErr := e.converter.Convert(ctx, detail.ID, att, attachmentType)
		if convErr != nil {
			log.Error("attachment conversion failed",
				logger.String("type", attachmentType),
				logger.Error(convErr),
			)
			e.metrics.ConversionFailed()
			continue
		}
		if len(paths) == 0 {
			e.metrics.ConversionFailed()
			continue
		}
		pagePaths = append(pagePaths, paths...)
	}

	if len(pagePaths) == 0 {
		log.Warn("no page images produced, leaving unrated")
		return nil
	}

	pages := make([][]byte, 0, len(pagePaths))
	for _, p := range pagePaths {
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return fmt.Errorf("read page image: %w", readErr)
		}
		pages = append(pages, data)
	}

	result, err := e.scorer.Score(ctx, description, pages)
	if err != nil {
		return fmt.Errorf("score candidate %d: %w", detail.ID, err)
	}

	rated := &store.Candidate{
		ID:           detail.ID,
		JobID:        task.JobID,
		Name:         detail.Name(),
		Score:        result.Score,
		Notes:        result.Notes,
		GitHub:       result.GitHub,
		PersonalSite: result.PersonalSite,
	}
	if err := e.store.SaveRating(ctx, rated); err != nil {
		return err
	}
	e.metrics.CandidateRated()

	log.Info("candidate rated",
		logger.Int("score", result.Score),
		logger.Int("pages", len(pages)),
	)
	return nil
}

// jobDescription returns the job posting's description, fetching through
// the bounded cache.
func (e *Engine) jobDescription(ctx context.Context, jobID int64) (string, error) {
	cached, err := e.store.GetCachedJobPost(ctx, jobID)
	if err != nil {
		return "", err
	}
	if cached != "" {
		return cached, nil
	}

	description, err := e.api.GetJobPostDescription(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("fetch job post %d: %w", jobID, err)
	}
	if err := e.store.CacheJobPost(ctx, jobID, description, e.jobPostTTL); err != nil {
		return "", err
	}
	return description, nil
}

// candidateDetail returns the candidate-detail record, fetching through the
// bounded cache. Raw payloads are cached so decode behavior is identical on
// hits and misses.
func (e *Engine) candidateDetail(ctx context.Context, candidateID int64) (*greenhouse.CandidateDetail, error) {
	raw, err := e.store.GetCachedDetail(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw, err = e.api.GetCandidateRaw(ctx, candidateID)
		if err != nil {
			return nil, fmt.Errorf("fetch candidate %d: %w", candidateID, err)
		}
		if err := e.store.CacheDetail(ctx, candidateID, raw, e.detailTTL); err != nil {
			return nil, err
		}
	}
	return greenhouse.ParseCandidateDetail(raw)
}

func (e *Engine) removePages(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to remove page image",
				logger.String("path", p),
				logger.Error(err),
			)
		}
	}
}
