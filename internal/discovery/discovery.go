// Package discovery pages through the tracking API's application listing,
// filters to eligible applications, and seeds unrated candidate stubs into
// the store, ending each run with one coalesced rating task.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/hothouse/hothouse/internal/greenhouse"
	"github.com/hothouse/hothouse/internal/logger"
	"github.com/hothouse/hothouse/internal/metrics"
	"github.com/hothouse/hothouse/internal/queue"
	"github.com/hothouse/hothouse/internal/store"
)

// TrackingAPI is the slice of the tracking service discovery consumes.
type TrackingAPI interface {
	ListApplications(ctx context.Context, jobID int64, page int) ([]greenhouse.Application, error)
	GetCandidateRaw(ctx context.Context, candidateID int64) ([]byte, error)
}

// Enqueuer enqueues follow-up tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *queue.Task) (string, error)
}

// Discoverer seeds new candidates for a job posting.
type Discoverer struct {
	api       TrackingAPI
	store     *store.Store
	enqueuer  Enqueuer
	detailTTL time.Duration
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// New creates a Discoverer.
func New(api TrackingAPI, st *store.Store, enq Enqueuer, detailTTL time.Duration, m *metrics.Metrics, log logger.Logger) *Discoverer {
	return &Discoverer{
		api:       api,
		store:     st,
		enqueuer:  enq,
		detailTTL: detailTTL,
		metrics:   m,
		logger:    log,
	}
}

// Run pages through the job posting's applications until the first empty
// page. targetCandidateID narrows the run to one candidate and implies a
// refresh of that candidate's stub. Exactly one rate-job task is enqueued
// per run regardless of how many candidates were seeded; re-running with
// no new applications leaves the store unchanged.
func (d *Discoverer) Run(ctx context.Context, jobID, targetCandidateID int64) error {
	log := d.logger.With(logger.Int64("job_id", jobID))
	log.Info("discovering applications", logger.Int64("target_candidate_id", targetCandidateID))

	seeded := 0
	for page := 1; ; page++ {
		applications, err := d.api.ListApplications(ctx, jobID, page)
		if err != nil {
			return fmt.Errorf("list applications page %d: %w", page, err)
		}
		if len(applications) == 0 {
			break
		}

		for i := range applications {
			app := &applications[i]
			if targetCandidateID != 0 && app.CandidateID != targetCandidateID {
				continue
			}
			if !app.Eligible() {
				continue
			}

			ok, err := d.processApplication(ctx, jobID, app, targetCandidateID != 0)
			if err != nil {
				return err
			}
			if ok {
				seeded++
			}

			if targetCandidateID != 0 && app.CandidateID == targetCandidateID {
				break
			}
		}
	}

	log.Info("discovery finished", logger.Int("seeded", seeded))

	if _, err := d.enqueuer.Enqueue(ctx, &queue.Task{Kind: queue.KindRateJob, JobID: jobID}); err != nil {
		return fmt.Errorf("enqueue rating task: %w", err)
	}
	return nil
}

// processApplication dedupes against the ranking and seeds a stub for a
// new candidate. Reports whether a stub was written.
func (d *Discoverer) processApplication(ctx context.Context, jobID int64, app *greenhouse.Application, refresh bool) (bool, error) {
	known, err := d.store.IsKnown(ctx, jobID, app.CandidateID)
	if err != nil {
		return false, err
	}
	if known {
		if !refresh {
			return false, nil
		}
		d.logger.Info("refreshing existing candidate",
			logger.Int64("job_id", jobID),
			logger.Int64("candidate_id", app.CandidateID),
		)
		if err := d.store.RemoveCandidate(ctx, jobID, app.CandidateID); err != nil {
			return false, err
		}
	}

	detail, err := d.fetchDetail(ctx, app.CandidateID)
	if err != nil {
		return false, err
	}
	if detail.ID == 0 {
		d.logger.Warn("skipping candidate with malformed detail record",
			logger.Int64("job_id", jobID),
			logger.Int64("candidate_id", app.CandidateID),
		)
		return false, nil
	}

	stub := &store.Candidate{
		ID:    detail.ID,
		JobID: jobID,
		Name:  detail.Name(),
	}
	if err := d.store.SeedCandidate(ctx, stub); err != nil {
		return false, err
	}
	d.metrics.CandidateSeeded()
	return true, nil
}

// fetchDetail returns the candidate-detail record, caching the raw payload
// so the rating pass does not refetch it.
func (d *Discoverer) fetchDetail(ctx context.Context, candidateID int64) (*greenhouse.CandidateDetail, error) {
	raw, err := d.store.GetCachedDetail(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw, err = d.api.GetCandidateRaw(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		if err := d.store.CacheDetail(ctx, candidateID, raw, d.detailTTL); err != nil {
			return nil, err
		}
	}
	return greenhouse.ParseCandidateDetail(raw)
}
