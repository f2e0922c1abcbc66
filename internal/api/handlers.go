package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hothouse/hothouse/internal/logger"
	"github.com/hothouse/hothouse/internal/queue"
	"github.com/hothouse/hothouse/internal/store"
)

// downloadJob enqueues application discovery for a job posting.
// POST /api/v1/jobs/:job_id/download?candidate_id=
func (r *Router) downloadJob(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}
	candidateID, ok := parseOptionalQueryID(c, "candidate_id")
	if !ok {
		return
	}

	task := &queue.Task{
		Kind:        queue.KindDownload,
		JobID:       jobID,
		CandidateID: candidateID,
	}
	r.enqueue(c, task)
}

// rateJob enqueues the rating fan-out for a job posting, or a single
// candidate rating when candidate_id is given.
// POST /api/v1/jobs/:job_id/rate?candidate_id=&refresh=true
func (r *Router) rateJob(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}
	candidateID, ok := parseOptionalQueryID(c, "candidate_id")
	if !ok {
		return
	}
	refresh := c.Query("refresh") == "true"

	task := &queue.Task{
		Kind:    queue.KindRateJob,
		JobID:   jobID,
		Refresh: refresh,
	}
	if candidateID != 0 {
		task.Kind = queue.KindRateCandidate
		task.CandidateID = candidateID
	}
	r.enqueue(c, task)
}

// listCandidates returns the job posting's candidates ordered by score
// descending, with their detail records.
// GET /api/v1/jobs/:job_id/candidates
func (r *Router) listCandidates(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	ranking, err := r.store.Ranking(ctx, jobID)
	if err != nil {
		r.logger.Error("ranking lookup failed", logger.Int64("job_id", jobID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list candidates"})
		return
	}

	candidates := make([]*store.Candidate, 0, len(ranking))
	for _, member := range ranking {
		candidate, err := r.store.GetCandidate(ctx, jobID, member.CandidateID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list candidates"})
			return
		}
		candidates = append(candidates, candidate)
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":     jobID,
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// rejectCandidate removes a candidate from the ranking and detail store.
// DELETE /api/v1/jobs/:job_id/candidates/:candidate_id
func (r *Router) rejectCandidate(c *gin.Context) {
	jobID, ok := parseID(c, "job_id")
	if !ok {
		return
	}
	candidateID, ok := parseID(c, "candidate_id")
	if !ok {
		return
	}

	if err := r.store.RemoveCandidate(c.Request.Context(), jobID, candidateID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject candidate"})
		return
	}
	c.Status(http.StatusNoContent)
}

// enqueue validates and enqueues a task, answering 202 with the message ID.
func (r *Router) enqueue(c *gin.Context, task *queue.Task) {
	id, err := r.enqueuer.Enqueue(c.Request.Context(), task)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidTask) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		r.logger.Error("enqueue failed", logger.String("kind", string(task.Kind)), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue task"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": id,
		"kind":    task.Kind,
		"job_id":  task.JobID,
	})
}

// parseID parses a positive integer path parameter.
func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return id, true
}

// parseOptionalQueryID parses an optional positive integer query parameter,
// returning 0 when absent.
func parseOptionalQueryID(c *gin.Context, param string) (int64, bool) {
	raw := c.Query(param)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return id, true
}
