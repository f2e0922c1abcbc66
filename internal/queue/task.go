package queue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates task payloads. Download seeds candidates, rate-job
// fans out over a posting's unrated candidates, rate-candidate scores a
// single candidate.
type Kind string

const (
	KindDownload      Kind = "download"
	KindRateJob       Kind = "rate-job"
	KindRateCandidate Kind = "rate-candidate"
)

// Queue names. Download tasks and both rating phases travel on separate
// queues so their concurrency is bounded independently.
const (
	QueueDownload = "download"
	QueueRate     = "rate"
)

// ErrInvalidTask is wrapped by all task validation failures.
var ErrInvalidTask = errors.New("invalid task")

// Task is the tagged payload carried on the queue. Effects must be safe to
// repeat: delivery is at-least-once.
type Task struct {
	Kind  Kind  `json:"kind"`
	JobID int64 `json:"job_id"`

	// CandidateID is required for rate-candidate, optional for download
	// (single-candidate refresh), and absent for rate-job.
	CandidateID int64 `json:"candidate_id,omitempty"`

	// Refresh forces re-rating of already-rated candidates.
	Refresh bool `json:"refresh,omitempty"`
}

// Queue returns the queue a task kind travels on.
func (t *Task) Queue() string {
	if t.Kind == KindDownload {
		return QueueDownload
	}
	return QueueRate
}

// Validate checks kind-specific required fields. Called at enqueue and
// again at dequeue so a malformed payload never reaches a handler.
func (t *Task) Validate() error {
	if t.JobID <= 0 {
		return fmt.Errorf("%w: job_id is required", ErrInvalidTask)
	}
	switch t.Kind {
	case KindDownload:
		// candidate_id optional
	case KindRateJob:
		if t.CandidateID != 0 {
			return fmt.Errorf("%w: rate-job must not carry candidate_id", ErrInvalidTask)
		}
	case KindRateCandidate:
		if t.CandidateID <= 0 {
			return fmt.Errorf("%w: rate-candidate requires candidate_id", ErrInvalidTask)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTask, t.Kind)
	}
	return nil
}

func (t *Task) encode() (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("serialize task: %w", err)
	}
	return string(data), nil
}

func decodeTask(data string) (*Task, error) {
	var t Task
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
