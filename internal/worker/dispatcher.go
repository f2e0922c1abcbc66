package worker

import (
	"context"
	"fmt"

	"github.com/hothouse/hothouse/internal/discovery"
	"github.com/hothouse/hothouse/internal/queue"
	"github.com/hothouse/hothouse/internal/rating"
)

// Dispatcher routes tasks to the pipeline stage that owns their kind.
type Dispatcher struct {
	discoverer *discovery.Discoverer
	engine     *rating.Engine
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(d *discovery.Discoverer, e *rating.Engine) *Dispatcher {
	return &Dispatcher{discoverer: d, engine: e}
}

// Handle dispatches on the task kind. Tasks are validated at dequeue, so an
// unknown kind here means a version skew between producer and worker.
func (d *Dispatcher) Handle(ctx context.Context, task *queue.Task) error {
	switch task.Kind {
	case queue.KindDownload:
		return d.discoverer.Run(ctx, task.JobID, task.CandidateID)
	case queue.KindRateJob:
		return d.engine.HandleRateJob(ctx, task)
	case queue.KindRateCandidate:
		return d.engine.HandleRateCandidate(ctx, task)
	default:
		return fmt.Errorf("%w: no handler for kind %q", queue.ErrInvalidTask, task.Kind)
	}
}
