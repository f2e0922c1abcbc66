// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	TasksProcessed     *prometheus.CounterVec
	CandidatesSeeded   prometheus.Counter
	CandidatesRated    prometheus.Counter
	ConversionFailures prometheus.Counter
}

// Task results recorded on TasksProcessed.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// New registers the pipeline collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hothouse",
			Name:      "tasks_processed_total",
			Help:      "Queue tasks processed, by queue and result.",
		}, []string{"queue", "result"}),
		CandidatesSeeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hothouse",
			Name:      "candidates_seeded_total",
			Help:      "Candidate stubs inserted by application discovery.",
		}),
		CandidatesRated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hothouse",
			Name:      "candidates_rated_total",
			Help:      "Candidates scored by the rating engine.",
		}),
		ConversionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hothouse",
			Name:      "conversion_failures_total",
			Help:      "Attachments that produced no page images.",
		}),
	}
	reg.MustRegister(m.TasksProcessed, m.CandidatesSeeded, m.CandidatesRated, m.ConversionFailures)
	return m
}

// The increment helpers are nil-safe so tests can pass a nil *Metrics.

func (m *Metrics) TaskDone(queue string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.TasksProcessed.WithLabelValues(queue, result).Inc()
}

func (m *Metrics) CandidateSeeded() {
	if m == nil {
		return
	}
	m.CandidatesSeeded.Inc()
}

func (m *Metrics) CandidateRated() {
	if m == nil {
		return
	}
	m.CandidatesRated.Inc()
}

func (m *Metrics) ConversionFailed() {
	if m == nil {
		return
	}
	m.ConversionFailures.Inc()
}
