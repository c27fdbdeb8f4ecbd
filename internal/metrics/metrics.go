// Package metrics exposes Prometheus counters for the draw lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Assign call outcomes.
const (
	AssignCommitted = "committed"
	AssignCoalesced = "coalesced"
	AssignLostRace  = "lost_race"
)

// DrawMetrics holds the collectors. A DrawMetrics built without a registry
// records nothing.
type DrawMetrics struct {
	assignments       *prometheus.CounterVec
	feasibilityChecks *prometheus.CounterVec
	reveals           *prometheus.CounterVec
	assignCalls       *prometheus.CounterVec
	shuffleAttempts   prometheus.Histogram
}

// New registers the draw collectors with registry. A nil registry yields a
// no-op DrawMetrics.
func New(registry prometheus.Registerer) *DrawMetrics {
	m := &DrawMetrics{}
	if registry == nil {
		return m
	}

	factory := promauto.With(registry)

	m.assignments = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "drawnames_assignments_total",
		Help: "Total number of committed assignments by generation method",
	}, []string{"method"})

	m.feasibilityChecks = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "drawnames_feasibility_checks_total",
		Help: "Total number of feasibility checks by result",
	}, []string{"result"})

	m.reveals = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "drawnames_reveals_total",
		Help: "Total number of reveal requests, first or repeat",
	}, []string{"kind"})

	m.assignCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "drawnames_assign_calls_total",
		Help: "Total number of assign calls by outcome",
	}, []string{"outcome"})

	m.shuffleAttempts = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "drawnames_shuffle_attempts",
		Help:    "Random permutations drawn before a valid assignment was found",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	return m
}

// ObserveAssignment records one generated assignment.
func (m *DrawMetrics) ObserveAssignment(method string, attempts int) {
	if m.assignments == nil {
		return
	}
	m.assignments.WithLabelValues(method).Inc()
	m.shuffleAttempts.Observe(float64(attempts))
}

// ObserveFeasibility records one feasibility verdict.
func (m *DrawMetrics) ObserveFeasibility(feasible bool) {
	if m.feasibilityChecks == nil {
		return
	}
	result := "infeasible"
	if feasible {
		result = "feasible"
	}
	m.feasibilityChecks.WithLabelValues(result).Inc()
}

// ObserveReveal records one reveal.
func (m *DrawMetrics) ObserveReveal(first bool) {
	if m.reveals == nil {
		return
	}
	kind := "repeat"
	if first {
		kind = "first"
	}
	m.reveals.WithLabelValues(kind).Inc()
}

// ObserveAssignCall records how an assign call was served.
func (m *DrawMetrics) ObserveAssignCall(outcome string) {
	if m.assignCalls == nil {
		return
	}
	m.assignCalls.WithLabelValues(outcome).Inc()
}

// Handler serves the metrics gathered by gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
