package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dealchain"

// Metrics bundles the process-wide collectors behind one registry. A nil
// *Metrics is valid and records nothing, so tests and tools can run without
// wiring prometheus.
type Metrics struct {
	registry *prometheus.Registry

	dealsCreated      *prometheus.CounterVec
	dealTransitions   *prometheus.CounterVec
	schedulerRuns     prometheus.Counter
	schedulerOutcomes *prometheus.CounterVec
	schedulerDuration prometheus.Histogram
	bridgePolls       *prometheus.CounterVec
}

// New builds the collector set on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		dealsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deals_created_total",
			Help:      "Deals created, partitioned by whether they are cross-chain.",
		}, []string{"cross_chain"}),
		dealTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deal_transitions_total",
			Help:      "Deal status transitions applied.",
		}, []string{"from_status", "to_status"}),
		schedulerRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_runs_total",
			Help:      "Completed deadline scheduler sweeps.",
		}),
		schedulerOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_pass_outcomes_total",
			Help:      "Per-pass outcomes of the deadline scheduler.",
		}, []string{"pass", "outcome"}),
		schedulerDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_run_duration_seconds",
			Help:      "Duration of one full scheduler sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		bridgePolls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_status_polls_total",
			Help:      "Bridge aggregator status polls, partitioned by reported status.",
		}, []string{"status"}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DealCreated records one created deal.
func (m *Metrics) DealCreated(crossChain bool) {
	if m == nil {
		return
	}
	m.dealsCreated.WithLabelValues(strconv.FormatBool(crossChain)).Inc()
}

// TransitionApplied records one deal status transition.
func (m *Metrics) TransitionApplied(from, to string) {
	if m == nil {
		return
	}
	m.dealTransitions.WithLabelValues(from, to).Inc()
}

// SchedulerRun records one completed sweep and its duration.
func (m *Metrics) SchedulerRun(d time.Duration) {
	if m == nil {
		return
	}
	m.schedulerRuns.Inc()
	m.schedulerDuration.Observe(d.Seconds())
}

// PassOutcome records the outcome of one scheduler pass acting on one deal.
func (m *Metrics) PassOutcome(pass, outcome string) {
	if m == nil {
		return
	}
	m.schedulerOutcomes.WithLabelValues(pass, outcome).Inc()
}

// BridgePoll records one bridge status poll.
func (m *Metrics) BridgePoll(status string) {
	if m == nil {
		return
	}
	m.bridgePolls.WithLabelValues(status).Inc()
}
